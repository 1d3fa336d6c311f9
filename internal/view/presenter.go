package view

import (
	"context"

	"studnet/internal/store"
	"studnet/internal/swipe"
)

// CardView is everything the swipe screen needs to draw one frame.
type CardView struct {
	Tab   swipe.Tab   `json:"tab"`
	State swipe.State `json:"state"`

	Card          *Card           `json:"card,omitempty"`
	Next          *Card           `json:"next,omitempty"`
	Exiting       *Card           `json:"exiting,omitempty"`
	ExitDirection swipe.Direction `json:"exit_direction,omitempty"`

	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
	Opacity float64 `json:"opacity"`

	Loading   bool `json:"loading"`
	Empty     bool `json:"empty"`
	Retry     bool `json:"retry"`
	Stale     bool `json:"stale"`
	Remaining int  `json:"remaining"`

	IncomingBadge   int  `json:"incoming_badge"`
	ShowTutorial    bool `json:"show_tutorial"`
	ShowIncomingTip bool `json:"show_incoming_tip"`
}

// Presenter turns engine snapshots into views and owns the one-time overlays
// of a user.
type Presenter struct {
	store  *store.Local
	userID int64
}

func NewPresenter(st *store.Local, userID int64) *Presenter {
	return &Presenter{store: st, userID: userID}
}

func (p *Presenter) Render(ctx context.Context, s swipe.Snapshot) CardView {
	v := CardView{
		Tab:           s.Tab,
		State:         s.State,
		Opacity:       1,
		Stale:         s.Stale,
		Remaining:     len(s.Queue),
		IncomingBadge: s.IncomingCount,
	}

	if head, ok := s.Head(); ok {
		c := Present(head)
		v.Card = &c
		if len(s.Queue) > 1 {
			n := Present(s.Queue[1])
			v.Next = &n
		}
	}
	if s.Exiting != nil {
		c := Present(s.Exiting.Profile)
		v.Exiting = &c
		v.ExitDirection = s.Exiting.Direction
	}
	if s.Drag.Active {
		v.OffsetX, v.OffsetY, v.Opacity = s.Drag.DX, s.Drag.DY, s.Drag.Opacity
	}

	switch {
	case len(s.Queue) > 0:
	case s.State == swipe.StateLoading || s.State == swipe.StateIdle:
		v.Loading = true
	case s.LoadFailed:
		v.Retry = true
	default:
		v.Empty = s.Exiting == nil
	}

	v.ShowTutorial = s.Tab == swipe.TabAll && !p.seen(ctx, store.FlagTutorialSeen)
	v.ShowIncomingTip = s.Tab == swipe.TabIncoming && !p.seen(ctx, store.FlagIncomingTipSeen)
	return v
}

func (p *Presenter) DismissTutorial(ctx context.Context) error {
	return p.mark(ctx, store.FlagTutorialSeen)
}

func (p *Presenter) DismissIncomingTip(ctx context.Context) error {
	return p.mark(ctx, store.FlagIncomingTipSeen)
}

func (p *Presenter) seen(ctx context.Context, flag string) bool {
	var v bool
	e := p.store.Read(ctx, store.FlagKey(p.userID, flag), &v)
	return e.Hit && v
}

func (p *Presenter) mark(ctx context.Context, flag string) error {
	return p.store.Write(ctx, store.FlagKey(p.userID, flag), true, 0)
}
