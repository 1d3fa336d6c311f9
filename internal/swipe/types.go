package swipe

import (
	"fmt"

	"studnet/internal/domain/profile"
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateDeciding
	StateAnimatingExit
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateDeciding:
		return "deciding"
	case StateAnimatingExit:
		return "animating_exit"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for st := StateIdle; st <= StateAnimatingExit; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown swipe state %q", b)
}

// Tab selects which candidate list is browsed.
type Tab string

const (
	TabAll      Tab = "all"
	TabIncoming Tab = "incoming"
)

func (t Tab) Valid() bool {
	return t == TabAll || t == TabIncoming
}

type Decision int

const (
	Pass Decision = iota + 1
	Like
)

func (d Decision) String() string {
	switch d {
	case Like:
		return "like"
	case Pass:
		return "pass"
	default:
		return "none"
	}
}

func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Decision) UnmarshalText(b []byte) error {
	v, ok := ParseDecision(string(b))
	if !ok {
		return fmt.Errorf("unknown decision %q", b)
	}
	*d = v
	return nil
}

// ParseDecision accepts "like" and "pass".
func ParseDecision(s string) (Decision, bool) {
	switch s {
	case "like":
		return Like, true
	case "pass":
		return Pass, true
	default:
		return 0, false
	}
}

type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

func (d Decision) Direction() Direction {
	if d == Like {
		return DirectionRight
	}
	return DirectionLeft
}

// Exit is the card leaving the screen after a decision.
type Exit struct {
	Profile   profile.Profile `json:"profile"`
	Decision  Decision        `json:"decision"`
	Direction Direction       `json:"direction"`
}

// Snapshot is a copy of the engine state for rendering.
type Snapshot struct {
	State         State             `json:"state"`
	Tab           Tab               `json:"tab"`
	Filter        profile.Filter    `json:"filter"`
	Queue         []profile.Profile `json:"queue"`
	Exiting       *Exit             `json:"exiting,omitempty"`
	Drag          Drag              `json:"drag"`
	LoadFailed    bool              `json:"load_failed"`
	Stale         bool              `json:"stale"`
	Refreshing    bool              `json:"refreshing"`
	Deferred      bool              `json:"deferred"`
	IncomingCount int               `json:"incoming_count"`
	ScrollOffset  float64           `json:"scroll_offset"`
}

// Head is the card on top of the queue.
func (s Snapshot) Head() (profile.Profile, bool) {
	if len(s.Queue) == 0 {
		return profile.Profile{}, false
	}
	return s.Queue[0], true
}

// Busy reports whether a decision holds the in-flight guard.
func (s Snapshot) Busy() bool {
	return s.State == StateDeciding || s.State == StateAnimatingExit
}
