package ws

import (
	"encoding/json"
	"time"

	"studnet/internal/domain/profile"
	"studnet/internal/view"
)

const (
	EventMatch = "match"
	EventView  = "view"
)

type MatchEvent struct {
	Type      string    `json:"type"`
	Card      view.Card `json:"card"`
	Timestamp string    `json:"timestamp"`
}

type ViewEvent struct {
	Type      string        `json:"type"`
	View      view.CardView `json:"view"`
	Timestamp string        `json:"timestamp"`
}

// NotifyMatch tells the user's clients about a new mutual match.
func (h *Hub) NotifyMatch(userID int64, p profile.Profile) {
	h.emit(userID, MatchEvent{
		Type:      EventMatch,
		Card:      view.Present(p),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// NotifyView pushes a freshly rendered swipe view.
func (h *Hub) NotifyView(userID int64, v view.CardView) {
	if h.ClientCount(userID) == 0 {
		return
	}
	h.emit(userID, ViewEvent{
		Type:      EventView,
		View:      v,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Hub) emit(userID int64, evt any) {
	b, err := json.Marshal(evt)
	if err != nil {
		return
	}
	h.SendToUser(userID, b)
}
