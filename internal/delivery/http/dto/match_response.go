package dto

import "studnet/internal/view"

type MatchesResponse struct {
	Matches []view.Card `json:"matches"`
	Stale   bool        `json:"stale"`
	Failed  bool        `json:"failed"`
}
