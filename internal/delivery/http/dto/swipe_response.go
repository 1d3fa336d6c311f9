package dto

import "studnet/internal/view"

// ActionResponse reports whether a command was accepted together with the
// frame that followed it.
type ActionResponse struct {
	Accepted bool          `json:"accepted"`
	View     view.CardView `json:"view"`
}

type GestureResponse struct {
	Accepted bool          `json:"accepted"`
	Decision string        `json:"decision,omitempty"`
	View     view.CardView `json:"view"`
}
