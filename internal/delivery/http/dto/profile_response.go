package dto

import "studnet/internal/view"

type OwnProfileResponse struct {
	Exists bool       `json:"exists"`
	Stale  bool       `json:"stale"`
	Card   *view.Card `json:"card"`
}

type SessionResponse struct {
	UserID    int64  `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	Demo      bool   `json:"demo"`
	HasToken  bool   `json:"has_token"`
}
