package handler

import (
	"studnet/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

// SessionCounter reports how many mini-app sessions are open.
type SessionCounter interface {
	Len() int
}

type HealthHandler struct {
	sessions SessionCounter
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

func NewHealthHandler(sessions SessionCounter) *HealthHandler {
	return &HealthHandler{sessions: sessions}
}

func (h *HealthHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/health", h.Check)
}

func (h *HealthHandler) Check(c fiber.Ctx) error {
	res := healthResponse{Status: "up"}
	if h.sessions != nil {
		res.Sessions = h.sessions.Len()
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, res)
}
