package handler

import (
	"studnet/internal/delivery/http/dto"
	"studnet/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

type SessionHandler struct{}

func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

func (h *SessionHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/session", h.Me)
}

func (h *SessionHandler) Me(c fiber.Ctx) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	u := s.Provider.User()
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.SessionResponse{
		UserID:    s.UserID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Demo:      s.Provider.Demo(),
		HasToken:  s.Provider.Token() != "",
	})
}
