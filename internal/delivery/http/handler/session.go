package handler

import (
	"studnet/internal/delivery/http/middleware"
	"studnet/internal/session"

	"github.com/gofiber/fiber/v3"
)

func currentSession(c fiber.Ctx) (*session.Session, error) {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		return nil, middleware.NewAppError(fiber.StatusUnauthorized, "Session required", nil, nil)
	}
	return s, nil
}
