package handler

import (
	"errors"
	"strconv"

	"studnet/internal/delivery/http/dto"
	"studnet/internal/pkg/response"
	"studnet/internal/usecase"
	"studnet/internal/view"

	"github.com/gofiber/fiber/v3"
)

type ProfileHandler struct{}

func NewProfileHandler() *ProfileHandler {
	return &ProfileHandler{}
}

func (h *ProfileHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Get("/profile/me", h.Me)
	r.Get("/profiles/:id", h.ByID)
}

func (h *ProfileHandler) Me(c fiber.Ctx) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	own, err := s.Profiles.Own(c.Context(), s.UserID)
	if err != nil {
		return response.Unavailable(c, "Profile unavailable", nil)
	}

	res := dto.OwnProfileResponse{Exists: own.Exists, Stale: own.Stale}
	if own.Exists {
		card := view.Present(own.Profile)
		res.Card = &card
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, res)
}

func (h *ProfileHandler) ByID(c fiber.Ctx) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return response.Error(c, fiber.StatusBadRequest, "Invalid profile id", nil)
	}

	p, err := s.Profiles.ByID(c.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidInput):
			return response.Error(c, fiber.StatusBadRequest, "Invalid profile id", nil)
		case errors.Is(err, usecase.ErrNotFound):
			return response.Error(c, fiber.StatusNotFound, "Profile not found", nil)
		default:
			return response.Unavailable(c, "Profile unavailable", nil)
		}
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, view.Present(p))
}
