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

type MatchHandler struct{}

func NewMatchHandler() *MatchHandler {
	return &MatchHandler{}
}

func (h *MatchHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	grp := r.Group("/matches")
	grp.Get("/", h.List)
	grp.Delete("/:profile_id", h.Unmatch)
}

// List serves GET /matches. The backend is always asked; cached matches are
// served when it cannot answer.
func (h *MatchHandler) List(c fiber.Ctx) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	nl := s.NetList.List(c.Context(), s.UserID)
	res := dto.MatchesResponse{
		Matches: view.PresentAll(nl.Matches),
		Stale:   nl.Stale,
		Failed:  nl.Failed,
	}
	if nl.Failed {
		return response.Unavailable(c, "Matches unavailable", res)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, res)
}

func (h *MatchHandler) Unmatch(c fiber.Ctx) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Params("profile_id"), 10, 64)
	if err != nil {
		return response.Error(c, fiber.StatusBadRequest, "Invalid profile id", nil)
	}

	if err := s.NetList.Unmatch(c.Context(), s.UserID, id); err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidInput):
			return response.Error(c, fiber.StatusBadRequest, "Invalid profile id", nil)
		case errors.Is(err, usecase.ErrNotFound):
			return response.Error(c, fiber.StatusNotFound, "Match not found", nil)
		default:
			return response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError, nil)
		}
	}

	return response.Success(c, fiber.StatusOK, "Match removed", nil)
}
