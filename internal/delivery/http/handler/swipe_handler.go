package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"studnet/internal/delivery/http/dto"
	"studnet/internal/domain/profile"
	"studnet/internal/pkg/response"
	"studnet/internal/swipe"
	"studnet/internal/view"

	"github.com/gofiber/fiber/v3"
)

const (
	phaseDown = "down"
	phaseMove = "move"
	phaseUp   = "up"

	overlayTutorial    = "tutorial"
	overlayIncomingTip = "incoming_tip"
)

// SwipeHandler exposes the swipe screen of the caller's session.
type SwipeHandler struct {
	maxWait time.Duration
}

// NewSwipeHandler returns a handler whose GET /swipe?wait=true blocks for at
// most maxWait while a load is in progress.
func NewSwipeHandler(maxWait time.Duration) *SwipeHandler {
	return &SwipeHandler{maxWait: maxWait}
}

func (h *SwipeHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	grp := r.Group("/swipe")
	grp.Get("/", h.View)
	grp.Post("/tab", h.SetTab)
	grp.Put("/filter", h.SetFilter)
	grp.Post("/decision", h.Decide)
	grp.Post("/gesture", h.Gesture)
	grp.Post("/exit-complete", h.CompleteExit)
	grp.Post("/reload", h.Reload)
	grp.Post("/scroll", h.Scroll)

	r.Post("/overlays/dismiss", h.Dismiss)
}

func (h *SwipeHandler) View(c fiber.Ctx) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	if wait, _ := strconv.ParseBool(c.Query("wait")); wait && h.maxWait > 0 {
		ctx, cancel := context.WithTimeout(c.Context(), h.maxWait)
		select {
		case <-s.Engine.Settled():
		case <-ctx.Done():
		}
		cancel()
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, s.View(c.Context()))
}

func (h *SwipeHandler) SetTab(c fiber.Ctx) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	var req dto.TabRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}
	tab := swipe.Tab(strings.ToLower(strings.TrimSpace(req.Tab)))
	if !tab.Valid() {
		return response.Error(c, fiber.StatusBadRequest, "Unknown tab", nil)
	}

	return h.action(c, s.Engine.SetTab(tab), s.View(c.Context()))
}

func (h *SwipeHandler) SetFilter(c fiber.Ctx) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	var req dto.FilterRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}
	f := profile.Filter{City: req.City, University: req.University, Interests: req.Interests}

	return h.action(c, s.Engine.SetFilter(f), s.View(c.Context()))
}

func (h *SwipeHandler) Decide(c fiber.Ctx) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	var req dto.DecisionRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}
	d, ok := swipe.ParseDecision(strings.ToLower(strings.TrimSpace(req.Decision)))
	if !ok {
		return response.Error(c, fiber.StatusBadRequest, "Unknown decision", nil)
	}

	return h.action(c, s.Engine.Decide(d), s.View(c.Context()))
}

func (h *SwipeHandler) Gesture(c fiber.Ctx) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	var req dto.GestureRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}

	res := dto.GestureResponse{}
	switch strings.ToLower(strings.TrimSpace(req.Phase)) {
	case phaseDown:
		res.Accepted = s.Engine.PointerDown(req.X, req.Y)
	case phaseMove:
		res.Accepted = s.Engine.PointerMove(req.X, req.Y)
	case phaseUp:
		d, decided := s.Engine.PointerUp(req.X, req.Y)
		res.Accepted = decided
		if decided {
			res.Decision = d.String()
		}
	default:
		return response.Error(c, fiber.StatusBadRequest, "Unknown gesture phase", nil)
	}
	res.View = s.View(c.Context())

	return response.Success(c, fiber.StatusOK, response.MessageOK, res)
}

func (h *SwipeHandler) CompleteExit(c fiber.Ctx) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	return h.action(c, s.Engine.CompleteExit(), s.View(c.Context()))
}

func (h *SwipeHandler) Reload(c fiber.Ctx) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	return h.action(c, s.Engine.Reload(), s.View(c.Context()))
}

func (h *SwipeHandler) Scroll(c fiber.Ctx) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	var req dto.ScrollRequest
	if err := c.Bind().Body(&req); err != nil || req.Offset < 0 {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}
	s.Engine.SetScroll(req.Offset)

	return h.action(c, true, s.View(c.Context()))
}

func (h *SwipeHandler) Dismiss(c fiber.Ctx) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	var req dto.DismissRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}

	switch strings.ToLower(strings.TrimSpace(req.Overlay)) {
	case overlayTutorial:
		err = s.Presenter.DismissTutorial(c.Context())
	case overlayIncomingTip:
		err = s.Presenter.DismissIncomingTip(c.Context())
	default:
		return response.Error(c, fiber.StatusBadRequest, "Unknown overlay", nil)
	}
	if err != nil {
		return response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError, nil)
	}

	return h.action(c, true, s.View(c.Context()))
}

// action answers 200 either way; a command refused by the in-flight guard is
// reported with accepted=false.
func (h *SwipeHandler) action(c fiber.Ctx, accepted bool, v view.CardView) error {
	msg := response.MessageOK
	if !accepted {
		msg = response.MessageIgnored
	}
	return response.Success(c, fiber.StatusOK, msg, dto.ActionResponse{Accepted: accepted, View: v})
}
