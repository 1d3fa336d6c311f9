package routes

import (
	"studnet/internal/config"
	"studnet/internal/delivery/http/handler"
	"studnet/internal/delivery/http/middleware"
	"studnet/internal/session"
	"studnet/internal/ws"

	"github.com/gofiber/fiber/v3"
)

type Registry struct {
	cfg    config.Config
	health *handler.HealthHandler
	auth   *middleware.AuthMiddleware
	events *ws.Handler
}

func NewRegistry(cfg config.Config, sessions *session.Manager, events *ws.Handler) *Registry {
	return &Registry{
		cfg:    cfg,
		health: handler.NewHealthHandler(sessions),
		auth:   middleware.NewAuthMiddleware(sessions),
		events: events,
	}
}

func (r *Registry) Register(app *fiber.App) {
	if app == nil {
		return
	}

	r.registerHealth(app)
	r.registerAPI(app)
	r.registerWS(app)
}

func (r *Registry) registerHealth(app *fiber.App) {
	r.health.RegisterRoutes(app)
}

func (r *Registry) registerAPI(app *fiber.App) {
	api := app.Group("/api")
	RegisterV1(api.Group("/v1", r.auth.Middleware()), r.cfg)
}

func (r *Registry) registerWS(app *fiber.App) {
	if r.events == nil {
		return
	}
	app.Get("/ws", r.auth.Middleware(), r.events.HandleEvents)
}
