package v1

import (
	"studnet/internal/config"
	"studnet/internal/delivery/http/handler"

	"github.com/gofiber/fiber/v3"
)

// Register mounts the mini-app API on a router that already carries the
// session middleware.
func Register(r fiber.Router, cfg config.Config) {
	if r == nil {
		return
	}

	handler.NewSessionHandler().RegisterRoutes(r)
	handler.NewSwipeHandler(cfg.Swipe.LoadTimeout).RegisterRoutes(r)
	handler.NewMatchHandler().RegisterRoutes(r)
	handler.NewProfileHandler().RegisterRoutes(r)
}
