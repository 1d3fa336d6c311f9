package routes

import (
	"studnet/internal/config"
	v1 "studnet/internal/delivery/http/routes/v1"

	"github.com/gofiber/fiber/v3"
)

func RegisterV1(r fiber.Router, cfg config.Config) {
	if r == nil {
		return
	}

	v1.Register(r, cfg)
}
