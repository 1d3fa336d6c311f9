package app

import (
	"fmt"
	"strings"
	"time"

	"studnet/internal/config"
	"studnet/internal/delivery/http/middleware"
	"studnet/internal/delivery/http/routes"
	"studnet/internal/ws"

	"github.com/gofiber/fiber/v3"
)

const (
	sessionIdleTimeout = 30 * time.Minute
	sweepInterval      = time.Minute
)

type App struct {
	Fiber     *fiber.App
	Container *Container
}

func New(c *Container) *App {
	f := fiber.New(fiber.Config{AppName: c.Config.App.AppName})

	registerGlobalMiddleware(f, c)
	registerRoutes(f, c)

	return &App{Fiber: f, Container: c}
}

// Bootstrap wires the container and the HTTP app and starts the background
// loops. The returned cleanup stops them and releases the cache.
func Bootstrap(cfg config.Config) (*App, func() error, error) {
	c, err := NewContainer(cfg)
	if err != nil {
		return nil, nil, err
	}

	go c.Hub.Run()

	stop := make(chan struct{})
	go sweepSessions(c, stop)

	app := New(c)
	cleanup := func() error {
		close(stop)
		return c.Close()
	}
	return app, cleanup, nil
}

func sweepSessions(c *Container, stop <-chan struct{}) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if n := c.Sessions.Sweep(sessionIdleTimeout); n > 0 {
				c.Logger.Printf("[App] Swept idle sessions count=%d open=%d", n, c.Sessions.Len())
			}
		}
	}
}

func registerGlobalMiddleware(app *fiber.App, c *Container) {
	if app == nil {
		return
	}

	app.Use(middleware.NewAccessLogMiddleware(c.Logger).Middleware())
	app.Use(middleware.NewErrorMiddleware(c.Logger).Middleware())
}

func registerRoutes(app *fiber.App, c *Container) {
	if app == nil {
		return
	}

	events := ws.NewHandler(c.Hub, c.Logger)
	routes.NewRegistry(c.Config, c.Sessions, events).Register(app)
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
