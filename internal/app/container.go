package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"studnet/internal/config"
	"studnet/internal/database"
	dbpostgres "studnet/internal/database/postgres"
	"studnet/internal/infrastructure/cache"
	"studnet/internal/pkg/telegram"
	"studnet/internal/session"
	"studnet/internal/store"
	"studnet/internal/ws"
)

// CacheBackend is a store backend that owns a connection.
type CacheBackend interface {
	store.Backend
	Close() error
}

type Container struct {
	Config   config.Config
	Logger   *log.Logger
	DB       database.DB
	Cache    CacheBackend
	Store    *store.Local
	Sessions *session.Manager
	Hub      *ws.Hub
}

func NewContainer(cfg config.Config) (*Container, error) {
	return NewContainerWithLogger(cfg, log.New(os.Stdout, "", log.LstdFlags))
}

func NewContainerWithLogger(cfg config.Config, logger *log.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}
	if err := c.openCache(); err != nil {
		_ = c.Close()
		return nil, err
	}

	c.Store = store.NewLocal(c.Cache, logger)
	validator := telegram.NewValidator(cfg.Telegram.BotToken, cfg.Telegram.InitDataMaxAge)
	if !validator.Enabled() {
		logger.Printf("[Container] TELEGRAM_BOT_TOKEN not set, init data signatures are not verified")
	}

	c.Sessions = session.NewManager(cfg, c.Store, validator, logger)
	c.Hub = ws.NewHub(logger)
	c.Sessions.SetNotifier(c.Hub)

	return c, nil
}

func (c *Container) openCache() error {
	switch c.Config.Cache.Driver {
	case config.CacheDriverRedis:
		c.Cache = cache.NewRedis(c.Config.Redis, c.Logger)
	case config.CacheDriverPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		db, err := dbpostgres.Connect(ctx, c.Config.Database)
		if err != nil {
			return err
		}
		pg := cache.NewPostgres(db, c.Logger)
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return fmt.Errorf("cache schema: %w", err)
		}
		c.DB = db
		c.Cache = pg
	default:
		c.Cache = cache.NewMemory()
	}
	c.Logger.Printf("[Container] Cache driver=%s", c.Config.Cache.Driver)
	return nil
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Sessions != nil {
		c.Sessions.Close()
	}
	if c.Hub != nil {
		c.Hub.Stop()
	}
	// The postgres cache owns c.DB.
	if c.Cache != nil {
		return c.Cache.Close()
	}
	return nil
}
