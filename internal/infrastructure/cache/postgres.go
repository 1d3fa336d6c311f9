package cache

import (
	"context"
	"errors"
	"log"
	"strings"

	"studnet/internal/database"

	"github.com/jackc/pgx/v5"
)

const createCacheTableSQL = `
CREATE TABLE IF NOT EXISTS client_cache (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres stores cache entries in a key/value table, for deployments where
// the gateway already has a database but no redis.
type Postgres struct {
	db     database.DB
	logger *log.Logger
}

func NewPostgres(db database.DB, logger *log.Logger) *Postgres {
	return &Postgres{db: db, logger: logger}
}

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if p == nil || p.db == nil {
		return errors.New("nil db")
	}
	_, err := p.db.Exec(ctx, strings.TrimSpace(createCacheTableSQL))
	return err
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if p == nil || p.db == nil {
		return nil, false, nil
	}
	var b []byte
	err := p.db.QueryRow(ctx, `SELECT value FROM client_cache WHERE key = $1`, key).Scan(&b)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		if p.logger != nil {
			p.logger.Printf("[Cache] Postgres get error key=%s err=%v", key, err)
		}
		return nil, false, err
	}
	return b, len(b) > 0, nil
}

func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	if p == nil || p.db == nil {
		return nil
	}
	_, err := p.db.Exec(ctx, `
		INSERT INTO client_cache (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value,
	)
	if err != nil && p.logger != nil {
		p.logger.Printf("[Cache] Postgres set error key=%s err=%v", key, err)
	}
	return err
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	if p == nil || p.db == nil {
		return nil
	}
	_, err := p.db.Exec(ctx, `DELETE FROM client_cache WHERE key = $1`, key)
	return err
}

func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
