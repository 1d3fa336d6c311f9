package store

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Backend is byte-level key/value persistence. Implementations live in
// internal/infrastructure/cache.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Entry describes the outcome of a Read.
type Entry struct {
	Hit       bool
	Fresh     bool
	ExpiresAt time.Time
	WrittenAt time.Time
}

type envelope struct {
	Payload   json.RawMessage `json:"payload"`
	WrittenAt time.Time       `json:"written_at"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
}

// Local is the time-boxed cache shared by the engine and the other views.
// An entry is fresh while now < expiry; stale entries stay readable until
// overwritten so callers can fall back to them.
type Local struct {
	backend Backend
	logger  *log.Logger
	now     func() time.Time
}

func NewLocal(backend Backend, logger *log.Logger) *Local {
	return &Local{backend: backend, logger: logger, now: time.Now}
}

// WithClock replaces the time source. Tests only.
func (s *Local) WithClock(now func() time.Time) *Local {
	if now != nil {
		s.now = now
	}
	return s
}

// Read decodes the payload stored under key into out. Misses, backend errors
// and undecodable entries all report Hit=false; undecodable entries are
// deleted.
func (s *Local) Read(ctx context.Context, key string, out any) Entry {
	if s == nil || s.backend == nil {
		return Entry{}
	}

	b, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logf("[Cache] Read error key=%s err=%v", key, err)
		return Entry{}
	}
	if !ok {
		return Entry{}
	}

	var env envelope
	if err := json.Unmarshal(b, &env); err != nil || len(env.Payload) == 0 {
		s.dropCorrupted(ctx, key, err)
		return Entry{}
	}
	if out != nil {
		if err := json.Unmarshal(env.Payload, out); err != nil {
			s.dropCorrupted(ctx, key, err)
			return Entry{}
		}
	}

	e := Entry{Hit: true, Fresh: true, WrittenAt: env.WrittenAt}
	if env.ExpiresAt != nil {
		e.ExpiresAt = *env.ExpiresAt
		e.Fresh = s.now().Before(*env.ExpiresAt)
	}
	return e
}

// Write stores payload under key. A ttl <= 0 stores an entry that never goes
// stale, used for flags and credentials.
func (s *Local) Write(ctx context.Context, key string, payload any, ttl time.Duration) error {
	if s == nil || s.backend == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	now := s.now()
	env := envelope{Payload: raw, WrittenAt: now.UTC()}
	if ttl > 0 {
		exp := now.Add(ttl).UTC()
		env.ExpiresAt = &exp
	}
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := s.backend.Set(ctx, key, b); err != nil {
		s.logf("[Cache] Write error key=%s err=%v", key, err)
		return err
	}
	return nil
}

func (s *Local) Delete(ctx context.Context, key string) error {
	if s == nil || s.backend == nil {
		return nil
	}
	return s.backend.Delete(ctx, key)
}

func (s *Local) dropCorrupted(ctx context.Context, key string, cause error) {
	s.logf("[Cache] Corrupted entry dropped key=%s err=%v", key, cause)
	_ = s.backend.Delete(ctx, key)
}

func (s *Local) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
