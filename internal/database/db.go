package database

import "context"

// DB is the subset of a SQL pool the client uses. It keeps the cache backend
// testable without a running server.
type DB interface {
	Ping(ctx context.Context) error
	Close() error

	Exec(ctx context.Context, query string, args ...any) (int64, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
}

type Row interface {
	Scan(dest ...any) error
}
