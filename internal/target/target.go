package target

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Conn is the mutating capability handed to upgrade scripts.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Querier is the auxiliary read capability scripts may use to inspect the
// target before or after mutating it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Session is a privileged connection to the target system for the duration
// of one activation. The owner must Close it on every exit path.
type Session struct {
	db *sql.DB
}

// Open connects to the target identified by dsn and verifies the
// connection. Supported DSNs match the status store factory:
// postgres://..., sqlite://..., or a bare path (SQLite).
func Open(ctx context.Context, dsn string) (*Session, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty target DSN")
	}

	driver := "sqlite"
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://"):
		driver = "pgx"
	case strings.HasPrefix(lower, "sqlite://"):
		dsn = strings.TrimPrefix(dsn, "sqlite://")
	case strings.Contains(dsn, "://"):
		return nil, errors.New("unsupported target DSN: " + dsn)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open target: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping target: %w", err)
	}
	return &Session{db: db}, nil
}

// Conn returns the exec capability for scripts.
func (s *Session) Conn() Conn { return s.db }

// Querier returns the auxiliary query capability for scripts.
func (s *Session) Querier() Querier { return s.db }

// Close releases the session. Callers log failures and move on; a failed
// release never aborts anything else.
func (s *Session) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
