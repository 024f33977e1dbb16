package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/loykin/onceup/internal/status"
)

// Store keeps script status records in a SQLite database.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite-backed status store.
// DSN format:
//   - "sqlite:///path/to/file.db"
//   - "sqlite://:memory:"
//   - "/path/to/file.db" (without prefix)
//   - ":memory:" (in-memory database)
func New(dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty SQLite DSN")
	}
	if strings.HasPrefix(strings.ToLower(dsn), "sqlite://") {
		dsn = strings.TrimPrefix(dsn, "sqlite://")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrUnavailable, err)
	}
	// Status writes must serialize; SQLite works best with one connection.
	db.SetMaxOpenConns(1)
	// WAL keeps each mark durable without blocking readers; the busy
	// timeout rides out short locks from concurrent inspections.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", status.ErrUnavailable, err)
	}
	_, _ = db.Exec("PRAGMA busy_timeout=5000;")

	s := &Store{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", status.ErrUnavailable, err)
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS script_status(
		name TEXT PRIMARY KEY,
		status TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMP,
		ended_at TIMESTAMP
	);`
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

func (s *Store) Ensure(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO script_status(name) VALUES(?) ON CONFLICT(name) DO NOTHING;`, name)
	if err != nil {
		return fmt.Errorf("%w: ensure %s: %v", status.ErrUnavailable, name, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, name string) (status.Record, error) {
	rec := status.Record{Name: name, Status: status.StatusNone}
	var st string
	var started, ended sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT status, started_at, ended_at FROM script_status WHERE name = ?;`, name).
		Scan(&st, &started, &ended)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, nil
	}
	if err != nil {
		return rec, fmt.Errorf("%w: read %s: %v", status.ErrUnavailable, name, err)
	}
	rec.Status = status.Status(st)
	if started.Valid {
		rec.StartedAt = started.Time.UTC()
	}
	if ended.Valid {
		rec.EndedAt = ended.Time.UTC()
	}
	return rec, nil
}

func (s *Store) MarkRunning(ctx context.Context, name string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE script_status SET status = ?, started_at = ?, ended_at = NULL WHERE name = ?;`,
		string(status.StatusRunning), at.UTC(), name)
	if err != nil {
		return fmt.Errorf("%w: mark running %s: %v", status.ErrUnavailable, name, err)
	}
	return nil
}

func (s *Store) MarkOutcome(ctx context.Context, name string, outcome status.Status, at time.Time) error {
	if !outcome.Terminal() {
		return fmt.Errorf("invalid outcome %q for %s", outcome, name)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE script_status SET status = ?, ended_at = ? WHERE name = ?;`,
		string(outcome), at.UTC(), name)
	if err != nil {
		return fmt.Errorf("%w: mark %s %s: %v", status.ErrUnavailable, outcome, name, err)
	}
	return nil
}

func (s *Store) Reset(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM script_status WHERE name = ?;`, name)
	if err != nil {
		return fmt.Errorf("%w: reset %s: %v", status.ErrUnavailable, name, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]status.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, status, started_at, ended_at FROM script_status ORDER BY name;`)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", status.ErrUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var out []status.Record
	for rows.Next() {
		var rec status.Record
		var st string
		var started, ended sql.NullTime
		if err := rows.Scan(&rec.Name, &st, &started, &ended); err != nil {
			return nil, fmt.Errorf("%w: list: %v", status.ErrUnavailable, err)
		}
		rec.Status = status.Status(st)
		if started.Valid {
			rec.StartedAt = started.Time.UTC()
		}
		if ended.Valid {
			rec.EndedAt = ended.Time.UTC()
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list: %v", status.ErrUnavailable, err)
	}
	return out, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
