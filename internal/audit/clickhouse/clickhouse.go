package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/loykin/onceup/internal/audit"
)

// Sink sends transition events to ClickHouse using the official client.
type Sink struct {
	conn  driver.Conn
	table string
}

func New(addr, table string) (*Sink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: "default",
			Password: "",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	s := &Sink{conn: conn, table: table}
	if err := s.EnsureTable(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create ClickHouse audit table: %w", err)
	}
	return s, nil
}

func (s *Sink) Send(ctx context.Context, e audit.Event) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (occurred_at, script, from_status, to_status) VALUES (?, ?, ?, ?)`,
		s.table)

	err := s.conn.Exec(ctx, query,
		e.OccurredAt,
		e.Script,
		string(e.From),
		string(e.To),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event into ClickHouse: %w", err)
	}
	return nil
}

// EnsureTable creates the audit table if it does not exist. New calls it
// on open; it is idempotent and safe to call again.
func (s *Sink) EnsureTable(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		occurred_at DateTime64(3),
		script String,
		from_status String,
		to_status String
	) ENGINE = MergeTree() ORDER BY (script, occurred_at)`, s.table)
	return s.conn.Exec(ctx, stmt)
}

func (s *Sink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
