package audit

import (
	"context"
	"time"

	"github.com/loykin/onceup/internal/status"
)

// Event records one script status transition for export to external
// systems. From is StatusNone when the script had no prior record.
type Event struct {
	Script     string        `json:"script"`
	From       status.Status `json:"from"`
	To         status.Status `json:"to"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// Sink is a destination for transition events (audit/statistics systems).
// Sinks are best effort: the runner logs Send errors and keeps going.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}
