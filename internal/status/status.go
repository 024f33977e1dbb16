package status

import (
	"context"
	"errors"
	"time"
)

// Status is the persisted execution state of one upgrade script.
// StatusNone is the absence of a record; it is never written to a store.
type Status string

const (
	StatusNone    Status = ""
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
)

// ErrUnavailable reports that the status store cannot be read or written.
// Callers treat it as fatal for the current activation: a script whose
// running mark cannot be persisted is not invoked.
var ErrUnavailable = errors.New("status store unavailable")

// Record is the durable state kept per script identity.
// Name is unique across all scripts. EndedAt is zero while Status is
// StatusRunning. UTC throughout.
type Record struct {
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	StartedAt time.Time `json:"started_at,omitempty"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
}

// Store persists one Record per script identity. An absent record reads
// back as StatusNone; wiping the whole store resets every script to
// never-run, which the runner tolerates.
//
// Every mutation must be durable before the call returns so that a crash
// between a script finishing and its outcome write cannot be mistaken for
// anything other than a stuck StatusRunning record.
type Store interface {
	// Ensure materializes the backing row for name if absent.
	Ensure(ctx context.Context, name string) error
	// Get returns the record for name; a missing row yields StatusNone.
	Get(ctx context.Context, name string) (Record, error)
	// MarkRunning sets status=running, started_at=at and clears ended_at.
	MarkRunning(ctx context.Context, name string, at time.Time) error
	// MarkOutcome sets status to success or fail and ended_at=at.
	MarkOutcome(ctx context.Context, name string, outcome Status, at time.Time) error
	// Reset deletes the record for name. It exists for explicit operator
	// repair of stuck records and is never called during an activation.
	Reset(ctx context.Context, name string) error
	// List returns all records ordered by name.
	List(ctx context.Context) ([]Record, error)
	Close() error
}

// Terminal reports whether s is an end state of one execution.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFail
}
