package script

import (
	"context"

	"github.com/loykin/onceup/internal/target"
)

// Script is one idempotent upgrade step. Execute is handed the active
// target connection and an auxiliary query capability; returning a non-nil
// error marks the script failed and aborts the remaining batch.
//
// The status store can always be wiped externally, so scripts must be
// written defensively in case they actually run more than once. That also
// covers a script re-running after failing the first time.
type Script interface {
	Execute(ctx context.Context, conn target.Conn, q target.Querier) error
}

// Factory produces a fresh Script instance. A new instance is created per
// activation so scripts cannot leak state between runs.
type Factory func() Script

// Entry pairs a script instance with its stable identity for one run.
type Entry struct {
	Name   string
	Script Script
}
