package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/loykin/onceup/internal/audit"
	"github.com/loykin/onceup/internal/metrics"
	"github.com/loykin/onceup/internal/script"
	"github.com/loykin/onceup/internal/status"
	"github.com/loykin/onceup/internal/target"
)

// Executor runs one ordered batch of upgrade scripts against a target,
// consulting and updating the status store around each invocation.
//
// Scripts run strictly serially in the caller's order. The first fatal
// condition (store failure, script failure, running record) aborts the
// remaining batch; retry only happens on the next activation, driven by
// the persisted records.
type Executor struct {
	store  status.Store
	sinks  []audit.Sink
	logger *slog.Logger

	// now is replaceable for tests.
	now func() time.Time
}

func New(st status.Store, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{store: st, logger: logger, now: time.Now}
}

// SetSinks configures audit sinks receiving every status transition.
// Passing no sinks clears the list.
func (e *Executor) SetSinks(sinks ...audit.Sink) {
	e.sinks = append([]audit.Sink(nil), sinks...)
}

// Run executes the batch. It never touches the target session lifecycle;
// acquiring and releasing the session belongs to the caller.
func (e *Executor) Run(ctx context.Context, sess *target.Session, entries []script.Entry) error {
	for _, entry := range entries {
		if err := e.runOne(ctx, sess, entry); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) runOne(ctx context.Context, sess *target.Session, entry script.Entry) error {
	name := entry.Name

	if err := e.store.Ensure(ctx, name); err != nil {
		e.logger.Error("script cannot run because the status record could not be created", "script", name, "error", err)
		metrics.IncAbort("store_unavailable")
		return err
	}

	rec, err := e.store.Get(ctx, name)
	if err != nil {
		e.logger.Error("script cannot run because the status record could not be read", "script", name, "error", err)
		metrics.IncAbort("store_unavailable")
		return err
	}

	switch rec.Status {
	case status.StatusNone, status.StatusFail:
		return e.execute(ctx, sess, entry, rec.Status)
	case status.StatusSuccess:
		e.logger.Debug("skipping script, already complete", "script", name)
		metrics.IncSkip(name)
		return nil
	default:
		// running, or any value outside the enum: either a concurrent
		// activation or a crash mid-run. Refuse to re-run silently.
		e.logger.Error("script is already running or in an otherwise unknown state",
			"script", name, "status", string(rec.Status))
		metrics.IncAbort("inconsistent_state")
		return fmt.Errorf("%w: %s has status %q", ErrInconsistentState, name, rec.Status)
	}
}

func (e *Executor) execute(ctx context.Context, sess *target.Session, entry script.Entry, prior status.Status) error {
	name := entry.Name
	startedAt := e.now().UTC()

	e.logger.Info("starting script", "script", name)
	if err := e.store.MarkRunning(ctx, name, startedAt); err != nil {
		// The script must not run if its running mark cannot be persisted.
		e.logger.Error("script cannot run because the status record could not be written", "script", name, "error", err)
		metrics.IncAbort("store_unavailable")
		return err
	}
	e.emit(ctx, name, prior, status.StatusRunning, startedAt)

	runErr := invoke(ctx, entry, sess)
	endedAt := e.now().UTC()
	outcome := status.StatusSuccess
	if runErr != nil {
		outcome = status.StatusFail
	}
	metrics.IncRun(name, string(outcome))
	metrics.ObserveRunDuration(name, endedAt.Sub(startedAt).Seconds())

	if err := e.store.MarkOutcome(ctx, name, outcome, endedAt); err != nil {
		// The script already ran; nothing undoes that. Bookkeeping is now
		// unreliable though, so the batch still aborts.
		e.logger.Error("script status record could not be updated",
			"script", name, "status", string(outcome), "error", err)
		metrics.IncAbort("store_unavailable")
		return err
	}
	e.emit(ctx, name, status.StatusRunning, outcome, endedAt)

	if runErr != nil {
		e.logger.Error("script failed", "script", name, "error", runErr)
		metrics.IncAbort("script_failed")
		return fmt.Errorf("%w: %s: %v", ErrScriptFailed, name, runErr)
	}
	e.logger.Info("script completed successfully", "script", name)
	return nil
}

// invoke calls the script, converting a panic into an ordinary failure so
// a misbehaving script still gets recorded as fail before the abort.
func invoke(ctx context.Context, entry script.Entry, sess *target.Session) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return entry.Script.Execute(ctx, sess.Conn(), sess.Querier())
}

func (e *Executor) emit(ctx context.Context, name string, from, to status.Status, at time.Time) {
	if len(e.sinks) == 0 {
		return
	}
	ev := audit.Event{Script: name, From: from, To: to, OccurredAt: at}
	for _, s := range e.sinks {
		if err := s.Send(ctx, ev); err != nil {
			e.logger.Warn("audit sink send failed", "script", name, "error", err)
		}
	}
}
