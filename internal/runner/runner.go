package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/loykin/onceup/internal/audit"
	auditfactory "github.com/loykin/onceup/internal/audit/factory"
	"github.com/loykin/onceup/internal/config"
	"github.com/loykin/onceup/internal/executor"
	"github.com/loykin/onceup/internal/script"
	"github.com/loykin/onceup/internal/status"
	statusfactory "github.com/loykin/onceup/internal/status/factory"
	"github.com/loykin/onceup/internal/target"
)

// Runner wires the status store, script registry, target session and
// executor into the single external activation operation.
type Runner struct {
	mu       sync.Mutex
	cfg      *config.Config
	store    status.Store
	sinks    []audit.Sink
	registry *script.Registry
	logger   *slog.Logger
}

// Option adjusts a Runner during construction.
type Option func(*Runner)

// WithStore replaces the DSN-derived status store (used by embedders and tests).
func WithStore(st status.Store) Option {
	return func(r *Runner) { r.store = st }
}

// WithRegistry replaces the global script registry.
func WithRegistry(reg *script.Registry) Option {
	return func(r *Runner) { r.registry = reg }
}

// WithSinks sets audit sinks directly instead of building one from the
// audit DSN.
func WithSinks(sinks ...audit.Sink) Option {
	return func(r *Runner) { r.sinks = append([]audit.Sink(nil), sinks...) }
}

// New builds a Runner from config. The status store (and audit sink, when
// configured) are opened eagerly so a dead store DSN fails here rather
// than halfway into an activation.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(r)
	}

	if r.store == nil {
		st, err := statusfactory.NewStoreFromDSN(cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("open status store: %w", err)
		}
		r.store = st
	}
	if r.sinks == nil && cfg.Audit.DSN != "" {
		sink, err := auditfactory.NewSinkFromDSN(cfg.Audit.DSN)
		if err != nil {
			_ = r.store.Close()
			return nil, fmt.Errorf("open audit sink: %w", err)
		}
		r.sinks = []audit.Sink{sink}
	}
	return r, nil
}

// Activate runs the configured batch once, end to end: resolve scripts,
// acquire the privileged target session, execute serially, release the
// session on every path. All outcomes are observable via logs and the
// persisted status records.
//
// Activations are serialized within one process; concurrent activations
// across processes are what the running-status guard exists to catch.
func (r *Runner) Activate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Info("checking for upgrade scripts")

	entries, err := r.resolve()
	if err != nil {
		r.logger.Error("script resolution failed", "error", err)
		return err
	}
	if len(entries) == 0 {
		r.logger.Debug("no upgrade scripts configured")
		return nil
	}

	sess, err := target.Open(ctx, r.cfg.Target.DSN)
	if err != nil {
		r.logger.Error("cannot run scripts: target session unavailable", "error", err)
		return err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			r.logger.Warn("failed to release target session", "error", cerr)
		}
	}()

	ex := executor.New(r.store, r.logger)
	ex.SetSinks(r.sinks...)
	return ex.Run(ctx, sess, entries)
}

func (r *Runner) resolve() ([]script.Entry, error) {
	if r.registry != nil {
		return r.registry.Resolve(r.cfg.Scripts)
	}
	return script.Resolve(r.cfg.Scripts)
}

// Records returns every persisted status record.
func (r *Runner) Records(ctx context.Context) ([]status.Record, error) {
	return r.store.List(ctx)
}

// Record returns the record for one script identity (StatusNone if absent).
func (r *Runner) Record(ctx context.Context, name string) (status.Record, error) {
	return r.store.Get(ctx, name)
}

// Reset deletes the record for one script identity. This is the explicit
// operator repair for a record stuck in running; an activation never calls
// it and never auto-recovers.
func (r *Runner) Reset(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("script name is required")
	}
	r.logger.Warn("resetting script status record", "script", name)
	return r.store.Reset(ctx, name)
}

// Close releases the store and any audit sinks.
func (r *Runner) Close() error {
	var first error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	if err := r.store.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
