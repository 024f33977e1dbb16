package onceup

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/onceup/internal/audit"
	cfg "github.com/loykin/onceup/internal/config"
	"github.com/loykin/onceup/internal/executor"
	"github.com/loykin/onceup/internal/metrics"
	"github.com/loykin/onceup/internal/runner"
	"github.com/loykin/onceup/internal/script"
	iapi "github.com/loykin/onceup/internal/server"
	"github.com/loykin/onceup/internal/status"
	statusfactory "github.com/loykin/onceup/internal/status/factory"
	"github.com/loykin/onceup/internal/target"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Script = script.Script

type ScriptFactory = script.Factory

type Status = status.Status

type Record = status.Record

type Config = cfg.Config

type AuditSink = audit.Sink

const (
	StatusNone    = status.StatusNone
	StatusRunning = status.StatusRunning
	StatusSuccess = status.StatusSuccess
	StatusFail    = status.StatusFail
)

// Sentinel errors for activation aborts, usable with errors.Is.
var (
	ErrConfiguration     = script.ErrConfiguration
	ErrStoreUnavailable  = status.ErrUnavailable
	ErrScriptFailed      = executor.ErrScriptFailed
	ErrInconsistentState = executor.ErrInconsistentState
)

// Runner is a thin facade over internal/runner.Runner.
// It provides a stable public API for embedding.

type Runner struct{ inner *runner.Runner }

// RegisterScript adds a script factory to the global registry under its
// stable identity. Typically called from init in script packages.
func RegisterScript(name string, f ScriptFactory) { script.Register(name, f) }

// New builds a Runner from config: status store (and audit sink, when
// configured) are opened eagerly.
func New(c *Config, logger *slog.Logger) (*Runner, error) {
	inner, err := runner.New(c, logger)
	if err != nil {
		return nil, err
	}
	return &Runner{inner: inner}, nil
}

// Activate runs the configured batch exactly once, in order, skipping
// succeeded scripts and retrying failed ones. See internal/runner.
func (r *Runner) Activate(ctx context.Context) error { return r.inner.Activate(ctx) }

func (r *Runner) Records(ctx context.Context) ([]Record, error) { return r.inner.Records(ctx) }
func (r *Runner) Record(ctx context.Context, name string) (Record, error) {
	return r.inner.Record(ctx, name)
}
func (r *Runner) Reset(ctx context.Context, name string) error { return r.inner.Reset(ctx, name) }
func (r *Runner) Close() error                                 { return r.inner.Close() }

func LoadConfig(path string) (*Config, error) {
	return cfg.Load(path)
}

// NewStatusStore opens a status store directly from a DSN for callers that
// want to inspect records without a full Runner.
func NewStatusStore(dsn string) (status.Store, error) {
	return statusfactory.NewStoreFromDSN(dsn)
}

// OpenTarget opens a privileged target session directly. Embedders that
// drive scripts themselves must Close it on every path.
func OpenTarget(ctx context.Context, dsn string) (*target.Session, error) {
	return target.Open(ctx, dsn)
}

// NewHTTPServer starts an HTTP server exposing the admin API using the given runner.
func NewHTTPServer(addr, basePath string, r *Runner) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, r.inner)
}

// NewHTTPHandler returns the admin API as an http.Handler for mounting in
// an existing server or framework.
func NewHTTPHandler(basePath string, r *Runner) http.Handler {
	return iapi.NewRouter(r.inner, basePath).Handler()
}

// Metrics helpers (public facade)

func RegisterMetrics(reg prometheus.Registerer) error { return metrics.Register(reg) }
func RegisterMetricsDefault() error                   { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	return srv.ListenAndServe()
}
