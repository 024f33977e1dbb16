package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	scriptRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "onceup",
			Subsystem: "script",
			Name:      "runs_total",
			Help:      "Number of script executions by outcome (success or fail).",
		}, []string{"name", "outcome"},
	)
	scriptSkips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "onceup",
			Subsystem: "script",
			Name:      "skips_total",
			Help:      "Number of scripts skipped because a prior run succeeded.",
		}, []string{"name"},
	)
	scriptRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "onceup",
			Subsystem: "script",
			Name:      "run_duration_seconds",
			Help:      "Wall time of individual script executions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"name"},
	)
	batchAborts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "onceup",
			Subsystem: "batch",
			Name:      "aborts_total",
			Help:      "Number of aborted activations by reason.",
		}, []string{"reason"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{scriptRuns, scriptSkips, scriptRunDuration, batchAborts}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncRun(name, outcome string) {
	if regOK.Load() {
		scriptRuns.WithLabelValues(name, outcome).Inc()
	}
}

func IncSkip(name string) {
	if regOK.Load() {
		scriptSkips.WithLabelValues(name).Inc()
	}
}

func ObserveRunDuration(name string, seconds float64) {
	if regOK.Load() {
		scriptRunDuration.WithLabelValues(name).Observe(seconds)
	}
}

func IncAbort(reason string) {
	if regOK.Load() {
		batchAborts.WithLabelValues(reason).Inc()
	}
}
