package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterAndRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	// Second call is a no-op
	if err := Register(reg); err != nil {
		t.Fatalf("re-register: %v", err)
	}

	IncRun("add_index", "success")
	IncRun("migrate_users", "fail")
	IncSkip("add_index")
	ObserveRunDuration("add_index", 0.25)
	IncAbort("script_failed")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := map[string]bool{}
	for _, mf := range mfs {
		found[mf.GetName()] = true
	}
	for _, name := range []string{
		"onceup_script_runs_total",
		"onceup_script_skips_total",
		"onceup_script_run_duration_seconds",
		"onceup_batch_aborts_total",
	} {
		if !found[name] {
			t.Fatalf("metric %s not gathered (have %v)", name, found)
		}
	}
}

func TestHandlerNotNil(t *testing.T) {
	if Handler() == nil {
		t.Fatalf("expected handler")
	}
}
