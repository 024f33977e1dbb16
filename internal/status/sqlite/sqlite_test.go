package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/onceup/internal/status"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "status.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetAbsentIsNone(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Get(context.Background(), "never-run")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Status != status.StatusNone {
		t.Fatalf("expected none, got %q", rec.Status)
	}
	if rec.Name != "never-run" {
		t.Fatalf("unexpected name: %s", rec.Name)
	}
}

func TestEnsureIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := s.Ensure(ctx, "demo"); err != nil {
			t.Fatalf("ensure %d: %v", i, err)
		}
	}
	rec, err := s.Get(ctx, "demo")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Status != status.StatusNone {
		t.Fatalf("ensure must not set a status, got %q", rec.Status)
	}
}

func TestRunningClearsEndedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Ensure(ctx, "demo"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	start1 := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := s.MarkRunning(ctx, "demo", start1); err != nil {
		t.Fatalf("mark running: %v", err)
	}
	if err := s.MarkOutcome(ctx, "demo", status.StatusFail, start1.Add(time.Second)); err != nil {
		t.Fatalf("mark outcome: %v", err)
	}

	// Retry: running again must clear the previous ended_at.
	start2 := start1.Add(time.Hour)
	if err := s.MarkRunning(ctx, "demo", start2); err != nil {
		t.Fatalf("mark running again: %v", err)
	}
	rec, err := s.Get(ctx, "demo")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Status != status.StatusRunning {
		t.Fatalf("expected running, got %q", rec.Status)
	}
	if !rec.EndedAt.IsZero() {
		t.Fatalf("ended_at must be cleared while running, got %v", rec.EndedAt)
	}
	if !rec.StartedAt.Equal(start2) {
		t.Fatalf("started_at mismatch: %v vs %v", rec.StartedAt, start2)
	}
}

func TestOutcomeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Ensure(ctx, "demo"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	start := time.Now().UTC().Truncate(time.Second)
	end := start.Add(2 * time.Second)
	if err := s.MarkRunning(ctx, "demo", start); err != nil {
		t.Fatalf("mark running: %v", err)
	}
	if err := s.MarkOutcome(ctx, "demo", status.StatusSuccess, end); err != nil {
		t.Fatalf("mark outcome: %v", err)
	}
	rec, err := s.Get(ctx, "demo")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Status != status.StatusSuccess {
		t.Fatalf("expected success, got %q", rec.Status)
	}
	if !rec.EndedAt.Equal(end) {
		t.Fatalf("ended_at mismatch: %v vs %v", rec.EndedAt, end)
	}
}

func TestMarkOutcomeRejectsNonTerminal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Ensure(ctx, "demo"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := s.MarkOutcome(ctx, "demo", status.StatusRunning, time.Now()); err == nil {
		t.Fatalf("expected error for non-terminal outcome")
	}
}

func TestResetAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	for _, name := range []string{"b", "a"} {
		if err := s.Ensure(ctx, name); err != nil {
			t.Fatalf("ensure %s: %v", name, err)
		}
		if err := s.MarkRunning(ctx, name, now); err != nil {
			t.Fatalf("mark running %s: %v", name, err)
		}
		if err := s.MarkOutcome(ctx, name, status.StatusSuccess, now); err != nil {
			t.Fatalf("mark outcome %s: %v", name, err)
		}
	}

	recs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 || recs[0].Name != "a" || recs[1].Name != "b" {
		t.Fatalf("unexpected list: %+v", recs)
	}

	if err := s.Reset(ctx, "a"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	rec, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatalf("get after reset: %v", err)
	}
	if rec.Status != status.StatusNone {
		t.Fatalf("reset record must read as none, got %q", rec.Status)
	}
	// Resetting a missing record is not an error.
	if err := s.Reset(ctx, "missing"); err != nil {
		t.Fatalf("reset missing: %v", err)
	}
}

func TestSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "status.db")
	ctx := context.Background()

	s, err := New(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Ensure(ctx, "demo"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := s.MarkRunning(ctx, "demo", time.Now().UTC()); err != nil {
		t.Fatalf("mark running: %v", err)
	}
	if err := s.MarkOutcome(ctx, "demo", status.StatusSuccess, time.Now().UTC()); err != nil {
		t.Fatalf("mark outcome: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := New("sqlite://" + path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s2.Close() }()
	rec, err := s2.Get(ctx, "demo")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if rec.Status != status.StatusSuccess {
		t.Fatalf("expected success after reopen, got %q", rec.Status)
	}
}

func TestEmptyDSN(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}

func TestOpenAppliesPragmas(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "status.db"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = s.Close() }()

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode;").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Fatalf("expected wal journal mode, got %q", mode)
	}

	var timeout int
	if err := s.db.QueryRow("PRAGMA busy_timeout;").Scan(&timeout); err != nil {
		t.Fatalf("busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Fatalf("expected busy_timeout 5000, got %d", timeout)
	}
}
