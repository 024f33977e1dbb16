package factory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/onceup/internal/audit"
	"github.com/loykin/onceup/internal/status"
)

func TestSQLiteSinkByPrefix(t *testing.T) {
	sink, err := NewSinkFromDSN("sqlite://" + filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("sqlite DSN: %v", err)
	}
	defer func() { _ = sink.Close() }()

	e := audit.Event{Script: "x", From: status.StatusNone, To: status.StatusRunning, OccurredAt: time.Now()}
	if err := sink.Send(context.Background(), e); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestBarePathDefaultsToSQLite(t *testing.T) {
	sink, err := NewSinkFromDSN(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("bare path: %v", err)
	}
	_ = sink.Close()
}

func TestUnsupportedDSN(t *testing.T) {
	if _, err := NewSinkFromDSN("kafka://broker:9092"); err == nil {
		t.Fatalf("expected error for unsupported DSN")
	}
}

func TestEmptyDSN(t *testing.T) {
	if _, err := NewSinkFromDSN(""); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}
