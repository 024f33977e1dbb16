package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/loykin/onceup/internal/status"
)

func TestSQLiteByPrefix(t *testing.T) {
	st, err := NewStoreFromDSN("sqlite://" + filepath.Join(t.TempDir(), "s.db"))
	if err != nil {
		t.Fatalf("sqlite DSN: %v", err)
	}
	defer func() { _ = st.Close() }()
	rec, err := st.Get(context.Background(), "x")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Status != status.StatusNone {
		t.Fatalf("expected none, got %q", rec.Status)
	}
}

func TestBarePathDefaultsToSQLite(t *testing.T) {
	st, err := NewStoreFromDSN(filepath.Join(t.TempDir(), "s.db"))
	if err != nil {
		t.Fatalf("bare path DSN: %v", err)
	}
	_ = st.Close()
}

func TestUnsupportedDSN(t *testing.T) {
	if _, err := NewStoreFromDSN("redis://localhost:6379"); err == nil {
		t.Fatalf("expected error for unsupported DSN")
	}
}

func TestEmptyDSN(t *testing.T) {
	if _, err := NewStoreFromDSN("   "); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}
