package logger

import (
	"log/slog"
	"path/filepath"
	"testing"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"junk":  slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWriterFromDir(t *testing.T) {
	dir := t.TempDir()
	c := Config{Dir: dir}
	w := c.Writer("onceup")
	if w == nil {
		t.Fatalf("expected a writer when dir is set")
	}
	l, ok := w.(*lj.Logger)
	if !ok {
		t.Fatalf("expected lumberjack writer, got %T", w)
	}
	if l.Filename != filepath.Join(dir, "onceup.log") {
		t.Fatalf("unexpected filename: %s", l.Filename)
	}
	if l.MaxSize != DefaultMaxSizeMB || l.MaxBackups != DefaultMaxBackups || l.MaxAge != DefaultMaxAgeDays {
		t.Fatalf("defaults not applied: %+v", l)
	}
	_ = w.Close()
}

func TestExplicitPathOverridesDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.log")
	c := Config{Dir: dir, Path: path, MaxSizeMB: 1}
	w := c.Writer("ignored")
	l := w.(*lj.Logger)
	if l.Filename != path {
		t.Fatalf("explicit path not honored: %s", l.Filename)
	}
	if l.MaxSize != 1 {
		t.Fatalf("explicit max size not honored: %d", l.MaxSize)
	}
	_ = w.Close()
}

func TestNoDestinationMeansNilWriter(t *testing.T) {
	if w := (Config{}).Writer("onceup"); w != nil {
		t.Fatalf("expected nil writer with empty config")
	}
}

func TestSetupWithFile(t *testing.T) {
	dir := t.TempDir()
	log, closer := Setup(Config{Dir: dir, Level: "debug"}, "onceup")
	if log == nil {
		t.Fatalf("expected logger")
	}
	if closer == nil {
		t.Fatalf("expected closer when file destination configured")
	}
	log.Debug("hello", "k", "v")
	_ = closer.Close()
}

func TestSetupWithoutFile(t *testing.T) {
	log, closer := Setup(Config{}, "onceup")
	if log == nil {
		t.Fatalf("expected logger")
	}
	if closer != nil {
		t.Fatalf("expected nil closer without file destination")
	}
}
