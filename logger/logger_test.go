package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meenmo/cdslib/logger"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := logger.ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q): got %v want %v", in, got, want)
		}
	}
}

func TestNew_JSONToWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cfg := logger.DefaultConfig()
	cfg.Format = "json"
	cfg.Level = "debug"
	l, err := logger.New(cfg, &buf)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	l.Debug("pillar solved", "pillar", 3)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("Unmarshal error: %v (%s)", err, buf.String())
	}
	if rec["msg"] != "pillar solved" || rec["pillar"] != float64(3) || rec["level"] != "DEBUG" {
		t.Fatalf("record: %v", rec)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cfg := logger.DefaultConfig()
	cfg.Level = "warn"
	l, err := logger.New(cfg, &buf)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	l.Info("dropped")
	l.Warn("kept")
	if out := buf.String(); strings.Contains(out, "dropped") || !strings.Contains(out, "kept") {
		t.Fatalf("output: %s", out)
	}
}

func TestNew_RotatingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "cdslib.log")
	cfg := logger.DefaultConfig()
	cfg.Output = "file"
	cfg.FilePath = path
	cfg.Compress = false
	l, err := logger.New(cfg, os.Stdout)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	l.Info("curve built", "knots", 19)

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if !strings.Contains(string(b), "curve built") || !strings.Contains(string(b), "knots=19") {
		t.Fatalf("file contents: %s", b)
	}
}
