// Package logger configures the process-wide slog logger, optionally
// writing to a size-rotated file.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var global *slog.Logger

// Config selects level, format and destination.
type Config struct {
	// debug, info, warn or error
	Level string `mapstructure:"level"`
	// json or text
	Format string `mapstructure:"format"`
	// stdout, file or both
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
	WithCaller bool   `mapstructure:"with_caller"`
}

// DefaultConfig logs text at info level to stdout.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "text",
		Output:     "stdout",
		FilePath:   "logs/cdslib.log",
		MaxSize:    100,
		MaxBackups: 10,
		MaxAge:     30,
		Compress:   true,
	}
}

// ParseLevel maps a config string to a slog level; unknown names are info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger from cfg without installing it.
func New(cfg Config, stdout io.Writer) (*slog.Logger, error) {
	var out io.Writer
	switch strings.ToLower(cfg.Output) {
	case "file", "both":
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, err
		}
		file := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		out = file
		if strings.EqualFold(cfg.Output, "both") {
			out = io.MultiWriter(stdout, file)
		}
	default:
		out = stdout
	}

	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.WithCaller,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}
	return slog.New(h), nil
}

// Init installs the logger described by cfg as the slog default.
func Init(cfg Config) error {
	l, err := New(cfg, os.Stdout)
	if err != nil {
		return err
	}
	global = l
	slog.SetDefault(l)
	return nil
}

// Get returns the installed logger, or slog.Default before Init.
func Get() *slog.Logger {
	if global == nil {
		return slog.Default()
	}
	return global
}

// LogDuration logs msg with the elapsed time when the returned func runs.
//
//	defer logger.LogDuration("calibrate", "names", n)()
func LogDuration(msg string, args ...any) func() {
	start := time.Now()
	return func() {
		Get().Info(msg, append(args, slog.Duration("duration", time.Since(start)))...)
	}
}
