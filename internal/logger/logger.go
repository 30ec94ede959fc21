// Package logger configures log/slog for the engine: a JSON handler tagged
// with the service name, plus run-ID plumbing so every record of one strategy
// run (a live session or a backtest) can be correlated after the fact.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

type ctxKey struct{}

var runIDKey ctxKey

// Init installs a JSON slog handler writing to stdout as the process default
// and returns it. Every record carries the service name.
func Init(service string, level slog.Level) *slog.Logger {
	l := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String("service", service))
	slog.SetDefault(l)
	return l
}

// ParseLevel maps a config string to a slog level, defaulting to info on
// anything unrecognized.
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

// GenerateRunID builds a run ID as "{mode}-{unixNano}", where mode is "live"
// or "backtest".
func GenerateRunID(mode string, ts time.Time) string {
	return fmt.Sprintf("%s-%d", mode, ts.UnixNano())
}

// WithRunID stores a run ID in the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunID extracts the run ID from context, or "" when unset.
func RunID(ctx context.Context) string {
	if v, ok := ctx.Value(runIDKey).(string); ok {
		return v
	}
	return ""
}

// ForRun returns a logger with the context's run ID bound as an attribute, so
// callers don't thread the ID through every call site.
func ForRun(ctx context.Context, base *slog.Logger) *slog.Logger {
	if rid := RunID(ctx); rid != "" {
		return base.With(slog.String("run_id", rid))
	}
	return base
}
