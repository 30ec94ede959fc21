package logger

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestInit(t *testing.T) {
	if Init("test-service", slog.LevelInfo) == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestRunIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	if rid := RunID(ctx); rid != "" {
		t.Errorf("RunID on bare context = %q, want empty", rid)
	}

	ctx = WithRunID(ctx, "backtest-123")
	if rid := RunID(ctx); rid != "backtest-123" {
		t.Errorf("RunID = %q, want backtest-123", rid)
	}
}

func TestGenerateRunID(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.UTC)
	rid := GenerateRunID("live", ts)
	if !strings.HasPrefix(rid, "live-") {
		t.Errorf("run id %q should start with live-", rid)
	}
	if !strings.Contains(rid, "123456789") {
		t.Errorf("run id %q should embed the nano timestamp", rid)
	}
}

func TestForRun(t *testing.T) {
	base := Init("test-service", slog.LevelInfo)

	// Without a run ID the base logger comes back unchanged.
	if got := ForRun(context.Background(), base); got != base {
		t.Error("ForRun without run id should return the base logger")
	}

	ctx := WithRunID(context.Background(), "live-42")
	if got := ForRun(ctx, base); got == base {
		t.Error("ForRun with run id should return a derived logger")
	}
}
