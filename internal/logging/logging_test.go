package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{in: "", want: slog.LevelWarn, ok: true},
		{in: "debug", want: slog.LevelDebug, ok: true},
		{in: " INFO ", want: slog.LevelInfo, ok: true},
		{in: "warning", want: slog.LevelWarn, ok: true},
		{in: "error", want: slog.LevelError, ok: true},
		{in: "trace", ok: false},
	}
	for _, tc := range testCases {
		got, err := parseLevel(tc.in)
		if tc.ok != (err == nil) {
			t.Fatalf("parseLevel(%q) error = %v, want ok=%v", tc.in, err, tc.ok)
		}
		if tc.ok && got != tc.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLevel(t *testing.T) {
	t.Setenv(EnvLevel, "")
	if got := Level(false); got != LevelWarn {
		t.Fatalf("Level(false) = %q, want warn", got)
	}
	if got := Level(true); got != LevelDebug {
		t.Fatalf("Level(true) = %q, want debug", got)
	}

	t.Setenv(EnvLevel, "error")
	if got := Level(true); got != "error" {
		t.Fatalf("env override ignored: %q", got)
	}
}

func TestConfigureWriterFiltersByLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	if err := ConfigureWriter(&buf, LevelWarn); err != nil {
		t.Fatal(err)
	}
	slog.Info("hidden")
	slog.Warn("shown", "component", "test")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "component=test") {
		t.Fatalf("unexpected log output %q", out)
	}
	if err := ConfigureWriter(&buf, "loud"); err == nil {
		t.Fatal("expected invalid level error")
	}
}
