// Package logging installs the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"

	// EnvLevel overrides the level chosen by flags.
	EnvLevel = "PGD_LOG_LEVEL"
)

// Configure installs a process-wide slog default logger writing text to
// stderr.
//
// Supported levels: debug, info, warn, error.
func Configure(level string) error {
	return ConfigureWriter(os.Stderr, level)
}

func ConfigureWriter(w io.Writer, level string) error {
	parsed, err := parseLevel(level)
	if err != nil {
		return err
	}

	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: parsed})
	slog.SetDefault(slog.New(h))
	return nil
}

// Level picks the CLI log level: PGD_LOG_LEVEL when set, debug under
// --verbose, warn otherwise.
func Level(verbose bool) string {
	if env := strings.TrimSpace(os.Getenv(EnvLevel)); env != "" {
		return env
	}
	if verbose {
		return LevelDebug
	}
	return LevelWarn
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case LevelInfo:
		return slog.LevelInfo, nil
	case LevelDebug:
		return slog.LevelDebug, nil
	case "", LevelWarn, "warning":
		return slog.LevelWarn, nil
	case LevelError:
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q", level)
	}
}
