package cmdutil

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"pgd/cmd/pgd/ui"
	"pgd/internal/instance"
	"pgd/internal/reconcile"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "confirmation required", err: fmt.Errorf("destroy: %w", instance.ErrConfirmationRequired), want: ExitConfirmation},
		{name: "declined", err: &instance.OpError{Op: "wipe", Err: instance.ErrDeclined}, want: ExitConfirmation},
		{name: "prompt cancelled", err: fmt.Errorf("ask for confirmation: %w", ui.ErrCancelled), want: ExitConfirmation},
		{name: "drift", err: fmt.Errorf("status: %w", instance.ErrDriftDetected), want: ExitDrift},
		{name: "not found", err: instance.ErrContainerNotFound, want: ExitFailure},
		{name: "plain", err: errors.New("boom"), want: ExitFailure},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ExitCode(tc.err); got != tc.want {
				t.Fatalf("ExitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestPrintErrorIncludesRemedy(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	PrintError(&buf, &instance.OpError{Op: "start", Project: "shop", Remedy: "run `pgd init`", Err: instance.ErrContainerNotFound})

	out := buf.String()
	if !strings.HasPrefix(out, "error: start project \"shop\": container not found\n") {
		t.Fatalf("unexpected output %q", out)
	}
	if !strings.Contains(out, "hint: run `pgd init`") {
		t.Fatalf("missing remedy in %q", out)
	}
}

func TestPrintErrorWithoutRemedy(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	PrintError(&buf, errors.New("boom"))
	if got := buf.String(); got != "error: boom\n" {
		t.Fatalf("PrintError() = %q", got)
	}
}

func TestGlobalsRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	got, err := (&Globals{ProjectDir: dir}).Root()
	if err != nil {
		t.Fatalf("Root() error = %v", err)
	}
	if got != filepath.Clean(dir) {
		t.Fatalf("Root() = %q, want %q", got, dir)
	}

	var nilGlobals *Globals
	cwd, err := nilGlobals.Root()
	if err != nil || !filepath.IsAbs(cwd) {
		t.Fatalf("nil Globals Root() = %q, %v", cwd, err)
	}
}

func TestConfirmationFlag(t *testing.T) {
	ui.ConfigureInteraction(true)

	if !Confirmation(true).Granted() {
		t.Fatal("--confirm must grant")
	}
	if Confirmation(false).Granted() {
		t.Fatal("no flag must not grant")
	}
}

func TestPrintDrift(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	PrintDrift(&buf, reconcile.Report{Findings: []reconcile.Finding{
		{Kind: reconcile.VersionMismatch, Details: "config wants 14, container runs postgres:16"},
		{Kind: reconcile.PortMismatch, Details: "config wants 5433, container binds 5432"},
	}})

	out := buf.String()
	if strings.Count(out, "\n") != 2 {
		t.Fatalf("want one line per finding, got %q", out)
	}
	if !strings.Contains(out, "version mismatch: config wants 14") {
		t.Fatalf("missing version finding in %q", out)
	}
}
