package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"pgd/internal/telemetry"
)

func TestPlainLine(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		step step
		want string
	}{
		{
			name: "running root",
			step: step{ID: "start", Title: "starting container", Status: stepRunning},
			want: "  [->] starting container",
		},
		{
			name: "done child",
			step: step{ID: "allocate_port", Parent: "config", Title: "allocating host port", Status: stepDone},
			want: "    [ok] allocating host port",
		},
		{
			name: "skipped with reason",
			step: step{ID: "create", Title: "creating container", Status: stepSkipped, Note: "container exists"},
			want: "  [--] creating container (container exists)",
		},
		{
			name: "failed with message",
			step: step{ID: "ready", Title: "waiting for postgres", Status: stepFailed, Note: "timeout"},
			want: "  [x] waiting for postgres (timeout)",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := plainLine(tc.step); got != tc.want {
				t.Fatalf("plainLine() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestStepObserverKeepsPlanOrder(t *testing.T) {
	t.Parallel()

	var last []step
	observer := newStepObserver(func(steps []step) {
		last = append([]step(nil), steps...)
	})

	observer.onPlan(telemetry.Plan{Steps: []telemetry.Step{
		{ID: "stop", Title: "stopping container"},
		{ID: "remove", Title: "removing container"},
	}})
	observer.onStepStart("remove")
	observer.onStepEnd("remove", stepDone, "")
	observer.onStepEnd("stop", stepSkipped, "not running")
	observer.onStepStart("extra")

	want := []struct {
		id     string
		status stepStatus
	}{
		{"stop", stepSkipped},
		{"remove", stepDone},
		{"extra", stepRunning},
	}
	if len(last) != len(want) {
		t.Fatalf("got %d steps, want %d", len(last), len(want))
	}
	for i, w := range want {
		if last[i].ID != w.id || last[i].Status != w.status {
			t.Fatalf("step %d = %s/%s, want %s/%s", i, last[i].ID, last[i].Status, w.id, w.status)
		}
	}
	if last[0].Note != "not running" {
		t.Fatalf("skip reason = %q", last[0].Note)
	}
}

func TestProgressRendersOperationSpans(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	progress := newProgress(&out, false)

	op, err := telemetry.Begin(context.Background(), progress.Tracer(), "wipe", telemetry.Plan{Steps: []telemetry.Step{
		{ID: "stop", Title: "stopping container"},
		{ID: "remove", Title: "removing container"},
		{ID: "create", Title: "recreating container"},
	}})
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	op.Skip("stop", "not running")
	_ = op.Run("remove", func(context.Context) error { return nil })
	runErr := op.Run("create", func(context.Context) error { return errors.New("image missing") })
	op.End(runErr)
	progress.Close()

	got := out.String()
	for _, want := range []string{
		"  [--] stopping container (not running)",
		"  [->] removing container",
		"  [ok] removing container",
		"  [x] recreating container (image missing)",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "[->] stopping container") {
		t.Fatalf("skipped step must not be shown as running:\n%s", got)
	}
}

func TestLineWriterPrintsOnlyChanges(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	w := newLineWriter(&out)
	pending := step{ID: "stop", Title: "stopping container"}
	running := step{ID: "stop", Title: "stopping container", Status: stepRunning}

	w.write([]step{pending})
	w.write([]step{running})
	w.write([]step{running})

	if got, want := out.String(), "  [->] stopping container\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestChecklistRewritesBlockInPlace(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	c := newChecklist(&out)
	c.update([]step{
		{ID: "stop", Title: "stopping container", Status: stepDone},
		{ID: "remove", Title: "removing container", Status: stepSkipped, Note: "absent"},
	})
	c.update([]step{
		{ID: "stop", Title: "stopping container", Status: stepDone},
		{ID: "remove", Title: "removing container", Status: stepFailed, Note: "in use"},
	})
	c.Close()
	c.Close()

	got := out.String()
	for _, want := range []string{
		"stopping container",
		"removing container",
		"absent",
		"in use",
		"\x1b[2A",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%q", want, got)
		}
	}
	if strings.Index(got, "\x1b[2A") < strings.Index(got, "absent") {
		t.Fatalf("cursor moved up before the first draw:\n%q", got)
	}
}
