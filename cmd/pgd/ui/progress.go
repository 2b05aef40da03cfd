package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"pgd/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Progress turns lifecycle spans into step output on stderr: a live
// checklist on a terminal, one line per step change otherwise.
type Progress struct {
	provider *sdktrace.TracerProvider
	closeFn  func()
}

func NewProgress() *Progress {
	return newProgress(os.Stderr, IsInteractive())
}

// NewLineProgress always prints one line per step change. Commands that may
// prompt mid-operation use it so no live redraw competes with the prompt.
func NewLineProgress() *Progress {
	return newProgress(os.Stderr, false)
}

func newProgress(out io.Writer, interactive bool) *Progress {
	var (
		report  func([]step)
		closeFn = func() {}
	)
	if interactive {
		live := newChecklist(out)
		report, closeFn = live.update, live.Close
	} else {
		report = newLineWriter(out).write
	}
	observer := newStepObserver(report)
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(&stepSpanProcessor{observer: observer}))
	return &Progress{provider: provider, closeFn: closeFn}
}

func (p *Progress) Tracer() trace.Tracer {
	return p.provider.Tracer("pgd/cli")
}

func (p *Progress) Close() {
	if p == nil {
		return
	}
	_ = p.provider.Shutdown(context.Background())
	p.closeFn()
}

// step is one planned or observed unit of an operation, as shown to the user.
type step struct {
	ID     string
	Parent string
	Title  string
	Status stepStatus
	Note   string
}

func (s step) indent() string {
	if s.Parent != "" {
		return "    "
	}
	return "  "
}

type stepStatus uint8

const (
	stepPending stepStatus = iota
	stepRunning
	stepDone
	stepSkipped
	stepFailed
)

var stepStatusNames = [...]string{"pending", "running", "done", "skipped", "failed"}

func (s stepStatus) String() string { return stepStatusNames[s] }

// plainMarks label each status when stderr is not a terminal.
var plainMarks = [...]string{"[..]", "[->]", "[ok]", "[--]", "[x]"}

// lineWriter prints a line whenever a step leaves pending or its note changes.
type lineWriter struct {
	out  io.Writer
	mu   sync.Mutex
	last map[string]step
}

func newLineWriter(out io.Writer) *lineWriter {
	return &lineWriter{out: out, last: make(map[string]step)}
}

func (w *lineWriter) write(steps []step) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, s := range steps {
		if s.Status == stepPending || w.last[s.ID] == s {
			continue
		}
		w.last[s.ID] = s
		fmt.Fprintln(w.out, plainLine(s))
	}
}

func plainLine(s step) string {
	line := s.indent() + plainMarks[s.Status] + " " + s.Title
	if s.Note != "" {
		line += " (" + s.Note + ")"
	}
	return line
}

// stepObserver folds span starts and ends into ordered step snapshots.
type stepObserver struct {
	mu       sync.Mutex
	steps    map[string]step
	order    []string
	reporter func([]step)
}

func newStepObserver(reporter func([]step)) *stepObserver {
	return &stepObserver{
		steps:    make(map[string]step),
		reporter: reporter,
	}
}

func (o *stepObserver) onPlan(plan telemetry.Plan) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, planned := range plan.Steps {
		id := strings.TrimSpace(planned.ID)
		if id == "" {
			continue
		}
		s, exists := o.steps[id]
		if !exists {
			o.order = append(o.order, id)
			s = step{ID: id, Status: stepPending}
		}
		s.Parent = strings.TrimSpace(planned.ParentID)
		s.Title = strings.TrimSpace(planned.Title)
		if s.Title == "" {
			s.Title = id
		}
		o.steps[id] = s
	}
	o.emitLocked()
}

func (o *stepObserver) onStepStart(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.ensureStepLocked(id)
	s.Status, s.Note = stepRunning, ""
	o.steps[s.ID] = s
	o.emitLocked()
}

func (o *stepObserver) onStepEnd(id string, status stepStatus, note string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.ensureStepLocked(id)
	s.Status, s.Note = status, strings.TrimSpace(note)
	o.steps[s.ID] = s
	o.emitLocked()
}

// ensureStepLocked returns the step, appending unplanned ones at the end.
func (o *stepObserver) ensureStepLocked(id string) step {
	id = strings.TrimSpace(id)
	if id == "" {
		id = "unnamed"
	}
	if s, exists := o.steps[id]; exists {
		return s
	}
	o.order = append(o.order, id)
	return step{ID: id, Title: id, Status: stepPending}
}

func (o *stepObserver) emitLocked() {
	if o.reporter == nil {
		return
	}
	steps := make([]step, 0, len(o.order))
	for _, id := range o.order {
		steps = append(steps, o.steps[id])
	}
	o.reporter(steps)
}

// stepSpanProcessor feeds the observer: root spans carry the plan, child
// spans are steps.
type stepSpanProcessor struct {
	observer *stepObserver
}

func (p *stepSpanProcessor) OnStart(_ context.Context, span sdktrace.ReadWriteSpan) {
	if span.Parent().IsValid() {
		// Skipped steps are reported whole when they end.
		if attributeValue(span.Attributes(), telemetry.OutcomeKey) == "" {
			p.observer.onStepStart(span.Name())
		}
		return
	}

	planJSON := attributeValue(span.Attributes(), telemetry.PlanJSONKey)
	if strings.TrimSpace(planJSON) == "" {
		return
	}
	var plan telemetry.Plan
	if err := json.Unmarshal([]byte(planJSON), &plan); err != nil {
		return
	}
	p.observer.onPlan(plan)
}

func (p *stepSpanProcessor) OnEnd(span sdktrace.ReadOnlySpan) {
	if !span.Parent().IsValid() {
		return
	}
	if outcome := attributeValue(span.Attributes(), telemetry.OutcomeKey); outcome != "" {
		p.observer.onStepEnd(span.Name(), stepSkipped, strings.TrimPrefix(outcome, "skipped: "))
		return
	}
	if status := span.Status(); status.Code == codes.Error {
		p.observer.onStepEnd(span.Name(), stepFailed, status.Description)
		return
	}
	p.observer.onStepEnd(span.Name(), stepDone, "")
}

func (p *stepSpanProcessor) Shutdown(context.Context) error   { return nil }
func (p *stepSpanProcessor) ForceFlush(context.Context) error { return nil }

func attributeValue(attrs []attribute.KeyValue, key string) string {
	for _, attr := range attrs {
		if string(attr.Key) == key {
			return attr.Value.AsString()
		}
	}
	return ""
}
