// Package telemetry exposes lifecycle intents as trace spans: one root span per
// intent carrying the planned steps, and one child span per executed step. The
// CLI renders these spans as a progress checklist.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	PlanEventName = "pgd.plan"
	PlanJSONKey   = "pgd.plan.json"
	ProjectKey    = "pgd.project"
	ContainerKey  = "pgd.container"
	OutcomeKey    = "pgd.outcome"
)

type Step struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
	Title    string `json:"title"`
}

type Plan struct {
	Steps []Step `json:"steps"`
}

// Operation is one lifecycle intent in flight.
type Operation struct {
	ctx    context.Context
	tracer trace.Tracer
	span   trace.Span
}

// Begin opens the root span for an intent. A nil tracer yields a no-op
// operation that still runs its steps.
func Begin(ctx context.Context, tracer trace.Tracer, intent string, plan Plan, attrs ...attribute.KeyValue) (*Operation, error) {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("pgd")
	}
	if err := validatePlan(plan); err != nil {
		return nil, fmt.Errorf("begin %s: %w", intent, err)
	}
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("begin %s: marshal plan: %w", intent, err)
	}

	attrs = append(attrs, attribute.String(PlanJSONKey, string(planJSON)))
	spanCtx, span := tracer.Start(ctx, intent, trace.WithAttributes(attrs...))
	span.AddEvent(PlanEventName)
	return &Operation{ctx: spanCtx, tracer: tracer, span: span}, nil
}

func (o *Operation) Context() context.Context {
	if o == nil || o.ctx == nil {
		return context.Background()
	}
	return o.ctx
}

// Run executes fn inside a child span named id.
func (o *Operation) Run(id string, fn func(context.Context) error) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("run step: step id is required")
	}
	if o == nil || o.tracer == nil {
		return fn(context.Background())
	}

	stepCtx, span := o.tracer.Start(o.ctx, id)
	defer span.End()

	if err := fn(stepCtx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
		return err
	}
	return nil
}

// Skip records a planned step that did not need to run.
func (o *Operation) Skip(id, reason string) {
	if o == nil || o.tracer == nil {
		return
	}
	_, span := o.tracer.Start(o.ctx, id, trace.WithAttributes(attribute.String(OutcomeKey, "skipped: "+reason)))
	span.End()
}

// End closes the root span, marking it failed when err is non-nil.
func (o *Operation) End(err error) {
	if o == nil || o.span == nil {
		return
	}
	if err != nil {
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
	}
	o.span.End()
}

func validatePlan(plan Plan) error {
	seen := make(map[string]struct{}, len(plan.Steps))
	for i, step := range plan.Steps {
		id := strings.TrimSpace(step.ID)
		if id == "" {
			return fmt.Errorf("step %d has empty id", i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate step id %q", id)
		}
		seen[id] = struct{}{}
	}
	for i, step := range plan.Steps {
		parent := strings.TrimSpace(step.ParentID)
		if parent == "" {
			continue
		}
		if _, ok := seen[parent]; !ok {
			return fmt.Errorf("step %d parent %q not found in plan", i, parent)
		}
	}
	return nil
}
