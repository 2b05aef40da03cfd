package lifecycle

import (
	"context"

	"pgd/internal/instance"
	"pgd/internal/project"
	"pgd/internal/reconcile"
	"pgd/internal/telemetry"
)

type StatusResult struct {
	Project project.Project
	Phase   Phase
	// Observed is nil when the container is absent.
	Observed *instance.Descriptor
	State    instance.State
	HasState bool
	Report   reconcile.Report
}

// Status inspects the container and reconciles it against the config. It
// reports drift and never repairs it. The only write is to the state record:
// a LastSeenAt bump when one exists, or a fresh record of what was observed.
func (c *Controller) Status(ctx context.Context, p project.Project) (StatusResult, error) {
	op, err := c.begin(ctx, "status", p,
		telemetry.Step{ID: "inspect", Title: "inspecting container"},
		telemetry.Step{ID: "reconcile", Title: "comparing with config"},
	)
	if err != nil {
		return StatusResult{}, err
	}
	res, err := c.status(op, p)
	op.End(err)
	return res, fail("status", p, err)
}

func (c *Controller) status(op *telemetry.Operation, p project.Project) (StatusResult, error) {
	ctx := op.Context()
	res := StatusResult{Project: p, Phase: PhaseAbsent}

	err := op.Run("inspect", func(ctx context.Context) error {
		d, ok, err := c.inspect(ctx, p)
		if err != nil {
			return err
		}
		if ok {
			res.Observed = &d
			res.Phase = PhaseOf(d.Status)
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	st, hasState, err := c.state.Load(ctx, p.Key())
	if err != nil {
		return res, err
	}
	res.State, res.HasState = st, hasState

	_ = op.Run("reconcile", func(context.Context) error {
		res.Report = reconcile.Reconcile(p.Config, res.Observed, st.LastKnownStatus)
		return nil
	})

	switch {
	case res.Observed == nil:
	case hasState:
		// The expectation stays whatever the last intent left behind.
		res.State.LastSeenAt = c.now().UTC()
		if err := c.state.Save(ctx, p.Key(), res.State); err != nil {
			return res, err
		}
	default:
		// No record yet: the container as seen now becomes the baseline.
		st, err := c.record(ctx, p, *res.Observed)
		if err != nil {
			return res, err
		}
		res.State, res.HasState = st, true
	}
	if res.Report.Drifted() {
		c.logger(p).Debug("drift detected", "findings", res.Report.String())
	}
	return res, nil
}
