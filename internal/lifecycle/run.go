package lifecycle

import (
	"context"
	"fmt"

	"pgd/internal/instance"
	"pgd/internal/project"
	"pgd/internal/telemetry"
)

// RunResult is the outcome of start, stop and restart.
type RunResult struct {
	Phase Phase
	// Changed is false when the container was already in the wanted phase.
	Changed bool
	State   instance.State
}

// Start starts the project's container. Starting a running container only
// refreshes its recorded state.
func (c *Controller) Start(ctx context.Context, p project.Project) (RunResult, error) {
	op, err := c.begin(ctx, "start", p,
		telemetry.Step{ID: "start", Title: "starting container"},
		telemetry.Step{ID: "verify", Title: "verifying container"},
		telemetry.Step{ID: "ready", Title: "waiting for postgres"},
	)
	if err != nil {
		return RunResult{}, err
	}
	res, err := c.start(op, p)
	op.End(err)
	return res, fail("start", p, err)
}

func (c *Controller) start(op *telemetry.Operation, p project.Project) (RunResult, error) {
	ctx := op.Context()
	d, ok, err := c.inspect(ctx, p)
	if err != nil {
		return RunResult{}, err
	}
	if !ok {
		return RunResult{Phase: PhaseAbsent}, notFound("start", p)
	}

	res := RunResult{}
	if d.Status == instance.StatusRunning {
		op.Skip("start", "already running")
	} else {
		err := op.Run("start", func(ctx context.Context) error {
			if err := c.runtime.Start(ctx, d.ID); err != nil {
				return fmt.Errorf("start container: %w", err)
			}
			return nil
		})
		if err != nil {
			return RunResult{Phase: PhaseOf(d.Status)}, err
		}
		res.Changed = true
	}

	err = op.Run("verify", func(ctx context.Context) error {
		var confirmErr error
		d, res.State, confirmErr = c.confirm(ctx, p)
		return confirmErr
	})
	if err != nil {
		return res, err
	}
	res.Phase = PhaseOf(d.Status)
	if res.Phase != PhaseRunning {
		return res, fmt.Errorf("container is %s after start", d.Status)
	}
	c.logger(p).Info("instance started", "changed", res.Changed)

	return res, op.Run("ready", func(ctx context.Context) error {
		return c.waitReady(ctx, p)
	})
}

// Stop stops the project's container. Stopping a stopped container only
// refreshes its recorded state.
func (c *Controller) Stop(ctx context.Context, p project.Project) (RunResult, error) {
	op, err := c.begin(ctx, "stop", p,
		telemetry.Step{ID: "stop", Title: "stopping container"},
		telemetry.Step{ID: "verify", Title: "verifying container"},
	)
	if err != nil {
		return RunResult{}, err
	}
	res, err := c.stopIntent(op, p)
	op.End(err)
	return res, fail("stop", p, err)
}

func (c *Controller) stopIntent(op *telemetry.Operation, p project.Project) (RunResult, error) {
	ctx := op.Context()
	d, ok, err := c.inspect(ctx, p)
	if err != nil {
		return RunResult{}, err
	}
	if !ok {
		return RunResult{Phase: PhaseAbsent}, notFound("stop", p)
	}

	res := RunResult{}
	if d.Status != instance.StatusRunning {
		op.Skip("stop", "not running")
	} else {
		if err := op.Run("stop", func(ctx context.Context) error { return c.stop(ctx, d) }); err != nil {
			return RunResult{Phase: PhaseOf(d.Status)}, err
		}
		res.Changed = true
	}

	err = op.Run("verify", func(ctx context.Context) error {
		var confirmErr error
		d, res.State, confirmErr = c.confirm(ctx, p)
		return confirmErr
	})
	res.Phase = PhaseOf(d.Status)
	if err != nil {
		return res, err
	}
	if res.Phase == PhaseRunning {
		return res, fmt.Errorf("container still running after stop")
	}
	c.logger(p).Info("instance stopped", "changed", res.Changed)
	return res, nil
}

// Restart stops the container if it is running, then starts it.
func (c *Controller) Restart(ctx context.Context, p project.Project) (RunResult, error) {
	op, err := c.begin(ctx, "restart", p,
		telemetry.Step{ID: "stop", Title: "stopping container"},
		telemetry.Step{ID: "start", Title: "starting container"},
		telemetry.Step{ID: "verify", Title: "verifying container"},
		telemetry.Step{ID: "ready", Title: "waiting for postgres"},
	)
	if err != nil {
		return RunResult{}, err
	}
	res, err := c.restart(op, p)
	op.End(err)
	return res, fail("restart", p, err)
}

func (c *Controller) restart(op *telemetry.Operation, p project.Project) (RunResult, error) {
	ctx := op.Context()
	d, ok, err := c.inspect(ctx, p)
	if err != nil {
		return RunResult{}, err
	}
	if !ok {
		return RunResult{Phase: PhaseAbsent}, notFound("restart", p)
	}

	if d.Status == instance.StatusRunning {
		if err := op.Run("stop", func(ctx context.Context) error { return c.stop(ctx, d) }); err != nil {
			return RunResult{Phase: PhaseRunning}, err
		}
	} else {
		op.Skip("stop", "not running")
	}

	err = op.Run("start", func(ctx context.Context) error {
		if err := c.runtime.Start(ctx, d.ID); err != nil {
			return fmt.Errorf("start container: %w", err)
		}
		return nil
	})
	if err != nil {
		return RunResult{Phase: PhaseStopped}, err
	}

	res := RunResult{Changed: true}
	err = op.Run("verify", func(ctx context.Context) error {
		var confirmErr error
		d, res.State, confirmErr = c.confirm(ctx, p)
		return confirmErr
	})
	if err != nil {
		return res, err
	}
	res.Phase = PhaseOf(d.Status)
	if res.Phase != PhaseRunning {
		return res, fmt.Errorf("container is %s after restart", d.Status)
	}
	c.logger(p).Info("instance restarted")

	return res, op.Run("ready", func(ctx context.Context) error {
		return c.waitReady(ctx, p)
	})
}
