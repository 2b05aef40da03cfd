package lifecycle

import (
	"context"
	"fmt"

	"pgd/internal/instance"
	"pgd/internal/project"
	"pgd/internal/telemetry"
)

type DestroyOptions struct {
	// RemoveVolume also deletes the data volume.
	RemoveVolume bool
}

type DestroyResult struct {
	Phase         Phase
	VolumeRemoved bool
}

// Destroy removes the project's container and its recorded state. The config
// file and its port lease are kept. Nothing is touched unless the container
// exists and confirm grants the intent.
func (c *Controller) Destroy(ctx context.Context, p project.Project, confirm Confirmation, opts DestroyOptions) (DestroyResult, error) {
	op, err := c.begin(ctx, "destroy", p,
		telemetry.Step{ID: "stop", Title: "stopping container"},
		telemetry.Step{ID: "remove", Title: "removing container"},
		telemetry.Step{ID: "remove_volume", Title: "removing data volume"},
		telemetry.Step{ID: "forget", Title: "clearing instance state"},
	)
	if err != nil {
		return DestroyResult{}, err
	}
	res, err := c.destroy(op, p, confirm, opts)
	op.End(err)
	return res, fail("destroy", p, err)
}

func (c *Controller) destroy(op *telemetry.Operation, p project.Project, confirm Confirmation, opts DestroyOptions) (DestroyResult, error) {
	ctx := op.Context()
	d, ok, err := c.inspect(ctx, p)
	if err != nil {
		return DestroyResult{}, err
	}
	if !ok {
		return DestroyResult{Phase: PhaseAbsent}, notFound("destroy", p)
	}

	question := fmt.Sprintf("Destroy container %s?", p.ContainerName())
	if opts.RemoveVolume {
		question = fmt.Sprintf("Destroy container %s and delete its data?", p.ContainerName())
	}
	if err := confirm.resolve(question); err != nil {
		return DestroyResult{Phase: PhaseOf(d.Status)}, err
	}

	if err := c.teardown(op, p, d); err != nil {
		return DestroyResult{Phase: PhaseOf(d.Status)}, err
	}

	res := DestroyResult{Phase: PhaseDestroyed}
	if opts.RemoveVolume {
		err := op.Run("remove_volume", func(ctx context.Context) error {
			if err := c.runtime.RemoveVolume(ctx, p.VolumeName()); err != nil {
				return fmt.Errorf("remove volume %s: %w", p.VolumeName(), err)
			}
			return nil
		})
		if err != nil {
			return res, err
		}
		res.VolumeRemoved = true
	} else {
		op.Skip("remove_volume", "volume kept")
	}

	err = op.Run("forget", func(ctx context.Context) error {
		if err := c.state.Delete(ctx, p.Key()); err != nil {
			return fmt.Errorf("delete instance state: %w", err)
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	c.logger(p).Info("instance destroyed", "volume_removed", res.VolumeRemoved)
	return res, nil
}

// teardown stops a running container and removes it.
func (c *Controller) teardown(op *telemetry.Operation, p project.Project, d instance.Descriptor) error {
	if d.Status == instance.StatusRunning {
		if err := op.Run("stop", func(ctx context.Context) error { return c.stop(ctx, d) }); err != nil {
			return err
		}
	} else {
		op.Skip("stop", "not running")
	}
	return op.Run("remove", func(ctx context.Context) error {
		if err := c.runtime.Remove(ctx, d.ID); err != nil {
			return fmt.Errorf("remove container: %w", err)
		}
		return nil
	})
}

type WipeResult struct {
	Phase Phase
	State instance.State
}

// Wipe deletes all data by recreating the container on a fresh volume. The
// container is started again only if it was running before.
func (c *Controller) Wipe(ctx context.Context, p project.Project, confirm Confirmation) (WipeResult, error) {
	op, err := c.begin(ctx, "wipe", p,
		telemetry.Step{ID: "stop", Title: "stopping container"},
		telemetry.Step{ID: "remove", Title: "removing container"},
		telemetry.Step{ID: "remove_volume", Title: "removing data volume"},
		telemetry.Step{ID: "create", Title: "recreating container"},
		telemetry.Step{ID: "start", Title: "starting container"},
		telemetry.Step{ID: "verify", Title: "verifying container"},
		telemetry.Step{ID: "ready", Title: "waiting for postgres"},
	)
	if err != nil {
		return WipeResult{}, err
	}
	res, err := c.wipe(op, p, confirm)
	op.End(err)
	return res, fail("wipe", p, err)
}

func (c *Controller) wipe(op *telemetry.Operation, p project.Project, confirm Confirmation) (WipeResult, error) {
	ctx := op.Context()
	d, ok, err := c.inspect(ctx, p)
	if err != nil {
		return WipeResult{}, err
	}
	if !ok {
		return WipeResult{Phase: PhaseAbsent}, notFound("wipe", p)
	}
	if err := confirm.resolve(fmt.Sprintf("Delete all data in %s?", p.ContainerName())); err != nil {
		return WipeResult{Phase: PhaseOf(d.Status)}, err
	}
	wasRunning := d.Status == instance.StatusRunning

	if err := c.teardown(op, p, d); err != nil {
		return WipeResult{Phase: PhaseOf(d.Status)}, err
	}
	err = op.Run("remove_volume", func(ctx context.Context) error {
		if err := c.runtime.RemoveVolume(ctx, p.VolumeName()); err != nil {
			return fmt.Errorf("remove volume %s: %w", p.VolumeName(), err)
		}
		return nil
	})
	if err != nil {
		return WipeResult{Phase: PhaseAbsent}, err
	}

	var id string
	err = op.Run("create", func(ctx context.Context) error {
		var createErr error
		id, createErr = c.runtime.Create(ctx, c.createSpec(p))
		if createErr != nil {
			return fmt.Errorf("recreate container: %w", createErr)
		}
		return nil
	})
	if err != nil {
		return WipeResult{Phase: PhaseAbsent}, err
	}

	if wasRunning {
		err := op.Run("start", func(ctx context.Context) error {
			if err := c.runtime.Start(ctx, id); err != nil {
				return fmt.Errorf("start container: %w", err)
			}
			return nil
		})
		if err != nil {
			return WipeResult{Phase: PhaseCreated}, err
		}
	} else {
		op.Skip("start", "was not running")
	}

	res := WipeResult{}
	err = op.Run("verify", func(ctx context.Context) error {
		var confirmErr error
		d, res.State, confirmErr = c.confirm(ctx, p)
		return confirmErr
	})
	if err != nil {
		return res, err
	}
	res.Phase = PhaseOf(d.Status)
	c.logger(p).Info("instance wiped", "phase", res.Phase)

	if res.Phase != PhaseRunning {
		op.Skip("ready", "not running")
		return res, nil
	}
	return res, op.Run("ready", func(ctx context.Context) error {
		return c.waitReady(ctx, p)
	})
}
