package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"pgd/internal/instance"
	"pgd/internal/project"
	"pgd/internal/reconcile"
	"pgd/internal/telemetry"
)

type InitOptions struct {
	// Version is used when the config does not declare one yet.
	Version string
	// Port is the preferred host port when the config has none yet.
	Port uint16
}

type InitResult struct {
	Project          project.Project
	Phase            Phase
	ConfigCreated    bool
	ConfigUpdated    bool
	PortAllocated    bool
	ContainerCreated bool
	Started          bool
	State            instance.State
	// Report lists drift between an existing container and the config.
	// Init never repairs it.
	Report reconcile.Report
}

// Init brings the project at root to a running instance: it writes any
// missing config fields, allocates a port, then creates and starts the
// container as needed. Running it again on a healthy project changes
// nothing.
func (c *Controller) Init(ctx context.Context, root string, opts InitOptions) (InitResult, error) {
	p, exists, err := c.config.Load(ctx, root)
	if err != nil {
		return InitResult{}, err
	}
	log := c.logger(p)

	op, err := c.begin(ctx, "init", p,
		telemetry.Step{ID: "config", Title: "writing project config"},
		telemetry.Step{ID: "allocate_port", ParentID: "config", Title: "allocating host port"},
		telemetry.Step{ID: "create", Title: "creating container"},
		telemetry.Step{ID: "start", Title: "starting container"},
		telemetry.Step{ID: "verify", Title: "verifying container"},
		telemetry.Step{ID: "ready", Title: "waiting for postgres"},
	)
	if err != nil {
		return InitResult{}, err
	}
	res, err := c.init(op, p, exists, opts)
	op.End(err)
	if err != nil {
		return res, fail("init", p, err)
	}
	log.Info("init complete", "phase", res.Phase, "port", res.Project.Config.Port)
	return res, nil
}

func (c *Controller) init(op *telemetry.Operation, p project.Project, exists bool, opts InitOptions) (InitResult, error) {
	ctx := op.Context()
	log := c.logger(p)
	res := InitResult{ConfigCreated: !exists}

	if exists && opts.Version != "" && strings.TrimSpace(p.Config.PostgresVersion) != "" && opts.Version != p.Config.PostgresVersion {
		log.Warn("config already declares a version, ignoring requested version",
			"declared", p.Config.PostgresVersion, "requested", opts.Version)
	}
	if exists && opts.Port != 0 && p.Config.Port != 0 && opts.Port != p.Config.Port {
		log.Warn("config already declares a port, ignoring requested port",
			"declared", p.Config.Port, "requested", opts.Port)
	}

	err := op.Run("config", func(ctx context.Context) error {
		version := opts.Version
		if version == "" {
			version = c.defaultVersion
		}
		changed, err := p.Config.ApplyDefaults(version)
		if err != nil {
			return fmt.Errorf("fill config defaults: %w", err)
		}
		if _, err := project.ParseVersion(p.Config.PostgresVersion); err != nil {
			return fmt.Errorf("%w: %v", instance.ErrConfigParse, err)
		}

		if p.Config.Port == 0 {
			err := op.Run("allocate_port", func(ctx context.Context) error {
				lease, err := c.ports.Allocate(ctx, p.Root, p.Name, opts.Port)
				if err != nil {
					return err
				}
				p.Config.Port = lease.Port
				return nil
			})
			if err != nil {
				return err
			}
			res.PortAllocated = true
			changed = true
		} else {
			op.Skip("allocate_port", "port already declared")
		}

		if !changed && exists {
			return c.config.Claim(ctx, p)
		}
		res.ConfigUpdated = exists
		return c.config.Save(ctx, p)
	})
	res.Project = p
	if err != nil {
		return res, err
	}

	d, found, err := c.inspect(ctx, p)
	if err != nil {
		return res, err
	}
	if found {
		op.Skip("create", "container exists")
		// Drift on an existing container is reported, not repaired.
		res.Report = reconcile.Reconcile(p.Config, &d, "")
		if res.Report.Drifted() {
			log.Warn("existing container differs from config", "drift", res.Report.String())
		}
	} else {
		err := op.Run("create", func(ctx context.Context) error {
			id, err := c.runtime.Create(ctx, c.createSpec(p))
			if err != nil {
				return fmt.Errorf("create container: %w", err)
			}
			d = instance.Descriptor{ID: id, Name: p.ContainerName(), Status: instance.StatusCreated}
			return nil
		})
		if err != nil {
			return res, err
		}
		res.ContainerCreated = true
	}

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
			return res, err
		}
		res.Started = true
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

	return res, op.Run("ready", func(ctx context.Context) error {
		return c.waitReady(ctx, p)
	})
}
