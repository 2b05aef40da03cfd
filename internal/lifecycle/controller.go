// Package lifecycle drives a project's PostgreSQL container through its
// intents: init, start, stop, restart, status, destroy, wipe, logs and
// connection details. Every mutation is followed by a fresh inspection, and
// only that confirmed observation is persisted.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pgd/internal/check"
	"pgd/internal/instance"
	"pgd/internal/portalloc"
	"pgd/internal/project"
	"pgd/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	LabelProject = "pgd.project"
	LabelRoot    = "pgd.root"
	LabelVersion = "pgd.postgres.version"

	ContainerPort = 5432
	DataPath      = "/var/lib/postgresql/data"

	DefaultImageRepository = "postgres"
	DefaultStopTimeout     = 10 * time.Second
	DefaultReadyTimeout    = 30 * time.Second
)

// Controller owns the lifecycle of every project instance on this host.
type Controller struct {
	runtime ContainerRuntime
	state   StateStore
	config  ConfigStore
	ports   PortAllocator
	ready   Readiness
	tracer  trace.Tracer
	now     func() time.Time

	imageRepository string
	defaultVersion  string
	bindHost        string
	stopTimeout     time.Duration
	readyTimeout    time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithReadiness enables waiting for the database after every start.
func WithReadiness(r Readiness) Option {
	return func(c *Controller) { c.ready = r }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Controller) { c.tracer = t }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithImageRepository(repo string) Option {
	return func(c *Controller) {
		if strings.TrimSpace(repo) != "" {
			c.imageRepository = repo
		}
	}
}

// WithDefaultVersion sets the version written into new configs when init is
// not given one.
func WithDefaultVersion(v string) Option {
	return func(c *Controller) {
		if strings.TrimSpace(v) != "" {
			c.defaultVersion = v
		}
	}
}

// WithBindHost sets the host address container ports are published on.
func WithBindHost(host string) Option {
	return func(c *Controller) {
		if strings.TrimSpace(host) != "" {
			c.bindHost = host
		}
	}
}

func WithStopTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.stopTimeout = d
		}
	}
}

func WithReadyTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.readyTimeout = d
		}
	}
}

// New creates a Controller. Readiness waiting is off unless WithReadiness is
// given.
func New(runtime ContainerRuntime, state StateStore, config ConfigStore, ports PortAllocator, opts ...Option) *Controller {
	c := &Controller{
		runtime:         runtime,
		state:           state,
		config:          config,
		ports:           ports,
		now:             time.Now,
		imageRepository: DefaultImageRepository,
		defaultVersion:  project.DefaultVersion,
		bindHost:        portalloc.DefaultBindHost,
		stopTimeout:     DefaultStopTimeout,
		readyTimeout:    DefaultReadyTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads the project rooted at root and checks its config is complete.
func (c *Controller) Load(ctx context.Context, root string) (project.Project, error) {
	p, ok, err := c.config.Load(ctx, root)
	if err != nil {
		return project.Project{}, err
	}
	if !ok {
		return project.Project{}, &instance.OpError{
			Op:      "load config",
			Project: p.Name,
			Remedy:  "run `pgd init` in " + p.Root,
			Err:     instance.ErrConfigMissing,
		}
	}
	if err := p.Config.Validate(); err != nil {
		return project.Project{}, &instance.OpError{
			Op:      "load config",
			Project: p.Name,
			Remedy:  "fix " + p.ConfigPath() + " or run `pgd init` to fill in missing fields",
			Err:     err,
		}
	}
	return p, nil
}

// ConnectHost is the address clients on this host use to reach an instance.
func (c *Controller) ConnectHost() string {
	switch c.bindHost {
	case "", "0.0.0.0", "::":
		return portalloc.DefaultBindHost
	}
	return c.bindHost
}

func (c *Controller) begin(ctx context.Context, intent string, p project.Project, steps ...telemetry.Step) (*telemetry.Operation, error) {
	return telemetry.Begin(ctx, c.tracer, intent, telemetry.Plan{Steps: steps},
		attribute.String(telemetry.ProjectKey, p.Name),
		attribute.String(telemetry.ContainerKey, p.ContainerName()),
	)
}

func (c *Controller) logger(p project.Project) *slog.Logger {
	return slog.With("component", "lifecycle", "project", p.Name, "container", p.ContainerName())
}

// inspect reports whether the project's container exists right now.
func (c *Controller) inspect(ctx context.Context, p project.Project) (instance.Descriptor, bool, error) {
	d, ok, err := c.runtime.Inspect(ctx, p.ContainerName())
	if err != nil {
		return instance.Descriptor{}, false, fmt.Errorf("inspect container: %w", err)
	}
	if !ok || d.Status == instance.StatusAbsent {
		return instance.Descriptor{}, false, nil
	}
	return d, true, nil
}

// confirm inspects after a mutation and persists the observation.
func (c *Controller) confirm(ctx context.Context, p project.Project) (instance.Descriptor, instance.State, error) {
	d, ok, err := c.inspect(ctx, p)
	if err != nil {
		return instance.Descriptor{}, instance.State{}, err
	}
	if !ok {
		return instance.Descriptor{}, instance.State{}, fmt.Errorf("container vanished after mutation: %w", instance.ErrContainerNotFound)
	}
	st, err := c.record(ctx, p, d)
	if err != nil {
		return instance.Descriptor{}, instance.State{}, err
	}
	return d, st, nil
}

func (c *Controller) record(ctx context.Context, p project.Project, d instance.Descriptor) (instance.State, error) {
	check.Assertf(d.Name == "" || d.Name == p.ContainerName(), "recording container %s for project %s", d.Name, p.ContainerName())
	prev, _, err := c.state.Load(ctx, p.Key())
	if err != nil {
		return instance.State{}, fmt.Errorf("load instance state: %w", err)
	}
	version := p.Config.PostgresVersion
	if v, err := project.VersionFromImageTag(d.ImageTag); err == nil {
		version = v.String()
	}
	next := prev.Fold(d, version, c.now())
	if err := c.state.Save(ctx, p.Key(), next); err != nil {
		return instance.State{}, fmt.Errorf("save instance state: %w", err)
	}
	return next, nil
}

func (c *Controller) createSpec(p project.Project) instance.CreateSpec {
	cfg := p.Config
	return instance.CreateSpec{
		Name:     p.ContainerName(),
		ImageTag: project.ImageTag(c.imageRepository, cfg.PostgresVersion),
		Env: []string{
			"POSTGRES_USER=" + cfg.UserName,
			"POSTGRES_PASSWORD=" + cfg.Password,
			"POSTGRES_DB=" + cfg.DatabaseName,
		},
		HostIP:        c.bindHost,
		HostPort:      cfg.Port,
		ContainerPort: ContainerPort,
		VolumeRef:     p.VolumeName(),
		DataPath:      DataPath,
		Labels: map[string]string{
			LabelProject: p.Name,
			LabelRoot:    p.Root,
			LabelVersion: cfg.PostgresVersion,
		},
	}
}

func (c *Controller) waitReady(ctx context.Context, p project.Project) error {
	if c.ready == nil {
		return nil
	}
	if err := c.ready.WaitReady(ctx, p.DSN(c.ConnectHost()), c.readyTimeout); err != nil {
		if errors.Is(err, instance.ErrNotReady) {
			return err
		}
		return fmt.Errorf("%w: %v", instance.ErrNotReady, err)
	}
	return nil
}

func (c *Controller) stop(ctx context.Context, d instance.Descriptor) error {
	if err := c.runtime.Stop(ctx, d.ID, c.stopTimeout); err != nil {
		return fmt.Errorf("stop container: %w", err)
	}
	return nil
}

func notFound(op string, p project.Project) error {
	return &instance.OpError{
		Op:        op,
		Project:   p.Name,
		Container: p.ContainerName(),
		Remedy:    "run `pgd init` to create the instance",
		Err:       instance.ErrContainerNotFound,
	}
}

// fail attaches project context unless err already carries it.
func fail(op string, p project.Project, err error) error {
	if err == nil {
		return nil
	}
	var opErr *instance.OpError
	if errors.As(err, &opErr) {
		return err
	}
	return &instance.OpError{Op: op, Project: p.Name, Container: p.ContainerName(), Err: err}
}
