// Package cmdutil holds what every pgd command shares: global flags, wiring
// of the controller to its adapters, confirmation handling and exit codes.
package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"pgd/cmd/pgd/ui"
	"pgd/config"
	"pgd/internal/adapter/docker"
	"pgd/internal/adapter/postgres"
	"pgd/internal/adapter/sqlite"
	"pgd/internal/instance"
	"pgd/internal/lifecycle"
	"pgd/internal/portalloc"
	"pgd/internal/project"
	"pgd/internal/reconcile"
)

const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitConfirmation = 2
	ExitDrift        = 3
)

// Globals are the root command's persistent flags.
type Globals struct {
	ProjectDir    string
	Verbose       bool
	NoInteraction bool
}

// Root resolves the project directory, defaulting to the working directory.
func (g *Globals) Root() (string, error) {
	dir := ""
	if g != nil {
		dir = g.ProjectDir
	}
	return project.ResolveRoot(dir)
}

// Env is a wired controller plus the resources it holds open.
type Env struct {
	Settings   *config.Settings
	Controller *lifecycle.Controller

	store   *sqlite.Store
	runtime *docker.Runtime
}

// Open loads user settings, opens the state database, connects to Docker
// and builds the controller. Extra options are applied last.
func Open(ctx context.Context, opts ...lifecycle.Option) (*Env, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	store, err := sqlite.OpenDir(settings.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}

	rt, err := docker.NewRuntime()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("%w: %v", instance.ErrRuntimeUnavailable, err)
	}
	if err := rt.Ping(ctx); err != nil {
		_ = rt.Close()
		_ = store.Close()
		return nil, err
	}

	leases := store.Leases()
	ports := portalloc.New(leases, portalloc.TCPProber{Host: settings.BindHost},
		portalloc.WithRange(settings.PortRangeStart, settings.PortRangeSize))

	base := []lifecycle.Option{
		lifecycle.WithReadiness(postgres.NewProbe()),
		lifecycle.WithImageRepository(settings.ImageRepository),
		lifecycle.WithDefaultVersion(settings.DefaultPostgresVersion),
		lifecycle.WithBindHost(settings.BindHost),
		lifecycle.WithStopTimeout(settings.StopTimeout),
		lifecycle.WithReadyTimeout(settings.ReadyTimeout),
	}
	ctrl := lifecycle.New(rt, store.Instances(), project.NewStore(leases), ports, append(base, opts...)...)

	return &Env{Settings: settings, Controller: ctrl, store: store, runtime: rt}, nil
}

func (e *Env) Close() error {
	if e == nil {
		return nil
	}
	return errors.Join(e.runtime.Close(), e.store.Close())
}

// Confirmation turns the --confirm flag into a lifecycle token. Without the
// flag a terminal user is asked; anywhere else the intent is refused.
func Confirmation(confirmed bool) lifecycle.Confirmation {
	if confirmed {
		return lifecycle.Confirmed()
	}
	if !ui.IsInteractive() {
		return lifecycle.Confirmation{}
	}
	return lifecycle.Ask(func(question string) (bool, error) {
		return ui.Confirm(question, "use --confirm to skip")
	})
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, instance.ErrConfirmationRequired),
		errors.Is(err, instance.ErrDeclined),
		errors.Is(err, ui.ErrCancelled):
		return ExitConfirmation
	case errors.Is(err, instance.ErrDriftDetected):
		return ExitDrift
	default:
		return ExitFailure
	}
}

// PrintError writes err and its remedy, if any, to w.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
	if remedy := strings.TrimSpace(instance.RemedyOf(err)); remedy != "" {
		fmt.Fprintf(w, "  %s\n", ui.Muted("hint: "+remedy))
	}
}

// PrintDrift lists each drift finding as a warning line.
func PrintDrift(w io.Writer, r reconcile.Report) {
	for _, f := range r.Findings {
		fmt.Fprintln(w, ui.WarnMsg("%s: %s", strings.ReplaceAll(string(f.Kind), "_", " "), f.Details))
	}
}
