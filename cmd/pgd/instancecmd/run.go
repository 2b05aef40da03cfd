package instancecmd

import (
	"context"
	"fmt"

	"pgd/cmd/pgd/cmdutil"
	"pgd/cmd/pgd/ui"
	"pgd/internal/lifecycle"
	"pgd/internal/project"

	"github.com/spf13/cobra"
)

type runIntent func(ctx context.Context, c *lifecycle.Controller, p project.Project) (lifecycle.RunResult, error)

func startCmd(g *cmdutil.Globals) *cobra.Command {
	return runCmd(g, "start", "Start the container", "started", "already running",
		func(ctx context.Context, c *lifecycle.Controller, p project.Project) (lifecycle.RunResult, error) {
			return c.Start(ctx, p)
		})
}

func stopCmd(g *cmdutil.Globals) *cobra.Command {
	return runCmd(g, "stop", "Stop the container, keeping its data", "stopped", "already stopped",
		func(ctx context.Context, c *lifecycle.Controller, p project.Project) (lifecycle.RunResult, error) {
			return c.Stop(ctx, p)
		})
}

func restartCmd(g *cmdutil.Globals) *cobra.Command {
	return runCmd(g, "restart", "Stop and start the container", "restarted", "restarted",
		func(ctx context.Context, c *lifecycle.Controller, p project.Project) (lifecycle.RunResult, error) {
			return c.Restart(ctx, p)
		})
}

func runCmd(g *cmdutil.Globals, use, short, changed, unchanged string, intent runIntent) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			progress := ui.NewProgress()
			env, p, err := open(cmd.Context(), g, lifecycle.WithTracer(progress.Tracer()))
			if err != nil {
				progress.Close()
				return err
			}
			defer env.Close()

			res, err := intent(cmd.Context(), env.Controller, p)
			progress.Close()
			if err != nil {
				return err
			}
			fmt.Println(runMessage(p, res, changed, unchanged))
			return nil
		},
	}
}

func runMessage(p project.Project, res lifecycle.RunResult, changed, unchanged string) string {
	if !res.Changed {
		return ui.InfoMsg("container %s %s", ui.Accent(p.ContainerName()), unchanged)
	}
	return ui.SuccessMsg("container %s %s", ui.Accent(p.ContainerName()), changed)
}
