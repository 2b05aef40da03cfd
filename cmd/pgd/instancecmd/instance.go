// Package instancecmd implements `pgd instance`, the day-to-day commands for
// an initialized project's container.
package instancecmd

import (
	"context"

	"pgd/cmd/pgd/cmdutil"
	"pgd/internal/lifecycle"
	"pgd/internal/project"

	"github.com/spf13/cobra"
)

func Cmd(g *cmdutil.Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instance",
		Short: "Manage the project's PostgreSQL container",
	}

	cmd.AddCommand(startCmd(g))
	cmd.AddCommand(stopCmd(g))
	cmd.AddCommand(restartCmd(g))
	cmd.AddCommand(statusCmd(g))
	cmd.AddCommand(logsCmd(g))
	cmd.AddCommand(connCmd(g))
	cmd.AddCommand(destroyCmd(g))
	cmd.AddCommand(wipeCmd(g))
	return cmd
}

// open wires the controller and loads the project's config.
func open(ctx context.Context, g *cmdutil.Globals, opts ...lifecycle.Option) (*cmdutil.Env, project.Project, error) {
	root, err := g.Root()
	if err != nil {
		return nil, project.Project{}, err
	}
	env, err := cmdutil.Open(ctx, opts...)
	if err != nil {
		return nil, project.Project{}, err
	}
	p, err := env.Controller.Load(ctx, root)
	if err != nil {
		_ = env.Close()
		return nil, project.Project{}, err
	}
	return env, p, nil
}
