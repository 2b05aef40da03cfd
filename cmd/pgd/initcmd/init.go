package initcmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"pgd/cmd/pgd/cmdutil"
	"pgd/cmd/pgd/ui"
	"pgd/internal/lifecycle"

	"github.com/spf13/cobra"
)

func Cmd(g *cmdutil.Globals) *cobra.Command {
	var (
		version string
		port    uint16
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create pgd.toml and bring up the project's PostgreSQL container",
		Long: "Writes any missing pgd.toml fields, allocates a free host port, then creates and starts " +
			"the container. Running it again on a healthy project changes nothing.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := g.Root()
			if err != nil {
				return err
			}

			progress := ui.NewProgress()
			env, err := cmdutil.Open(cmd.Context(), lifecycle.WithTracer(progress.Tracer()))
			if err != nil {
				progress.Close()
				return err
			}
			defer env.Close()

			res, err := env.Controller.Init(cmd.Context(), root, lifecycle.InitOptions{Version: version, Port: port})
			progress.Close()
			if err != nil {
				return err
			}
			render(os.Stdout, res, env.Controller.ConnectHost())
			return nil
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "PostgreSQL major version for a new pgd.toml (default from settings)")
	cmd.Flags().Uint16Var(&port, "port", 0, "Preferred host port when pgd.toml has none")
	return cmd
}

func render(w io.Writer, res lifecycle.InitResult, host string) {
	p := res.Project
	switch {
	case res.ConfigCreated:
		fmt.Fprintln(w, ui.SuccessMsg("created %s", ui.Accent(p.ConfigPath())))
	case res.ConfigUpdated:
		fmt.Fprintln(w, ui.SuccessMsg("updated %s", ui.Accent(p.ConfigPath())))
	}
	if res.ContainerCreated {
		fmt.Fprintln(w, ui.SuccessMsg("created container %s", ui.Accent(p.ContainerName())))
	}
	if res.Started {
		fmt.Fprintln(w, ui.SuccessMsg("started container %s", ui.Accent(p.ContainerName())))
	}
	if !res.ConfigCreated && !res.ConfigUpdated && !res.ContainerCreated && !res.Started {
		fmt.Fprintln(w, ui.InfoMsg("project %s is already initialized", ui.Accent(p.Name)))
	}

	fmt.Fprintln(w, ui.Table([]string{"Setting", "Value"}, [][]string{
		{"project", p.Name},
		{"container", p.ContainerName()},
		{"postgres", p.Config.PostgresVersion},
		{"host", host},
		{"port", strconv.Itoa(int(p.Config.Port))},
		{"database", p.Config.DatabaseName},
		{"user", p.Config.UserName},
		{"phase", ui.Phase(res.Phase.String())},
	}))
	cmdutil.PrintDrift(w, res.Report)
}
