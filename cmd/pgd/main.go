package main

import (
	"os"

	"pgd/cmd/pgd/cmdutil"
	"pgd/cmd/pgd/initcmd"
	"pgd/cmd/pgd/instancecmd"
	"pgd/cmd/pgd/ui"
	"pgd/internal/logging"
	"pgd/internal/support/buildinfo"

	"github.com/spf13/cobra"
)

func main() {
	if err := logging.Configure(logging.LevelWarn); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	root := newRootCmd()
	if err := root.Execute(); err != nil {
		cmdutil.PrintError(os.Stderr, err)
		os.Exit(cmdutil.ExitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	g := &cmdutil.Globals{}

	root := &cobra.Command{
		Use:           "pgd",
		Short:         "One isolated PostgreSQL container per project",
		Version:       buildinfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ui.ConfigureInteraction(g.NoInteraction)
			return logging.Configure(logging.Level(g.Verbose))
		},
	}
	root.PersistentFlags().BoolVarP(&g.Verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVarP(&g.ProjectDir, "project-dir", "C", "", "Project root (default: current directory)")
	root.PersistentFlags().BoolVar(&g.NoInteraction, "no-interaction", false, "Never prompt; destructive commands then need --confirm")

	root.AddCommand(initcmd.Cmd(g))
	root.AddCommand(instancecmd.Cmd(g))
	return root
}
