package instancecmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"pgd/cmd/pgd/cmdutil"
	"pgd/cmd/pgd/ui"
	"pgd/internal/lifecycle"

	"github.com/spf13/cobra"
)

const (
	formatDSN   = "dsn"
	formatHuman = "human"
)

func connCmd(g *cmdutil.Globals) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "conn",
		Short: "Print connection details for the project's database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatDSN && format != formatHuman {
				return fmt.Errorf("unknown --format %q: want %s or %s", format, formatDSN, formatHuman)
			}

			env, p, err := open(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer env.Close()

			var info lifecycle.ConnectionInfo
			err = ui.RunWithSpinner(cmd.Context(), "inspecting "+p.ContainerName(), func(ctx context.Context) error {
				var connErr error
				info, connErr = env.Controller.Connection(ctx, p)
				return connErr
			})
			if err != nil {
				return err
			}
			renderConn(os.Stdout, os.Stderr, info, format)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", formatDSN, "Output format: dsn or human")
	return cmd
}

// renderConn writes the details to out. Warnings go to warn so that the dsn
// format stays machine-readable.
func renderConn(out, warn io.Writer, info lifecycle.ConnectionInfo, format string) {
	if info.Phase != lifecycle.PhaseRunning {
		fmt.Fprintln(warn, ui.WarnMsg("container is %s; start it with `pgd instance start`", info.Phase))
	}
	cmdutil.PrintDrift(warn, info.Report)

	if format == formatDSN {
		fmt.Fprintln(out, info.DSN)
		return
	}
	fmt.Fprintln(out, ui.Table([]string{"Field", "Value"}, [][]string{
		{"host", info.Host},
		{"port", strconv.Itoa(int(info.Port))},
		{"database", info.Database},
		{"user", info.User},
		{"password", info.Password},
		{"dsn", info.DSN},
	}))
}
