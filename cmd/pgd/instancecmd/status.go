package instancecmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"pgd/cmd/pgd/cmdutil"
	"pgd/cmd/pgd/ui"
	"pgd/internal/instance"
	"pgd/internal/lifecycle"

	"github.com/spf13/cobra"
)

func statusCmd(g *cmdutil.Globals) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the container's state and any drift from pgd.toml",
		Long:  "Inspects the container and compares it with pgd.toml. Drift is reported, never repaired.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, p, err := open(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer env.Close()

			var res lifecycle.StatusResult
			err = ui.RunWithSpinner(cmd.Context(), "inspecting "+p.ContainerName(), func(ctx context.Context) error {
				var statusErr error
				res, statusErr = env.Controller.Status(ctx, p)
				return statusErr
			})
			if err != nil {
				return err
			}
			renderStatus(os.Stdout, res)

			if strict && res.Report.Drifted() {
				return &instance.OpError{
					Op:        "status",
					Project:   p.Name,
					Container: p.ContainerName(),
					Remedy:    "align pgd.toml with the container, or recreate it with `pgd instance destroy --confirm` and `pgd init`",
					Err:       fmt.Errorf("%w: %s", instance.ErrDriftDetected, res.Report.String()),
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with status 3 when drift is detected")
	return cmd
}

func renderStatus(w io.Writer, res lifecycle.StatusResult) {
	p := res.Project
	pairs := []ui.Pair{
		ui.KV("project", p.Name),
		ui.KV("container", p.ContainerName()),
		ui.KV("phase", ui.Phase(res.Phase.String())),
		ui.KV("postgres", p.Config.PostgresVersion),
		ui.KV("port", strconv.Itoa(int(p.Config.Port))),
	}
	if d := res.Observed; d != nil {
		pairs = append(pairs,
			ui.KV("image", d.ImageTag),
			ui.KV("bound port", boundPort(d.BoundHostPort)),
			ui.KV("volume", d.VolumeRef),
		)
	}
	if res.HasState {
		pairs = append(pairs,
			ui.KV("expected", string(res.State.LastKnownStatus)),
			ui.KV("last seen", res.State.LastSeenAt.Local().Format(time.RFC3339)),
		)
	}
	fmt.Fprint(w, ui.KeyValues("", pairs...))

	if !res.Report.Drifted() {
		fmt.Fprintln(w, ui.SuccessMsg("no drift"))
		return
	}
	cmdutil.PrintDrift(w, res.Report)
}

func boundPort(port uint16) string {
	if port == 0 {
		return ui.Muted("none")
	}
	return strconv.Itoa(int(port))
}
