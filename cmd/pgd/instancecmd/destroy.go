package instancecmd

import (
	"errors"
	"fmt"

	"pgd/cmd/pgd/cmdutil"
	"pgd/cmd/pgd/ui"
	"pgd/internal/instance"
	"pgd/internal/lifecycle"

	"github.com/spf13/cobra"
)

func destroyCmd(g *cmdutil.Globals) *cobra.Command {
	var (
		confirm bool
		wipe    bool
	)

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Remove the container, keeping pgd.toml and its port",
		Long: "Stops and removes the project's container and forgets its recorded state. " +
			"The data volume is kept unless --wipe is given.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			progress := ui.NewLineProgress()
			env, p, err := open(cmd.Context(), g, lifecycle.WithTracer(progress.Tracer()))
			if err != nil {
				progress.Close()
				return err
			}
			defer env.Close()

			res, err := env.Controller.Destroy(cmd.Context(), p, cmdutil.Confirmation(confirm), lifecycle.DestroyOptions{RemoveVolume: wipe})
			progress.Close()
			if err != nil {
				return decorateDestroyError(err)
			}
			fmt.Println(ui.SuccessMsg("destroyed container %s", ui.Accent(p.ContainerName())))
			if res.VolumeRemoved {
				fmt.Println(ui.SuccessMsg("deleted volume %s", ui.Accent(p.VolumeName())))
			} else {
				fmt.Println(ui.Muted("  data volume " + p.VolumeName() + " kept; `pgd init` reuses it"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Destroy without prompting")
	cmd.Flags().BoolVar(&wipe, "wipe", false, "Also delete the data volume")
	return cmd
}

func wipeCmd(g *cmdutil.Globals) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete all data and recreate an empty container",
		Long: "Removes the container and its data volume, then recreates both from pgd.toml. " +
			"The container is started again only if it was running.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			progress := ui.NewLineProgress()
			env, p, err := open(cmd.Context(), g, lifecycle.WithTracer(progress.Tracer()))
			if err != nil {
				progress.Close()
				return err
			}
			defer env.Close()

			res, err := env.Controller.Wipe(cmd.Context(), p, cmdutil.Confirmation(confirm))
			progress.Close()
			if err != nil {
				return decorateDestroyError(err)
			}
			fmt.Println(ui.SuccessMsg("wiped %s, container is %s", ui.Accent(p.ContainerName()), ui.Phase(res.Phase.String())))
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Wipe without prompting")
	return cmd
}

// decorateDestroyError explains refusals that end a destructive command
// before anything was changed.
func decorateDestroyError(err error) error {
	switch {
	case errors.Is(err, instance.ErrDeclined),
		errors.Is(err, instance.ErrConfirmationRequired),
		errors.Is(err, ui.ErrCancelled):
		return fmt.Errorf("%w; nothing was changed", err)
	default:
		return err
	}
}
