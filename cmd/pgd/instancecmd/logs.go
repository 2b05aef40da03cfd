package instancecmd

import (
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pgd/cmd/pgd/cmdutil"
	"pgd/internal/instance"
	"pgd/internal/lifecycle"

	"github.com/spf13/cobra"
)

func logsCmd(g *cmdutil.Globals) *cobra.Command {
	var (
		follow     bool
		tail       int
		timestamps bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the container's output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			env, p, err := open(ctx, g)
			if err != nil {
				return err
			}
			defer env.Close()

			lines := env.Controller.Logs(ctx, p, lifecycle.LogOptions{Follow: follow, Tail: tail})
			return writeLogs(ctx, os.Stdout, os.Stderr, lines, timestamps)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming until interrupted")
	cmd.Flags().IntVar(&tail, "tail", 0, "Only show the last N lines (0 for all)")
	cmd.Flags().BoolVarP(&timestamps, "timestamps", "t", false, "Prefix each line with its timestamp")
	return cmd
}

// writeLogs copies lines to stdout or stderr by stream. An interrupt ends
// the stream without error.
func writeLogs(ctx context.Context, stdout, stderr io.Writer, lines iter.Seq2[instance.LogLine, error], timestamps bool) error {
	for line, err := range lines {
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		w := stdout
		if line.Stream == instance.LogStderr {
			w = stderr
		}
		if timestamps && !line.Time.IsZero() {
			fmt.Fprintf(w, "%s %s\n", line.Time.Format(time.RFC3339Nano), line.Text)
			continue
		}
		fmt.Fprintln(w, line.Text)
	}
	return nil
}
