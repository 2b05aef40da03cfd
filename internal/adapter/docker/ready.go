package docker

import (
	"context"
	"log/slog"
	"time"

	"github.com/docker/docker/client"
)

// Ping checks the daemon is reachable. Connection failures are reported as
// instance.ErrRuntimeUnavailable.
func (r *Runtime) Ping(ctx context.Context) error {
	return Ping(ctx, r.cli)
}

// Ping pings the daemon once, giving up after a few seconds so a missing
// daemon fails fast.
func Ping(ctx context.Context, cli *client.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := cli.Ping(ctx); err != nil {
		slog.Debug("docker ping failed", "component", "docker", "host", cli.DaemonHost(), "err", err)
		return wrap("connect to docker daemon", err)
	}
	return nil
}
