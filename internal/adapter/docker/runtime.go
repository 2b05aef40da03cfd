package docker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"pgd/internal/instance"
	"pgd/internal/lifecycle"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

var _ lifecycle.ContainerRuntime = (*Runtime)(nil)

// Runtime implements lifecycle.ContainerRuntime using the Docker Engine API.
type Runtime struct {
	cli *client.Client
}

// NewRuntime creates a Runtime with a new Docker client from the environment.
func NewRuntime() (*Runtime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Runtime{cli: cli}, nil
}

// NewRuntimeFromClient wraps an existing Docker client.
func NewRuntimeFromClient(cli *client.Client) *Runtime {
	return &Runtime{cli: cli}
}

func (r *Runtime) Close() error {
	return r.cli.Close()
}

// Create makes the data volume and the container. A missing image is pulled
// and the create is issued once more.
func (r *Runtime) Create(ctx context.Context, spec instance.CreateSpec) (string, error) {
	if spec.VolumeRef != "" {
		if _, err := r.cli.VolumeCreate(ctx, volume.CreateOptions{Name: spec.VolumeRef, Labels: spec.Labels}); err != nil {
			return "", wrap("create volume "+spec.VolumeRef, err)
		}
	}

	port, err := nat.NewPort("tcp", strconv.Itoa(int(spec.ContainerPort)))
	if err != nil {
		return "", fmt.Errorf("container port %d: %w", spec.ContainerPort, err)
	}
	cc := &container.Config{
		Image:        spec.ImageTag,
		Env:          spec.Env,
		Labels:       spec.Labels,
		ExposedPorts: nat.PortSet{port: struct{}{}},
	}
	hc := &container.HostConfig{
		PortBindings: nat.PortMap{
			port: {{HostIP: spec.HostIP, HostPort: strconv.Itoa(int(spec.HostPort))}},
		},
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
	}
	if spec.VolumeRef != "" {
		hc.Mounts = []mount.Mount{{Type: mount.TypeVolume, Source: spec.VolumeRef, Target: spec.DataPath}}
	}

	resp, err := r.cli.ContainerCreate(ctx, cc, hc, nil, nil, spec.Name)
	if err != nil && errdefs.IsNotFound(err) {
		if pullErr := r.pull(ctx, spec.ImageTag); pullErr != nil {
			return "", pullErr
		}
		resp, err = r.cli.ContainerCreate(ctx, cc, hc, nil, nil, spec.Name)
	}
	if err != nil {
		return "", wrap("create container "+spec.Name, err)
	}
	for _, w := range resp.Warnings {
		slog.Warn("docker create warning", "container", spec.Name, "warning", w)
	}
	return resp.ID, nil
}

func (r *Runtime) pull(ctx context.Context, ref string) error {
	slog.Info("pulling image", "image", ref)
	rc, err := r.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		if client.IsErrConnectionFailed(err) {
			return wrap("pull image "+ref, err)
		}
		return fmt.Errorf("pull image %s: %w", ref, err)
	}
	defer rc.Close()
	// The pull only completes once the progress stream is drained.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}
	return nil
}

func (r *Runtime) Start(ctx context.Context, id string) error {
	if err := r.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return wrap("start container "+id, err)
	}
	return nil
}

func (r *Runtime) Stop(ctx context.Context, id string, timeout time.Duration) error {
	secs := int(timeout.Round(time.Second) / time.Second)
	if err := r.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &secs}); err != nil {
		return wrap("stop container "+id, err)
	}
	return nil
}

func (r *Runtime) Remove(ctx context.Context, id string) error {
	if err := r.cli.ContainerRemove(ctx, id, container.RemoveOptions{}); err != nil {
		return wrap("remove container "+id, err)
	}
	return nil
}

// RemoveVolume deletes a volume. A volume that is already gone is not an
// error.
func (r *Runtime) RemoveVolume(ctx context.Context, name string) error {
	if err := r.cli.VolumeRemove(ctx, name, false); err != nil && !errdefs.IsNotFound(err) {
		return wrap("remove volume "+name, err)
	}
	return nil
}

func (r *Runtime) Inspect(ctx context.Context, name string) (instance.Descriptor, bool, error) {
	info, err := r.cli.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return instance.Descriptor{}, false, nil
		}
		return instance.Descriptor{}, false, wrap("inspect container "+name, err)
	}
	return describe(info), true, nil
}

func describe(info container.InspectResponse) instance.Descriptor {
	d := instance.Descriptor{Status: instance.StatusAbsent}
	if info.ContainerJSONBase != nil {
		d.ID = info.ID
		d.Name = strings.TrimPrefix(info.Name, "/")
		if info.State != nil {
			d.Status = instance.ParseStatus(string(info.State.Status))
		}
		if info.HostConfig != nil {
			d.BoundHostPort = boundPort(info.HostConfig.PortBindings)
		}
	}
	if info.Config != nil {
		d.ImageTag = info.Config.Image
		d.Labels = info.Config.Labels
	}
	// Live bindings win over the requested ones while the container runs.
	if d.Status == instance.StatusRunning && info.NetworkSettings != nil {
		if live := boundPort(info.NetworkSettings.Ports); live != 0 {
			d.BoundHostPort = live
		}
	}
	for _, m := range info.Mounts {
		if m.Type == mount.TypeVolume {
			d.VolumeRef = m.Name
			break
		}
	}
	return d
}

// boundPort returns the host port of the lowest bound tcp container port.
func boundPort(ports nat.PortMap) uint16 {
	keys := make([]nat.Port, 0, len(ports))
	for p := range ports {
		if p.Proto() == "tcp" {
			keys = append(keys, p)
		}
	}
	slices.SortFunc(keys, func(a, b nat.Port) int { return a.Int() - b.Int() })
	for _, k := range keys {
		for _, b := range ports[k] {
			n, err := strconv.ParseUint(b.HostPort, 10, 16)
			if err == nil && n != 0 {
				return uint16(n)
			}
		}
	}
	return 0
}

// wrap classifies Docker errors into the instance sentinels.
func wrap(op string, err error) error {
	switch {
	case client.IsErrConnectionFailed(err):
		return fmt.Errorf("%s: %w: %v", op, instance.ErrRuntimeUnavailable, err)
	case errdefs.IsNotFound(err):
		return fmt.Errorf("%s: %w: %v", op, instance.ErrContainerNotFound, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
