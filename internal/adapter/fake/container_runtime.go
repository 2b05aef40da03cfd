package fake

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"strconv"
	"sync"
	"time"

	"pgd/internal/instance"
	"pgd/internal/lifecycle"
)

var _ lifecycle.ContainerRuntime = (*ContainerRuntime)(nil)

type containerState struct {
	id     string
	spec   instance.CreateSpec
	status instance.Status
}

// ContainerRuntime is an in-memory implementation of lifecycle.ContainerRuntime.
type ContainerRuntime struct {
	CallRecorder
	mu         sync.Mutex
	seq        int
	containers map[string]*containerState // by name
	volumes    map[string]bool
	logs       map[string][]instance.LogLine // by name

	CreateErr       func(ctx context.Context, spec instance.CreateSpec) error
	StartErr        func(ctx context.Context, id string) error
	StopErr         func(ctx context.Context, id string) error
	RemoveErr       func(ctx context.Context, id string) error
	RemoveVolumeErr func(ctx context.Context, name string) error
	InspectErr      func(ctx context.Context, name string) error
	StreamLogsErr   func(ctx context.Context, id string) error
	// StartStatus overrides the status a started container ends up in, to
	// simulate a container that exits right after starting.
	StartStatus instance.Status
}

func NewContainerRuntime() *ContainerRuntime {
	return &ContainerRuntime{
		containers: make(map[string]*containerState),
		volumes:    make(map[string]bool),
		logs:       make(map[string][]instance.LogLine),
	}
}

// Seed places a container in the runtime without recording a call.
func (r *ContainerRuntime) Seed(spec instance.CreateSpec, status instance.Status) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID()
	r.containers[spec.Name] = &containerState{id: id, spec: spec, status: status}
	if spec.VolumeRef != "" {
		r.volumes[spec.VolumeRef] = true
	}
	return id
}

// SetStatus changes a container's status behind the controller's back.
func (r *ContainerRuntime) SetStatus(name string, status instance.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cs, ok := r.containers[name]; ok {
		cs.status = status
	}
}

// SetLogs sets the canned output of a container.
func (r *ContainerRuntime) SetLogs(name string, lines ...instance.LogLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[name] = lines
}

// Container returns the current descriptor without recording a call.
func (r *ContainerRuntime) Container(name string) (instance.Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.containers[name]
	if !ok {
		return instance.Descriptor{}, false
	}
	return cs.descriptor(), true
}

// HasVolume reports whether the named volume exists.
func (r *ContainerRuntime) HasVolume(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.volumes[name]
}

func (r *ContainerRuntime) Create(ctx context.Context, spec instance.CreateSpec) (string, error) {
	r.record("Create", spec)
	if r.CreateErr != nil {
		if err := r.CreateErr(ctx, spec); err != nil {
			return "", err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.containers[spec.Name]; exists {
		return "", fmt.Errorf("container name %q already in use", spec.Name)
	}
	id := r.nextID()
	r.containers[spec.Name] = &containerState{id: id, spec: spec, status: instance.StatusCreated}
	if spec.VolumeRef != "" {
		r.volumes[spec.VolumeRef] = true
	}
	return id, nil
}

func (r *ContainerRuntime) Start(ctx context.Context, id string) error {
	r.record("Start", id)
	if r.StartErr != nil {
		if err := r.StartErr(ctx, id); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, err := r.byID(id)
	if err != nil {
		return err
	}
	cs.status = instance.StatusRunning
	if r.StartStatus != "" {
		cs.status = r.StartStatus
	}
	return nil
}

func (r *ContainerRuntime) Stop(ctx context.Context, id string, timeout time.Duration) error {
	r.record("Stop", id, timeout)
	if r.StopErr != nil {
		if err := r.StopErr(ctx, id); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, err := r.byID(id)
	if err != nil {
		return err
	}
	if cs.status == instance.StatusRunning {
		cs.status = instance.StatusStopped
	}
	return nil
}

func (r *ContainerRuntime) Remove(ctx context.Context, id string) error {
	r.record("Remove", id)
	if r.RemoveErr != nil {
		if err := r.RemoveErr(ctx, id); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, err := r.byID(id)
	if err != nil {
		return err
	}
	if cs.status == instance.StatusRunning {
		return fmt.Errorf("container %s is running", id)
	}
	delete(r.containers, cs.spec.Name)
	return nil
}

func (r *ContainerRuntime) RemoveVolume(ctx context.Context, name string) error {
	r.record("RemoveVolume", name)
	if r.RemoveVolumeErr != nil {
		if err := r.RemoveVolumeErr(ctx, name); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cs := range r.containers {
		if cs.spec.VolumeRef == name {
			return fmt.Errorf("volume %s is in use by %s", name, cs.spec.Name)
		}
	}
	delete(r.volumes, name)
	return nil
}

func (r *ContainerRuntime) Inspect(ctx context.Context, name string) (instance.Descriptor, bool, error) {
	r.record("Inspect", name)
	if r.InspectErr != nil {
		if err := r.InspectErr(ctx, name); err != nil {
			return instance.Descriptor{}, false, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, ok := r.containers[name]
	if !ok {
		return instance.Descriptor{}, false, nil
	}
	return cs.descriptor(), true, nil
}

// StreamLogs yields the canned lines, keeping only the last tail when tail
// is positive. With follow it then blocks until ctx is done.
func (r *ContainerRuntime) StreamLogs(ctx context.Context, id string, follow bool, tail int) iter.Seq2[instance.LogLine, error] {
	r.record("StreamLogs", id, follow, tail)
	return func(yield func(instance.LogLine, error) bool) {
		if r.StreamLogsErr != nil {
			if err := r.StreamLogsErr(ctx, id); err != nil {
				yield(instance.LogLine{}, err)
				return
			}
		}
		r.mu.Lock()
		cs, err := r.byID(id)
		var lines []instance.LogLine
		if err == nil {
			lines = append(lines, r.logs[cs.spec.Name]...)
		}
		r.mu.Unlock()
		if err != nil {
			yield(instance.LogLine{}, err)
			return
		}

		if tail > 0 && len(lines) > tail {
			lines = lines[len(lines)-tail:]
		}
		for _, line := range lines {
			if !yield(line, nil) {
				return
			}
		}
		if follow {
			<-ctx.Done()
		}
	}
}

func (r *ContainerRuntime) nextID() string {
	r.seq++
	return "ctr-" + strconv.Itoa(r.seq)
}

func (r *ContainerRuntime) byID(id string) (*containerState, error) {
	for _, cs := range r.containers {
		if cs.id == id {
			return cs, nil
		}
	}
	return nil, fmt.Errorf("no such container: %s: %w", id, instance.ErrContainerNotFound)
}

func (cs *containerState) descriptor() instance.Descriptor {
	d := instance.Descriptor{
		ID:        cs.id,
		Name:      cs.spec.Name,
		ImageTag:  cs.spec.ImageTag,
		Status:    cs.status,
		VolumeRef: cs.spec.VolumeRef,
		Labels:    maps.Clone(cs.spec.Labels),
	}
	d.BoundHostPort = cs.spec.HostPort
	return d
}
