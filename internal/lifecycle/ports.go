package lifecycle

import (
	"context"
	"iter"
	"time"

	"pgd/internal/instance"
	"pgd/internal/portalloc"
	"pgd/internal/project"
)

// ContainerRuntime creates and drives project containers.
// Production: docker.Runtime
// Testing: fake.ContainerRuntime
type ContainerRuntime interface {
	// Create makes the container and its data volume. It returns the
	// container ID.
	Create(ctx context.Context, spec instance.CreateSpec) (string, error)
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string, timeout time.Duration) error
	Remove(ctx context.Context, id string) error
	RemoveVolume(ctx context.Context, name string) error
	// Inspect looks a container up by name. The bool is false when no such
	// container exists.
	Inspect(ctx context.Context, name string) (instance.Descriptor, bool, error)
	StreamLogs(ctx context.Context, id string, follow bool, tail int) iter.Seq2[instance.LogLine, error]
}

// StateStore persists the last trustworthy observation per project.
// Production: sqlite.InstanceStore
// Testing: fake.StateStore
type StateStore interface {
	Load(ctx context.Context, key string) (instance.State, bool, error)
	Save(ctx context.Context, key string, state instance.State) error
	Delete(ctx context.Context, key string) error
}

// ConfigStore reads and writes the project's pgd.toml.
// Production: project.Store
// Testing: fake.ConfigStore
type ConfigStore interface {
	Load(ctx context.Context, root string) (project.Project, bool, error)
	Save(ctx context.Context, p project.Project) error
	// Claim leases the declared port to the project without rewriting the
	// file. Save claims implicitly.
	Claim(ctx context.Context, p project.Project) error
}

// PortAllocator hands out host ports no other project holds.
// Production: portalloc.Allocator
// Testing: portalloc.Allocator over fake.LeaseRegistry
type PortAllocator interface {
	Allocate(ctx context.Context, owner, projectName string, preferred uint16) (portalloc.Lease, error)
}

// Readiness waits until the database accepts connections.
// Production: postgres.Probe
// Testing: fake.Readiness
type Readiness interface {
	WaitReady(ctx context.Context, dsn string, timeout time.Duration) error
}

var _ PortAllocator = (*portalloc.Allocator)(nil)
