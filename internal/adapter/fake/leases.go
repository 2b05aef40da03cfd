package fake

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"pgd/internal/portalloc"
	"pgd/internal/project"
)

var (
	_ portalloc.LeaseSource = (*LeaseRegistry)(nil)
	_ project.LeaseRecorder = (*LeaseRegistry)(nil)
	_ portalloc.Prober      = (*Prober)(nil)
)

// LeaseRegistry is an in-memory port lease registry, one lease per owner.
type LeaseRegistry struct {
	CallRecorder
	mu     sync.Mutex
	leases map[string]portalloc.Lease

	LeasesErr func(ctx context.Context) error
}

func NewLeaseRegistry(leases ...portalloc.Lease) *LeaseRegistry {
	r := &LeaseRegistry{leases: make(map[string]portalloc.Lease)}
	for _, l := range leases {
		r.leases[l.Owner] = l
	}
	return r
}

func (r *LeaseRegistry) Leases(ctx context.Context) ([]portalloc.Lease, error) {
	r.record("Leases")
	if r.LeasesErr != nil {
		if err := r.LeasesErr(ctx); err != nil {
			return nil, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]portalloc.Lease, 0, len(r.leases))
	for _, l := range r.leases {
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b portalloc.Lease) int { return strings.Compare(a.Owner, b.Owner) })
	return out, nil
}

func (r *LeaseRegistry) RecordLease(_ context.Context, lease portalloc.Lease) error {
	r.record("RecordLease", lease)
	if lease.Owner == "" {
		return errors.New("lease owner is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leases[lease.Owner] = lease
	return nil
}

func (r *LeaseRegistry) ReleaseLease(_ context.Context, owner string) error {
	r.record("ReleaseLease", owner)
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.leases, owner)
	return nil
}

// Lease returns owner's lease without recording a call.
func (r *LeaseRegistry) Lease(owner string) (portalloc.Lease, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leases[owner]
	return l, ok
}

func leaseFor(p project.Project) portalloc.Lease {
	return portalloc.Lease{Owner: p.Root, Project: p.Name, Port: p.Config.Port, BoundAt: time.Now().UTC()}
}

// Prober reports ports in Busy as unbindable.
type Prober struct {
	CallRecorder
	mu   sync.Mutex
	Busy map[uint16]bool
}

func (p *Prober) Probe(port uint16) error {
	p.record("Probe", port)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Busy[port] {
		return errors.New("address already in use")
	}
	return nil
}
