// Package portalloc assigns host ports to projects. A port is handed out only
// when no other project's persisted lease claims it and a live bind probe on
// the host succeeds.
package portalloc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"pgd/internal/check"
	"pgd/internal/instance"
)

const (
	DefaultRangeStart uint16 = 5432
	DefaultRangeSize  uint16 = 100
	DefaultBindHost          = "127.0.0.1"
)

// Lease records that a project root claims a host port. Leases outlive the
// container: a stopped or destroyed instance keeps its port.
type Lease struct {
	Owner   string // absolute project root
	Project string
	Port    uint16
	BoundAt time.Time
}

// LeaseSource lists every persisted lease across projects.
// Production: sqlite.LeaseStore
// Testing: fake.LeaseRegistry
type LeaseSource interface {
	Leases(ctx context.Context) ([]Lease, error)
}

// Prober checks that a port can be bound on the host right now.
// Production: TCPProber
// Testing: fake.Prober
type Prober interface {
	Probe(port uint16) error
}

// TCPProber binds host:port and releases it immediately.
type TCPProber struct {
	Host string
}

func (p TCPProber) Probe(port uint16) error {
	host := p.Host
	if host == "" {
		host = DefaultBindHost
	}
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		return err
	}
	return ln.Close()
}

type Option func(*Allocator)

// WithRange sets the default scan window.
func WithRange(start, size uint16) Option {
	return func(a *Allocator) {
		if start != 0 {
			a.rangeStart = start
		}
		if size != 0 {
			a.rangeSize = size
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Allocator) { a.now = now }
}

type Allocator struct {
	leases     LeaseSource
	prober     Prober
	rangeStart uint16
	rangeSize  uint16
	now        func() time.Time
}

func New(leases LeaseSource, prober Prober, opts ...Option) *Allocator {
	a := &Allocator{
		leases:     leases,
		prober:     prober,
		rangeStart: DefaultRangeStart,
		rangeSize:  DefaultRangeSize,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate returns a lease for owner. The scan starts at preferred when it is
// non-zero and falls back to the default window. Leases held by owner itself
// are not conflicts, so re-allocating for a project that already holds a port
// can return that same port. Nothing is persisted here; the lease moves to the
// project config when the caller saves it.
func (a *Allocator) Allocate(ctx context.Context, owner, projectName string, preferred uint16) (Lease, error) {
	log := slog.With("component", "port-allocator", "project", projectName)

	// Reloaded on every call: other pgd processes may have claimed ports since.
	leases, err := a.leases.Leases(ctx)
	if err != nil {
		return Lease{}, fmt.Errorf("load port leases: %w", err)
	}
	claimed := make(map[uint16]string, len(leases))
	for _, l := range leases {
		if l.Owner == owner {
			continue
		}
		claimed[l.Port] = l.Project
	}

	tried := make(map[uint16]struct{})
	for _, window := range a.windows(preferred) {
		for i := uint32(0); i < uint32(window.size); i++ {
			if err := ctx.Err(); err != nil {
				return Lease{}, err
			}
			candidate := uint32(window.start) + i
			if candidate > 65535 {
				break
			}
			port := uint16(candidate)
			if _, seen := tried[port]; seen {
				continue
			}
			tried[port] = struct{}{}

			if holder, taken := claimed[port]; taken {
				log.Debug("port leased by another project", "port", port, "holder", holder)
				continue
			}
			if err := a.prober.Probe(port); err != nil {
				log.Debug("port not bindable", "port", port, "err", err)
				continue
			}
			_, leased := claimed[port]
			check.Assertf(!leased, "allocated port %d is leased by another project", port)
			return Lease{Owner: owner, Project: projectName, Port: port, BoundAt: a.now().UTC()}, nil
		}
	}

	return Lease{}, &instance.OpError{
		Op:      "allocate port",
		Project: projectName,
		Remedy:  fmt.Sprintf("free a port in %d-%d or set `port` in pgd.toml", a.rangeStart, uint32(a.rangeStart)+uint32(a.rangeSize)-1),
		Err:     instance.ErrPortUnavailable,
	}
}

type window struct {
	start uint16
	size  uint16
}

func (a *Allocator) windows(preferred uint16) []window {
	def := window{start: a.rangeStart, size: a.rangeSize}
	if preferred == 0 || preferred == a.rangeStart {
		return []window{def}
	}
	return []window{{start: preferred, size: a.rangeSize}, def}
}
