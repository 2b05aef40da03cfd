package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"pgd/internal/portalloc"
	"pgd/internal/project"
)

var (
	_ portalloc.LeaseSource = (*LeaseStore)(nil)
	_ project.LeaseRecorder = (*LeaseStore)(nil)
)

// LeaseStore is the host-wide port lease registry, one row per project root.
type LeaseStore struct {
	db    *sql.DB
	alive func(owner string) bool
}

// Leases lists every live lease. Rows whose owner no longer has a pgd.toml
// are released on the way.
func (s *LeaseStore) Leases(ctx context.Context) ([]portalloc.Lease, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT owner, project, port, bound_at FROM port_leases ORDER BY port, owner`)
	if err != nil {
		return nil, fmt.Errorf("list port leases: %w", err)
	}
	defer rows.Close()

	var (
		out   []portalloc.Lease
		stale []string
	)
	for rows.Next() {
		var (
			l       portalloc.Lease
			port    int
			boundAt string
		)
		if err := rows.Scan(&l.Owner, &l.Project, &port, &boundAt); err != nil {
			return nil, fmt.Errorf("scan port lease row: %w", err)
		}
		l.Port = uint16(port)
		if l.BoundAt, err = parseTime(boundAt); err != nil {
			return nil, fmt.Errorf("port lease %q: %w", l.Owner, err)
		}
		if s.alive != nil && !s.alive(l.Owner) {
			stale = append(stale, l.Owner)
			continue
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate port lease rows: %w", err)
	}
	rows.Close()

	for _, owner := range stale {
		slog.Debug("releasing stale port lease", "component", "lease-store", "owner", owner)
		if err := s.ReleaseLease(ctx, owner); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// RecordLease sets owner's lease, replacing any previous one.
func (s *LeaseStore) RecordLease(ctx context.Context, lease portalloc.Lease) error {
	if lease.Owner == "" {
		return errors.New("record port lease: owner is required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO port_leases (owner, project, port, bound_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(owner) DO UPDATE SET
	project = excluded.project,
	port = excluded.port,
	bound_at = excluded.bound_at`,
		lease.Owner,
		lease.Project,
		int(lease.Port),
		formatTime(lease.BoundAt),
	)
	if err != nil {
		return fmt.Errorf("record port lease %d for %q: %w", lease.Port, lease.Owner, err)
	}
	return nil
}

func (s *LeaseStore) ReleaseLease(ctx context.Context, owner string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM port_leases WHERE owner = ?`, owner); err != nil {
		return fmt.Errorf("release port lease for %q: %w", owner, err)
	}
	return nil
}

func configExists(owner string) bool {
	_, err := os.Stat(filepath.Join(owner, project.FileName))
	return !errors.Is(err, os.ErrNotExist)
}
