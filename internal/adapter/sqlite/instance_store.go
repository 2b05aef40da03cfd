package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pgd/internal/instance"
	"pgd/internal/lifecycle"
)

var _ lifecycle.StateStore = (*InstanceStore)(nil)

// InstanceStore keeps one row per project with the last confirmed
// observation of its container.
type InstanceStore struct {
	db *sql.DB
}

func (s *InstanceStore) Load(ctx context.Context, key string) (instance.State, bool, error) {
	var (
		st                  instance.State
		port                int
		status              string
		lastSeen, createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT container_id, container_name, postgres_version, host_port, status, last_seen_at, created_at
FROM instances WHERE project_key = ?`, key).Scan(
		&st.ContainerID, &st.ContainerName, &st.LastKnownVersion, &port, &status, &lastSeen, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return instance.State{}, false, nil
		}
		return instance.State{}, false, fmt.Errorf("query instance %q: %w", key, err)
	}
	st.LastKnownPort = uint16(port)
	st.LastKnownStatus = instance.Status(status)
	if st.LastSeenAt, err = parseTime(lastSeen); err != nil {
		return instance.State{}, false, fmt.Errorf("instance %q: %w", key, err)
	}
	if st.CreatedAt, err = parseTime(createdAt); err != nil {
		return instance.State{}, false, fmt.Errorf("instance %q: %w", key, err)
	}
	return st, true, nil
}

func (s *InstanceStore) Save(ctx context.Context, key string, st instance.State) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO instances (project_key, container_id, container_name, postgres_version, host_port, status, last_seen_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(project_key) DO UPDATE SET
	container_id = excluded.container_id,
	container_name = excluded.container_name,
	postgres_version = excluded.postgres_version,
	host_port = excluded.host_port,
	status = excluded.status,
	last_seen_at = excluded.last_seen_at,
	created_at = excluded.created_at`,
		key,
		st.ContainerID,
		st.ContainerName,
		st.LastKnownVersion,
		int(st.LastKnownPort),
		string(st.LastKnownStatus),
		formatTime(st.LastSeenAt),
		formatTime(st.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save instance %q: %w", key, err)
	}
	return nil
}

func (s *InstanceStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM instances WHERE project_key = ?`, key); err != nil {
		return fmt.Errorf("delete instance %q: %w", key, err)
	}
	return nil
}
