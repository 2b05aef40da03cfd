// Package instance holds the observed-state model shared by the reconciler,
// the lifecycle controller and the runtime adapters.
package instance

import (
	"strings"
	"time"
)

// Status is the runtime status of a project's container as reported by the
// container runtime.
type Status string

const (
	StatusAbsent  Status = "absent"
	StatusCreated Status = "created"
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

func (s Status) String() string {
	if s == "" {
		return "unknown"
	}
	return string(s)
}

// ParseStatus maps a runtime state string onto a Status. Anything that is
// neither created nor running (exited, dead, paused, ...) counts as stopped.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "absent":
		return StatusAbsent
	case "created":
		return StatusCreated
	case "running", "restarting":
		return StatusRunning
	default:
		return StatusStopped
	}
}

// Descriptor is a single inspect() observation. It is never persisted as-is;
// the controller folds it into State.
type Descriptor struct {
	ID            string
	Name          string
	ImageTag      string
	Status        Status
	BoundHostPort uint16 // 0 when no host port is bound
	VolumeRef     string
	Labels        map[string]string
}

// State is the last trustworthy observation of a project's container. It may
// be stale; callers that mutate must inspect again first.
type State struct {
	ContainerID      string
	ContainerName    string
	LastKnownVersion string
	LastKnownPort    uint16
	LastKnownStatus  Status
	LastSeenAt       time.Time
	CreatedAt        time.Time
}

// Fold returns a copy of s updated from a fresh observation.
func (s State) Fold(d Descriptor, version string, seenAt time.Time) State {
	out := s
	out.ContainerID = d.ID
	out.ContainerName = d.Name
	out.LastKnownVersion = version
	out.LastKnownPort = d.BoundHostPort
	out.LastKnownStatus = d.Status
	out.LastSeenAt = seenAt.UTC()
	if out.CreatedAt.IsZero() {
		out.CreatedAt = seenAt.UTC()
	}
	return out
}

// CreateSpec is everything the runtime needs to create a project container.
type CreateSpec struct {
	Name          string
	ImageTag      string
	Env           []string
	HostIP        string
	HostPort      uint16
	ContainerPort uint16
	VolumeRef     string
	DataPath      string
	Labels        map[string]string
}

// LogStream identifies which container stream a log line came from.
type LogStream string

const (
	LogStdout LogStream = "stdout"
	LogStderr LogStream = "stderr"
)

// LogLine is a single line of container output.
type LogLine struct {
	Stream LogStream
	Time   time.Time
	Text   string
}
