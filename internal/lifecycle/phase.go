package lifecycle

import "pgd/internal/instance"

// Phase is where a project's instance sits in its lifecycle. It is always
// derived from a fresh inspection, never from persisted state.
type Phase uint8

const (
	PhaseAbsent Phase = iota
	PhaseCreated
	PhaseRunning
	PhaseStopped
	// PhaseDestroyed is only reported as the outcome of a destroy.
	PhaseDestroyed
)

func (p Phase) String() string {
	switch p {
	case PhaseAbsent:
		return "absent"
	case PhaseCreated:
		return "created"
	case PhaseRunning:
		return "running"
	case PhaseStopped:
		return "stopped"
	case PhaseDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// PhaseOf maps an observed runtime status to a phase.
func PhaseOf(s instance.Status) Phase {
	switch s {
	case instance.StatusCreated:
		return PhaseCreated
	case instance.StatusRunning:
		return PhaseRunning
	case instance.StatusStopped:
		return PhaseStopped
	default:
		return PhaseAbsent
	}
}
