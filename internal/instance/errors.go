package instance

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfigMissing        = errors.New("project config missing")
	ErrConfigParse          = errors.New("project config is invalid")
	ErrRuntimeUnavailable   = errors.New("container runtime unavailable")
	ErrContainerNotFound    = errors.New("container not found")
	ErrPortUnavailable      = errors.New("no host port available")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrDeclined             = errors.New("confirmation declined")
	ErrDriftDetected        = errors.New("drift detected")
	ErrNotReady             = errors.New("database not accepting connections")
)

// OpError decorates a failure with the project and container it concerns and
// a suggested remedy for the operator.
type OpError struct {
	Op        string
	Project   string
	Container string
	Remedy    string
	Err       error
}

func (e *OpError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Op)
	switch {
	case e.Project != "" && e.Container != "":
		fmt.Fprintf(&sb, " project %q (container %s)", e.Project, e.Container)
	case e.Project != "":
		fmt.Fprintf(&sb, " project %q", e.Project)
	case e.Container != "":
		fmt.Fprintf(&sb, " container %s", e.Container)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *OpError) Unwrap() error { return e.Err }

// RemedyOf returns the outermost remedy attached to err, or a default hint
// for well-known sentinels.
func RemedyOf(err error) string {
	var op *OpError
	if errors.As(err, &op) && strings.TrimSpace(op.Remedy) != "" {
		return op.Remedy
	}
	switch {
	case errors.Is(err, ErrConfigMissing):
		return "run `pgd init` in the project directory first"
	case errors.Is(err, ErrConfigParse):
		return "fix pgd.toml or remove it and run `pgd init` again"
	case errors.Is(err, ErrRuntimeUnavailable):
		return "start the Docker daemon and retry"
	case errors.Is(err, ErrContainerNotFound):
		return "run `pgd init` to create the instance"
	case errors.Is(err, ErrPortUnavailable):
		return "free a port or set `port` in pgd.toml"
	case errors.Is(err, ErrConfirmationRequired):
		return "re-run with --confirm"
	case errors.Is(err, ErrNotReady):
		return "inspect `pgd instance logs` for startup errors"
	}
	return ""
}
