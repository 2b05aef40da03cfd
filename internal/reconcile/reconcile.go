// Package reconcile compares a project's declared configuration against a
// fresh observation of its container and classifies the divergence.
//
// Reconcile is pure: it never touches the runtime or persisted state, and it
// reports drift rather than repairing it.
package reconcile

import (
	"fmt"
	"strings"

	"pgd/internal/instance"
	"pgd/internal/project"
)

// Kind classifies a single divergence.
type Kind string

const (
	NoDrift           Kind = "no_drift"
	MissingContainer  Kind = "missing_container"
	VersionMismatch   Kind = "version_mismatch"
	PortMismatch      Kind = "port_mismatch"
	UnexpectedRunning Kind = "unexpected_running"
	UnexpectedStopped Kind = "unexpected_stopped"
)

// Finding is one divergence with a human-readable explanation.
type Finding struct {
	Kind    Kind
	Details string
}

// Report lists every finding in rule order. An empty report means NoDrift.
type Report struct {
	Findings []Finding
}

// Kind returns the highest-priority finding, or NoDrift.
func (r Report) Kind() Kind {
	if len(r.Findings) == 0 {
		return NoDrift
	}
	return r.Findings[0].Kind
}

func (r Report) Drifted() bool { return len(r.Findings) > 0 }

// Has reports whether any finding has kind k.
func (r Report) Has(k Kind) bool {
	for _, f := range r.Findings {
		if f.Kind == k {
			return true
		}
	}
	return false
}

func (r Report) String() string {
	if !r.Drifted() {
		return string(NoDrift)
	}
	parts := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Kind, f.Details))
	}
	return strings.Join(parts, "; ")
}

// Reconcile evaluates desired against observed. expected is the status the
// last lifecycle intent left the container in; an empty value skips the
// status rule. All matching rules are reported, in order.
func Reconcile(desired project.Config, observed *instance.Descriptor, expected instance.Status) Report {
	if observed == nil || observed.Status == instance.StatusAbsent {
		return Report{Findings: []Finding{{
			Kind:    MissingContainer,
			Details: "no container exists for this project",
		}}}
	}

	var findings []Finding
	if f, ok := checkVersion(desired, observed); ok {
		findings = append(findings, f)
	}
	if f, ok := checkPort(desired, observed); ok {
		findings = append(findings, f)
	}
	if f, ok := checkStatus(observed, expected); ok {
		findings = append(findings, f)
	}
	return Report{Findings: findings}
}

// Version drift is advisory only: upgrades and downgrades are unsupported.
func checkVersion(desired project.Config, observed *instance.Descriptor) (Finding, bool) {
	want, err := project.ParseVersion(desired.PostgresVersion)
	if err != nil {
		return Finding{Kind: VersionMismatch, Details: fmt.Sprintf("declared version %q is invalid", desired.PostgresVersion)}, true
	}
	got, err := project.VersionFromImageTag(observed.ImageTag)
	if err != nil {
		return Finding{Kind: VersionMismatch, Details: fmt.Sprintf("container image %q carries no version (want %s)", observed.ImageTag, want)}, true
	}
	if !want.Compatible(got) {
		return Finding{Kind: VersionMismatch, Details: fmt.Sprintf("container runs %s, config declares %s", got, want)}, true
	}
	return Finding{}, false
}

func checkPort(desired project.Config, observed *instance.Descriptor) (Finding, bool) {
	if observed.BoundHostPort == desired.Port {
		return Finding{}, false
	}
	if observed.BoundHostPort == 0 {
		return Finding{Kind: PortMismatch, Details: fmt.Sprintf("container binds no host port, config declares %d", desired.Port)}, true
	}
	return Finding{Kind: PortMismatch, Details: fmt.Sprintf("container binds %d, config declares %d", observed.BoundHostPort, desired.Port)}, true
}

func checkStatus(observed *instance.Descriptor, expected instance.Status) (Finding, bool) {
	switch expected {
	case instance.StatusRunning:
		if observed.Status != instance.StatusRunning {
			return Finding{Kind: UnexpectedStopped, Details: fmt.Sprintf("container is %s, expected running", observed.Status)}, true
		}
	case instance.StatusStopped, instance.StatusCreated:
		if observed.Status == instance.StatusRunning {
			return Finding{Kind: UnexpectedRunning, Details: fmt.Sprintf("container is running, expected %s", expected)}, true
		}
	}
	return Finding{}, false
}
