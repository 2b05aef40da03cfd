package reconcile

import (
	"reflect"
	"testing"

	"pgd/internal/instance"
	"pgd/internal/project"
)

func desiredConfig() project.Config {
	return project.Config{
		PostgresVersion: "16",
		DatabaseName:    "postgres",
		UserName:        "postgres",
		Password:        "secret",
		Port:            5433,
	}
}

func matching(cfg project.Config, status instance.Status) *instance.Descriptor {
	return &instance.Descriptor{
		ID:            "abc123",
		Name:          "pgd-shop-0123456789ab",
		ImageTag:      project.ImageTag("postgres", cfg.PostgresVersion),
		Status:        status,
		BoundHostPort: cfg.Port,
	}
}

func TestReconcileMatchingDescriptorIsNoDrift(t *testing.T) {
	t.Parallel()

	cfg := desiredConfig()
	for _, expected := range []instance.Status{"", instance.StatusRunning} {
		report := Reconcile(cfg, matching(cfg, instance.StatusRunning), expected)
		if report.Kind() != NoDrift || report.Drifted() {
			t.Fatalf("expected NoDrift with expectation %q, got %s", expected, report)
		}
	}
}

func TestReconcileIsDeterministic(t *testing.T) {
	t.Parallel()

	cfg := desiredConfig()
	observed := matching(cfg, instance.StatusStopped)
	observed.BoundHostPort = 6000
	a := Reconcile(cfg, observed, instance.StatusRunning)
	b := Reconcile(cfg, observed, instance.StatusRunning)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("reconcile not deterministic: %v vs %v", a, b)
	}
}

func TestReconcileRules(t *testing.T) {
	t.Parallel()

	cfg := desiredConfig()
	testCases := []struct {
		name     string
		observed func() *instance.Descriptor
		expected instance.Status
		want     []Kind
	}{
		{
			name:     "missing container",
			observed: func() *instance.Descriptor { return nil },
			expected: instance.StatusRunning,
			want:     []Kind{MissingContainer},
		},
		{
			name: "absent status counts as missing",
			observed: func() *instance.Descriptor {
				return &instance.Descriptor{Status: instance.StatusAbsent}
			},
			want: []Kind{MissingContainer},
		},
		{
			name: "version mismatch",
			observed: func() *instance.Descriptor {
				d := matching(cfg, instance.StatusRunning)
				d.ImageTag = "postgres:14"
				return d
			},
			want: []Kind{VersionMismatch},
		},
		{
			name: "untagged image",
			observed: func() *instance.Descriptor {
				d := matching(cfg, instance.StatusRunning)
				d.ImageTag = "postgres"
				return d
			},
			want: []Kind{VersionMismatch},
		},
		{
			name: "port mismatch",
			observed: func() *instance.Descriptor {
				d := matching(cfg, instance.StatusRunning)
				d.BoundHostPort = 5999
				return d
			},
			want: []Kind{PortMismatch},
		},
		{
			name: "no bound port",
			observed: func() *instance.Descriptor {
				d := matching(cfg, instance.StatusRunning)
				d.BoundHostPort = 0
				return d
			},
			want: []Kind{PortMismatch},
		},
		{
			name:     "running after stop",
			observed: func() *instance.Descriptor { return matching(cfg, instance.StatusRunning) },
			expected: instance.StatusStopped,
			want:     []Kind{UnexpectedRunning},
		},
		{
			name:     "stopped after start",
			observed: func() *instance.Descriptor { return matching(cfg, instance.StatusStopped) },
			expected: instance.StatusRunning,
			want:     []Kind{UnexpectedStopped},
		},
		{
			name: "all findings in rule order",
			observed: func() *instance.Descriptor {
				d := matching(cfg, instance.StatusStopped)
				d.ImageTag = "postgres:17"
				d.BoundHostPort = 6000
				return d
			},
			expected: instance.StatusRunning,
			want:     []Kind{VersionMismatch, PortMismatch, UnexpectedStopped},
		},
		{
			name:     "no expectation skips status rule",
			observed: func() *instance.Descriptor { return matching(cfg, instance.StatusStopped) },
			want:     nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			report := Reconcile(cfg, tc.observed(), tc.expected)
			var got []Kind
			for _, f := range report.Findings {
				got = append(got, f.Kind)
				if f.Details == "" {
					t.Fatalf("finding %s has no details", f.Kind)
				}
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("findings = %v, want %v", got, tc.want)
			}
			wantKind := NoDrift
			if len(tc.want) > 0 {
				wantKind = tc.want[0]
			}
			if report.Kind() != wantKind {
				t.Fatalf("Kind() = %s, want %s", report.Kind(), wantKind)
			}
		})
	}
}

func TestReconcileScenarioVersionMismatch(t *testing.T) {
	t.Parallel()

	cfg := desiredConfig()
	cfg.PostgresVersion = "14"
	observed := &instance.Descriptor{ImageTag: "postgres:16", Status: instance.StatusRunning, BoundHostPort: cfg.Port}
	report := Reconcile(cfg, observed, instance.StatusRunning)
	if report.Kind() != VersionMismatch {
		t.Fatalf("Kind() = %s, want %s", report.Kind(), VersionMismatch)
	}
	if !report.Has(VersionMismatch) || report.Has(PortMismatch) {
		t.Fatalf("unexpected findings: %s", report)
	}
}
