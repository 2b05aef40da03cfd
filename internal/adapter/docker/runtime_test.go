package docker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"pgd/internal/instance"

	"github.com/docker/go-connections/nat"
)

func TestBoundPort(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		ports nat.PortMap
		want  uint16
	}{
		{name: "nil", ports: nil, want: 0},
		{name: "no bindings", ports: nat.PortMap{"5432/tcp": nil}, want: 0},
		{
			name:  "single binding",
			ports: nat.PortMap{"5432/tcp": {{HostIP: "127.0.0.1", HostPort: "5433"}}},
			want:  5433,
		},
		{
			name: "udp ignored",
			ports: nat.PortMap{
				"53/udp":   {{HostPort: "1053"}},
				"5432/tcp": {{HostPort: "6000"}},
			},
			want: 6000,
		},
		{
			name: "lowest container port wins",
			ports: nat.PortMap{
				"9187/tcp": {{HostPort: "9999"}},
				"5432/tcp": {{HostPort: "5440"}},
			},
			want: 5440,
		},
		{
			name:  "unparseable host port skipped",
			ports: nat.PortMap{"5432/tcp": {{HostPort: ""}, {HostPort: "5441"}}},
			want:  5441,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := boundPort(tc.ports); got != tc.want {
				t.Fatalf("boundPort() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestParseLogLine(t *testing.T) {
	t.Parallel()

	line := parseLogLine(instance.LogStderr, "2026-10-15T09:00:00.123456789Z LOG:  database system is ready to accept connections\r")
	if line.Stream != instance.LogStderr {
		t.Fatalf("stream = %s", line.Stream)
	}
	if line.Text != "LOG:  database system is ready to accept connections" {
		t.Fatalf("text = %q", line.Text)
	}
	want := time.Date(2026, 10, 15, 9, 0, 0, 123456789, time.UTC)
	if !line.Time.Equal(want) {
		t.Fatalf("time = %v, want %v", line.Time, want)
	}

	plain := parseLogLine(instance.LogStdout, "no timestamp here")
	if !plain.Time.IsZero() || plain.Text != "no timestamp here" {
		t.Fatalf("unexpected plain line %+v", plain)
	}
}

func TestLineWriterSplitsAcrossWrites(t *testing.T) {
	t.Parallel()

	out := make(chan instance.LogLine, 8)
	w := &lineWriter{ctx: context.Background(), stream: instance.LogStdout, out: out}
	for _, chunk := range []string{"fir", "st\nsec", "ond\nthi", "rd"} {
		if _, err := w.Write([]byte(chunk)); err != nil {
			t.Fatal(err)
		}
	}
	w.flush()
	close(out)

	var got []string
	for l := range out {
		got = append(got, l.Text)
	}
	if fmt.Sprint(got) != "[first second third]" {
		t.Fatalf("lines = %v", got)
	}
}

func TestLineWriterStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := &lineWriter{ctx: ctx, stream: instance.LogStdout, out: make(chan instance.LogLine)}
	if _, err := w.Write([]byte("blocked\n")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWrapPassesThroughOtherErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("conflict")
	err := wrap("create container x", boom)
	if !errors.Is(err, boom) || errors.Is(err, instance.ErrRuntimeUnavailable) {
		t.Fatalf("unexpected wrap result %v", err)
	}
}
