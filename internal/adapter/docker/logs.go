package docker

import (
	"bytes"
	"context"
	"iter"
	"strconv"
	"strings"
	"time"

	"pgd/internal/instance"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
)

// StreamLogs yields the container's output line by line. Containers are
// created without a TTY, so the stream is multiplexed and split with stdcopy.
func (r *Runtime) StreamLogs(ctx context.Context, id string, follow bool, tail int) iter.Seq2[instance.LogLine, error] {
	return func(yield func(instance.LogLine, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		opts := container.LogsOptions{
			ShowStdout: true,
			ShowStderr: true,
			Follow:     follow,
			Timestamps: true,
			Tail:       "all",
		}
		if tail > 0 {
			opts.Tail = strconv.Itoa(tail)
		}
		rc, err := r.cli.ContainerLogs(ctx, id, opts)
		if err != nil {
			yield(instance.LogLine{}, wrap("container logs "+id, err))
			return
		}
		defer rc.Close()

		lines := make(chan instance.LogLine)
		copyErr := make(chan error, 1)
		go func() {
			defer close(lines)
			stdout := &lineWriter{ctx: ctx, stream: instance.LogStdout, out: lines}
			stderr := &lineWriter{ctx: ctx, stream: instance.LogStderr, out: lines}
			_, err := stdcopy.StdCopy(stdout, stderr, rc)
			stdout.flush()
			stderr.flush()
			copyErr <- err
		}()

		for line := range lines {
			if !yield(line, nil) {
				cancel()
				_ = rc.Close()
				for range lines {
				}
				return
			}
		}
		if err := <-copyErr; err != nil && ctx.Err() == nil {
			yield(instance.LogLine{}, wrap("read container logs "+id, err))
		}
	}
}

// lineWriter splits a byte stream into log lines.
type lineWriter struct {
	ctx    context.Context
	stream instance.LogStream
	out    chan<- instance.LogLine
	buf    []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			return len(p), nil
		}
		line := string(w.buf[:i])
		w.buf = w.buf[i+1:]
		if err := w.emit(line); err != nil {
			return 0, err
		}
	}
}

func (w *lineWriter) flush() {
	if len(w.buf) == 0 {
		return
	}
	line := string(w.buf)
	w.buf = nil
	_ = w.emit(line)
}

func (w *lineWriter) emit(raw string) error {
	line := parseLogLine(w.stream, raw)
	select {
	case w.out <- line:
		return nil
	case <-w.ctx.Done():
		return w.ctx.Err()
	}
}

// parseLogLine splits the RFC 3339 timestamp docker prefixes to each line.
func parseLogLine(stream instance.LogStream, raw string) instance.LogLine {
	raw = strings.TrimSuffix(raw, "\r")
	line := instance.LogLine{Stream: stream, Text: raw}
	ts, rest, ok := strings.Cut(raw, " ")
	if !ok {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			line.Time, line.Text = t, ""
		}
		return line
	}
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		line.Time, line.Text = t, rest
	}
	return line
}
