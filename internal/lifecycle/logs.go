package lifecycle

import (
	"context"
	"iter"

	"pgd/internal/instance"
	"pgd/internal/project"
)

type LogOptions struct {
	Follow bool
	// Tail limits output to the last N lines. Zero or negative means all.
	Tail int
}

// Logs streams the container's output. With Follow it runs until ctx is
// cancelled or the consumer stops iterating.
func (c *Controller) Logs(ctx context.Context, p project.Project, opts LogOptions) iter.Seq2[instance.LogLine, error] {
	return func(yield func(instance.LogLine, error) bool) {
		d, ok, err := c.inspect(ctx, p)
		if err != nil {
			yield(instance.LogLine{}, fail("logs", p, err))
			return
		}
		if !ok {
			yield(instance.LogLine{}, notFound("logs", p))
			return
		}
		for line, err := range c.runtime.StreamLogs(ctx, d.ID, opts.Follow, opts.Tail) {
			if err != nil {
				yield(instance.LogLine{}, fail("logs", p, err))
				return
			}
			if !yield(line, nil) {
				return
			}
		}
	}
}
