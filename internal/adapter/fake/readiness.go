package fake

import (
	"context"
	"time"

	"pgd/internal/lifecycle"
)

var _ lifecycle.Readiness = (*Readiness)(nil)

// Readiness is a readiness probe that succeeds unless WaitReadyErr says
// otherwise.
type Readiness struct {
	CallRecorder

	WaitReadyErr func(ctx context.Context, dsn string) error
}

func (r *Readiness) WaitReady(ctx context.Context, dsn string, timeout time.Duration) error {
	r.record("WaitReady", dsn, timeout)
	if r.WaitReadyErr != nil {
		return r.WaitReadyErr(ctx, dsn)
	}
	return nil
}
