// Package postgres checks that a project's database accepts connections.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pgd/internal/instance"
	"pgd/internal/lifecycle"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const attemptTimeout = 3 * time.Second

var _ lifecycle.Readiness = (*Probe)(nil)

// Probe polls a database with exponential backoff until a connection and a
// ping succeed.
type Probe struct {
	ping       func(ctx context.Context, dsn string) error
	newBackoff func(timeout time.Duration) backoff.BackOff
}

func NewProbe() *Probe {
	return &Probe{
		ping: ping,
		newBackoff: func(timeout time.Duration) backoff.BackOff {
			return backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(100*time.Millisecond),
				backoff.WithMaxInterval(2*time.Second),
				backoff.WithMaxElapsedTime(timeout),
			)
		},
	}
}

// WaitReady returns nil once dsn accepts connections, or an error wrapping
// instance.ErrNotReady when timeout passes first. Authentication failures
// stop the wait immediately.
func (p *Probe) WaitReady(ctx context.Context, dsn string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := p.ping(ctx, dsn)
		if err == nil {
			return nil
		}
		if isAuthFailure(err) {
			return backoff.Permanent(err)
		}
		slog.Debug("postgres not ready yet", "component", "readiness", "attempt", attempts, "err", err)
		return err
	}, backoff.WithContext(p.newBackoff(timeout), ctx))
	if err != nil {
		return fmt.Errorf("%w after %d attempts: %v", instance.ErrNotReady, attempts, err)
	}
	return nil
}

func ping(ctx context.Context, dsn string) error {
	ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(context.WithoutCancel(ctx))
	return conn.Ping(ctx)
}

// isAuthFailure reports SQLSTATE class 28 (invalid authorization).
func isAuthFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return len(pgErr.Code) == 5 && pgErr.Code[:2] == "28"
	}
	return false
}
