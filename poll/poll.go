// Package poll contains bounded polling helpers for tests.
package poll

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gotest.tools/v3/assert"
)

type it func() (stop bool, err error)

// AssertIt will periodically call it up to duration. It is a function that
// returns a bool to stop the polling, and a resultant error. This function
// will assert that no error was returned.
func AssertIt(ctx context.Context, t *testing.T, duration time.Duration, it it) {
	t.Helper()
	err := ForIt(ctx, duration, it)
	assert.NilError(t, err)
}

// ForIt will periodically call it up to duration. It is a function that
// returns a bool to stop the polling, and a resultant error.
func ForIt(ctx context.Context, duration time.Duration, it it) error {
	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stop, err := it()
		if stop {
			return err
		}
		time.Sleep(time.Millisecond * 50)
	}
}

// WaitReachable dials addr until a TCP connection is accepted or timeout
// elapses, pacing attempts with exponential backoff. A process that printed
// its readiness line has bound its socket, but this confirms the listener is
// actually accepting.
func WaitReachable(ctx context.Context, addr string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = timeout

	dialer := &net.Dialer{}
	return backoff.Retry(func() error {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		return conn.Close()
	}, backoff.WithContext(bo, ctx))
}
