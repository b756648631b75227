package poll

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/remora-ci/harness/ports"
)

func TestForIt(t *testing.T) {
	ctx := context.Background()

	t.Run("stops when told to", func(t *testing.T) {
		calls := 0
		err := ForIt(ctx, 5*time.Second, func() (bool, error) {
			calls++
			return calls == 3, nil
		})
		assert.NilError(t, err)
		assert.Check(t, cmp.Equal(calls, 3))
	})

	t.Run("returns the final error", func(t *testing.T) {
		errDone := errors.New("done badly")
		err := ForIt(ctx, 5*time.Second, func() (bool, error) {
			return true, errDone
		})
		assert.Check(t, cmp.ErrorIs(err, errDone))
	})

	t.Run("times out", func(t *testing.T) {
		err := ForIt(ctx, 200*time.Millisecond, func() (bool, error) {
			return false, nil
		})
		assert.Check(t, cmp.ErrorIs(err, context.DeadlineExceeded))
	})
}

func TestWaitReachable(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds once a listener accepts", func(t *testing.T) {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		assert.NilError(t, err)
		t.Cleanup(func() { _ = l.Close() })

		assert.NilError(t, WaitReachable(ctx, l.Addr().String(), 5*time.Second))
	})

	t.Run("fails against an unbound port", func(t *testing.T) {
		addr, err := ports.Reserve()
		assert.NilError(t, err)

		err = WaitReachable(ctx, addr.String(), 300*time.Millisecond)
		assert.Check(t, err != nil)
	})
}
