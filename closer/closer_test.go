package closer

import (
	"errors"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestErrorHandler(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		errSentinel := errors.New("error sentinel")

		called := false
		var err error
		ErrorHandler(Func(func() error {
			called = true
			return errSentinel
		}), &err)
		assert.Check(t, called)
		assert.Check(t, cmp.ErrorIs(err, errSentinel))
	})

	t.Run("no error", func(t *testing.T) {
		called := false
		var err error
		ErrorHandler(Func(func() error {
			called = true
			return nil
		}), &err)
		assert.Check(t, called)
		assert.Check(t, err)
	})

	t.Run("does not mask earlier error", func(t *testing.T) {
		errEarlier := errors.New("earlier")
		err := errEarlier
		ErrorHandler(Func(func() error {
			return errors.New("from close")
		}), &err)
		assert.Check(t, cmp.ErrorIs(err, errEarlier))
	})
}

func TestStack_ClosesInReverseOrder(t *testing.T) {
	s := &Stack{}

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		s.PushFunc(func() error {
			order = append(order, name)
			return nil
		})
	}

	assert.Check(t, s.Close())
	assert.Check(t, cmp.DeepEqual(order, []string{"third", "second", "first"}))
}

func TestStack_RunsEveryCloserAndAggregates(t *testing.T) {
	s := &Stack{}

	errA := errors.New("a failed")
	errB := errors.New("b failed")

	closedC := false
	s.PushFunc(func() error { return errA })
	s.PushFunc(func() error {
		closedC = true
		return nil
	})
	s.PushFunc(func() error { return errB })

	err := s.Close()
	assert.Check(t, closedC)
	assert.Check(t, cmp.ErrorIs(err, errA))
	assert.Check(t, cmp.ErrorIs(err, errB))
}

func TestStack_SecondCloseIsNoop(t *testing.T) {
	s := &Stack{}

	calls := 0
	s.PushFunc(func() error {
		calls++
		return errors.New("once")
	})

	assert.Check(t, s.Close() != nil)
	assert.Check(t, s.Close())
	assert.Check(t, cmp.Equal(calls, 1))
}
