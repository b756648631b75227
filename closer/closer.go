/*
Package closer contains helpers for not losing close errors: a handler for
deferred closes, and a registry for resources that must be released in
reverse-creation order at the end of a test.
*/
package closer

import (
	"errors"
	"io"
	"sync"
)

// ErrorHandler closes c and stores the error in in, unless in already holds
// one. Meant to be deferred.
func ErrorHandler(c io.Closer, in *error) {
	cerr := c.Close()
	if *in == nil {
		*in = cerr
	}
}

// Func adapts a plain function to io.Closer.
type Func func() error

func (f Func) Close() error {
	return f()
}

// Stack tracks resources created during a test and closes them in
// reverse-creation order. Every closer runs even when earlier ones fail;
// the failures are joined and returned together.
type Stack struct {
	mu      sync.Mutex
	closers []io.Closer
}

// Push adds c to the stack. It will be closed before anything pushed
// earlier.
func (s *Stack) Push(c io.Closer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closers = append(s.closers, c)
}

// PushFunc adds a plain close function to the stack.
func (s *Stack) PushFunc(f func() error) {
	s.Push(Func(f))
}

// Close releases everything pushed so far, most recent first. A second call
// is a no-op.
func (s *Stack) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil

	return errors.Join(errs...)
}
