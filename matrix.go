package harness

import (
	"context"
	"errors"
	"sync"
)

// Mode is one configuration mode of the test matrix.
type Mode struct {
	Name         string
	DebugRouting bool
}

// Modes is the standard mode axis.
var Modes = []Mode{
	{Name: "debug-routing", DebugRouting: true},
	{Name: "no-debug-routing", DebugRouting: false},
}

type matrixKey struct {
	binary       string
	debugRouting bool
}

// Matrix runs one service lifecycle per (binary variant, mode) combination
// and caches the handle for the rest of the session, so many tests share one
// running instance instead of relaunching per test.
type Matrix struct {
	// Base supplies everything but Binary and DebugRouting, which come from
	// the row being started.
	Base Config

	mu       sync.Mutex
	services map[matrixKey]*Service
	order    []matrixKey
}

func NewMatrix(base Config) *Matrix {
	return &Matrix{
		Base:     base,
		services: map[matrixKey]*Service{},
	}
}

// Get returns the running service for the combination, starting it on first
// use.
func (m *Matrix) Get(ctx context.Context, binary string, mode Mode) (*Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := matrixKey{binary: binary, debugRouting: mode.DebugRouting}
	if svc, ok := m.services[key]; ok {
		return svc, nil
	}

	cfg := m.Base
	cfg.Binary = binary
	cfg.DebugRouting = mode.DebugRouting

	svc, err := Start(ctx, cfg)
	if err != nil {
		return nil, err
	}
	m.services[key] = svc
	m.order = append(m.order, key)
	return svc, nil
}

// StopAll tears down every cached service in reverse start order, attempting
// all of them and joining any failures.
func (m *Matrix) StopAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for i := len(m.order) - 1; i >= 0; i-- {
		if err := m.services[m.order[i]].Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	m.services = map[matrixKey]*Service{}
	m.order = nil

	return errors.Join(errs...)
}
