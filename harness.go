package harness

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/remora-ci/harness/configtpl"
	"github.com/remora-ci/harness/ports"
	"github.com/remora-ci/harness/runner"
)

const (
	defaultStartTimeout = 20 * time.Second
	defaultStopTimeout  = 10 * time.Second
)

// Substitution keys the config template may use.
const (
	KeyListenAddress = "listen_address"
	KeyDebugRouting  = "debug_routing"
)

// Config describes one service lifecycle: which binary to run and how to
// configure it.
type Config struct {
	// Binary is the path of the server binary under test. It is invoked as
	// `<binary> --verbose --config <path>`.
	Binary string

	// Template is the path of the config template. ${listen_address} is
	// replaced with the reserved address, ${debug_routing} with lowercase
	// true or false.
	Template string

	// DebugRouting toggles the service's routing-debug mode.
	DebugRouting bool

	StartTimeout time.Duration
	StopTimeout  time.Duration

	Logger *log.Logger
}

func (c Config) withDefaults() Config {
	if c.StartTimeout == 0 {
		c.StartTimeout = defaultStartTimeout
	}
	if c.StopTimeout == 0 {
		c.StopTimeout = defaultStopTimeout
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	return c
}

// Service is the handle to one running supervised instance, shared read-only
// by every test in a session. Exactly one Service exists per process; the
// owner that created it calls Stop.
type Service struct {
	// URL is the service's base URL.
	URL string

	// Addr is the reserved address the service is listening on.
	Addr ports.Addr

	// Process is the supervised instance. Tests must not terminate or
	// restart it; that is the owner's job via Stop.
	Process *runner.Process

	config      *configtpl.Config
	stopTimeout time.Duration
	logger      *log.Logger

	stopMu  sync.Mutex
	stopped bool
}

// Start runs one full setup: reserve an address, materialize the config,
// launch the binary and wait for its readiness line. On any failure,
// whatever was created first is released before the error is returned, so a
// failed setup leaks nothing.
//
// The reserved port is not held between reservation and the child binding
// it, so another process can steal it in that window. The race is rare and
// accepted; the alternative, holding the socket, would make the child's bind
// fail every time.
func Start(ctx context.Context, cfg Config) (*Service, error) {
	cfg = cfg.withDefaults()
	logger := cfg.Logger.With("binary", cfg.Binary, "debug_routing", cfg.DebugRouting)

	addr, err := ports.Reserve()
	if err != nil {
		return nil, err
	}

	conf, err := configtpl.Materialize(cfg.Template, map[string]string{
		KeyListenAddress: addr.String(),
		KeyDebugRouting:  strconv.FormatBool(cfg.DebugRouting),
	})
	if err != nil {
		return nil, err
	}

	proc, err := runner.Start(cfg.Binary, "--verbose", "--config", conf.Path)
	if err != nil {
		return nil, errors.Join(err, conf.Close())
	}
	logger.Debug("service launched", "pid", proc.Pid(), "addr", addr.String(), "config", conf.Path)

	svc := &Service{
		URL:         addr.BaseURL(),
		Addr:        addr,
		Process:     proc,
		config:      conf,
		stopTimeout: cfg.StopTimeout,
		logger:      logger,
	}

	if err := proc.AwaitReady(ctx, addr, cfg.StartTimeout); err != nil {
		return nil, errors.Join(err, svc.Stop())
	}
	logger.Info("service ready", "url", svc.URL)

	return svc, nil
}

// Stop tears the session down: terminate the process and wait, close the
// config descriptor, remove the config file. Every step runs regardless of
// earlier failures and the failures are joined, never masked. A second call
// does nothing and returns nil.
func (s *Service) Stop() error {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true

	var errs []error
	if err := s.Process.TerminateAndWait(s.stopTimeout); err != nil {
		errs = append(errs, err)
	}
	if err := s.config.Close(); err != nil {
		errs = append(errs, err)
	}
	s.logger.Debug("service stopped")

	return errors.Join(errs...)
}
