package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/remora-ci/harness/internal/syncbuffer"
	"github.com/remora-ci/harness/ports"
)

// ErrReadyTimeout is returned by AwaitReady when the readiness line does not
// appear before the deadline.
var ErrReadyTimeout = errors.New("timed out waiting for readiness")

const (
	readyPollInterval = 20 * time.Millisecond

	// killGrace is how long a process gets to die after SIGKILL before it is
	// declared leaked.
	killGrace = 2 * time.Second
)

// StartupError means the process exited before it signalled readiness. A
// dead process can never become ready, so this is detected eagerly rather
// than waiting out the readiness deadline. The captured output is included
// because it is the only diagnostic a black-box process leaves behind.
type StartupError struct {
	ExitErr error
	Stdout  string
	Stderr  string
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("process exited before signalling readiness: %v\nstdout:\n%s\nstderr:\n%s",
		e.ExitErr, e.Stdout, e.Stderr)
}

func (e *StartupError) Unwrap() error {
	return e.ExitErr
}

// ShutdownError means the process survived both the termination signal and a
// kill. A leaked process in a test environment is a defect that must be
// loud, not swallowed.
type ShutdownError struct {
	Pid int
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("process %d still running after kill", e.Pid)
}

// Process is one supervised instance of the binary under test.
type Process struct {
	cmd    *exec.Cmd
	stdout *syncbuffer.SyncBuffer
	stderr *syncbuffer.SyncBuffer

	// done closes when the OS reports the process exited; waitErr is only
	// readable after that.
	done    chan struct{}
	waitErr error

	stopMu  sync.Mutex
	stopped bool
}

// Start launches the binary with the given arguments. Stdout and stderr are
// captured into buffers owned by the harness. The returned process is
// already being waited on; the caller owns termination.
func Start(binary string, args ...string) (*Process, error) {
	//#nosec:G204 // launching binaries under test is the whole point
	cmd := exec.Command(binary, args...)

	p := &Process{
		cmd:    cmd,
		stdout: &syncbuffer.SyncBuffer{},
		stderr: &syncbuffer.SyncBuffer{},
		done:   make(chan struct{}),
	}
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr
	// Stop Wait blocking on pipe descriptors inherited by grandchildren that
	// outlive the process.
	cmd.WaitDelay = killGrace

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to launch %q: %w", binary, err)
	}

	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()

	return p, nil
}

func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Stdout returns the output captured from the process so far.
func (p *Process) Stdout() string {
	return p.stdout.String()
}

// Stderr returns the error output captured from the process so far.
func (p *Process) Stderr() string {
	return p.stderr.String()
}

// Alive reports whether the OS still considers the process running. It never
// blocks.
func (p *Process) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// AwaitReady blocks until the process emits a stdout line whose trailing
// content is addr in host:port form, the process exits, or the timeout
// elapses. Liveness is re-checked on every pass so an early exit fails
// immediately as a StartupError instead of waiting out the deadline. Only
// one AwaitReady call may be outstanding per process.
func (p *Process) AwaitReady(ctx context.Context, addr ports.Addr, timeout time.Duration) error {
	want := addr.String()
	deadline := time.Now().Add(timeout)

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("readiness wait cancelled: %w", err)
		}
		if !p.Alive() {
			return &StartupError{ExitErr: p.waitErr, Stdout: p.Stdout(), Stderr: p.Stderr()}
		}
		if hasReadyLine(p.stdout.Lines(), want) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w after %s\nstdout:\n%s\nstderr:\n%s",
				ErrReadyTimeout, timeout, p.Stdout(), p.Stderr())
		}
		time.Sleep(readyPollInterval)
	}
}

func hasReadyLine(lines []string, addr string) bool {
	for _, l := range lines {
		if strings.HasSuffix(strings.TrimSpace(l), addr) {
			return true
		}
	}
	return false
}

// TerminateAndWait sends SIGTERM and waits for the process to exit. If it is
// still running after timeout it is killed, and if it survives even that a
// ShutdownError is returned. The exit status itself is not an error here: a
// process that died from our signal did what it was asked. A second call is
// a no-op.
func (p *Process) TerminateAndWait(timeout time.Duration) error {
	p.stopMu.Lock()
	defer p.stopMu.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true

	select {
	case <-p.done:
		return nil
	default:
	}

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// The process can exit between the liveness check and the signal.
		select {
		case <-p.done:
			return nil
		case <-time.After(killGrace):
			return fmt.Errorf("failed to signal process %d: %w", p.Pid(), err)
		}
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(timeout):
	}

	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to kill process %d: %w", p.Pid(), err)
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(killGrace):
		return &ShutdownError{Pid: p.Pid()}
	}
}
