/*
Package ports reserves loopback addresses for processes that have not started
yet.

A reservation binds an ephemeral socket, reads back the OS-assigned port and
releases the socket straight away, so the address can be handed to a child
process that will bind it itself. Nothing holds the port in the meantime:
another process could claim it before the child does. That window is narrow
and accepted; holding the socket open would stop the child binding at all.
*/
package ports

import (
	"fmt"
	"net"
	"strconv"

	"github.com/remora-ci/harness/closer"
)

const loopback = "127.0.0.1"

// Addr is a reserved loopback address.
type Addr struct {
	Host string
	Port int
}

// String returns the address in host:port form, the form a readiness line is
// expected to end with.
func (a Addr) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// BaseURL returns the address as an HTTP base URL.
func (a Addr) BaseURL() string {
	return "http://" + a.String()
}

// Reserve obtains a free loopback TCP port from the OS. Failure means the
// environment has no ephemeral ports left, which is not worth retrying.
func Reserve() (_ Addr, err error) {
	l, err := net.Listen("tcp", loopback+":0")
	if err != nil {
		return Addr{}, fmt.Errorf("failed to reserve a loopback port: %w", err)
	}
	defer closer.ErrorHandler(l, &err)

	return Addr{Host: loopback, Port: l.Addr().(*net.TCPAddr).Port}, nil
}
