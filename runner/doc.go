/*
Package runner supervises a server binary in a functional test: it launches
the binary with its output captured, watches that output for the line that
signals the service is listening, and terminates the process with escalation
when the session ends.

The binary is treated as opaque. The only things the harness observes are its
standard streams and whether the OS still reports it running. Output is
captured into private buffers rather than inherited, so the test runner's own
output never interleaves with the child's.
*/
package runner
