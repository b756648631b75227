/*
Package harness runs a server binary as a managed subprocess for black-box
functional tests: it reserves a loopback address, materializes the service's
configuration from a template, launches the binary, waits for its readiness
line, and hands tests a base URL. Teardown terminates the process and removes
the configuration on every exit path, including failed setups.

It is part of our belief that testing the binaries that will ship, with as
little modification as possible, is one of the most effective ways of
producing high value tests.
*/
package harness
