package acceptance

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/remora-ci/harness/compiler"
)

var testserviceBinary = os.Getenv("TESTSERVICE_BINARY")

func TestMain(m *testing.M) {
	status, err := runTests(m)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	os.Exit(status)
}

func runTests(m *testing.M) (int, error) {
	ctx := context.Background()

	c := compiler.New(compiler.Config{LDFlags: "-w -s"})
	defer c.Cleanup()

	err := c.Run(ctx, compiler.Work{
		Result: &testserviceBinary,
		Name:   "testservice",
		Target: "..",
		Source: "./internal/testservice",
	})
	if err != nil {
		return 0, err
	}

	fmt.Printf("Using testservice binary: %q\n", testserviceBinary)

	return m.Run(), nil
}
