package compiler

import (
	"context"
	"os"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/icmd"
)

func TestParallel_Compile(t *testing.T) {
	c := New(Config{LDFlags: "-w -s", Parallelism: 2})

	var binary string
	t.Cleanup(func() {
		c.Cleanup()
		_, err := os.Stat(binary)
		assert.Check(t, os.IsNotExist(err))
	})

	assert.Assert(t, t.Run("Compile test service", func(t *testing.T) {
		err := c.Run(context.Background(), Work{
			Result: &binary,
			Name:   "testservice",
			Target: "..",
			Source: "./internal/testservice",
		})
		assert.Assert(t, err)
		_, err = os.Stat(binary)
		assert.Check(t, err)
	}))

	t.Run("Binary runs", func(t *testing.T) {
		res := icmd.RunCommand(binary, "--help")
		assert.Check(t, cmp.Equal(res.ExitCode, 0))
		assert.Check(t, strings.Contains(res.Combined(), "--config"))
	})

	t.Run("Populated results are skipped", func(t *testing.T) {
		before := binary
		err := c.Run(context.Background(), Work{
			Result: &binary,
			Name:   "testservice",
			Target: "..",
			Source: "./internal/testservice",
		})
		assert.NilError(t, err)
		assert.Check(t, cmp.Equal(binary, before))
	})
}
