package ports

import (
	"net"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestReserve(t *testing.T) {
	addr, err := Reserve()
	assert.NilError(t, err)

	assert.Check(t, cmp.Equal(addr.Host, "127.0.0.1"))
	assert.Check(t, addr.Port > 0)

	t.Run("the port is released, so a process can bind it", func(t *testing.T) {
		l, err := net.Listen("tcp", addr.String())
		assert.NilError(t, err)
		assert.Check(t, l.Close())
	})
}

func TestReserve_DistinctPorts(t *testing.T) {
	// Not guaranteed by the OS, but ephemeral assignment makes an immediate
	// duplicate vanishingly unlikely; a clash here usually means the port was
	// never released.
	a, err := Reserve()
	assert.NilError(t, err)
	b, err := Reserve()
	assert.NilError(t, err)
	assert.Check(t, a.Port != b.Port)
}

func TestAddr_Strings(t *testing.T) {
	addr := Addr{Host: "127.0.0.1", Port: 51000}

	assert.Check(t, cmp.Equal(addr.String(), "127.0.0.1:51000"))
	assert.Check(t, cmp.Equal(addr.BaseURL(), "http://127.0.0.1:51000"))
	assert.Check(t, strings.HasSuffix("started on "+addr.String(), addr.String()))
}
