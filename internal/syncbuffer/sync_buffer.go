// Package syncbuffer holds output captured from a child process. The child's
// stream writers and the harness's readiness poller touch it concurrently.
package syncbuffer

import (
	"bytes"
	"strings"
	"sync"
)

type SyncBuffer struct {
	mu  sync.RWMutex
	buf bytes.Buffer
}

func (b *SyncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *SyncBuffer) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.buf.String()
}

// Lines returns a snapshot of the captured output split on newlines. The
// last element may be a partially written line.
func (b *SyncBuffer) Lines() []string {
	return strings.Split(b.String(), "\n")
}
