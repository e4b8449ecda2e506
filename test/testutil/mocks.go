package testutil

import (
	"bytes"
	"sync"

	"github.com/wyzesense/dongled/internal/logging"
)

// SyncBuffer is a concurrency-safe bytes.Buffer, suitable as the output sink
// for a *logging.Logger exercised from multiple goroutines in a test.
type SyncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *SyncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns the buffer's current contents.
func (b *SyncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// NewTestLogger returns a trace-level logger with color disabled, writing to
// a SyncBuffer the caller can inspect for expected log lines.
func NewTestLogger() (*logging.Logger, *SyncBuffer) {
	buf := &SyncBuffer{}
	l := logging.NewLogger(logging.LevelTrace)
	l.SetOutput(buf)
	l.SetColorEnabled(false)
	return l, buf
}
