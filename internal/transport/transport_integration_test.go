//go:build integration
// +build integration

package transport

import (
	"testing"

	"github.com/wyzesense/dongled/internal/logging"
)

// TestIntegration_OpenRealDevice exercises Transport against a real hidraw
// character device. Run explicitly with -tags=integration and
// -run Integration against a connected dongle; skipped otherwise since no
// such device exists in ordinary CI.
func TestIntegration_OpenRealDevice(t *testing.T) {
	path := "/dev/hidraw0"
	logger := logging.NewLogger(logging.LevelDebug)

	tr, err := Open(path, logger)
	if err != nil {
		t.Skipf("no real device at %s: %v", path, err)
	}
	defer tr.Close()

	if _, err := tr.ReadChunk(); err != nil {
		t.Fatalf("ReadChunk() error = %v", err)
	}
}
