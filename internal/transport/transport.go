// Package transport provides raw HID character-device I/O for the dongle
// link: opening the device file, reading fixed-size report fragments, and
// writing whole reports.
package transport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/wyzesense/dongled/internal/logging"
)

// HID reports on this device are fixed at 64 bytes; the first byte of every
// report is a fragment-length field (clamped to 63) naming how many of the
// following bytes are valid.
const reportSize = 64

// retryDelay is how long ReadChunk sleeps after a transient (would-block)
// read error before retrying.
const retryDelay = 100 * time.Millisecond

// Errors returned by transport operations.
var (
	ErrClosed = errors.New("transport: closed")
)

// rawDevice is the minimal file-like surface Transport needs. The production
// path is an open character device fd; tests substitute an in-memory fake.
type rawDevice interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Transport performs blocking/non-blocking reads and writes against a raw
// HID device file, producing fragment bytes stripped of their length header.
type Transport struct {
	dev    rawDevice
	logger *logging.Logger

	writeMu sync.Mutex
	mu      sync.RWMutex
	closed  bool
}

// Open opens path in read/write non-blocking mode and returns a Transport
// reading and writing its raw HID reports.
func Open(path string, logger *logging.Logger) (*Transport, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", path, err)
	}
	return newTransport(&fdDevice{fd: fd}, logger), nil
}

// newTransport wraps an already-open device. Tests use it to inject an
// in-memory fake instead of a real character device.
func newTransport(dev rawDevice, logger *logging.Logger) *Transport {
	return &Transport{dev: dev, logger: logger}
}

// ReadChunk fetches one HID report from the device and returns the valid
// fragment bytes (the report with its length header stripped). Transient
// would-block errors are retried internally with a short sleep; permanent
// errors are returned to the caller.
func (t *Transport) ReadChunk() ([]byte, error) {
	buf := make([]byte, reportSize)
	for {
		t.mu.RLock()
		closed := t.closed
		t.mu.RUnlock()
		if closed {
			return nil, ErrClosed
		}

		n, err := t.dev.Read(buf)
		if err != nil {
			if isTransient(err) {
				time.Sleep(retryDelay)
				continue
			}
			return nil, fmt.Errorf("transport: read: %w", err)
		}
		if n == 0 {
			time.Sleep(retryDelay)
			continue
		}

		fragLen := int(buf[0])
		if fragLen > reportSize-1 {
			fragLen = reportSize - 1
		}
		if fragLen > n-1 {
			fragLen = n - 1
		}
		if fragLen < 0 {
			fragLen = 0
		}
		out := make([]byte, fragLen)
		copy(out, buf[1:1+fragLen])
		t.logger.Protocol("RX", out)
		return out, nil
	}
}

// WriteAll writes data to the device as a single report, serialized against
// concurrent writers by a mutex.
func (t *Transport) WriteAll(data []byte) error {
	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.logger.Protocol("TX", data)
	written := 0
	for written < len(data) {
		n, err := t.dev.Write(data[written:])
		if err != nil {
			if isTransient(err) {
				time.Sleep(retryDelay)
				continue
			}
			return fmt.Errorf("transport: write: %w", err)
		}
		written += n
	}
	return nil
}

// Close closes the underlying device. Safe to call more than once.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.dev.Close()
}

func isTransient(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR)
}

// fdDevice adapts a raw unix file descriptor to rawDevice.
type fdDevice struct {
	fd int
}

func (d *fdDevice) Read(p []byte) (int, error)  { return unix.Read(d.fd, p) }
func (d *fdDevice) Write(p []byte) (int, error) { return unix.Write(d.fd, p) }
func (d *fdDevice) Close() error                { return unix.Close(d.fd) }
