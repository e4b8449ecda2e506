// Package session drives a Wyze Sense dongle over an opened HID transport:
// the startup handshake, sensor enumeration, pairing, unpairing, and the
// asynchronous event stream, all multiplexed across the dongle's single
// bidirectional byte stream.
package session

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wyzesense/dongled/internal/events"
	"github.com/wyzesense/dongled/internal/logging"
	"github.com/wyzesense/dongled/internal/protocol"
	"github.com/wyzesense/dongled/internal/reassembler"
	"github.com/wyzesense/dongled/internal/transport"
)

// Errors a caller may see from Open or a Handle operation.
var (
	// ErrHandshakeFailed is returned by Open when any handshake step times
	// out or returns an unexpected shape.
	ErrHandshakeFailed = errors.New("session: handshake failed")
	// ErrClosed is returned by operations on a Handle after Stop.
	ErrClosed = errors.New("session: handle closed")
)

// reader is the subset of *transport.Transport the receive loop needs; tests
// substitute a fake.
type reader interface {
	ReadChunk() ([]byte, error)
}

// writer is the subset of *transport.Transport the command engine needs.
type writer interface {
	WriteAll([]byte) error
}

// closer is the subset of *transport.Transport Stop needs.
type closer interface {
	Close() error
}

type transportHandle interface {
	reader
	writer
	closer
}

// OnEvent is invoked once for every event delivered to the caller: sensor
// state changes, raw alarms, event-log records, and a terminal error if the
// receive loop dies.
type OnEvent func(h *Handle, env events.Envelope)

// Option customizes a Handle before Open performs the handshake.
type Option func(*Handle)

// WithLogger overrides the default stdout logger.
func WithLogger(l *logging.Logger) Option {
	return func(h *Handle) { h.logger = l }
}

// WithCommandTimeout overrides the default single-reply command timeout.
func WithCommandTimeout(d time.Duration) Option {
	return func(h *Handle) { h.cmdTimeout = d }
}

// WithScanTimeout overrides the default Scan timeout.
func WithScanTimeout(d time.Duration) Option {
	return func(h *Handle) { h.scanTimeout = d }
}

// Handle is the caller-facing session: a live handshake-completed connection
// to one dongle. Safe for concurrent use by multiple goroutines calling
// List/Scan/Delete; Stop tears it down exactly once.
type Handle struct {
	id          string
	transport   transportHandle
	codec       *protocol.Codec
	reassembler *reassembler.Reassembler
	table       *handlerTable
	dispatcher  *dispatcher
	engine      *commandEngine
	logger      *logging.Logger
	onEvent     OnEvent

	cmdTimeout  time.Duration
	scanTimeout time.Duration

	// Session state acquired during handshake, read-only thereafter.
	enr           []byte
	dongleMAC     []byte
	dongleVersion string

	exiting int32 // atomic; set by Stop
	done    chan struct{}
	wg      sync.WaitGroup
}

// Open opens path as an HID character device, spawns the receiver, and runs
// the mandatory startup handshake (inquiry -> ENR -> MAC -> version ->
// finish-auth -> enumerate). On any handshake failure the device is closed
// and an error wrapping ErrHandshakeFailed is returned.
func Open(path string, onEvent OnEvent, opts ...Option) (*Handle, error) {
	h := &Handle{
		id:          uuid.NewString(),
		codec:       protocol.NewCodec(),
		table:       newHandlerTable(),
		logger:      logging.NewLogger(logging.LevelInfo),
		onEvent:     onEvent,
		cmdTimeout:  DefaultCommandTimeout,
		scanTimeout: 60 * time.Second,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}

	tr, err := transport.Open(path, h.logger)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	h.transport = tr
	h.reassembler = reassembler.New(h.codec, h.logger)
	h.dispatcher = newDispatcher(h.table, h.codec, h.transport.WriteAll, h.logger)
	h.engine = newCommandEngine(h.table, h.codec, h.transport.WriteAll, h.logger)

	h.installBuiltinHandlers()

	h.wg.Add(1)
	go h.receiveLoop()

	if err := h.handshake(); err != nil {
		h.Stop()
		return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}
	return h, nil
}

// ID returns the correlation id generated for this handle, stable for its
// lifetime, for distinguishing log lines across concurrently open dongles.
func (h *Handle) ID() string { return h.id }

// DongleVersion returns the firmware version string learned during the
// handshake's GET_DONGLE_VERSION step.
func (h *Handle) DongleVersion() string { return h.dongleVersion }

// DongleMAC returns the dongle's own MAC, hex-encoded, learned during the
// handshake's GET_MAC step.
func (h *Handle) DongleMAC() string { return fmt.Sprintf("%x", h.dongleMAC) }

// receiveLoop owns the rolling buffer and drives the reassembler, handing
// every parsed packet to the dispatcher inline. It never blocks on caller
// code except the handler body, which must be non-blocking and fast.
func (h *Handle) receiveLoop() {
	defer h.wg.Done()
	for {
		if atomic.LoadInt32(&h.exiting) != 0 {
			return
		}
		chunk, err := h.transport.ReadChunk()
		if err != nil {
			if errors.Is(err, transport.ErrClosed) {
				return
			}
			h.logger.Error("session: receive loop terminating: %v", err)
			h.emit(events.EventError, events.ErrorData{Message: err.Error()})
			return
		}
		if len(chunk) == 0 {
			continue
		}
		for _, pkt := range h.reassembler.Feed(chunk) {
			h.dispatcher.dispatch(pkt)
		}
	}
}

// emit delivers one event to the caller's callback, if any was given to
// Open.
func (h *Handle) emit(t events.EventType, data interface{}) {
	if h.onEvent == nil {
		return
	}
	h.onEvent(h, events.Envelope{Type: t, Timestamp: time.Now(), Data: data})
}

// Stop sets the exit flag, closes the device, wakes any pending command
// waiters so shutdown does not block on their timeouts, and joins the
// receiver. Safe to call more than once.
func (h *Handle) Stop() {
	if !atomic.CompareAndSwapInt32(&h.exiting, 0, 1) {
		return
	}
	close(h.done)
	if h.engine != nil {
		h.engine.wakeAll()
	}
	if h.transport != nil {
		_ = h.transport.Close()
	}
	h.wg.Wait()
}

// buildENRChallenge forms the 16-byte GET_ENR challenge: the 32-bit constant
// 0x30303030 repeated four times, little-endian.
func buildENRChallenge() []byte {
	buf := make([]byte, 16)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], protocol.ENRChallengeSeed)
	}
	return buf
}
