package session

import (
	"sync"
	"time"

	"github.com/wyzesense/dongled/internal/protocol"
	"github.com/wyzesense/dongled/internal/reassembler"
	"github.com/wyzesense/dongled/internal/transport"
	"github.com/wyzesense/dongled/test/testutil"
)

// fakeLink is an in-memory transportHandle standing in for a real HID
// device: WriteAll captures what was sent and may trigger a responder that
// enqueues reply frames, ReadChunk drains those frames in order.
type fakeLink struct {
	mu      sync.Mutex
	inbound [][]byte
	writes  [][]byte
	closed  bool
	onWrite func(data []byte)
}

func (f *fakeLink) ReadChunk() ([]byte, error) {
	for {
		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return nil, transport.ErrClosed
		}
		if len(f.inbound) > 0 {
			chunk := f.inbound[0]
			f.inbound = f.inbound[1:]
			f.mu.Unlock()
			return chunk, nil
		}
		f.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
}

func (f *fakeLink) WriteAll(data []byte) error {
	f.mu.Lock()
	f.writes = append(f.writes, append([]byte(nil), data...))
	cb := f.onWrite
	f.mu.Unlock()
	if cb != nil {
		cb(data)
	}
	return nil
}

func (f *fakeLink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeLink) push(frame []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbound = append(f.inbound, frame)
}

func (f *fakeLink) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeLink) lastWrite() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.writes) == 0 {
		return nil
	}
	return f.writes[len(f.writes)-1]
}

// newTestHandle wires a Handle to link the same way Open does, minus the
// real transport.Open call and the handshake, so tests can drive the
// handshake and operations explicitly against a scripted fake dongle.
func newTestHandle(link *fakeLink, onEvent OnEvent) *Handle {
	logger, _ := testutil.NewTestLogger()
	h := &Handle{
		id:          "test",
		codec:       protocol.NewCodec(),
		table:       newHandlerTable(),
		logger:      logger,
		onEvent:     onEvent,
		cmdTimeout:  200 * time.Millisecond,
		scanTimeout: 200 * time.Millisecond,
		done:        make(chan struct{}),
	}
	h.transport = link
	h.reassembler = reassembler.New(h.codec, h.logger)
	h.dispatcher = newDispatcher(h.table, h.codec, h.transport.WriteAll, h.logger)
	h.engine = newCommandEngine(h.table, h.codec, h.transport.WriteAll, h.logger)
	h.installBuiltinHandlers()
	h.wg.Add(1)
	go h.receiveLoop()
	return h
}

// replyTo decodes the single packet written in data and returns it (the zero
// Packet if data does not decode), for responder functions that branch on
// what was just sent.
func replyTo(codec *protocol.Codec, data []byte) protocol.Packet {
	pkt, _, err := codec.Decode(data)
	if err != nil {
		return protocol.Packet{}
	}
	return pkt
}
