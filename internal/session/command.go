package session

import (
	"sync"
	"time"

	"github.com/wyzesense/dongled/internal/logging"
	"github.com/wyzesense/dongled/internal/protocol"
)

// DefaultCommandTimeout is used for single-reply commands when the caller
// does not specify one.
const DefaultCommandTimeout = 2 * time.Second

// signal is a one-shot completion event with a timeout-bounded wait. Firing
// it more than once is harmless; only the first fire is observed.
type signal struct {
	once sync.Once
	ch   chan struct{}
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{})}
}

func (s *signal) fire() {
	s.once.Do(func() { close(s.ch) })
}

func (s *signal) wait(timeout time.Duration) bool {
	select {
	case <-s.ch:
		return true
	case <-time.After(timeout):
		return false
	}
}

// commandEngine issues outbound commands and pairs them with their expected
// reply command code (cmd+1). Every in-flight wait is registered
// so Stop can wake pending waiters early without forcing a timeout.
type commandEngine struct {
	table     *handlerTable
	codec     *protocol.Codec
	writeFunc func([]byte) error
	logger    *logging.Logger

	mu      sync.Mutex
	pending map[*signal]struct{}
}

func newCommandEngine(table *handlerTable, codec *protocol.Codec, writeFunc func([]byte) error, logger *logging.Logger) *commandEngine {
	return &commandEngine{
		table:     table,
		codec:     codec,
		writeFunc: writeFunc,
		logger:    logger,
		pending:   make(map[*signal]struct{}),
	}
}

func (e *commandEngine) register(sig *signal) {
	e.mu.Lock()
	e.pending[sig] = struct{}{}
	e.mu.Unlock()
}

func (e *commandEngine) unregister(sig *signal) {
	e.mu.Lock()
	delete(e.pending, sig)
	e.mu.Unlock()
}

// wakeAll fires every currently pending wait, letting Stop shorten shutdown
// instead of leaving callers to block out their full timeout.
func (e *commandEngine) wakeAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for sig := range e.pending {
		sig.fire()
	}
}

// doCommand installs a one-shot handler on pkt's reply command code, then
// writes pkt, and waits up to timeout for onReply to call the done callback it is
// given. The prior handler on the reply code is restored once the wait
// returns, whether by reply or by timeout — preserving the (harmless) race
// where a reply arriving just after timeout is still delivered before
// restoration, per this engine's documented stale-handler behavior.
func (e *commandEngine) doCommand(pkt protocol.Packet, timeout time.Duration, onReply func(reply protocol.Packet, done func())) bool {
	replyCmd := protocol.ReplyCmd(pkt.Cmd())
	sig := newSignal()
	e.register(sig)
	defer e.unregister(sig)

	wrapper := func(reply protocol.Packet) { onReply(reply, sig.fire) }
	prev := e.table.install(replyCmd, wrapper)
	defer e.table.restore(replyCmd, prev)

	wire := e.codec.Encode(pkt)
	if err := e.writeFunc(wire); err != nil {
		e.logger.Warn("command: write %s failed: %v", protocol.CmdName(pkt.Cmd()), err)
		return false
	}
	e.logger.Trace("command: sent %s, awaiting %s", protocol.CmdName(pkt.Cmd()), protocol.CmdName(replyCmd))

	return sig.wait(timeout)
}

// doSimple is doCommand specialized for the common single-reply case: it
// captures the first reply packet and completes immediately.
func (e *commandEngine) doSimple(pkt protocol.Packet, timeout time.Duration) (protocol.Packet, bool) {
	var (
		mu    sync.Mutex
		reply protocol.Packet
	)
	ok := e.doCommand(pkt, timeout, func(r protocol.Packet, done func()) {
		mu.Lock()
		reply = r
		mu.Unlock()
		done()
	})
	mu.Lock()
	defer mu.Unlock()
	return reply, ok
}

// doMulti writes pkt and collects exactly count replies on pkt's reply
// command code before completing, invoking onEach for every reply as it
// arrives (in wire order). Used by sensor-list enumeration, where one
// GET_SENSOR_LIST command provokes N separate NOTIFY_SENSOR_LIST replies.
func (e *commandEngine) doMulti(pkt protocol.Packet, count int, timeout time.Duration, onEach func(protocol.Packet)) bool {
	if count <= 0 {
		return true
	}
	replyCmd := protocol.ReplyCmd(pkt.Cmd())
	sig := newSignal()
	e.register(sig)
	defer e.unregister(sig)

	var (
		mu       sync.Mutex
		received int
	)
	wrapper := func(reply protocol.Packet) {
		onEach(reply)
		mu.Lock()
		received++
		n := received
		mu.Unlock()
		if n >= count {
			sig.fire()
		}
	}
	prev := e.table.install(replyCmd, wrapper)
	defer e.table.restore(replyCmd, prev)

	wire := e.codec.Encode(pkt)
	if err := e.writeFunc(wire); err != nil {
		e.logger.Warn("command: write %s failed: %v", protocol.CmdName(pkt.Cmd()), err)
		return false
	}

	return sig.wait(timeout)
}
