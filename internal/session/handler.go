package session

import (
	"sync"

	"github.com/wyzesense/dongled/internal/protocol"
)

// Handler processes one dispatched packet. Handlers run inline on the
// receiver goroutine and must not block.
type Handler func(pkt protocol.Packet)

// handlerTable maps command codes to handlers, plus one named side slot for
// the synthetic SENSOR_FOUND notification. All operations are safe for
// concurrent use; install/remove/swap are atomic under a single mutex so a
// concurrent lookup never observes a torn value.
type handlerTable struct {
	mu          sync.Mutex
	byCmd       map[uint16]Handler
	sensorFound Handler
}

func newHandlerTable() *handlerTable {
	return &handlerTable{byCmd: make(map[uint16]Handler)}
}

// lookup returns the handler installed for cmd, or nil if none is installed.
func (t *handlerTable) lookup(cmd uint16) Handler {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.byCmd[cmd]
}

// install sets the handler for cmd, returning whatever was previously
// installed there (nil if nothing was).
func (t *handlerTable) install(cmd uint16, h Handler) Handler {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.byCmd[cmd]
	t.byCmd[cmd] = h
	return prev
}

// restore reinstalls prev as the handler for cmd, the mirror operation to
// install: used by the command engine to put back whatever handler existed
// before it temporarily took over cmd+1.
func (t *handlerTable) restore(cmd uint16, prev Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev == nil {
		delete(t.byCmd, cmd)
		return
	}
	t.byCmd[cmd] = prev
}

// installSensorFound sets the SENSOR_FOUND side-channel handler, returning
// the previous one.
func (t *handlerTable) installSensorFound(h Handler) Handler {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.sensorFound
	t.sensorFound = h
	return prev
}

// restoreSensorFound reinstalls prev as the SENSOR_FOUND handler.
func (t *handlerTable) restoreSensorFound(prev Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sensorFound = prev
}

// notifySensorFound invokes the SENSOR_FOUND handler, if any, with mac as the
// packet payload wrapped in a synthetic packet whose command code is
// meaningless (only Payload is read by callers of this side channel).
func (t *handlerTable) notifySensorFound(mac []byte) {
	t.mu.Lock()
	h := t.sensorFound
	t.mu.Unlock()
	if h != nil {
		h(protocol.Packet{Payload: mac})
	}
}
