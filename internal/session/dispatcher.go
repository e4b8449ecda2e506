package session

import (
	"github.com/wyzesense/dongled/internal/logging"
	"github.com/wyzesense/dongled/internal/protocol"
)

// dispatcher routes every packet parsed off the wire to exactly one handler,
// auto-acknowledging asynchronous non-ACK packets before the handler runs.
// It is driven inline on the receiver goroutine; it never itself blocks.
type dispatcher struct {
	table     *handlerTable
	codec     *protocol.Codec
	writeFunc func([]byte) error
	logger    *logging.Logger
}

func newDispatcher(table *handlerTable, codec *protocol.Codec, writeFunc func([]byte) error, logger *logging.Logger) *dispatcher {
	return &dispatcher{table: table, codec: codec, writeFunc: writeFunc, logger: logger}
}

// dispatch delivers one inbound packet. It is the single point through
// which every parsed frame passes, so it is also where the "at most one
// handler per packet" invariant is enforced.
func (d *dispatcher) dispatch(pkt protocol.Packet) {
	cmd := pkt.Cmd()

	if pkt.IsAsync() && cmd != protocol.CmdAsyncAck {
		ack := d.codec.EncodeAsyncAck(cmd)
		if err := d.writeFunc(ack); err != nil {
			d.logger.Warn("dispatcher: failed to write ASYNC_ACK for %s: %v", protocol.CmdName(cmd), err)
		} else {
			d.logger.Trace("dispatcher: acked %s", protocol.CmdName(cmd))
		}
	}

	h := d.table.lookup(cmd)
	if h == nil {
		d.logger.Debug("dispatcher: no handler for %s, dropping", protocol.CmdName(cmd))
		return
	}
	h(pkt)
}
