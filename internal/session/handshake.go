package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/wyzesense/dongled/internal/protocol"
)

// handshake runs the mandatory startup sequence. Any step's failure aborts
// the whole sequence; the caller (Open) stops the session on error.
func (h *Handle) handshake() error {
	status, ok := h.engine.doSimple(protocol.NewPacket(protocol.CmdInquiry, nil), h.cmdTimeout)
	if !ok || len(status.Payload) < 1 || status.Payload[0] == 0 {
		return fmt.Errorf("inquiry: no response or zero status")
	}

	enrReply, ok := h.engine.doSimple(protocol.NewPacket(protocol.CmdGetENR, buildENRChallenge()), h.cmdTimeout)
	if !ok || len(enrReply.Payload) != 16 {
		return fmt.Errorf("get_enr: no response or unexpected length")
	}
	h.enr = append([]byte(nil), enrReply.Payload...)

	macReply, ok := h.engine.doSimple(protocol.NewPacket(protocol.CmdGetMAC, nil), h.cmdTimeout)
	if !ok || len(macReply.Payload) != 8 {
		return fmt.Errorf("get_mac: no response or unexpected length")
	}
	h.dongleMAC = append([]byte(nil), macReply.Payload...)

	verReply, ok := h.engine.doSimple(protocol.NewPacket(protocol.CmdGetDongleVersion, nil), h.cmdTimeout)
	if !ok {
		return fmt.Errorf("get_dongle_version: no response")
	}
	h.dongleVersion = string(verReply.Payload)

	if _, ok := h.engine.doSimple(protocol.NewPacket(protocol.CmdFinishAuth, []byte{0xFF}), h.cmdTimeout); !ok {
		return fmt.Errorf("finish_auth: no response")
	}

	if _, err := h.List(); err != nil {
		return fmt.Errorf("enumerate: %w", err)
	}
	return nil
}

// List returns the MACs of every sensor currently paired with the dongle,
// in the order the dongle reports them.
func (h *Handle) List() ([]string, error) {
	if h.isClosed() {
		return nil, ErrClosed
	}

	countReply, ok := h.engine.doSimple(protocol.NewPacket(protocol.CmdGetSensorCount, nil), h.cmdTimeout)
	if !ok || len(countReply.Payload) < 1 {
		return nil, fmt.Errorf("session: get_sensor_count timed out")
	}
	count := int(countReply.Payload[0])
	if count == 0 {
		return nil, nil
	}

	var (
		mu      sync.Mutex
		macs    = make([]string, 0, count)
		macsErr error
	)
	ok = h.engine.doMulti(
		protocol.NewPacket(protocol.CmdGetSensorList, []byte{byte(count)}),
		count,
		h.cmdTimeout*time.Duration(count),
		func(reply protocol.Packet) {
			if len(reply.Payload) != 8 {
				mu.Lock()
				macsErr = fmt.Errorf("session: NOTIFY_SENSOR_LIST payload length %d, want 8", len(reply.Payload))
				mu.Unlock()
				return
			}
			mu.Lock()
			macs = append(macs, fmt.Sprintf("%x", reply.Payload))
			mu.Unlock()
			h.table.notifySensorFound(reply.Payload)
		},
	)
	mu.Lock()
	defer mu.Unlock()
	if macsErr != nil {
		return nil, macsErr
	}
	if !ok {
		return macs, fmt.Errorf("session: get_sensor_list timed out after %d of %d", len(macs), count)
	}
	return macs, nil
}

func (h *Handle) isClosed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}
