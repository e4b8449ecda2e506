package session

import (
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/wyzesense/dongled/internal/protocol"
)

// ScanResult is the sensor candidate observed during a successful Scan.
type ScanResult struct {
	MAC     string
	Type    byte
	Version byte
}

// writeRaw encodes and writes pkt without waiting for any reply, for the
// pairing steps and the sync-time reply, which the dongle does not ack in a
// way worth awaiting.
func (h *Handle) writeRaw(pkt protocol.Packet) error {
	return h.transport.WriteAll(h.codec.Encode(pkt))
}

// Scan puts the dongle into pairing mode, waits up to timeout for a new
// sensor to announce itself, and if one appears runs the two follow-up
// exchanges (GET_SENSOR_R1, VERIFY_SENSOR) the dongle requires to accept it.
// ENABLE_SCAN(false) is written unconditionally before returning, whether or
// not a candidate was seen.
func (h *Handle) Scan(timeout time.Duration) (*ScanResult, error) {
	if h.isClosed() {
		return nil, ErrClosed
	}
	if timeout <= 0 {
		timeout = h.scanTimeout
	}

	sig := newSignal()
	h.engine.register(sig)
	defer h.engine.unregister(sig)

	var (
		mu     sync.Mutex
		result *ScanResult
	)
	wrapper := func(pkt protocol.Packet) {
		if len(pkt.Payload) != 11 {
			return
		}
		mu.Lock()
		result = &ScanResult{
			MAC:     fmt.Sprintf("%x", pkt.Payload[1:9]),
			Type:    pkt.Payload[9],
			Version: pkt.Payload[10],
		}
		mu.Unlock()
		sig.fire()
	}
	prev := h.table.install(protocol.CmdNotifySensorScan, wrapper)
	defer h.table.restore(protocol.CmdNotifySensorScan, prev)

	if err := h.writeRaw(protocol.NewPacket(protocol.CmdEnableScan, []byte{0x01})); err != nil {
		return nil, fmt.Errorf("session: enable_scan(true): %w", err)
	}

	sig.wait(timeout)

	mu.Lock()
	candidate := result
	mu.Unlock()

	if candidate != nil {
		mac := macBytes(candidate.MAC)
		r1Payload := append(append([]byte(nil), mac...), []byte(protocol.R1Challenge)...)
		if err := h.writeRaw(protocol.NewPacket(protocol.CmdGetSensorR1, r1Payload)); err != nil {
			h.logger.Warn("session: get_sensor_r1: %v", err)
		}
	}

	if err := h.writeRaw(protocol.NewPacket(protocol.CmdEnableScan, []byte{0x00})); err != nil {
		h.logger.Warn("session: enable_scan(false): %v", err)
	}

	if candidate != nil {
		mac := macBytes(candidate.MAC)
		verifyPayload := append(append([]byte(nil), mac...), 0xFF, 0x04)
		if err := h.writeRaw(protocol.NewPacket(protocol.CmdVerifySensor, verifyPayload)); err != nil {
			h.logger.Warn("session: verify_sensor: %v", err)
		}
	}

	return candidate, nil
}

// Delete unpairs the sensor identified by mac (hex-encoded, 8 bytes).
// Success requires the dongle to echo the same MAC with an 0xFF ack byte;
// any mismatch is a soft failure that leaves the session otherwise healthy.
func (h *Handle) Delete(mac string) (bool, error) {
	if h.isClosed() {
		return false, ErrClosed
	}
	macB := macBytes(mac)
	if len(macB) != 8 {
		return false, fmt.Errorf("session: Delete: mac must decode to 8 bytes, got %d", len(macB))
	}

	reply, ok := h.engine.doSimple(protocol.NewPacket(protocol.CmdDelSensor, macB), h.cmdTimeout)
	if !ok {
		return false, nil
	}
	if len(reply.Payload) != 9 {
		return false, nil
	}
	return bytesEqual(reply.Payload[:8], macB) && reply.Payload[8] == 0xFF, nil
}

func macBytes(hexMAC string) []byte {
	b, err := hex.DecodeString(hexMAC)
	if err != nil {
		return nil
	}
	return b
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
