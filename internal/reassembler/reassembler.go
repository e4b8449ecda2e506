// Package reassembler turns a stream of raw HID fragments into a sequence of
// decoded protocol packets, resynchronizing past malformed or garbage bytes.
package reassembler

import (
	"errors"

	"github.com/wyzesense/dongled/internal/logging"
	"github.com/wyzesense/dongled/internal/protocol"
)

// Reassembler holds the rolling byte buffer fed by the HID transport and
// drives the codec to extract packets from it.
type Reassembler struct {
	codec  *protocol.Codec
	logger *logging.Logger
	buf    []byte
}

// New returns a Reassembler with an empty buffer.
func New(codec *protocol.Codec, logger *logging.Logger) *Reassembler {
	return &Reassembler{codec: codec, logger: logger}
}

// Feed appends chunk to the rolling buffer and extracts every packet that is
// now fully available. Malformed prefixes are discarded and logged; an
// incomplete trailing frame is retained for the next call.
func (r *Reassembler) Feed(chunk []byte) []protocol.Packet {
	r.buf = append(r.buf, chunk...)

	var packets []protocol.Packet
	for {
		idx := findMagic(r.buf)
		if idx < 0 {
			// No magic anywhere in the buffer: discard everything except a
			// possible split magic at the very end.
			if len(r.buf) > 0 {
				r.buf = r.buf[len(r.buf)-1:]
			}
			return packets
		}
		if idx > 0 {
			r.buf = r.buf[idx:]
		}

		pkt, consumed, err := r.codec.Decode(r.buf)
		switch {
		case err == nil:
			r.buf = r.buf[consumed:]
			packets = append(packets, pkt)
			continue
		case errors.Is(err, protocol.ErrIncomplete):
			return packets
		default:
			if r.logger != nil {
				r.logger.Debug("reassembler: dropping malformed frame: %v", err)
			}
			if len(r.buf) >= 2 {
				r.buf = r.buf[2:]
			} else {
				r.buf = nil
			}
			continue
		}
	}
}

// findMagic returns the index of the first magic byte pair in buf, or -1 if
// none is present. The dongle has been observed to frame inbound packets with
// either byte order, so both 0x55 0xAA and 0xAA 0x55 count.
func findMagic(buf []byte) int {
	for i := 0; i+1 < len(buf); i++ {
		if (buf[i] == 0x55 && buf[i+1] == 0xAA) || (buf[i] == 0xAA && buf[i+1] == 0x55) {
			return i
		}
	}
	return -1
}
