package protocol

import "encoding/binary"

// Decoder accumulates bytes read off a TCP stream and splits them into
// complete frames. It never blocks and never reads from anything itself —
// callers feed it whatever bytes a Read call returned and drain whatever
// complete frames are now available.
//
// The accumulator is compacted on every successful Decode so the parser
// never holds a reference into stale data; returned Frame.Payload is
// always a fresh copy, never a slice into the internal buffer, so callers
// may retain it past the next Feed call.
type Decoder struct {
	buf []byte
}

// NewDecoder returns an empty Decoder ready to accept bytes.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends newly-read bytes to the accumulator.
func (d *Decoder) Feed(b []byte) {
	d.buf = append(d.buf, b...)
}

// Decode drains as many complete frames as are currently buffered and
// returns them in receive order. If an oversize frame is encountered,
// the frames decoded before it are still returned alongside
// ErrOversizeFrame; the caller must close the session in that case and
// should not call Decode again.
func (d *Decoder) Decode() ([]Frame, error) {
	var frames []Frame
	for {
		if len(d.buf) < HeaderSize {
			break
		}
		dataLength := binary.BigEndian.Uint32(d.buf[0:4])
		cmd := binary.BigEndian.Uint32(d.buf[4:8])

		if dataLength > MaxPayloadSize {
			return frames, ErrOversizeFrame
		}

		total := HeaderSize + int(dataLength)
		if len(d.buf) < total {
			break
		}

		payload := make([]byte, dataLength)
		copy(payload, d.buf[HeaderSize:total])
		frames = append(frames, Frame{Cmd: Command(cmd), Payload: payload})

		d.buf = d.buf[total:]
	}

	// Compact: once drained to nothing, release the backing array so a
	// long-idle session does not pin a large buffer.
	if len(d.buf) == 0 {
		d.buf = nil
	}

	return frames, nil
}

// Buffered reports how many bytes are currently held, undecoded. Used by
// tests asserting partial-frame behavior.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}
