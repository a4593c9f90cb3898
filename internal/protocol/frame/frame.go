package frame

import (
	"bytes"
	"errors"
	"fmt"
)

const (
	// Size is the fixed radio buffer: one 200-byte character array.
	Size = 200
	// MaxPayload leaves room for the C-string terminator peers expect.
	MaxPayload = Size - 1
)

var (
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrEmptyPayload    = errors.New("frame: empty payload")
)

// Frame is the on-air transport struct. Unused bytes are zero.
type Frame struct {
	Data [Size]byte
}

// Pack copies payload into a frame. Payloads that would not leave room for
// the terminator are rejected rather than truncated.
func Pack(payload []byte) (Frame, error) {
	var f Frame
	if len(payload) == 0 {
		return f, ErrEmptyPayload
	}
	if len(payload) > MaxPayload {
		return f, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayload)
	}
	copy(f.Data[:], payload)
	return f, nil
}

// Bytes returns the full fixed-size buffer as sent on air.
func (f Frame) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, f.Data[:])
	return out
}

// Unpack copies at most Size bytes from a received buffer, terminates the
// copy, and returns the text before the first NUL. The input buffer is never
// retained.
func Unpack(data []byte) []byte {
	n := len(data)
	if n > Size {
		n = Size
	}
	buf := make([]byte, n+1)
	copy(buf, data[:n])
	buf[n] = 0
	return buf[:bytes.IndexByte(buf, 0)]
}
