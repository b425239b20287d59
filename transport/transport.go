// Package transport provides the byte channels the protocol codec runs over.
//
// Framed wraps any channel so that every flush becomes one length-prefixed
// frame on the wire:
//
//	┌──────────────┬────────────────────┐
//	│ length u32 BE │  length bytes ...  │
//	└──────────────┴────────────────────┘
//
// The receiver reads the 4-byte prefix first, then exactly that many bytes,
// which keeps message boundaries intact on a stream connection.
package transport

import (
	"errors"
	"io"
)

// DefaultMaxFrameSize bounds a frame a reader is willing to buffer.
const DefaultMaxFrameSize = 16 << 20

// FrameHeaderSize is the length of the frame prefix.
const FrameHeaderSize = 4

// ErrFrameSize is returned when a peer declares a negative or oversized frame.
var ErrFrameSize = errors.New("transport: invalid frame size")

// Transport is a byte channel whose writes become visible to the peer on Flush.
type Transport interface {
	io.Reader
	io.Writer
	Flush() error
}

// Bounded is implemented by transports that know how many bytes are left in
// the unit currently being read. Decoders use it to reject lengths that
// cannot possibly be satisfied.
type Bounded interface {
	RemainingBytes() int
}

// flusher lets the framed transport push a wrapped buffered writer.
type flusher interface {
	Flush() error
}
