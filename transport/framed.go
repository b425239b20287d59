package transport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Framed adds 4-byte big-endian length prefixes to an underlying channel.
//
// Writes accumulate in memory until Flush, which emits prefix and payload in
// one write. Reads pull one whole frame at a time and serve requests from it;
// a read never spans two frames, so callers needing an exact count loop
// (io.ReadFull does).
type Framed struct {
	rw           io.ReadWriter
	maxFrameSize int
	wbuf         bytes.Buffer
	frame        []byte
	rpos         int
	header       [FrameHeaderSize]byte
}

// NewFramed wraps rw. maxFrameSize <= 0 selects DefaultMaxFrameSize.
func NewFramed(rw io.ReadWriter, maxFrameSize int) *Framed {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &Framed{rw: rw, maxFrameSize: maxFrameSize}
}

// Write buffers p until the next Flush.
func (f *Framed) Write(p []byte) (int, error) {
	return f.wbuf.Write(p)
}

// Flush writes the buffered bytes as a single frame and clears the buffer.
func (f *Framed) Flush() error {
	size := f.wbuf.Len()
	out := make([]byte, FrameHeaderSize+size)
	binary.BigEndian.PutUint32(out[:FrameHeaderSize], uint32(size))
	copy(out[FrameHeaderSize:], f.wbuf.Bytes())
	f.wbuf.Reset()

	if _, err := f.rw.Write(out); err != nil {
		return err
	}
	if fl, ok := f.rw.(flusher); ok {
		return fl.Flush()
	}
	return nil
}

// Read serves p from the current frame, blocking for the next frame when the
// current one is used up.
func (f *Framed) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for f.rpos >= len(f.frame) {
		if err := f.readFrame(); err != nil {
			return 0, err
		}
	}
	n := copy(p, f.frame[f.rpos:])
	f.rpos += n
	return n, nil
}

// RemainingBytes reports what is left of the current frame.
func (f *Framed) RemainingBytes() int {
	return len(f.frame) - f.rpos
}

func (f *Framed) readFrame() error {
	if _, err := io.ReadFull(f.rw, f.header[:]); err != nil {
		return err
	}
	size := int32(binary.BigEndian.Uint32(f.header[:]))
	if size < 0 || int(size) > f.maxFrameSize {
		return fmt.Errorf("%w: %d (max %d)", ErrFrameSize, size, f.maxFrameSize)
	}
	frame := make([]byte, size)
	if _, err := io.ReadFull(f.rw, frame); err != nil {
		return err
	}
	f.frame = frame
	f.rpos = 0
	return nil
}
