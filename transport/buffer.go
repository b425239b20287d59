package transport

import "bytes"

// Buffer is an in-memory Transport. Calls serialize requests into one and
// decode received frames out of one.
type Buffer struct {
	bytes.Buffer
}

// NewBuffer returns a Buffer that reads from data.
func NewBuffer(data []byte) *Buffer {
	b := &Buffer{}
	b.Buffer = *bytes.NewBuffer(data)
	return b
}

// Flush is a no-op; written bytes are immediately readable.
func (b *Buffer) Flush() error { return nil }

// RemainingBytes reports the unread length.
func (b *Buffer) RemainingBytes() int { return b.Len() }
