package transport

import (
	"bufio"
	"io"
)

// Stream is a buffered Transport over a blocking connection, such as a
// net.Conn accepted by a peer server.
type Stream struct {
	conn io.ReadWriteCloser
	r    *bufio.Reader
	w    *bufio.Writer
}

// NewStream wraps conn with read and write buffers.
func NewStream(conn io.ReadWriteCloser) *Stream {
	return &Stream{
		conn: conn,
		r:    bufio.NewReader(conn),
		w:    bufio.NewWriter(conn),
	}
}

func (s *Stream) Read(p []byte) (int, error)  { return s.r.Read(p) }
func (s *Stream) Write(p []byte) (int, error) { return s.w.Write(p) }

// Flush drains the write buffer into the connection.
func (s *Stream) Flush() error { return s.w.Flush() }

// Close closes the connection.
func (s *Stream) Close() error { return s.conn.Close() }
