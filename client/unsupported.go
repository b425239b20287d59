//go:build !linux

package client

import (
	"net"
	"time"
)

type poller struct{}

func newPoller(int) (*poller, error) { return nil, ErrUnsupported }

func (*poller) add(int, readiness) error            { return ErrUnsupported }
func (*poller) modify(int, readiness) error         { return ErrUnsupported }
func (*poller) remove(int) error                    { return ErrUnsupported }
func (*poller) wait(time.Duration) ([]event, error) { return nil, ErrUnsupported }
func (*poller) wake() error                         { return ErrUnsupported }
func (*poller) close() error                        { return nil }

type socket struct {
	addr *net.TCPAddr
	fd   int
}

func newSocket(addr *net.TCPAddr) *socket { return &socket{addr: addr, fd: -1} }

func (s *socket) isOpen() bool              { return false }
func (s *socket) open() error               { return ErrUnsupported }
func (s *socket) finishConnect() error      { return ErrUnsupported }
func (s *socket) read([]byte) (int, error)  { return 0, ErrUnsupported }
func (s *socket) write([]byte) (int, error) { return 0, ErrUnsupported }
func (s *socket) close() error              { return nil }

func wouldBlock(error) bool { return false }
