//go:build linux

package client

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// poller multiplexes channel readiness with epoll. An eventfd registered
// alongside the channels lets other goroutines interrupt a blocked wait.
type poller struct {
	epfd   int
	wakefd int
	events []unix.EpollEvent
	ready  []event
	buf    [8]byte
}

func newPoller(batch int) (*poller, error) {
	if batch <= 0 {
		batch = defaultPollBatch
	}
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, os.NewSyscallError("eventfd", err)
	}
	p := &poller{
		epfd:   epfd,
		wakefd: wakefd,
		events: make([]unix.EpollEvent, batch),
		ready:  make([]event, 0, batch),
	}
	if err := p.ctl(unix.EPOLL_CTL_ADD, wakefd, readable); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, err
	}
	return p, nil
}

func (p *poller) add(fd int, interest readiness) error {
	return p.ctl(unix.EPOLL_CTL_ADD, fd, interest)
}

func (p *poller) modify(fd int, interest readiness) error {
	return p.ctl(unix.EPOLL_CTL_MOD, fd, interest)
}

func (p *poller) remove(fd int) error {
	return os.NewSyscallError("epoll_ctl", unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil))
}

func (p *poller) ctl(op, fd int, interest readiness) error {
	var mask uint32
	if interest.has(readable) {
		mask |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if interest.has(writable) {
		mask |= unix.EPOLLOUT
	}
	ev := unix.EpollEvent{Events: mask, Fd: int32(fd)}
	return os.NewSyscallError("epoll_ctl", unix.EpollCtl(p.epfd, op, fd, &ev))
}

// waitMillis rounds timeout up to whole milliseconds for epoll_wait, which
// takes a C int. Negative means block indefinitely.
func waitMillis(timeout time.Duration) int {
	switch {
	case timeout < 0:
		return -1
	case timeout > math.MaxInt32*time.Millisecond:
		return math.MaxInt32
	}
	return int((timeout + time.Millisecond - 1) / time.Millisecond)
}

// wait blocks until a channel is ready, the poller is woken or timeout
// elapses. A negative timeout blocks indefinitely. The wake channel is
// drained here and never reported.
func (p *poller) wait(timeout time.Duration) ([]event, error) {
	n, err := unix.EpollWait(p.epfd, p.events, waitMillis(timeout))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		return nil, os.NewSyscallError("epoll_wait", err)
	}
	p.ready = p.ready[:0]
	for _, ev := range p.events[:n] {
		fd := int(ev.Fd)
		if fd == p.wakefd {
			unix.Read(p.wakefd, p.buf[:])
			continue
		}
		var r readiness
		if ev.Events&unix.EPOLLIN != 0 {
			r |= readable
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			r |= writable
		}
		if ev.Events&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
			r |= hangup
		}
		if ev.Events&unix.EPOLLERR != 0 {
			r |= failure
		}
		p.ready = append(p.ready, event{fd: fd, ready: r})
	}
	return p.ready, nil
}

// wake interrupts a concurrent wait. It is safe to call from any goroutine
// while the poller is open.
func (p *poller) wake() error {
	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	_, err := unix.Write(p.wakefd, one[:])
	if errors.Is(err, unix.EAGAIN) {
		// Counter saturated: a wakeup is already pending.
		return nil
	}
	return os.NewSyscallError("eventfd write", err)
}

func (p *poller) close() error {
	unix.Close(p.wakefd)
	return os.NewSyscallError("close", unix.Close(p.epfd))
}
