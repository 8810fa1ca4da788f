//go:build linux

// Package eventloop implements a single-threaded, level-triggered readiness
// multiplexer on top of Linux epoll. The engine hands it raw non-blocking
// socket file descriptors directly (bypassing net.Conn) so a readiness
// event can be dispatched to a callback without fighting Go's
// runtime-integrated netpoller for control of the fd.
package eventloop

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// EventMask selects which directions a registration cares about.
type EventMask uint32

const (
	Readable EventMask = 1 << iota
	Writable
)

func (m EventMask) epollEvents() uint32 {
	var e uint32
	if m&Readable != 0 {
		e |= unix.EPOLLIN
	}
	if m&Writable != 0 {
		e |= unix.EPOLLOUT
	}
	return e
}

// Callback is invoked once per readiness event. ready reports which of
// Readable/Writable fired. A registration stays in effect, firing on every
// readiness event, until the callback changes the watched directions via
// Loop.Modify or removes it via Loop.Unregister.
type Callback func(fd int, ready EventMask)

// Loop is a single-threaded epoll-backed reactor. All registration methods
// except Stop are intended to be called only from the goroutine running
// Run; Stop is safe to call from any goroutine (e.g. a signal handler).
type Loop struct {
	epfd int

	mu    sync.Mutex
	regs  map[int]*registration

	wakeR, wakeW int
	stopped      bool
}

type registration struct {
	mask EventMask
	cb   Callback
}

// New creates an epoll instance and the self-pipe used to wake Run out of
// a blocking epoll_wait when Stop is called.
func New() (*Loop, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("eventloop: epoll_create1: %w", err)
	}
	fds, err := unixPipe()
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventloop: pipe: %w", err)
	}
	l := &Loop{
		epfd:  epfd,
		regs:  make(map[int]*registration),
		wakeR: fds[0],
		wakeW: fds[1],
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, l.wakeR, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(l.wakeR),
	}); err != nil {
		l.Close()
		return nil, fmt.Errorf("eventloop: registering wake pipe: %w", err)
	}
	return l, nil
}

func unixPipe() ([2]int, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return fds, err
	}
	return fds, nil
}

// Register starts watching fd for the given mask, invoking cb on every
// matching readiness event until Unregister or Close.
func (l *Loop) Register(fd int, mask EventMask, cb Callback) error {
	l.mu.Lock()
	l.regs[fd] = &registration{mask: mask, cb: cb}
	l.mu.Unlock()

	return unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: mask.epollEvents(),
		Fd:     int32(fd),
	})
}

// Modify changes the watched directions for an already-registered fd. A
// client moves between Readable and Writable interest as it progresses
// through CONNECTING -> SENDING -> READING.
func (l *Loop) Modify(fd int, mask EventMask) error {
	l.mu.Lock()
	reg, ok := l.regs[fd]
	if ok {
		reg.mask = mask
	}
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("eventloop: Modify on unregistered fd %d", fd)
	}
	return unix.EpollCtl(l.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
		Events: mask.epollEvents(),
		Fd:     int32(fd),
	})
}

// Unregister stops watching fd. It does not close fd; the caller owns the
// socket's lifetime.
func (l *Loop) Unregister(fd int) error {
	l.mu.Lock()
	delete(l.regs, fd)
	l.mu.Unlock()
	err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err != nil && err != unix.ENOENT {
		return fmt.Errorf("eventloop: epoll_ctl del fd %d: %w", fd, err)
	}
	return nil
}

// Run blocks, dispatching readiness callbacks, until Stop is called.
func (l *Loop) Run() error {
	events := make([]unix.EpollEvent, 256)
	for {
		n, err := unix.EpollWait(l.epfd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("eventloop: epoll_wait: %w", err)
		}
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if fd == l.wakeR {
				l.mu.Lock()
				stopped := l.stopped
				l.mu.Unlock()
				if stopped {
					return nil
				}
				drainWake(l.wakeR)
				continue
			}

			l.mu.Lock()
			reg, ok := l.regs[fd]
			l.mu.Unlock()
			if !ok {
				// Stale event for an fd torn down earlier in this tick.
				continue
			}

			var ready EventMask
			if events[i].Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
				ready |= Readable
			}
			if events[i].Events&unix.EPOLLOUT != 0 {
				ready |= Writable
			}
			ready &= reg.mask
			if ready != 0 {
				reg.cb(fd, ready)
			}
		}
	}
}

func drainWake(fd int) {
	var buf [64]byte
	for {
		n, err := unix.Read(fd, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Stop latches the stop flag and wakes Run out of epoll_wait. Safe to call
// from a signal-handling goroutine.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	l.mu.Unlock()
	unix.Write(l.wakeW, []byte{0})
}

// Reset clears the stopped latch and drains any unread wake byte so the
// same Loop can be reused for another Run pass.
func (l *Loop) Reset() {
	l.mu.Lock()
	l.stopped = false
	l.mu.Unlock()
	drainWake(l.wakeR)
}

// Close releases the epoll fd and the wake pipe. Call after Run returns.
func (l *Loop) Close() error {
	unix.Close(l.wakeR)
	unix.Close(l.wakeW)
	return unix.Close(l.epfd)
}
