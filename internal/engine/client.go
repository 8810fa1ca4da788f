package engine

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/antirez/redis-tools/internal/eventloop"
	"github.com/antirez/redis-tools/internal/optab"
	"github.com/antirez/redis-tools/internal/protocol"
)

// callbackFor returns the eventloop.Callback for the client at slot,
// closing over the slot index rather than the *client pointer so the
// lookup always goes through the arena's current occupant and generation
// check.
func (e *Engine) callbackFor(slot int) eventloop.Callback {
	gen := e.clients[slot].generation
	return func(fd int, ready eventloop.EventMask) {
		c := e.clients[slot]
		if c == nil || c.generation != gen || c.fd != fd {
			return // stale event for a client already torn down this tick
		}
		e.dispatch(c, ready)
	}
}

func (e *Engine) dispatch(c *client, ready eventloop.EventMask) {
	switch c.state {
	case stateConnecting:
		if ready&eventloop.Writable != 0 {
			e.onConnected(c)
		}
	case stateSending:
		if ready&eventloop.Writable != 0 {
			e.onWritable(c)
		}
	case stateReading:
		if ready&eventloop.Readable != 0 {
			e.onReadable(c)
		}
	}
}

// onConnected fires on the first writable event after connect(2); a
// getsockopt(SO_ERROR) of 0 means the connection succeeded.
func (e *Engine) onConnected(c *client) {
	errno, err := unix.GetsockoptInt(c.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err == nil && errno != 0 {
		err = unix.Errno(errno)
	}
	if err != nil {
		e.removeClient(c)
		e.consecutiveConnectFailures++
		if e.consecutiveConnectFailures >= maxConsecutiveConnectFailures {
			e.fatal(fmt.Errorf("giving up after %d consecutive failed connection attempts to %s:%d: %w",
				e.consecutiveConnectFailures, e.opts.Host, e.opts.Port, err))
			return
		}
		e.logger.Errorf("connect to %s:%d failed: %v", e.opts.Host, e.opts.Port, err)
		if !e.done && !e.interrupted() {
			e.createMissing()
		}
		return
	}
	e.consecutiveConnectFailures = 0
	if e.done || e.interrupted() {
		// The budget ran out (or Ctrl-C latched) while this client was
		// still connecting: close it instead of issuing past the budget.
		e.closeQuiet(c)
		return
	}
	e.prepareRequest(c)
}

func (e *Engine) onWritable(c *client) {
	for c.writeOff < len(c.writeBuf) {
		n, err := unix.Write(c.fd, c.writeBuf[c.writeOff:])
		if err != nil {
			if err == unix.EAGAIN {
				return // kernel buffer full; wait for the next writable event
			}
			if err == unix.EPIPE {
				e.closeQuiet(c)
				return
			}
			e.teardown(c, err)
			return
		}
		c.writeOff += n
	}

	c.state = stateReading
	if err := e.loop.Modify(c.fd, eventloop.Readable); err != nil {
		e.teardown(c, err)
	}
}

func (e *Engine) onReadable(c *client) {
	var buf [65536]byte
	for {
		n, err := unix.Read(c.fd, buf[:])
		if n > 0 {
			c.dec.Feed(buf[:n])
		}
		if err != nil {
			if err == unix.EAGAIN {
				break
			}
			e.teardown(c, err)
			return
		}
		if n == 0 {
			e.teardown(c, errors.New("server closed connection mid-reply"))
			return
		}
		if n < len(buf) {
			break // short read: likely drained the socket for this tick
		}
	}

	reply, ok, err := c.dec.TryParse()
	if err != nil {
		e.fatal(err)
		return
	}
	if !ok {
		return
	}
	e.onReplyComplete(c, reply)
}

// onReplyComplete is the completed-reply step.
func (e *Engine) onReplyComplete(c *client, reply protocol.Reply) {
	latency := e.now().Sub(c.reqStart)
	if latency < 0 {
		latency = 0
	}
	e.histogram.Record(latency)
	if e.metrics != nil {
		e.metrics.ObserveCompletion(c.op.String(), latency)
	}

	if reply.Kind == protocol.KindError {
		e.fatal(fmt.Errorf("server replied with an error to %s: %s", c.op, reply.Line))
		return
	}

	if c.op == optab.OpGet && e.opts.Check {
		if err := e.verifyIntegrity(c, reply); err != nil {
			e.fatal(err)
			return
		}
	}

	if e.done || e.interrupted() {
		e.closeQuiet(c)
		return
	}
	if e.opts.Keepalive {
		e.prepareRequest(c)
		e.createMissing()
		return
	}
	e.closeQuiet(c)
}

func (e *Engine) now() time.Time {
	if e.clock != nil {
		return e.clock()
	}
	return time.Now()
}
