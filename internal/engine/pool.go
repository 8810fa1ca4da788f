package engine

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/antirez/redis-tools/internal/eventloop"
	"github.com/antirez/redis-tools/internal/optab"
	"github.com/antirez/redis-tools/internal/protocol"
)

// createMissing tops the pool up to e.opts.Clients It's
// called at startup, after every non-keepalive teardown, and after every
// keepalive completion (in case a prior createMissing lost a race with a
// connect failure).
func (e *Engine) createMissing() {
	for !e.done && e.live < e.opts.Clients {
		if err := e.dial(); err != nil {
			e.logger.Errorf("connect to %s:%d failed: %v", e.opts.Host, e.opts.Port, err)
			return // don't busy-spin on a down server; the next teardown retries
		}
	}
}

// dial opens one new non-blocking connection and registers it for
// writability; the connect completion is detected when that first
// writable event fires.
func (e *Engine) dial() error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return fmt.Errorf("socket: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return fmt.Errorf("set nonblocking: %w", err)
	}
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)

	sa := &unix.SockaddrInet4{Port: e.opts.Port}
	copy(sa.Addr[:], e.serverIP.To4())

	err = unix.Connect(fd, sa)
	if err != nil && err != unix.EINPROGRESS {
		unix.Close(fd)
		return fmt.Errorf("connect: %w", err)
	}

	slot, gen := e.allocSlot()
	c := &client{fd: fd, generation: gen, slot: slot, state: stateConnecting}
	e.clients[slot] = c
	e.live++
	if e.metrics != nil {
		e.metrics.SetInFlight(e.live)
	}

	if regErr := e.loop.Register(fd, eventloop.Writable, e.callbackFor(slot)); regErr != nil {
		e.teardown(c, regErr)
		return fmt.Errorf("register: %w", regErr)
	}
	return nil
}

// resolveServer looks up e.opts.Host once at startup; DNS resolution is an
// explicitly out-of-scope external collaborator, but the core
// still needs a concrete IP to hand to a raw non-blocking connect.
func resolveServer(host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}
	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, err
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
	}
	return nil, fmt.Errorf("no IPv4 address found for %q", host)
}

// prepareRequest picks the next operation and key, builds the outbound
// command, and arms the client for writing. For IDLE it leaves
// the client with nothing queued and no further readiness interest: idle
// mode just holds the connection open.
func (e *Engine) prepareRequest(c *client) {
	c.reset()

	roll := e.rng.Uint64() % 100
	c.op = e.optable.Pick(roll)
	c.keyID = e.nextKey(e.opts.Keyspace)
	c.hashID = e.nextKey(e.opts.HashKeyspace)

	e.issued++
	if e.issued >= e.opts.Requests {
		e.done = true
	}

	if c.op == optab.OpIdle {
		c.idle = true
		if err := e.loop.Unregister(c.fd); err != nil {
			e.logger.Debugf("unregister idle client fd %d: %v", c.fd, err)
		}
		return
	}

	c.writeBuf = buildCommand(c.op, c.keyID, c.hashID, e)
	c.state = stateSending
	c.reqStart = e.now()
	if err := e.loop.Modify(c.fd, eventloop.Writable); err != nil {
		e.teardown(c, err)
	}
}

// buildCommand renders the RESP multi-bulk command for op, following the
// exact key-name templates (string:/list:/hash:/key:).
func buildCommand(op optab.Op, k, h uint64, e *Engine) []byte {
	switch op {
	case optab.OpSet:
		return protocol.Encode("SET", fmt.Sprintf("string:%d", k), e.generatePayload(k))
	case optab.OpGet:
		return protocol.Encode("GET", fmt.Sprintf("string:%d", k))
	case optab.OpDel:
		return protocol.Encode("DEL",
			fmt.Sprintf("string:%d", k),
			fmt.Sprintf("list:%d", k),
			fmt.Sprintf("hash:%d", k))
	case optab.OpLPush:
		return protocol.Encode("LPUSH", fmt.Sprintf("list:%d", k), e.generatePayload(k))
	case optab.OpLPop:
		return protocol.Encode("LPOP", fmt.Sprintf("list:%d", k))
	case optab.OpHSet:
		return protocol.Encode("HSET", fmt.Sprintf("hash:%d", k), fmt.Sprintf("key:%d", h), e.generatePayload(k))
	case optab.OpHGet:
		return protocol.Encode("HGET", fmt.Sprintf("hash:%d", k), fmt.Sprintf("key:%d", h))
	case optab.OpHGetAll:
		return protocol.Encode("HGETALL", fmt.Sprintf("hash:%d", k))
	case optab.OpSwapIn:
		return protocol.Encode("DEBUG", "SWAPIN", fmt.Sprintf("string:%d", k))
	default:
		panic(fmt.Sprintf("engine: buildCommand called with unhandled op %v", op))
	}
}
