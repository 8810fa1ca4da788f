package engine

import (
	"time"

	"github.com/antirez/redis-tools/internal/optab"
	"github.com/antirez/redis-tools/internal/protocol"
)

// connState is the connection's progress through the request/reply cycle.
// Completing a reply is not a state the event loop waits in: it's computed
// synchronously once a reply finishes parsing, inside the same callback
// invocation that parsed it.
type connState int

const (
	stateConnecting connState = iota
	stateSending
	stateReading
)

// client is one pooled connection. It is addressed indirectly, through a
// stable arena slot plus a generation counter, so a readiness callback
// that fires for an fd whose client was already torn down earlier in the
// same epoll_wait batch can recognize that and no-op.
type client struct {
	fd         int
	generation uint32
	slot       int

	state connState

	writeBuf []byte
	writeOff int

	dec protocol.Decoder

	op       optab.Op
	keyID    uint64
	hashID   uint64
	reqStart time.Time

	// idle is true once this client has been told to go inert (idle mode
	// or a swallowed IDLE op): it keeps its socket open but is no longer
	// registered for any readiness events.
	idle bool
}

func (c *client) reset() {
	c.writeBuf = c.writeBuf[:0]
	c.writeOff = 0
	c.dec.Reset()
}
