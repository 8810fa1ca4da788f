// Package engine is the asynchronous client engine: the event-loop-driven
// pool of non-blocking connections that is the core of this benchmark
// tool. Everything here runs on a single goroutine except the
// signal-handling goroutine Run starts, which only ever touches the
// engine through the ctrlc atomic flag.
package engine

import (
	"fmt"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/antirez/redis-tools/internal/config"
	"github.com/antirez/redis-tools/internal/distribution"
	"github.com/antirez/redis-tools/internal/eventloop"
	"github.com/antirez/redis-tools/internal/histogram"
	"github.com/antirez/redis-tools/internal/keystream"
	"github.com/antirez/redis-tools/internal/logging"
	"github.com/antirez/redis-tools/internal/metrics"
	"github.com/antirez/redis-tools/internal/optab"
)

// Engine owns every piece of mutable benchmark state: configuration, RNG
// state, the client arena, and the histogram. It replaces the reference
// tool's global config struct and file-scope static client list (design
// notes 9) with a single value threaded explicitly into every callback.
type Engine struct {
	opts    config.Options
	loop    *eventloop.Loop
	logger  *logging.Logger
	metrics *metrics.Recorder

	histogram *histogram.Histogram
	optable   optab.Table

	rng           *rand.Rand
	payloadStream *keystream.Stream

	serverIP net.IP

	clients    []*client
	freeSlots  []int
	genCounter uint32
	live       int

	issued   int
	done     bool
	ctrlc    int32 // atomic: 0 = running, >=1 = draining, >=2 triggers hard exit
	fatalErr error

	payloadMin, payloadMax, payloadSum, payloadCount uint64

	consecutiveConnectFailures int

	startTime time.Time
	clock     func() time.Time // nil in production; overridden in tests
}

// interrupted reports whether a SIGINT has latched a graceful drain.
func (e *Engine) interrupted() bool {
	return atomic.LoadInt32(&e.ctrlc) >= 1
}

// New builds an Engine ready to Run. It resolves the server address and
// creates the epoll loop eagerly so configuration errors surface before
// any connection attempt.
func New(opts config.Options, logger *logging.Logger, rec *metrics.Recorder) (*Engine, error) {
	ip, err := resolveServer(opts.Host)
	if err != nil {
		return nil, fmt.Errorf("engine: resolving host %q: %w", opts.Host, err)
	}
	loop, err := eventloop.New()
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	var table optab.Table
	if opts.Idle {
		table = optab.BuildIdle()
	} else {
		table = optab.Build(opts.Percentages)
	}

	e := &Engine{
		opts:          opts,
		loop:          loop,
		logger:        logger,
		metrics:       rec,
		histogram:     &histogram.Histogram{},
		optable:       table,
		rng:           rand.New(rand.NewSource(int64(opts.PRNGSeed))),
		payloadStream: keystream.New(0),
		serverIP:      ip,
	}
	return e, nil
}

// recordPayload folds one generated payload's length into the min/max/mean
// stats the report prints.
func (e *Engine) recordPayload(n int) {
	u := uint64(n)
	if e.payloadCount == 0 || u < e.payloadMin {
		e.payloadMin = u
	}
	if u > e.payloadMax {
		e.payloadMax = u
	}
	e.payloadSum += u
	e.payloadCount++
}

// PayloadStats returns the min, max, and mean length (in bytes) of every
// payload generated this run. If no payload was ever generated (e.g. a
// pure GET/idle workload), all three are zero.
func (e *Engine) PayloadStats() (min, max uint64, mean float64) {
	if e.payloadCount == 0 {
		return 0, 0, 0
	}
	return e.payloadMin, e.payloadMax, float64(e.payloadSum) / float64(e.payloadCount)
}

// nextKey draws a key identity from [0, keyspace) via the configured
// distribution.
func (e *Engine) nextKey(keyspace uint64) uint64 {
	return distribution.NextKey(e.rng, keyspace, e.opts.LongTail, e.opts.LongTailOrder)
}

func (e *Engine) allocSlot() (slot int, gen uint32) {
	if n := len(e.freeSlots); n > 0 {
		slot = e.freeSlots[n-1]
		e.freeSlots = e.freeSlots[:n-1]
	} else {
		slot = len(e.clients)
		e.clients = append(e.clients, nil)
	}
	e.genCounter++
	return slot, e.genCounter
}

// removeClient tears a client out of the arena and closes its socket. It
// never logs and never replenishes the pool on its own: callers decide
// both, since the right behavior differs between "this was an error" and
// "this was a graceful non-keepalive close".
func (e *Engine) removeClient(c *client) {
	if e.clients[c.slot] != c {
		return // already removed
	}
	if !c.idle {
		_ = e.loop.Unregister(c.fd)
	}
	unix.Close(c.fd)
	e.clients[c.slot] = nil
	e.freeSlots = append(e.freeSlots, c.slot)
	e.live--
	if e.metrics != nil {
		e.metrics.SetInFlight(e.live)
	}
	if e.live == 0 && (e.done || e.interrupted()) {
		e.loop.Stop()
	}
}

// teardown handles an unexpected disconnect (I/O error, server EOF). It
// logs (unless err is nil, the silent-close case for a server-initiated
// EPIPE), counts it in metrics, and replenishes the pool unless the
// benchmark is winding down.
func (e *Engine) teardown(c *client, err error) {
	e.removeClient(c)
	if err != nil {
		e.logger.Errorf("client fd %d torn down: %v", c.fd, err)
		if e.metrics != nil {
			e.metrics.ObserveError()
		}
	}
	if !e.done && !e.interrupted() {
		e.createMissing()
	}
}

// closeQuiet removes a client without logging: the server closed the
// connection on a write, which is not noteworthy on its own.
func (e *Engine) closeQuiet(c *client) {
	e.teardown(c, nil)
}

// fatal records a protocol violation or integrity failure, logs it with
// whatever structured fields the error carries, and stops the loop
// immediately; the driver converts this into exit code 1.
func (e *Engine) fatal(err error) {
	if e.fatalErr == nil {
		e.fatalErr = err
		e.logger.Fatal("benchmark stopped on a fatal error", fatalFields(err)...)
	}
	e.loop.Stop()
}

// fatalFields extracts the structured key/value pairs worth logging
// alongside a fatal error, if err is a type this package recognizes.
func fatalFields(err error) []interface{} {
	if ie, ok := err.(*IntegrityError); ok {
		return []interface{}{
			"key", ie.Key,
			"wantLen", ie.WantLen,
			"gotLen", ie.GotLen,
			"mismatch", ie.Mismatch,
			"error", ie.Error(),
		}
	}
	return []interface{}{"error", err.Error()}
}

// maxConsecutiveConnectFailures bounds the reconnect storm a permanently
// unreachable server would otherwise cause: every teardown with no
// successful connect in between tries createMissing again immediately.
const maxConsecutiveConnectFailures = 20

// Run drives one benchmark pass: it spawns the initial pool, handles
// SIGINT/SIGHUP, and blocks until the request budget is exhausted or
// Ctrl-C drains the in-flight pool. It returns the first fatal error, if
// any.
func (e *Engine) Run() error {
	e.loop.Reset()
	e.startTime = e.now()
	e.issued = 0
	e.done = false
	e.fatalErr = nil
	e.histogram.Reset()
	e.payloadMin, e.payloadMax, e.payloadSum, e.payloadCount = 0, 0, 0, 0
	e.consecutiveConnectFailures = 0
	atomic.StoreInt32(&e.ctrlc, 0)

	signal.Ignore(syscall.SIGHUP)
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT)
	defer close(sigCh)
	defer signal.Stop(sigCh)

	go func() {
		for range sigCh {
			if atomic.AddInt32(&e.ctrlc, 1) >= 2 {
				e.logger.Warnf("second interrupt received, aborting immediately")
				os.Exit(1)
			}
			fmt.Fprintln(os.Stdout, "Waiting for pending requests to complete...")
			e.logger.Warnf("waiting for pending requests to finish, interrupt again to abort")
		}
	}()

	e.createMissing()
	if e.live == 0 {
		if e.fatalErr == nil && !e.done {
			e.fatalErr = fmt.Errorf("could not establish any connection to %s:%d", e.opts.Host, e.opts.Port)
		}
		return e.fatalErr
	}
	if err := e.loop.Run(); err != nil {
		return err
	}
	return e.fatalErr
}

// Histogram exposes the completed pass's latency distribution for
// reporting.
func (e *Engine) Histogram() *histogram.Histogram { return e.histogram }

// Issued returns how many requests were dispatched during the run.
func (e *Engine) Issued() int { return e.issued }

// Elapsed returns the wall-clock duration of the most recent Run call.
func (e *Engine) Elapsed() time.Duration { return e.now().Sub(e.startTime) }

// FatalErr returns the error that stopped the run, if the run ended due
// to a protocol violation or integrity failure rather than budget
// exhaustion.
func (e *Engine) FatalErr() error { return e.fatalErr }
