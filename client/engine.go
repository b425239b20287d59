// Package client implements the asynchronous client engine.
//
// One Engine owns one goroutine locked to an OS thread and one readiness
// multiplexer. Every call is driven by that goroutine alone:
//
//	caller ──Submit(call)──→ queue ──wake──→ engine loop
//	                                           │ wait(nearest deadline)
//	                                           │ advance ready calls
//	                                           │ expire overdue calls
//	                                           └ admit queued calls
//
// Callbacks run on the engine goroutine and must not block: a slow callback
// delays every other call in flight.
package client

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Submitter accepts prepared calls. The Engine implements it; middleware
// wraps it.
type Submitter interface {
	Submit(c *Call) error
}

// EngineConfig tunes an Engine.
type EngineConfig struct {
	// PollBatch is the most readiness events handled per wait.
	PollBatch int
}

// Stats counts call outcomes since the engine started.
type Stats struct {
	Submitted uint64
	Completed uint64
	Failed    uint64
	TimedOut  uint64
}

// Engine drives asynchronous calls to completion on a dedicated goroutine.
type Engine struct {
	log    *zap.Logger
	poller *poller

	mu      sync.Mutex // guards queue, running transitions and poller lifetime
	queue   []*Call
	running atomic.Bool

	// Owned by the loop goroutine.
	calls    map[int]*Call
	timeouts timeoutIndex
	admitted uint64

	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	timedOut  atomic.Uint64

	done chan struct{}
}

var _ Submitter = (*Engine)(nil)

// NewEngine creates the multiplexer and starts the engine goroutine.
// A nil logger discards log output.
func NewEngine(cfg EngineConfig, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p, err := newPoller(cfg.PollBatch)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		log:    logger.Named("engine"),
		poller: p,
		calls:  make(map[int]*Call),
		done:   make(chan struct{}),
	}
	e.running.Store(true)
	go e.run()
	return e, nil
}

// Submit hands c to the engine goroutine and wakes it. It fails with
// ErrEngineNotRunning once the engine has stopped.
func (e *Engine) Submit(c *Call) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running.Load() {
		return ErrEngineNotRunning
	}
	e.queue = append(e.queue, c)
	e.submitted.Add(1)
	if err := e.poller.wake(); err != nil {
		e.log.Warn("failed to wake engine", zap.Error(err))
	}
	return nil
}

// Stop asks the engine goroutine to exit. Calls still in flight are closed
// without a callback. Stop is idempotent and does not wait; use Done.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running.Load() {
		return
	}
	e.running.Store(false)
	if err := e.poller.wake(); err != nil {
		e.log.Warn("failed to wake engine", zap.Error(err))
	}
}

// Done is closed when the engine goroutine has exited.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Running reports whether Submit would accept calls.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Stats returns a snapshot of the outcome counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Submitted: e.submitted.Load(),
		Completed: e.completed.Load(),
		Failed:    e.failed.Load(),
		TimedOut:  e.timedOut.Load(),
	}
}

func (e *Engine) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer e.shutdown()

	for e.running.Load() {
		if err := e.iterate(); err != nil {
			e.log.Error("readiness wait failed, stopping engine", zap.Error(err))
			e.mu.Lock()
			e.running.Store(false)
			e.mu.Unlock()
			return
		}
	}
}

// iterate runs one wait/advance/expire/admit cycle. A panic while driving a
// call fails that call alone; any other panic is logged and the loop carries
// on with the next cycle.
func (e *Engine) iterate() (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("recovered from panic in engine loop", zap.Any("panic", r), zap.Stack("stack"))
			err = nil
		}
	}()

	events, err := e.poller.wait(e.timeouts.next(time.Now()))
	if err != nil {
		return err
	}

	for _, ev := range events {
		c, ok := e.calls[ev.fd]
		if !ok {
			continue
		}
		e.drive(c, func() {
			c.advance(ev.ready, e.poller)
			if c.IsTerminal() {
				e.finish(c)
			}
		})
	}

	now := time.Now()
	for c := e.timeouts.popExpired(now); c != nil; c = e.timeouts.popExpired(now) {
		e.drive(c, func() {
			c.fail(&TimeoutError{Method: c.method, SeqID: c.seqID, Elapsed: now.Sub(c.started)})
			e.timedOut.Add(1)
			e.log.Debug("call timed out", zap.String("method", c.method), zap.Int32("seq", c.seqID))
			e.finish(c)
		})
	}

	e.admit()
	return nil
}

func (e *Engine) admit() {
	e.mu.Lock()
	queued := e.queue
	e.queue = nil
	e.mu.Unlock()

	for _, c := range queued {
		e.drive(c, func() {
			e.admitted++
			c.admitted = e.admitted
			if err := c.start(e.poller); err != nil {
				e.log.Warn("failed to register call",
					zap.String("method", c.method), zap.Int32("seq", c.seqID), zap.Error(err))
				c.fail(err)
				e.finish(c)
				return
			}
			e.calls[c.sock.fd] = c
			if _, ok := c.Deadline(); ok {
				e.timeouts.insert(c)
			}
		})
	}
}

// drive runs step for c. If step panics, c fails with a *PanicError and is
// finished so its callback still runs exactly once.
func (e *Engine) drive(c *Call, step func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		e.log.Error("recovered from panic while driving call",
			zap.String("method", c.method), zap.Int32("seq", c.seqID), zap.Any("panic", r), zap.Stack("stack"))
		c.fail(&PanicError{Method: c.method, SeqID: c.seqID, Value: r})
		e.finish(c)
	}()
	step()
}

// finish unregisters a terminal call, closes its channel when the call
// failed or its stream position is unknown, and delivers its result.
func (e *Engine) finish(c *Call) {
	e.timeouts.remove(c)
	if fd := c.sock.fd; fd >= 0 {
		if e.calls[fd] == c {
			delete(e.calls, fd)
			e.poller.remove(fd)
		}
		if c.state == Error {
			c.sock.close()
		}
	}
	if c.err != nil {
		e.failed.Add(1)
	} else {
		e.completed.Add(1)
	}
	e.deliver(c)
}

func (e *Engine) deliver(c *Call) {
	if c.delivered {
		return
	}
	c.delivered = true
	res := c.outcome(time.Now())
	c.handle.complete(c, res.Err)
	if c.callback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("recovered from panic in call callback",
				zap.String("method", c.method), zap.Int32("seq", c.seqID), zap.Any("panic", r))
		}
	}()
	c.callback(res)
}

func (e *Engine) shutdown() {
	e.mu.Lock()
	dropped := len(e.queue)
	e.queue = nil
	e.poller.close()
	e.mu.Unlock()

	for fd, c := range e.calls {
		c.sock.close()
		delete(e.calls, fd)
	}
	e.timeouts = nil
	stats := e.Stats()
	e.log.Info("engine stopped",
		zap.Int("dropped", dropped),
		zap.Uint64("submitted", stats.Submitted),
		zap.Uint64("completed", stats.Completed),
		zap.Uint64("failed", stats.Failed),
		zap.Uint64("timed_out", stats.TimedOut))
	close(e.done)
}
