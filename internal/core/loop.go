package core

import (
	"sync"
	"time"
)

// Loop is the hub's cooperative scheduler: a single dispatch goroutine
// fed by a thread-safe FIFO task queue. Everything whose relative order
// matters (event listener invocation, fire-and-forget service handlers)
// runs as a loop task, so listeners observe events in the order they
// were published without any further locking discipline.
//
// Submit is safe to call from any goroutine; this is the marshaling
// primitive collaborators use to hand work from their own threads of
// control (MQTT callbacks, HTTP requests, timers) into the hub.
type Loop struct {
	logger Logger

	mu      sync.Mutex
	queue   []func()
	pending int             // queued plus in-flight tasks
	waiters []chan struct{} // closed when pending drops to zero
	stopped bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

// NewLoop creates a loop. Run must be started (via Start) before
// submitted tasks execute.
func NewLoop(logger Logger) *Loop {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Loop{
		logger: logger,
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the dispatch goroutine.
func (l *Loop) Start() {
	go l.run()
}

// Submit enqueues fn for execution on the loop goroutine. It never
// blocks on fn. Returns ErrLoopStopped if the loop has been halted.
func (l *Loop) Submit(fn func()) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrLoopStopped
	}
	l.queue = append(l.queue, fn)
	l.pending++
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// SubmitWait enqueues fn and blocks the calling goroutine until it has
// run, returning its result. Must not be called from the loop goroutine
// itself: a task waiting on its own loop would deadlock.
func (l *Loop) SubmitWait(fn func() (any, error)) (any, error) {
	type result struct {
		value any
		err   error
	}
	ch := make(chan result, 1)
	if err := l.Submit(func() {
		v, err := fn()
		ch <- result{v, err}
	}); err != nil {
		return nil, err
	}
	r := <-ch
	return r.value, r.err
}

// Pending returns the number of queued plus in-flight tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}

// Wait blocks until the loop has no pending work or the timeout elapses.
// New tasks scheduled while waiting extend the wait: Wait only returns
// nil once a fixed point (empty queue, nothing in flight) is observed.
// Returns ErrTimeout on budget overrun, and ErrLoopStopped when the loop
// was halted with an abandoned task still in flight: that work can never
// drain, so waiting on it would be unbounded.
func (l *Loop) Wait(timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		l.mu.Lock()
		if l.pending == 0 {
			l.mu.Unlock()
			return nil
		}
		if l.stopped {
			l.mu.Unlock()
			return ErrLoopStopped
		}
		ch := make(chan struct{})
		l.waiters = append(l.waiters, ch)
		l.mu.Unlock()

		select {
		case <-ch:
			// Drained to zero at notification time; loop to re-check in
			// case a task was scheduled since.
		case <-deadline.C:
			return ErrTimeout
		}
	}
}

// Stop halts the loop. Queued tasks that have not started are dropped
// and a task currently running is abandoned, not interrupted. Safe to
// call more than once.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	dropped := len(l.queue)
	l.queue = nil
	l.pending -= dropped
	l.notifyWaitersLocked()
	l.mu.Unlock()

	if dropped > 0 {
		l.logger.Warn("event loop stopped with tasks pending", "dropped", dropped)
	}
	close(l.quit)
}

// Done returns a channel closed when the dispatch goroutine has exited.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// run is the dispatch goroutine body.
func (l *Loop) run() {
	defer close(l.done)
	for {
		for {
			l.mu.Lock()
			if len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			fn := l.queue[0]
			l.queue = l.queue[1:]
			l.mu.Unlock()

			l.invoke(fn)

			l.mu.Lock()
			l.pending--
			if l.pending == 0 {
				l.notifyWaitersLocked()
			}
			l.mu.Unlock()
		}

		select {
		case <-l.wake:
		case <-l.quit:
			return
		}
	}
}

// invoke runs one task with panic isolation so a failing task cannot
// take down the dispatch goroutine.
func (l *Loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("loop task panic recovered", "panic", r)
		}
	}()
	fn()
}

// notifyWaitersLocked releases every Wait caller. Callers must hold mu.
func (l *Loop) notifyWaitersLocked() {
	for _, ch := range l.waiters {
		close(ch)
	}
	l.waiters = nil
}
