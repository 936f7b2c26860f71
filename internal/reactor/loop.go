// Package reactor implements the single-goroutine event loop that owns
// all session state in the connection-handling process.
//
// Socket readers, writers, timers and resolver lookups run on their
// own goroutines but never touch session state directly; they Post a
// callback and the loop runs callbacks one at a time, to completion.
// Anything reachable only from loop callbacks therefore needs no
// locking.
package reactor

import (
	"context"
	"sync"
	"time"
)

// Poster queues a callback for execution on the loop.
type Poster interface {
	Post(fn func()) bool
}

// Loop is a FIFO of callbacks drained by Run.
type Loop struct {
	events chan func()
	done   chan struct{}
	once   sync.Once
}

// New returns a loop whose queue holds up to queue pending callbacks.
// Post blocks while the queue is full.
func New(queue int) *Loop {
	if queue < 1 {
		queue = 1
	}
	return &Loop{
		events: make(chan func(), queue),
		done:   make(chan struct{}),
	}
}

// Post queues fn.  It returns false if the loop has stopped, in which
// case fn will never run.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.events <- fn:
		return true
	case <-l.done:
		return false
	}
}

// AfterFunc runs fn on the loop once d has elapsed.  The returned
// timer may be stopped to cancel the callback if it has not yet been
// queued.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *time.Timer {
	return time.AfterFunc(d, func() { l.Post(fn) })
}

// Run executes callbacks until ctx is cancelled.  Callbacks still
// queued at that point are discarded.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop()
	for {
		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.events:
			fn()
		}
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

func (l *Loop) stop() {
	l.once.Do(func() { close(l.done) })
}
