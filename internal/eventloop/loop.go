// Package eventloop runs the client core on one goroutine. Every mutation of
// conversation state happens inside a task posted to the loop; blocking work
// runs elsewhere and posts its continuation back.
package eventloop

import (
	"context"
	"sync"
	"time"

	"github.com/renato0307/conduit/internal/logging"
)

// Executor posts tasks to a serial loop and runs blocking work off it
type Executor interface {
	// Go runs fn outside the loop
	Go(fn func())
	// Post queues fn to run on the loop
	Post(fn func())
}

// Loop is an unbounded FIFO of tasks executed by Run
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool
	wake    chan struct{}
}

// New creates an idle loop
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post implements Executor. It never blocks and is safe from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Go implements Executor
func (l *Loop) Go(fn func()) {
	go fn()
}

// AfterFunc implements timer.Scheduler: fn runs on the loop once d elapses
func (l *Loop) AfterFunc(d time.Duration, fn func()) func() bool {
	t := time.AfterFunc(d, func() { l.Post(fn) })
	return t.Stop
}

// Call runs fn on the loop and waits for it to finish
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes tasks in order until ctx is cancelled. Pending tasks are dropped on exit.
func (l *Loop) Run(ctx context.Context) error {
	logging.Logger.Debug("Event loop started")
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
		logging.Logger.Debug("Event loop stopped")
	}()

	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			runTask(fn)
		}

		if len(batch) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.Logger.Error("Recovered panic in loop task", "panic", r)
		}
	}()
	fn()
}

// Await runs work off the loop and delivers its result back on the loop
func Await[T any](e Executor, work func() (T, error), then func(T, error)) {
	e.Go(func() {
		v, err := work()
		e.Post(func() { then(v, err) })
	})
}

// Inline runs everything synchronously on the caller's goroutine.
// Tests use it to make awaits and posts deterministic.
type Inline struct{}

// Go implements Executor
func (Inline) Go(fn func()) { fn() }

// Post implements Executor
func (Inline) Post(fn func()) { fn() }
