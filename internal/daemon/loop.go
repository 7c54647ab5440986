// Package daemon hosts the reservation subsystem: a single event loop that
// owns every reservation component, the host that wires them to a window
// system backend, and the periodic reconciler and config watcher.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/deskshell/internal/reservation"
)

// ErrLoopStopped is returned when work is submitted to a stopped loop.
var ErrLoopStopped = errors.New("event loop stopped")

// Loop serializes all reservation work onto one goroutine. Components are
// not locked; they are only ever touched from tasks run here.
type Loop struct {
	queue  chan func()
	done   chan struct{}
	logger *slog.Logger

	stopOnce sync.Once
}

// NewLoop creates a loop with a queue of the given depth.
func NewLoop(depth int, logger *slog.Logger) *Loop {
	if depth <= 0 {
		depth = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		queue:  make(chan func(), depth),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Run processes tasks until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return
		case <-l.done:
			return
		case fn := <-l.queue:
			l.run(fn)
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if err := recover(); err != nil {
			l.logger.Error("event loop task panic recovered", "error", err)
		}
	}()
	fn()
}

// Post queues fn without blocking. It reports false when the queue is full
// or the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	default:
		l.logger.Warn("event loop queue full, dropping task")
		return false
	}
}

// Do runs fn on the loop and waits for it. Tasks posted earlier run first.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	task := func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
			result <- err
		}()
		err = fn()
	}

	select {
	case l.queue <- task:
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop ends Run. Queued tasks are dropped.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Stopped reports whether Stop has been called.
func (l *Loop) Stopped() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// loopTimer fires its callback on the loop. Stop is called on the loop too,
// so the stopped flag needs no lock.
type loopTimer struct {
	t       *time.Timer
	stopped bool
}

func (lt *loopTimer) Stop() bool {
	lt.stopped = true
	return lt.t.Stop()
}

// AfterFunc implements reservation.Scheduler. f runs on the loop unless the
// timer was stopped first, even if it had already expired.
func (l *Loop) AfterFunc(d time.Duration, f func()) reservation.Timer {
	lt := &loopTimer{}
	lt.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if !lt.stopped {
				f()
			}
		})
	})
	return lt
}
