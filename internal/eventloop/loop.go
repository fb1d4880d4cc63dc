// ABOUTME: Serial callback dispatcher that runs posted functions one at a time
// ABOUTME: Gives session, transport, and timeline a single owner goroutine for all mutations

package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// ErrClosed is returned when work is posted to a loop that has been closed.
var ErrClosed = errors.New("event loop closed")

// Dispatcher accepts work to run on the owning goroutine.
// Post reports false when the work was dropped because the loop is closed.
type Dispatcher interface {
	Post(fn func()) bool
}

// Loop runs posted functions serially in arrival order. Each function runs to
// completion before the next one starts, so state owned by the loop needs no
// locking. A panic inside one function is logged and aborts only that function.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	closed  bool
	done    chan struct{}
	running bool
	logger  *slog.Logger
}

// New creates a loop. Pass nil logger for default.
func New(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger.With("component", "eventloop"),
	}
}

// Post enqueues fn without blocking the caller.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do posts fn and waits until it has run on the loop.
// It must not be called from the loop goroutine itself.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		// The loop may have drained fn before exiting
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes posted work until ctx is cancelled or Close is called.
// Work still queued when the loop stops is discarded.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return fmt.Errorf("event loop already running")
	}
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.running = true
	l.mu.Unlock()

	defer l.Close()

	for {
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			l.invoke(fn)
			if ctx.Err() != nil {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-l.done:
			return nil
		case <-l.wake:
		}
	}
}

// Close stops accepting work and releases Run. It is safe to call multiple times.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	l.queue = nil
	close(l.done)
}

// Done is closed once the loop stops accepting work.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("event handler panicked",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}
