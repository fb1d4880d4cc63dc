// ABOUTME: Synchronous observer list used by stateful client components
// ABOUTME: Subscribe returns an unsubscribe func; Notify calls listeners in subscription order

package notify

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Subject fans a value out to its listeners. Listeners run synchronously on the
// goroutine that calls Notify, so a component that notifies from its owning
// event loop delivers every transition before its method returns.
type Subject[T any] struct {
	mu        sync.Mutex
	listeners map[string]func(T)
	order     []string
	logger    *slog.Logger
}

// NewSubject creates a subject. Pass nil logger for default.
func NewSubject[T any](name string, logger *slog.Logger) *Subject[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subject[T]{
		listeners: make(map[string]func(T)),
		logger:    logger.With("component", "notify", "subject", name),
	}
}

// Subscribe registers fn and returns a func that removes it.
// The returned func is safe to call more than once.
func (s *Subject[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	id := uuid.New().String()

	s.mu.Lock()
	s.listeners[id] = fn
	s.order = append(s.order, id)
	s.mu.Unlock()

	s.logger.Debug("listener added", "sub_id", id)

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

// Notify calls every current listener with v. Listeners added or removed while
// Notify is running take effect on the next call.
func (s *Subject[T]) Notify(v T) {
	s.mu.Lock()
	targets := make([]func(T), 0, len(s.order))
	for _, id := range s.order {
		targets = append(targets, s.listeners[id])
	}
	s.mu.Unlock()

	for _, fn := range targets {
		fn(v)
	}
}

// Len reports the number of registered listeners.
func (s *Subject[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Clear removes all listeners.
func (s *Subject[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = make(map[string]func(T))
	s.order = nil
	s.logger.Debug("listeners cleared")
}

func (s *Subject[T]) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listeners[id]; !ok {
		return
	}
	delete(s.listeners, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	s.logger.Debug("listener removed", "sub_id", id)
}
