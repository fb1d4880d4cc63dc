// ABOUTME: Tests for the synchronous observer Subject
// ABOUTME: Covers ordering, unsubscribe semantics, and listener mutation during Notify

package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubject_NotifiesInSubscriptionOrder(t *testing.T) {
	s := NewSubject[int]("test", nil)

	var calls []string
	s.Subscribe(func(v int) { calls = append(calls, "a") })
	s.Subscribe(func(v int) { calls = append(calls, "b") })
	s.Subscribe(func(v int) { calls = append(calls, "c") })

	s.Notify(1)
	assert.Equal(t, []string{"a", "b", "c"}, calls)
}

func TestSubject_DeliversBeforeNotifyReturns(t *testing.T) {
	s := NewSubject[string]("test", nil)

	got := ""
	s.Subscribe(func(v string) { got = v })
	s.Notify("ready")

	assert.Equal(t, "ready", got)
}

func TestSubject_UnsubscribeIsIdempotent(t *testing.T) {
	s := NewSubject[int]("test", nil)

	count := 0
	unsub := s.Subscribe(func(int) { count++ })
	other := s.Subscribe(func(int) {})

	unsub()
	unsub()
	s.Notify(1)

	assert.Equal(t, 0, count)
	assert.Equal(t, 1, s.Len())

	other()
	assert.Equal(t, 0, s.Len())
}

func TestSubject_UnsubscribeDuringNotify(t *testing.T) {
	s := NewSubject[int]("test", nil)

	var unsub func()
	first := 0
	second := 0
	unsub = s.Subscribe(func(int) {
		first++
		unsub()
	})
	s.Subscribe(func(int) { second++ })

	s.Notify(1)
	s.Notify(2)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestSubject_Clear(t *testing.T) {
	s := NewSubject[int]("test", nil)
	called := false
	s.Subscribe(func(int) { called = true })

	s.Clear()
	s.Notify(1)

	assert.False(t, called)
	assert.Equal(t, 0, s.Len())
}
