// ABOUTME: Tests for the serial event loop
// ABOUTME: Covers ordering, Do round trips, panic isolation, and shutdown behavior

package eventloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()

	l := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})
	return l
}

func TestLoop_RunsInPostOrder(t *testing.T) {
	l := startLoop(t)

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		require.True(t, l.Post(func() { got = append(got, i) }))
	}

	var snapshot []int
	require.NoError(t, l.Do(context.Background(), func() {
		snapshot = append(snapshot, got...)
	}))

	require.Len(t, snapshot, 100)
	for i, v := range snapshot {
		assert.Equal(t, i, v)
	}
}

func TestLoop_PostFromManyGoroutinesIsSerialized(t *testing.T) {
	l := startLoop(t)

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				l.Post(func() { counter++ })
			}
		}()
	}
	wg.Wait()

	var final int
	require.NoError(t, l.Do(context.Background(), func() { final = counter }))
	assert.Equal(t, 1000, final)
}

func TestLoop_PanicAbortsOnlyThatEvent(t *testing.T) {
	l := startLoop(t)

	l.Post(func() { panic("boom") })

	ran := false
	require.NoError(t, l.Do(context.Background(), func() { ran = true }))
	assert.True(t, ran)
}

func TestLoop_PostAfterCloseIsDropped(t *testing.T) {
	l := New(nil)
	l.Close()
	l.Close()

	assert.False(t, l.Post(func() {}))
	assert.ErrorIs(t, l.Do(context.Background(), func() {}), ErrClosed)
	assert.ErrorIs(t, l.Run(context.Background()), ErrClosed)
}

func TestLoop_DoRespectsContext(t *testing.T) {
	// Loop never runs, so Do can only return through ctx
	l := New(nil)
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Do(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	l := New(nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	select {
	case <-l.Done():
	default:
		t.Fatal("Done not closed after Run returned")
	}
	assert.False(t, l.Post(func() {}))
}

func TestLoop_NilPostRejected(t *testing.T) {
	l := New(nil)
	defer l.Close()
	assert.False(t, l.Post(nil))
}
