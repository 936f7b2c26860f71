package reactor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop_RunsInOrder(t *testing.T) {
	l := New(16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx) //nolint:errcheck

	got := make(chan int, 3)
	for i := 1; i <= 3; i++ {
		i := i
		require.True(t, l.Post(func() { got <- i }))
	}

	for want := 1; want <= 3; want++ {
		select {
		case v := <-got:
			assert.Equal(t, want, v)
		case <-time.After(time.Second):
			t.Fatal("callback did not run")
		}
	}
}

func TestLoop_AfterFuncRunsOnLoop(t *testing.T) {
	l := New(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx) //nolint:errcheck

	// The counter is only touched from loop callbacks.
	count := 0
	fired := make(chan int, 1)
	l.AfterFunc(20*time.Millisecond, func() {
		count++
		fired <- count
	})

	select {
	case v := <-fired:
		assert.Equal(t, 1, v)
	case <-time.After(time.Second):
		t.Fatal("timer callback did not run")
	}
}

func TestLoop_StoppedTimerNeverFires(t *testing.T) {
	l := New(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx) //nolint:errcheck

	fired := make(chan struct{}, 1)
	tm := l.AfterFunc(50*time.Millisecond, func() { fired <- struct{}{} })
	require.True(t, tm.Stop())

	select {
	case <-fired:
		t.Fatal("stopped timer fired")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestLoop_PostAfterStop(t *testing.T) {
	l := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx) //nolint:errcheck
		close(done)
	}()

	cancel()
	<-done

	assert.False(t, l.Post(func() {}), "Post after Run returned must report false")
	select {
	case <-l.Done():
	default:
		t.Fatal("Done should be closed")
	}
}

func TestLoop_PostUnblocksOnStop(t *testing.T) {
	l := New(1)
	require.True(t, l.Post(func() {})) // fills the queue; loop not running

	result := make(chan bool, 1)
	go func() { result <- l.Post(func() {}) }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l.Run(ctx) //nolint:errcheck

	select {
	case <-result:
		// Either outcome is fine as long as Post returned.
	case <-time.After(time.Second):
		t.Fatal("Post stayed blocked after the loop stopped")
	}
}

func TestLoop_CancelledBeforeRunSkipsQueued(t *testing.T) {
	l := New(4)
	ran := false
	require.True(t, l.Post(func() { ran = true }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, l.Run(ctx))
	assert.False(t, ran)
}
