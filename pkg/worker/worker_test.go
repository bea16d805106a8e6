package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/nova-guide/internal/log"
)

func cooperative(ctx context.Context, stop <-chan struct{}) error {
	select {
	case <-stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestHandle_Lifecycle(t *testing.T) {
	h := New("coop", cooperative, WithLogger(log.Discard()))
	assert.Equal(t, NotStarted, h.State())
	assert.False(t, h.Alive())

	require.NoError(t, h.Start(context.Background()))
	assert.Equal(t, Running, h.State())
	assert.True(t, h.Alive())

	h.RequestStop()
	require.True(t, h.Join(time.Second))
	assert.Equal(t, Stopped, h.State())
	assert.False(t, h.Alive())
	assert.NoError(t, h.Err())
	assert.False(t, h.Forced())
}

func TestHandle_StartTwice(t *testing.T) {
	h := New("twice", cooperative, WithLogger(log.Discard()))
	require.NoError(t, h.Start(context.Background()))
	defer StopAndJoin(h, time.Second, time.Second)

	err := h.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestHandle_RequestStopBeforeStart(t *testing.T) {
	h := New("idle", cooperative, WithLogger(log.Discard()))
	h.RequestStop()
	assert.Equal(t, Stopped, h.State())
	assert.True(t, h.Join(0))
}

func TestHandle_ExitsOnItsOwn(t *testing.T) {
	boom := errors.New("stream hiccup")
	h := New("faulty", func(ctx context.Context, stop <-chan struct{}) error {
		return boom
	}, WithLogger(log.Discard()))

	require.NoError(t, h.Start(context.Background()))
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not exit")
	}
	assert.False(t, h.Alive())
	assert.ErrorIs(t, h.Err(), boom)
}

func TestHandle_PanicBecomesError(t *testing.T) {
	h := New("panicky", func(ctx context.Context, stop <-chan struct{}) error {
		panic("camera unplugged")
	}, WithLogger(log.Discard()))

	require.NoError(t, h.Start(context.Background()))
	require.True(t, h.Join(time.Second))
	assert.ErrorIs(t, h.Err(), ErrPanicked)
}

func TestJoinOrTerminate(t *testing.T) {
	t.Run("cooperative worker joins", func(t *testing.T) {
		h := New("coop", cooperative, WithLogger(log.Discard()))
		require.NoError(t, h.Start(context.Background()))

		assert.Equal(t, Joined, StopAndJoin(h, time.Second, time.Second))
		assert.False(t, h.Forced())
	})

	t.Run("worker ignoring stop flag is terminated", func(t *testing.T) {
		// Only honours ctx, never the stop channel.
		h := New("ctx-only", func(ctx context.Context, stop <-chan struct{}) error {
			<-ctx.Done()
			return ctx.Err()
		}, WithLogger(log.Discard()))
		require.NoError(t, h.Start(context.Background()))

		start := time.Now()
		assert.Equal(t, Terminated, StopAndJoin(h, 50*time.Millisecond, time.Second))
		assert.Less(t, time.Since(start), time.Second)
		assert.True(t, h.Forced())
		assert.Equal(t, Stopped, h.State())
	})

	t.Run("terminator hook unblocks I/O", func(t *testing.T) {
		unblock := make(chan struct{})
		var hooked atomic.Int32
		h := New("blocked-io", func(ctx context.Context, stop <-chan struct{}) error {
			<-unblock
			return nil
		}, WithLogger(log.Discard()), WithTerminator(func() {
			hooked.Add(1)
			close(unblock)
		}))
		require.NoError(t, h.Start(context.Background()))

		assert.Equal(t, Terminated, StopAndJoin(h, 20*time.Millisecond, time.Second))
		assert.Equal(t, int32(1), hooked.Load())
	})

	t.Run("hung worker is abandoned within bound", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		h := New("hung", func(ctx context.Context, stop <-chan struct{}) error {
			<-release
			return nil
		}, WithLogger(log.Discard()))
		require.NoError(t, h.Start(context.Background()))

		start := time.Now()
		outcome := StopAndJoin(h, 30*time.Millisecond, 30*time.Millisecond)
		elapsed := time.Since(start)

		assert.Equal(t, Abandoned, outcome)
		assert.True(t, h.Abandoned())
		assert.Equal(t, Stopped, h.State())
		assert.Less(t, elapsed, 500*time.Millisecond)
	})

	t.Run("nil and unstarted handles", func(t *testing.T) {
		assert.Equal(t, NeverStarted, JoinOrTerminate(nil, time.Second, time.Second))
		h := New("never", cooperative, WithLogger(log.Discard()))
		assert.Equal(t, NeverStarted, StopAndJoin(h, time.Second, time.Second))
		assert.Equal(t, Stopped, h.State())
		select {
		case <-h.Done():
		default:
			t.Fatal("done not closed for an unstarted handle")
		}
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "stop_requested", StopRequested.String())
	assert.Equal(t, "abandoned", Abandoned.String())
}
