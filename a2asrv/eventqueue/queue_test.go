package eventqueue_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a2arelay/a2arelay/a2a"
	"github.com/a2arelay/a2arelay/a2asrv/eventqueue"
)

func TestQueue_FIFOOrder(t *testing.T) {
	q := eventqueue.New(0)
	q.Enqueue(a2a.Task{ID: "1"})
	q.Enqueue(a2a.Task{ID: "2"})
	q.Enqueue(a2a.Task{ID: "3"})

	for _, want := range []string{"1", "2", "3"} {
		e, err := q.Dequeue(false)
		require.NoError(t, err)
		assert.Equal(t, want, e.(a2a.Task).ID)
	}
	_, err := q.Dequeue(false)
	assert.ErrorIs(t, err, eventqueue.ErrEmpty)
}

func TestQueue_DequeueBlockWakesOnEnqueue(t *testing.T) {
	q := eventqueue.New(0)
	done := make(chan a2a.Event, 1)
	go func() {
		e, err := q.Dequeue(true)
		if err == nil {
			done <- e
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Enqueue(a2a.Task{ID: "x"})

	select {
	case e := <-done:
		assert.Equal(t, "x", e.(a2a.Task).ID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for blocking dequeue")
	}
}

func TestQueue_EnqueueAfterCloseIsNoop(t *testing.T) {
	q := eventqueue.New(0)
	q.Close(false)
	q.Enqueue(a2a.Task{ID: "dropped"})

	_, err := q.Dequeue(false)
	assert.ErrorIs(t, err, eventqueue.ErrClosed)
}

func TestQueue_GracefulCloseDrainsBuffered(t *testing.T) {
	q := eventqueue.New(0)
	q.Enqueue(a2a.Task{ID: "1"})
	q.Close(false)

	e, err := q.Dequeue(false)
	require.NoError(t, err)
	assert.Equal(t, "1", e.(a2a.Task).ID)

	_, err = q.Dequeue(false)
	assert.ErrorIs(t, err, eventqueue.ErrClosed)
}

func TestQueue_ImmediateCloseDiscardsBuffered(t *testing.T) {
	q := eventqueue.New(0)
	q.Enqueue(a2a.Task{ID: "1"})
	q.Close(true)

	_, err := q.Dequeue(false)
	assert.ErrorIs(t, err, eventqueue.ErrClosed)
}

func TestQueue_TapSeesOnlyFutureEvents(t *testing.T) {
	// a tap created at time τ sees only events enqueued at or after τ,
	// none dequeued before it.
	q := eventqueue.New(0)
	q.Enqueue(a2a.Task{ID: "1"})
	_, _ = q.Dequeue(false)

	tap := q.Tap()
	q.Enqueue(a2a.Task{ID: "2"})
	q.Enqueue(a2a.Task{ID: "3"})

	e1, err := tap.Dequeue(false)
	require.NoError(t, err)
	assert.Equal(t, "2", e1.(a2a.Task).ID)
	e2, err := tap.Dequeue(false)
	require.NoError(t, err)
	assert.Equal(t, "3", e2.(a2a.Task).ID)
}

func TestQueue_CloseIsTransitiveToTaps(t *testing.T) {
	q := eventqueue.New(0)
	tap := q.Tap()
	q.Close(true)

	assert.True(t, tap.Closed())
	_, err := tap.Dequeue(false)
	assert.ErrorIs(t, err, eventqueue.ErrClosed)
}

func TestQueue_CloseIsIdempotent(t *testing.T) {
	q := eventqueue.New(0)
	q.Close(false)
	assert.NotPanics(t, func() { q.Close(false) })
	assert.NotPanics(t, func() { q.Close(true) })
}

func TestManager_CreateOrTap(t *testing.T) {
	m := eventqueue.NewManager()
	q1, created1 := m.CreateOrTap("t1", 0)
	require.True(t, created1)
	q2, created2 := m.CreateOrTap("t1", 0)
	require.False(t, created2)

	q1.Enqueue(a2a.Task{ID: "x"})
	e, err := q2.Dequeue(false)
	require.NoError(t, err)
	assert.Equal(t, "x", e.(a2a.Task).ID)
}

func TestManager_TapAbsentReturnsNil(t *testing.T) {
	m := eventqueue.NewManager()
	assert.Nil(t, m.Tap("missing"))
}

func TestManager_AddDuplicateErrors(t *testing.T) {
	m := eventqueue.NewManager()
	require.NoError(t, m.Add("t1", eventqueue.New(0)))
	assert.Error(t, m.Add("t1", eventqueue.New(0)))
}
