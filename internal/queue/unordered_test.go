package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnorderedQueueIsFIFO(t *testing.T) {
	queue := NewUnorderedQueue[int]("test", 8)
	for i := 0; i < 5; i++ {
		require.NoError(t, queue.Enqueue(i))
	}
	for i := 0; i < 5; i++ {
		item, ok, err := queue.Dequeue()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, i, item)
	}
}

func TestUnorderedQueueDrainsAfterDone(t *testing.T) {
	queue := NewUnorderedQueue[int]("test", 8)
	require.NoError(t, queue.Enqueue(1))
	require.NoError(t, queue.Enqueue(2))
	require.NoError(t, queue.Halt(false))

	item, ok, err := queue.Dequeue()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, item)

	item, ok, err = queue.Dequeue()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, item)

	_, ok, err = queue.Dequeue()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnorderedQueueRejectsEnqueueAfterDone(t *testing.T) {
	queue := NewUnorderedQueue[int]("test", 8)
	require.NoError(t, queue.Halt(false))
	assert.IsType(t, ClosedQueueError{}, queue.Enqueue(1))
}

func TestUnorderedQueueEnqueueBlocksAtCapacity(t *testing.T) {
	queue := NewUnorderedQueue[int]("test", 1)
	require.NoError(t, queue.Enqueue(1))

	enqueued := make(chan error)
	go func() {
		enqueued <- queue.Enqueue(2)
	}()

	select {
	case <-enqueued:
		t.Fatal("enqueue should block at capacity")
	case <-time.After(50 * time.Millisecond):
	}

	_, ok, err := queue.Dequeue()
	require.NoError(t, err)
	require.True(t, ok)
	assert.NoError(t, <-enqueued)
}

func TestUnorderedQueueAbortWakesBlockedProducers(t *testing.T) {
	queue := NewUnorderedQueue[int]("test", 1)
	require.NoError(t, queue.Enqueue(1))

	var waiters sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		waiters.Add(1)
		go func() {
			defer waiters.Done()
			errs <- queue.Enqueue(2)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, queue.Halt(true))
	waiters.Wait()

	close(errs)
	for err := range errs {
		assert.IsType(t, AbortedError{}, err)
	}
}

func TestUnorderedQueueAbortWakesBlockedConsumer(t *testing.T) {
	queue := NewUnorderedQueue[int]("test", 1)

	dequeued := make(chan error)
	go func() {
		_, _, err := queue.Dequeue()
		dequeued <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, queue.Halt(true))
	assert.IsType(t, AbortedError{}, <-dequeued)
}

func TestUnorderedQueueAbortAfterDoneIsAllowed(t *testing.T) {
	queue := NewUnorderedQueue[int]("test", 4)
	require.NoError(t, queue.Halt(false))
	require.NoError(t, queue.Halt(true))
	_, _, err := queue.Dequeue()
	assert.IsType(t, AbortedError{}, err)
}
