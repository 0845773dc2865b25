package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testElement struct {
	first  uint64
	last   uint64
	shared bool
}

func (element testElement) FirstID() uint64      { return element.first }
func (element testElement) LastID() uint64       { return element.last }
func (element testElement) IsLastIDShared() bool { return element.shared }

func single(id uint64) testElement {
	return testElement{first: id, last: id}
}

func TestOrderedQueueGatesOutOfOrderArrivals(t *testing.T) {
	queue := NewOrderedQueue[testElement]("test", 16)
	for _, id := range []uint64{2, 0, 3, 1} {
		require.NoError(t, queue.Enqueue(single(id)))
	}
	require.NoError(t, queue.Halt(false))

	var released []uint64
	for {
		element, ok, err := queue.DequeueNext()
		require.NoError(t, err)
		if !ok {
			break
		}
		released = append(released, element.FirstID())
	}
	assert.Equal(t, []uint64{0, 1, 2, 3}, released)
}

func TestOrderedQueueBlocksUntilHeadArrives(t *testing.T) {
	queue := NewOrderedQueue[testElement]("test", 16)
	require.NoError(t, queue.Enqueue(single(1)))

	dequeued := make(chan testElement)
	go func() {
		element, ok, err := queue.DequeueNext()
		require.NoError(t, err)
		require.True(t, ok)
		dequeued <- element
	}()

	select {
	case <-dequeued:
		t.Fatal("dequeue released element 1 before element 0 arrived")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, queue.Enqueue(single(0)))
	assert.Equal(t, uint64(0), (<-dequeued).FirstID())
}

func TestOrderedQueueReleasesRanges(t *testing.T) {
	queue := NewOrderedQueue[testElement]("test", 16)
	// A merged batch covering [0,2] followed by a single element 3.
	require.NoError(t, queue.Enqueue(testElement{first: 0, last: 2}))
	require.NoError(t, queue.Enqueue(single(3)))
	require.NoError(t, queue.Halt(false))

	batch, ok, err := queue.DequeueNext()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(0), batch.FirstID())

	next, ok, err := queue.DequeueNext()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(3), next.FirstID())
}

func TestOrderedQueueSharedLastID(t *testing.T) {
	queue := NewOrderedQueue[testElement]("test", 16)
	require.NoError(t, queue.Enqueue(testElement{first: 0, last: 1, shared: true}))
	require.NoError(t, queue.Enqueue(testElement{first: 1, last: 1}))
	require.NoError(t, queue.Halt(false))

	first, ok, err := queue.DequeueNext()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, first.IsLastIDShared())

	second, ok, err := queue.DequeueNext()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1), second.FirstID())
}

func TestOrderedQueueRejectsDuplicateIDs(t *testing.T) {
	queue := NewOrderedQueue[testElement]("test", 16)
	require.NoError(t, queue.Enqueue(single(0)))
	err := queue.Enqueue(single(0))
	assert.IsType(t, DuplicateElementError{}, err)
}

func TestOrderedQueueEnqueueBlocksBeyondWindow(t *testing.T) {
	queue := NewOrderedQueue[testElement]("test", 2)
	require.NoError(t, queue.Enqueue(single(0)))
	require.NoError(t, queue.Enqueue(single(1)))

	enqueued := make(chan error)
	go func() {
		enqueued <- queue.Enqueue(single(2))
	}()

	select {
	case <-enqueued:
		t.Fatal("enqueue of element 2 should block while the window is [0,2)")
	case <-time.After(50 * time.Millisecond):
	}

	_, ok, err := queue.DequeueNext()
	require.NoError(t, err)
	require.True(t, ok)
	assert.NoError(t, <-enqueued)
}

func TestOrderedQueueAbortWakesEveryWaiter(t *testing.T) {
	queue := NewOrderedQueue[testElement]("test", 1)
	require.NoError(t, queue.Enqueue(single(0)))

	var waiters sync.WaitGroup
	errs := make(chan error, 3)
	// Both producers sit far beyond the window whatever the cursor does.
	for _, id := range []uint64{5, 6} {
		waiters.Add(1)
		go func(id uint64) {
			defer waiters.Done()
			errs <- queue.Enqueue(single(id))
		}(id)
	}
	waiters.Add(1)
	go func() {
		defer waiters.Done()
		// Park a consumer past the buffered head.
		_, _, _ = queue.DequeueNext()
		_, _, err := queue.DequeueNext()
		errs <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, queue.Halt(true))
	waiters.Wait()

	close(errs)
	for err := range errs {
		assert.IsType(t, AbortedError{}, err)
	}
}

func TestOrderedQueueDoneAfterAbortIsRejected(t *testing.T) {
	queue := NewOrderedQueue[testElement]("test", 4)
	require.NoError(t, queue.Halt(true))
	assert.IsType(t, HaltTransitionError{}, queue.Halt(false))
	// The other direction is allowed.
	other := NewOrderedQueue[testElement]("test", 4)
	require.NoError(t, other.Halt(false))
	assert.NoError(t, other.Halt(true))
}
