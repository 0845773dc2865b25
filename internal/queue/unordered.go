package queue

import "sync"

// UnorderedQueue is a bounded multi-producer/multi-consumer FIFO with no
// ordering guarantee across consumers. Enqueue blocks at capacity, Dequeue
// blocks when empty; Halt wakes every blocked caller so an abort elsewhere in
// the pipeline never deadlocks a queue operation.
type UnorderedQueue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    []T
	capacity int
	state    State
	name     string
}

func NewUnorderedQueue[T any](name string, capacity int) *UnorderedQueue[T] {
	queue := &UnorderedQueue[T]{
		capacity: capacity,
		state:    Running,
		name:     name,
	}
	queue.notEmpty = sync.NewCond(&queue.mu)
	queue.notFull = sync.NewCond(&queue.mu)
	return queue
}

func (queue *UnorderedQueue[T]) Name() string { return queue.name }

// Enqueue adds an item, blocking while the queue is at capacity.
func (queue *UnorderedQueue[T]) Enqueue(item T) error {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	for len(queue.items) >= queue.capacity && queue.state == Running {
		queue.notFull.Wait()
	}
	switch queue.state {
	case Aborted:
		return NewAbortedError(queue.name, "enqueue")
	case Done:
		// Nothing should produce after close.
		return NewClosedQueueError(queue.name, "enqueue")
	}
	queue.items = append(queue.items, item)
	queue.notEmpty.Signal()
	return nil
}

// Dequeue removes the oldest item, blocking while the queue is empty. After
// a planned close the remaining items are drained, then ok=false signals the
// terminal state.
func (queue *UnorderedQueue[T]) Dequeue() (item T, ok bool, err error) {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	for len(queue.items) == 0 && queue.state == Running {
		queue.notEmpty.Wait()
	}
	if queue.state == Aborted {
		return item, false, NewAbortedError(queue.name, "dequeue")
	}
	if len(queue.items) == 0 {
		return item, false, nil
	}
	item = queue.items[0]
	var zero T
	queue.items[0] = zero
	queue.items = queue.items[1:]
	queue.notFull.Signal()
	return item, true, nil
}

// Halt transitions the queue out of Running. A planned halt (unplanned=false)
// closes the queue for producers; an unplanned halt aborts every waiter.
func (queue *UnorderedQueue[T]) Halt(unplanned bool) error {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	if queue.state == Aborted && !unplanned {
		return NewHaltTransitionError(queue.name, Aborted, Done)
	}
	if unplanned {
		queue.state = Aborted
	} else {
		queue.state = Done
	}
	queue.notEmpty.Broadcast()
	queue.notFull.Broadcast()
	return nil
}

// Len reports the number of buffered items.
func (queue *UnorderedQueue[T]) Len() int {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	return len(queue.items)
}
