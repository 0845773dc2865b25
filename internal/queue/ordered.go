package queue

import "sync"

// OrderedElement is implemented by items that occupy a range of sequence
// numbers. Single commands occupy [seq, seq]; a batch of merged commands
// occupies [first, last]. When the last id of one element is shared with the
// first id of its successor, the earlier element must report it as shared so
// the release cursor does not skip it.
type OrderedElement interface {
	FirstID() uint64
	LastID() uint64
	IsLastIDShared() bool
}

// OrderedQueue is a bounded multi-producer/single-consumer queue that
// releases elements in strictly increasing sequence order regardless of
// arrival order. Out-of-order arrivals are buffered in a reordering window;
// a producer racing more than capacity ids ahead of the release cursor
// blocks until the cursor catches up.
type OrderedQueue[T OrderedElement] struct {
	mu       sync.Mutex
	nextUp   *sync.Cond
	window   *sync.Cond
	items    map[uint64]T
	headID   uint64
	capacity uint64
	state    State
	name     string
}

func NewOrderedQueue[T OrderedElement](name string, capacity uint64) *OrderedQueue[T] {
	queue := &OrderedQueue[T]{
		items:    make(map[uint64]T),
		capacity: capacity,
		state:    Running,
		name:     name,
	}
	queue.nextUp = sync.NewCond(&queue.mu)
	queue.window = sync.NewCond(&queue.mu)
	return queue
}

func (queue *OrderedQueue[T]) Name() string { return queue.name }

// Enqueue adds an element keyed by its first sequence id, blocking while the
// element lies beyond the reordering window.
func (queue *OrderedQueue[T]) Enqueue(item T) error {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	for item.FirstID() >= queue.headID+queue.capacity && queue.state == Running {
		queue.window.Wait()
	}
	switch queue.state {
	case Aborted:
		return NewAbortedError(queue.name, "enqueue")
	case Done:
		return NewClosedQueueError(queue.name, "enqueue")
	}
	id := item.FirstID()
	if _, present := queue.items[id]; present {
		return NewDuplicateElementError(queue.name, id)
	}
	queue.items[id] = item
	if id == queue.headID {
		queue.nextUp.Signal()
	}
	return nil
}

// DequeueNext blocks until the element at the release cursor arrives and
// returns it. After a planned close the remaining in-order elements drain;
// ok=false then marks the queue as fully drained.
func (queue *OrderedQueue[T]) DequeueNext() (item T, ok bool, err error) {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	for {
		if queue.state == Aborted {
			return item, false, NewAbortedError(queue.name, "dequeue")
		}
		if head, present := queue.items[queue.headID]; present {
			delete(queue.items, queue.headID)
			if head.IsLastIDShared() {
				queue.headID = head.LastID()
			} else {
				queue.headID = head.LastID() + 1
			}
			// The window moved; unblock producers waiting to insert.
			queue.window.Broadcast()
			return head, true, nil
		}
		if queue.state == Done {
			return item, false, nil
		}
		queue.nextUp.Wait()
	}
}

// Halt transitions the queue out of Running, waking all waiters.
func (queue *OrderedQueue[T]) Halt(unplanned bool) error {
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
	queue.nextUp.Broadcast()
	queue.window.Broadcast()
	return nil
}

// Len reports the number of buffered out-of-order elements.
func (queue *OrderedQueue[T]) Len() int {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	return len(queue.items)
}
