package queue

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/wal-g/tracelog"
)

// State tracks the lifecycle of a blocking synchronization primitive.
type State int32

const (
	// Running accepts new items and blocks consumers as needed.
	Running State = iota
	// Done means no more items will arrive; consumers drain what remains.
	Done
	// Aborted wakes every waiter with an error. Done may escalate to
	// Aborted on a late failure; the reverse transition is rejected.
	Aborted
)

func (state State) String() string {
	switch state {
	case Running:
		return "running"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

type AbortedError struct {
	error
}

func NewAbortedError(name string, operation string) AbortedError {
	return AbortedError{errors.Errorf("%v failed on %q because of early abort", operation, name)}
}

func (err AbortedError) Error() string {
	return fmt.Sprintf(tracelog.GetErrorFormatter(), err.error)
}

type ClosedQueueError struct {
	error
}

func NewClosedQueueError(name string, operation string) ClosedQueueError {
	return ClosedQueueError{errors.Errorf("%v on %q after close", operation, name)}
}

func (err ClosedQueueError) Error() string {
	return fmt.Sprintf(tracelog.GetErrorFormatter(), err.error)
}

type DuplicateElementError struct {
	error
}

func NewDuplicateElementError(name string, id uint64) DuplicateElementError {
	return DuplicateElementError{errors.Errorf("duplicate element %v enqueued on %q", id, name)}
}

func (err DuplicateElementError) Error() string {
	return fmt.Sprintf(tracelog.GetErrorFormatter(), err.error)
}

type HaltTransitionError struct {
	error
}

func NewHaltTransitionError(name string, from State, to State) HaltTransitionError {
	return HaltTransitionError{errors.Errorf("transitioning %q from %v to %v", name, from, to)}
}

func (err HaltTransitionError) Error() string {
	return fmt.Sprintf(tracelog.GetErrorFormatter(), err.error)
}
