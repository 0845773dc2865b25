package upgrade

import (
	"github.com/btrfsgo/sendstream/internal/cache"
	"github.com/btrfsgo/sendstream/internal/sendstream"
)

// workItem is one command, or a batch of merged commands, moving through the
// pipeline. The sequence range [first, last] tracks the input positions the
// item covers so the ordered queues can release it at the right moment.
type workItem struct {
	first   uint64
	last    uint64
	command *sendstream.Command
	// backing is the pooled buffer the command bytes alias, nil once a
	// transform rebuilt the command on the heap.
	backing *cache.Buffer
	// permits is the in-flight weight this item still holds. A merged batch
	// keeps a single permit; the batcher returns an absorbed item's permit
	// as soon as the merge lands, otherwise a run of appendable writes
	// longer than the in-flight limit would starve the reader.
	permits int64
}

func newWorkItem(sequence uint64, command *sendstream.Command, backing *cache.Buffer) *workItem {
	return &workItem{
		first:   sequence,
		last:    sequence,
		command: command,
		backing: backing,
		permits: 1,
	}
}

func (item *workItem) FirstID() uint64      { return item.first }
func (item *workItem) LastID() uint64       { return item.last }
func (item *workItem) IsLastIDShared() bool { return false }

// replaceCommand swaps in a rebuilt command and releases the pooled backing
// the old bytes aliased.
func (item *workItem) replaceCommand(command *sendstream.Command) error {
	item.command = command
	return item.releaseBacking()
}

func (item *workItem) releaseBacking() error {
	if item.backing == nil {
		return nil
	}
	backing := item.backing
	item.backing = nil
	return backing.Release()
}

// absorb merges a directly following item into this one. The merged command
// must already cover both extents.
func (item *workItem) absorb(next *workItem, merged *sendstream.Command) error {
	if err := item.replaceCommand(merged); err != nil {
		return err
	}
	if err := next.releaseBacking(); err != nil {
		return err
	}
	item.last = next.last
	return nil
}
