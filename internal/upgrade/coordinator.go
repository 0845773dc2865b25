package upgrade

import (
	"context"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/wal-g/tracelog"
	"golang.org/x/sync/semaphore"

	"github.com/btrfsgo/sendstream/internal/cache"
	"github.com/btrfsgo/sendstream/internal/queue"
	"github.com/btrfsgo/sendstream/internal/sendstream"
)

// Coordinator drives a stream upgrade through a five stage pipeline:
//
//	reader -> work queue -> transform workers -> batch queue -> batcher
//	       -> compression queue -> compression workers -> write queue -> writer
//
// The ordered queues restore input order after each fan-out; the in-flight
// semaphore bounds the number of commands alive across all stages. The first
// error anywhere aborts every queue and the cache, so no stage can block
// forever on a dead peer.
type Coordinator struct {
	options *Options
	streams *ioContext
	stats   *Stats

	buffers  *cache.BufferCache
	inFlight *semaphore.Weighted

	workQueue        *queue.UnorderedQueue[*workItem]
	batchQueue       *queue.OrderedQueue[*workItem]
	compressionQueue *queue.UnorderedQueue[*workItem]
	writeQueue       *queue.OrderedQueue[*workItem]

	sourceVersion sendstream.Version
	writeOffset   int64

	ctx    context.Context
	cancel context.CancelFunc

	failOnce sync.Once
	failure  error
}

func newCoordinator(ctx context.Context, options *Options, streams *ioContext) *Coordinator {
	runCtx, cancel := context.WithCancel(ctx)
	capacity := int(options.InFlightLimit)
	// Pooled buffers must fit a merged batch plus command overhead.
	bufferSize := options.MaxBatchedExtentSize + 64*1024
	return &Coordinator{
		options:          options,
		streams:          streams,
		stats:            newStats(),
		buffers:          cache.NewBufferCache(bufferSize, options.BufferPoolSize, options.CheckoutTimeout),
		inFlight:         semaphore.NewWeighted(options.InFlightLimit),
		workQueue:        queue.NewUnorderedQueue[*workItem]("work", capacity),
		batchQueue:       queue.NewOrderedQueue[*workItem]("batch", uint64(capacity)),
		compressionQueue: queue.NewUnorderedQueue[*workItem]("compression", capacity),
		writeQueue:       queue.NewOrderedQueue[*workItem]("write", uint64(capacity)),
		ctx:              runCtx,
		cancel:           cancel,
	}
}

func (coordinator *Coordinator) Stats() *Stats { return coordinator.stats }

// fail records the first error and tears the whole pipeline down. Later
// errors, including the abort errors the teardown provokes, are dropped.
func (coordinator *Coordinator) fail(err error) {
	if err == nil {
		return
	}
	coordinator.failOnce.Do(func() {
		coordinator.failure = err
		coordinator.cancel()
		coordinator.buffers.Halt()
		_ = coordinator.workQueue.Halt(true)
		_ = coordinator.batchQueue.Halt(true)
		_ = coordinator.compressionQueue.Halt(true)
		_ = coordinator.writeQueue.Halt(true)
	})
}

// Run upgrades the whole stream and blocks until every stage has exited.
func (coordinator *Coordinator) Run() error {
	defer coordinator.cancel()

	version, err := sendstream.ReadStreamHeader(coordinator.streams.reader)
	if err != nil {
		return err
	}
	if version > coordinator.options.TargetVersion {
		return NewTransformError("cannot downgrade a %v stream to %v", version, coordinator.options.TargetVersion)
	}
	coordinator.sourceVersion = version
	if err := sendstream.WriteStreamHeader(coordinator.streams.writer, coordinator.options.TargetVersion); err != nil {
		return NewEncodeError(err, 0)
	}
	coordinator.writeOffset = int64(sendstream.StreamHeaderSize)
	coordinator.stats.addWritten(sendstream.StreamHeaderSize)

	if coordinator.options.Threads == 1 {
		err = coordinator.runSingleThreaded()
	} else {
		err = coordinator.runPipelined()
	}
	coordinator.stats.finish()
	return err
}

func (coordinator *Coordinator) runPipelined() error {
	// A timeout on the run context must reach stages blocked on queues, not
	// just the ones blocked on the context itself.
	go func() {
		<-coordinator.ctx.Done()
		if errors.Is(coordinator.ctx.Err(), context.DeadlineExceeded) {
			coordinator.fail(errors.WithStack(coordinator.ctx.Err()))
		}
	}()

	var stages sync.WaitGroup
	spawn := func(stage func() error) {
		stages.Add(1)
		go func() {
			defer stages.Done()
			coordinator.fail(stage())
		}()
	}

	spawn(func() error {
		if err := coordinator.readCommands(); err != nil {
			return err
		}
		return coordinator.workQueue.Halt(false)
	})

	var transformers sync.WaitGroup
	for i := 0; i < coordinator.options.Threads; i++ {
		transformers.Add(1)
		spawn(func() error {
			defer transformers.Done()
			return coordinator.transformCommands()
		})
	}
	spawn(func() error {
		transformers.Wait()
		return coordinator.batchQueue.Halt(false)
	})

	spawn(func() error {
		if err := coordinator.batchCommands(); err != nil {
			return err
		}
		return coordinator.compressionQueue.Halt(false)
	})

	var compressors sync.WaitGroup
	for i := 0; i < coordinator.options.Threads; i++ {
		compressors.Add(1)
		spawn(func() error {
			defer compressors.Done()
			return coordinator.compressCommands()
		})
	}
	spawn(func() error {
		compressors.Wait()
		return coordinator.writeQueue.Halt(false)
	})

	spawn(coordinator.writeCommands)

	stages.Wait()
	return coordinator.failure
}

// readCommands decodes commands sequentially, assigns sequence numbers and
// feeds the work queue. Large payloads land in pooled buffers so decode speed
// is bounded by how fast the rest of the pipeline drains them.
func (coordinator *Coordinator) readCommands() error {
	for sequence := uint64(0); ; sequence++ {
		header, err := sendstream.ReadCommandHeader(coordinator.streams.reader, coordinator.sourceVersion)
		if err == io.EOF {
			tracelog.WarningLogger.Println("input ended without an end command")
			return nil
		}
		if err != nil {
			return err
		}
		if header.Size > sendstream.MaxCommandPayloadSize {
			return sendstream.NewOversizedCommandError(header.Size, sendstream.MaxCommandPayloadSize)
		}
		total := sendstream.CommandHeaderSize + int(header.Size)

		if err := coordinator.inFlight.Acquire(coordinator.ctx, 1); err != nil {
			return errors.WithStack(err)
		}

		command, backing, err := coordinator.readOneCommand(header, total)
		if err != nil {
			coordinator.inFlight.Release(1)
			return err
		}
		coordinator.stats.addRead(total)

		item := newWorkItem(sequence, command, backing)
		if err := coordinator.workQueue.Enqueue(item); err != nil {
			return err
		}
		if command.IsEnd() {
			return nil
		}
	}
}

// readOneCommand fills the serialized command into a pooled buffer when it is
// big enough to be worth pooling, falling back to the heap otherwise. Pooled
// bytes are handed to the command through the read-once cursor, so nothing
// can see them a second time before the buffer is released.
func (coordinator *Coordinator) readOneCommand(header sendstream.CommandHeader, total int) (*sendstream.Command, *cache.Buffer, error) {
	if total < coordinator.options.ReadBufferSize || total > coordinator.buffers.BufferSize() {
		wire := make([]byte, total)
		if err := sendstream.FillCommandWire(coordinator.streams.reader, header, wire); err != nil {
			return nil, nil, err
		}
		command, err := sendstream.NewCommandFromWire(header, wire, coordinator.sourceVersion)
		return command, nil, err
	}

	backing, err := coordinator.buffers.Checkout(total)
	if err != nil {
		return nil, nil, err
	}
	storage, err := backing.Storage(total)
	if err != nil {
		_ = backing.Release()
		return nil, nil, err
	}
	if err := sendstream.FillCommandWire(coordinator.streams.reader, header, storage); err != nil {
		_ = backing.Release()
		return nil, nil, err
	}
	wire, err := backing.Consume(total)
	if err != nil {
		_ = backing.Release()
		return nil, nil, err
	}
	command, err := sendstream.NewCommandFromWire(header, wire, coordinator.sourceVersion)
	if err != nil {
		_ = backing.Release()
		return nil, nil, err
	}
	return command, backing, nil
}

// transformCommands verifies and upgrades commands, fanning back into input
// order through the batch queue.
func (coordinator *Coordinator) transformCommands() error {
	for {
		item, ok, err := coordinator.workQueue.Dequeue()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := coordinator.upgradeItem(item); err != nil {
			return err
		}
		if err := coordinator.batchQueue.Enqueue(item); err != nil {
			return err
		}
	}
}

func (coordinator *Coordinator) upgradeItem(item *workItem) error {
	if !coordinator.options.TrustInputChecksums {
		if err := item.command.Verify(); err != nil {
			return err
		}
	}
	if item.command.IsUpgradeable(coordinator.options.TargetVersion) {
		upgraded, err := item.command.Upgrade(coordinator.options.TargetVersion)
		if err != nil {
			return WrapTransformError(err, item.first)
		}
		if err := item.replaceCommand(upgraded); err != nil {
			return err
		}
		coordinator.stats.addUpgraded()
	} else {
		item.command.FakeUpgrade(coordinator.options.TargetVersion)
		coordinator.stats.addStamped()
	}
	return nil
}

// batchCommands merges runs of adjacent writes into single larger writes.
// It is the only consumer of the batch queue, so the merge sees commands in
// input order.
func (coordinator *Coordinator) batchCommands() error {
	var pending *workItem
	flush := func() error {
		if pending == nil {
			return nil
		}
		err := coordinator.compressionQueue.Enqueue(pending)
		pending = nil
		return err
	}
	for {
		item, ok, err := coordinator.batchQueue.DequeueNext()
		if err != nil {
			return err
		}
		if !ok {
			return flush()
		}
		if pending != nil && pending.command.CanAppend(item.command, coordinator.options.MaxBatchedExtentSize) {
			merged, err := pending.command.Append(item.command)
			if err != nil {
				return WrapTransformError(err, item.first)
			}
			if err := pending.absorb(item, merged); err != nil {
				return err
			}
			// The absorbed command no longer exists on its own; return its
			// permit right away so the reader cannot run out of permits
			// while a long merge run is still pending.
			coordinator.inFlight.Release(item.permits)
			coordinator.stats.addAppended()
			continue
		}
		if err := flush(); err != nil {
			return err
		}
		pending = item
	}
}

// compressCommands rewrites write payloads into encoded writes. A payload
// that refuses to shrink is kept as a plain write.
func (coordinator *Coordinator) compressCommands() error {
	var encoder *zstd.Encoder
	if coordinator.options.CompressData() {
		level, err := coordinator.options.EncoderLevel()
		if err != nil {
			return err
		}
		encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
		if err != nil {
			return errors.WithStack(err)
		}
		defer encoder.Close()
	}
	for {
		item, ok, err := coordinator.compressionQueue.Dequeue()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := coordinator.compressItem(item, encoder); err != nil {
			return err
		}
		if err := coordinator.writeQueue.Enqueue(item); err != nil {
			return err
		}
	}
}

func (coordinator *Coordinator) compressItem(item *workItem, encoder *zstd.Encoder) error {
	if encoder == nil || !item.command.IsCompressible() {
		return nil
	}
	compressed, err := item.command.Compress(encoder)
	if err != nil {
		if _, shrinkFailed := err.(sendstream.FailedToShrinkPayloadError); shrinkFailed {
			return nil
		}
		return WrapTransformError(err, item.first)
	}
	if err := item.replaceCommand(compressed); err != nil {
		return err
	}
	coordinator.stats.addCompressed()
	return nil
}

// writeCommands persists items in strict input order and returns their
// in-flight permits.
func (coordinator *Coordinator) writeCommands() error {
	for {
		item, ok, err := coordinator.writeQueue.DequeueNext()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := coordinator.persistCommand(item.command); err != nil {
			return err
		}
		if err := item.releaseBacking(); err != nil {
			return err
		}
		coordinator.inFlight.Release(item.permits)
	}
}

// persistCommand writes one command, preceded by a pad command when alignment
// is requested and the payload would otherwise straddle a block boundary.
func (coordinator *Coordinator) persistCommand(command *sendstream.Command) error {
	if coordinator.options.PadWithDummyCommands && command.Type().IsPaddable() {
		pad, err := sendstream.GeneratePadCommand(coordinator.writeOffset, command, coordinator.options.TargetVersion)
		if err != nil {
			return WrapTransformError(err, 0)
		}
		if pad != nil {
			if err := pad.Persist(coordinator.streams.writer); err != nil {
				return NewEncodeError(err, coordinator.writeOffset)
			}
			coordinator.writeOffset += int64(pad.TotalSize())
			coordinator.stats.addPadded()
			coordinator.stats.addWritten(pad.TotalSize())
		}
	}
	if err := command.Persist(coordinator.streams.writer); err != nil {
		return NewEncodeError(err, coordinator.writeOffset)
	}
	coordinator.writeOffset += int64(command.TotalSize())
	coordinator.stats.addWritten(command.TotalSize())
	return nil
}
