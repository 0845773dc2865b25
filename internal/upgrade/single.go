package upgrade

import (
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/wal-g/tracelog"

	"github.com/btrfsgo/sendstream/internal/sendstream"
)

// runSingleThreaded upgrades the stream without queues or workers: decode,
// upgrade, accumulate appendable writes, compress, persist. It produces the
// same output as the pipelined path.
func (coordinator *Coordinator) runSingleThreaded() error {
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

	var pending *workItem
	flush := func() error {
		if pending == nil {
			return nil
		}
		if err := coordinator.compressItem(pending, encoder); err != nil {
			return err
		}
		err := coordinator.persistCommand(pending.command)
		pending = nil
		return err
	}

	for sequence := uint64(0); ; sequence++ {
		if err := coordinator.ctx.Err(); err != nil {
			return errors.WithStack(err)
		}
		command, err := sendstream.ReadCommand(coordinator.streams.reader, coordinator.sourceVersion)
		if err == io.EOF {
			tracelog.WarningLogger.Println("input ended without an end command")
			return flush()
		}
		if err != nil {
			return err
		}
		coordinator.stats.addRead(command.TotalSize())

		item := newWorkItem(sequence, command, nil)
		if err := coordinator.upgradeItem(item); err != nil {
			return err
		}

		if pending != nil && pending.command.CanAppend(item.command, coordinator.options.MaxBatchedExtentSize) {
			merged, err := pending.command.Append(item.command)
			if err != nil {
				return WrapTransformError(err, sequence)
			}
			if err := pending.absorb(item, merged); err != nil {
				return err
			}
			coordinator.stats.addAppended()
		} else {
			if err := flush(); err != nil {
				return err
			}
			pending = item
		}

		if command.IsEnd() {
			return flush()
		}
	}
}
