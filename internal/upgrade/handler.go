package upgrade

import (
	"context"

	"github.com/wal-g/tracelog"

	"github.com/btrfsgo/sendstream/internal/checksum"
)

// HandleUpgrade runs a full upgrade with the given options and blocks until
// the output is complete or the pipeline failed. On failure any partial
// output is left in place; it is not a valid send-stream.
func HandleUpgrade(ctx context.Context, options Options) error {
	if err := options.Validate(); err != nil {
		return err
	}
	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	streams, err := openIO(ctx, &options)
	if err != nil {
		return err
	}

	coordinator := newCoordinator(ctx, &options, streams)
	runErr := coordinator.Run()
	closeErr := streams.Close()
	if runErr == nil {
		runErr = closeErr
	}
	if runErr != nil {
		return runErr
	}

	if !options.Quiet {
		coordinator.Stats().Log()
		if options.ChecksumAlgo != checksum.AlgorithmNone {
			tracelog.InfoLogger.Printf("%v digest of output artifact: %v",
				options.ChecksumAlgo, streams.Checksum())
		}
	}
	return nil
}
