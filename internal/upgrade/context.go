package upgrade

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/wal-g/tracelog"
	"golang.org/x/time/rate"

	"github.com/btrfsgo/sendstream/internal/checksum"
	"github.com/btrfsgo/sendstream/internal/compression"
	"github.com/btrfsgo/sendstream/internal/limiters"
)

// ioContext owns both ends of an upgrade run: the (possibly rate-limited)
// input stream and the output sink with its artifact compression and digest
// layers. Close tears the layers down innermost-first and releases the
// output lock.
type ioContext struct {
	reader io.Reader
	writer io.Writer

	calculator *checksum.Calculator

	inputFile  *os.File
	outputFile *os.File
	outputLock *flock.Flock
	compressed io.WriteCloser
	buffered   *bufio.Writer
}

// openIO wires up the streams. Missing input/output paths fall back to
// stdin/stdout; a file output is flock-guarded so concurrent invocations
// cannot interleave writes into the same artifact.
func openIO(ctx context.Context, options *Options) (*ioContext, error) {
	streams := &ioContext{}

	if options.InputPath == "" {
		streams.reader = os.Stdin
	} else {
		file, err := os.Open(options.InputPath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open input %v", options.InputPath)
		}
		streams.inputFile = file
		streams.reader = file
	}
	if options.ReadRateLimit > 0 {
		limiter := rate.NewLimiter(rate.Limit(options.ReadRateLimit), options.ReadRateLimit)
		streams.reader = limiters.NewReader(ctx, streams.reader, limiter)
	}
	streams.reader = bufio.NewReaderSize(streams.reader, options.ReadBufferSize)

	var sink io.WriteCloser
	if options.OutputPath == "" {
		sink = nopWriteCloser{os.Stdout}
	} else {
		lock := flock.New(options.OutputPath + ".lock")
		locked, err := lock.TryLock()
		if err != nil {
			streams.closeInput()
			return nil, errors.Wrapf(err, "failed to lock output %v", options.OutputPath)
		}
		if !locked {
			streams.closeInput()
			return nil, NewOutputLockedError(options.OutputPath)
		}
		streams.outputLock = lock
		file, err := os.Create(options.OutputPath)
		if err != nil {
			_ = lock.Unlock()
			streams.closeInput()
			return nil, errors.Wrapf(err, "failed to create output %v", options.OutputPath)
		}
		streams.outputFile = file
		sink = file
	}

	streams.calculator = checksum.CreateCalculatorByName(options.ChecksumAlgo)
	withDigest := checksum.CreateWriterWithChecksum(sink, streams.calculator)

	streams.buffered = bufio.NewWriter(withDigest)
	compressor := compression.Compressors[options.ArtifactCompression]
	streams.compressed = compressor.NewWriter(flushCloser{streams.buffered})
	streams.writer = streams.compressed
	return streams, nil
}

// Checksum returns the hex digest of the stored artifact, empty when the
// algorithm is none.
func (streams *ioContext) Checksum() string {
	return streams.calculator.Checksum()
}

func (streams *ioContext) closeInput() {
	if streams.inputFile != nil {
		if err := streams.inputFile.Close(); err != nil {
			tracelog.WarningLogger.Printf("failed to close input: %v", err)
		}
		streams.inputFile = nil
	}
}

// Close flushes and closes every layer. The first error wins but teardown
// continues so the lock is always released.
func (streams *ioContext) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	keep(errors.WithStack(streams.compressed.Close()))
	keep(errors.WithStack(streams.buffered.Flush()))
	if streams.outputFile != nil {
		keep(errors.WithStack(streams.outputFile.Close()))
	}
	if streams.outputLock != nil {
		keep(errors.WithStack(streams.outputLock.Unlock()))
	}
	streams.closeInput()
	return firstErr
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// flushCloser lets a bufio.Writer sit under layers that expect a closer.
type flushCloser struct {
	writer *bufio.Writer
}

func (fc flushCloser) Write(p []byte) (int, error) { return fc.writer.Write(p) }
func (fc flushCloser) Close() error                { return fc.writer.Flush() }
