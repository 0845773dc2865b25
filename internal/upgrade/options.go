package upgrade

import (
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/btrfsgo/sendstream/internal/checksum"
	"github.com/btrfsgo/sendstream/internal/compression"
	"github.com/btrfsgo/sendstream/internal/sendstream"
)

const (
	DefaultMaxBatchedExtentSize = 128 * 1024
	DefaultReadBufferSize       = 8 * 1024
	DefaultBufferPoolSize       = 32
	DefaultInFlightLimit        = 64
)

// Options carries every knob of an upgrade run. The zero value is not usable;
// start from NewOptions.
type Options struct {
	InputPath  string
	OutputPath string

	TargetVersion sendstream.Version
	Threads       int

	// Compression is the data compression spec, "zstd[:level]" or "none".
	Compression string
	// ArtifactCompression compresses the serialized output as stored.
	ArtifactCompression string
	// ChecksumAlgo digests the stored output artifact.
	ChecksumAlgo string

	MaxBatchedExtentSize int
	ReadBufferSize       int
	BufferPoolSize       int
	InFlightLimit        int64
	CheckoutTimeout      time.Duration

	TrustInputChecksums  bool
	PadWithDummyCommands bool
	Quiet                bool

	ReadRateLimit int
	Timeout       time.Duration
}

func NewOptions() Options {
	return Options{
		TargetVersion:        sendstream.SendVersion2,
		Compression:          "none",
		ArtifactCompression:  compression.NoneAlgorithmName,
		ChecksumAlgo:         checksum.AlgorithmNone,
		MaxBatchedExtentSize: DefaultMaxBatchedExtentSize,
		ReadBufferSize:       DefaultReadBufferSize,
		BufferPoolSize:       DefaultBufferPoolSize,
		InFlightLimit:        DefaultInFlightLimit,
	}
}

// CompressData reports whether write payloads should be rewritten into
// encoded writes.
func (options *Options) CompressData() bool {
	return options.Compression != "" && options.Compression != "none"
}

// EncoderLevel parses the data compression spec into a zstd encoder level.
// Only zstd is expressible inside an encoded write.
func (options *Options) EncoderLevel() (zstd.EncoderLevel, error) {
	algo, levelPart, hasLevel := strings.Cut(options.Compression, ":")
	if algo != "zstd" {
		return 0, NewTransformError("unsupported data compression algorithm %v, only zstd fits an encoded write", algo)
	}
	if !hasLevel {
		return zstd.SpeedDefault, nil
	}
	level, err := strconv.Atoi(levelPart)
	if err != nil {
		return 0, NewTransformError("bad data compression level %q", levelPart)
	}
	return zstd.EncoderLevelFromZstd(level), nil
}

func (options *Options) Validate() error {
	if !options.TargetVersion.IsSupported() {
		return NewInvalidOptionsError("unsupported target version %v, newest supported is %v",
			options.TargetVersion, sendstream.MaxSupportedVersion)
	}
	if options.Threads < 1 {
		return NewInvalidOptionsError("thread count %v is not positive", options.Threads)
	}
	if options.MaxBatchedExtentSize <= 0 {
		return NewInvalidOptionsError("max batched extent size %v is not positive", options.MaxBatchedExtentSize)
	}
	if options.BufferPoolSize <= 0 || options.InFlightLimit <= 0 {
		return NewInvalidOptionsError("buffer pool size %v and in-flight limit %v must be positive",
			options.BufferPoolSize, options.InFlightLimit)
	}
	if options.CompressData() {
		if _, err := options.EncoderLevel(); err != nil {
			return NewInvalidOptionsError("bad data compression spec %q: %v", options.Compression, err)
		}
	}
	if _, ok := compression.Compressors[options.ArtifactCompression]; !ok {
		return NewInvalidOptionsError("unknown artifact compression method %v", options.ArtifactCompression)
	}
	switch options.ChecksumAlgo {
	case checksum.AlgorithmNone, checksum.AlgorithmSha256, checksum.AlgorithmCrc32c:
	default:
		return NewInvalidOptionsError("unknown checksum algorithm %v", options.ChecksumAlgo)
	}
	return nil
}
