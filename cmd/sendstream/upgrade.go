package sendstream

import (
	"context"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/wal-g/tracelog"

	"github.com/btrfsgo/sendstream/internal/config"
	"github.com/btrfsgo/sendstream/internal/sendstream"
	"github.com/btrfsgo/sendstream/internal/upgrade"
)

const (
	UpgradeShortDescription = "Upgrades a send-stream to a newer protocol version"

	InputFlag                = "input"
	OutputFlag               = "output"
	ThreadsFlag              = "threads"
	CompressionFlag          = "compression"
	ArtifactCompressionFlag  = "artifact-compression"
	ChecksumAlgoFlag         = "checksum-algo"
	TargetVersionFlag        = "target-version"
	MaxBatchedExtentSizeFlag = "max-batched-extent-size"
	ReadBufferSizeFlag       = "read-buffer-size"
	BufferPoolSizeFlag       = "buffer-pool-size"
	InFlightLimitFlag        = "in-flight-limit"
	CheckoutTimeoutFlag      = "checkout-timeout"
	TrustInputChecksumsFlag  = "trust-input-checksums"
	PadWithDummyCommandsFlag = "pad-with-dummy-commands"
	QuietFlag                = "quiet"
	ReadRateLimitFlag        = "read-rate-limit"
	TimeoutFlag              = "timeout"

	InputShorthand   = "i"
	OutputShorthand  = "o"
	ThreadsShorthand = "t"
	QuietShorthand   = "q"
)

var (
	upgradeCmd = &cobra.Command{
		Use:   "upgrade",
		Short: UpgradeShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			commandRan = true
			profiler, err := config.Profile()
			if err != nil {
				tracelog.WarningLogger.Printf("failed to start profiler: %v", err)
			}
			if profiler != nil {
				defer profiler.Stop()
			}
			options := buildUpgradeOptions(cmd)
			return upgrade.HandleUpgrade(context.Background(), options)
		},
	}

	inputPath            string
	outputPath           string
	threads              int
	dataCompression      string
	artifactCompression  string
	checksumAlgo         string
	targetVersion        uint32
	maxBatchedExtentSize int
	readBufferSize       int
	bufferPoolSize       int
	inFlightLimit        int64
	checkoutTimeout      time.Duration
	trustInputChecksums  bool
	padWithDummyCommands bool
	quiet                bool
	readRateLimit        int
	timeout              time.Duration
)

// buildUpgradeOptions resolves each knob from its flag when set, falling back
// to the SENDSTREAM_* settings.
func buildUpgradeOptions(cmd *cobra.Command) upgrade.Options {
	options := upgrade.NewOptions()
	options.InputPath = inputPath
	options.OutputPath = outputPath
	options.TrustInputChecksums = trustInputChecksums
	options.PadWithDummyCommands = padWithDummyCommands
	options.Quiet = quiet

	changed := cmd.Flags().Changed

	options.Threads = threads
	if !changed(ThreadsFlag) {
		options.Threads = viper.GetInt(config.ThreadsSetting)
	}
	if options.Threads == 0 {
		options.Threads = runtime.GOMAXPROCS(0)
	}

	options.Compression = dataCompression
	if !changed(CompressionFlag) {
		options.Compression = viper.GetString(config.CompressionSetting)
	}
	options.ArtifactCompression = artifactCompression
	if !changed(ArtifactCompressionFlag) {
		options.ArtifactCompression = viper.GetString(config.ArtifactCompressionSetting)
	}
	options.ChecksumAlgo = checksumAlgo
	if !changed(ChecksumAlgoFlag) {
		options.ChecksumAlgo = viper.GetString(config.ChecksumAlgoSetting)
	}

	options.TargetVersion = sendstream.Version(targetVersion)
	if !changed(TargetVersionFlag) {
		options.TargetVersion = sendstream.Version(viper.GetUint32(config.TargetVersionSetting))
	}

	options.MaxBatchedExtentSize = maxBatchedExtentSize
	if !changed(MaxBatchedExtentSizeFlag) {
		options.MaxBatchedExtentSize = viper.GetInt(config.MaxBatchedExtentSizeSetting)
	}
	options.ReadBufferSize = readBufferSize
	if !changed(ReadBufferSizeFlag) {
		options.ReadBufferSize = viper.GetInt(config.ReadBufferSizeSetting)
	}
	options.BufferPoolSize = bufferPoolSize
	if !changed(BufferPoolSizeFlag) {
		options.BufferPoolSize = viper.GetInt(config.BufferPoolSizeSetting)
	}
	options.InFlightLimit = inFlightLimit
	if !changed(InFlightLimitFlag) {
		options.InFlightLimit = viper.GetInt64(config.InFlightLimitSetting)
	}
	options.CheckoutTimeout = checkoutTimeout
	if !changed(CheckoutTimeoutFlag) {
		options.CheckoutTimeout = viper.GetDuration(config.CheckoutTimeoutSetting)
	}
	options.ReadRateLimit = readRateLimit
	if !changed(ReadRateLimitFlag) {
		options.ReadRateLimit = viper.GetInt(config.ReadRateLimitSetting)
	}
	options.Timeout = timeout
	if !changed(TimeoutFlag) {
		options.Timeout = viper.GetDuration(config.TimeoutSetting)
	}
	return options
}

func init() {
	Cmd.AddCommand(upgradeCmd)

	upgradeCmd.Flags().StringVarP(&inputPath, InputFlag, InputShorthand, "", "Input send-stream path, stdin when absent")
	upgradeCmd.Flags().StringVarP(&outputPath, OutputFlag, OutputShorthand, "", "Output send-stream path, stdout when absent")
	upgradeCmd.Flags().IntVarP(&threads, ThreadsFlag, ThreadsShorthand, 0, "Worker threads per fan-out stage, GOMAXPROCS when 0")
	upgradeCmd.Flags().StringVar(&dataCompression, CompressionFlag, "zstd:3", "Data compression of write payloads, zstd[:level] or none")
	upgradeCmd.Flags().StringVar(&artifactCompression, ArtifactCompressionFlag, "none", "Compression of the stored output artifact: zstd, lz4, lzma or none")
	upgradeCmd.Flags().StringVar(&checksumAlgo, ChecksumAlgoFlag, "none", "Digest of the stored output artifact: sha256, crc32c or none")
	upgradeCmd.Flags().Uint32Var(&targetVersion, TargetVersionFlag, 2, "Destination protocol version")
	upgradeCmd.Flags().IntVar(&maxBatchedExtentSize, MaxBatchedExtentSizeFlag, upgrade.DefaultMaxBatchedExtentSize, "Ceiling on a merged write payload in bytes")
	upgradeCmd.Flags().IntVar(&readBufferSize, ReadBufferSizeFlag, upgrade.DefaultReadBufferSize, "Input buffer size; larger commands use pooled buffers")
	upgradeCmd.Flags().IntVar(&bufferPoolSize, BufferPoolSizeFlag, upgrade.DefaultBufferPoolSize, "Number of pooled payload buffers")
	upgradeCmd.Flags().Int64Var(&inFlightLimit, InFlightLimitFlag, upgrade.DefaultInFlightLimit, "Ceiling on commands alive inside the pipeline")
	upgradeCmd.Flags().DurationVar(&checkoutTimeout, CheckoutTimeoutFlag, 0, "Fail a buffer checkout that waits longer than this, 0 waits forever")
	upgradeCmd.Flags().BoolVar(&trustInputChecksums, TrustInputChecksumsFlag, false, "Skip verification of input command checksums")
	upgradeCmd.Flags().BoolVar(&padWithDummyCommands, PadWithDummyCommandsFlag, false, "Align write payloads to 4KiB boundaries with dummy commands")
	upgradeCmd.Flags().BoolVarP(&quiet, QuietFlag, QuietShorthand, false, "Suppress the statistics report")
	upgradeCmd.Flags().IntVar(&readRateLimit, ReadRateLimitFlag, 0, "Input read rate limit in bytes per second, 0 is unlimited")
	upgradeCmd.Flags().DurationVar(&timeout, TimeoutFlag, 0, "Abort the run after this wall-clock duration, 0 is unlimited")
}
