package upgrade

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btrfsgo/sendstream/internal/checksum"
	"github.com/btrfsgo/sendstream/internal/compression"
	"github.com/btrfsgo/sendstream/internal/sendstream"
)

func TestHandleUpgradeRejectsBadOptions(t *testing.T) {
	bad := []func(*Options){
		func(options *Options) { options.TargetVersion = 9 },
		func(options *Options) { options.Threads = 0 },
		func(options *Options) { options.Compression = "lz4" },
		func(options *Options) { options.Compression = "zstd:high" },
		func(options *Options) { options.ArtifactCompression = "brotli" },
		func(options *Options) { options.ChecksumAlgo = "md5" },
		func(options *Options) { options.MaxBatchedExtentSize = 0 },
	}
	for _, mutate := range bad {
		options := NewOptions()
		options.Threads = 1
		mutate(&options)
		err := HandleUpgrade(context.Background(), options)
		assert.IsType(t, InvalidOptionsError{}, err)
	}
}

func TestHandleUpgradeRejectsDowngrade(t *testing.T) {
	input := buildStream(t, sendstream.SendVersion2)
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "input.sendstream")
	require.NoError(t, os.WriteFile(inputPath, input, 0o644))

	options := NewOptions()
	options.InputPath = inputPath
	options.OutputPath = filepath.Join(dir, "output.sendstream")
	options.Threads = 1
	options.TargetVersion = sendstream.SendVersion1
	options.Quiet = true

	err := HandleUpgrade(context.Background(), options)
	assert.IsType(t, TransformError{}, err)
}

func TestHandleUpgradeCompressesArtifact(t *testing.T) {
	fileData := bytes.Repeat([]byte("artifact compression input "), 2048)
	input := buildStream(t, sendstream.SendVersion1,
		buildSubvolCommand(t, sendstream.SendVersion1, "subvol"),
		buildWriteCommand(t, sendstream.SendVersion1, "subvol/file", 0, fileData[:32<<10]),
	)

	stored := runUpgrade(t, input, func(options *Options) {
		options.ArtifactCompression = "zstd"
		options.ChecksumAlgo = checksum.AlgorithmSha256
	})

	// The stored artifact is not a raw send-stream until decompressed.
	_, err := sendstream.ReadStreamHeader(bytes.NewReader(stored))
	assert.Error(t, err)

	decompressor := compression.FindDecompressor(compression.Compressors["zstd"].FileExtension())
	require.NotNil(t, decompressor)
	var raw bytes.Buffer
	require.NoError(t, decompressor.Decompress(&raw, bytes.NewReader(stored)))

	version, decoded := decodeStream(t, raw.Bytes())
	assert.Equal(t, sendstream.SendVersion2, version)
	assert.Equal(t, fileData[:32<<10], reassemble(t, decoded, 32<<10))
}

func TestHandleVerifyAcceptsValidStream(t *testing.T) {
	input := buildStream(t, sendstream.SendVersion1,
		buildSubvolCommand(t, sendstream.SendVersion1, "subvol"),
		buildWriteCommand(t, sendstream.SendVersion1, "subvol/file", 0, []byte("data")),
	)
	dir := t.TempDir()
	path := filepath.Join(dir, "stream")
	require.NoError(t, os.WriteFile(path, input, 0o644))
	assert.NoError(t, HandleVerify(path))
}

func TestHandleVerifyRejectsCorruption(t *testing.T) {
	input := buildStream(t, sendstream.SendVersion1,
		buildSubvolCommand(t, sendstream.SendVersion1, "subvol"),
		buildWriteCommand(t, sendstream.SendVersion1, "subvol/file", 0, []byte("data")),
	)
	input[len(input)-15] ^= 0xFF
	dir := t.TempDir()
	path := filepath.Join(dir, "stream")
	require.NoError(t, os.WriteFile(path, input, 0o644))
	assert.Error(t, HandleVerify(path))
}

func TestHandleVerifyRejectsMissingEnd(t *testing.T) {
	input := buildStream(t, sendstream.SendVersion1,
		buildSubvolCommand(t, sendstream.SendVersion1, "subvol"),
	)
	// Drop the end command.
	input = input[:len(input)-sendstream.CommandHeaderSize]
	dir := t.TempDir()
	path := filepath.Join(dir, "stream")
	require.NoError(t, os.WriteFile(path, input, 0o644))
	assert.Error(t, HandleVerify(path))
}

func TestHandleInspectListsCommands(t *testing.T) {
	input := buildStream(t, sendstream.SendVersion1,
		buildSubvolCommand(t, sendstream.SendVersion1, "subvol"),
		buildWriteCommand(t, sendstream.SendVersion1, "subvol/file", 4096, []byte("data")),
	)
	dir := t.TempDir()
	path := filepath.Join(dir, "stream")
	require.NoError(t, os.WriteFile(path, input, 0o644))

	var rendered bytes.Buffer
	require.NoError(t, HandleInspect(InspectOptions{InputPath: path}, &rendered))
	listing := rendered.String()
	assert.Contains(t, listing, "subvol")
	assert.Contains(t, listing, "write")
	assert.Contains(t, listing, "end")
	assert.Contains(t, listing, "file_offset=4096")
}

func TestHandleInspectHonorsLimit(t *testing.T) {
	input := buildStream(t, sendstream.SendVersion1,
		buildSubvolCommand(t, sendstream.SendVersion1, "subvol"),
		buildWriteCommand(t, sendstream.SendVersion1, "subvol/file", 0, []byte("data")),
	)
	dir := t.TempDir()
	path := filepath.Join(dir, "stream")
	require.NoError(t, os.WriteFile(path, input, 0o644))

	var rendered bytes.Buffer
	require.NoError(t, HandleInspect(InspectOptions{InputPath: path, Limit: 1}, &rendered))
	assert.Contains(t, rendered.String(), "subvol")
	assert.NotContains(t, rendered.String(), "write")
}
