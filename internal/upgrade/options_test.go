package upgrade

import (
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoderLevelParsing(t *testing.T) {
	options := NewOptions()

	options.Compression = "zstd"
	level, err := options.EncoderLevel()
	require.NoError(t, err)
	assert.Equal(t, zstd.SpeedDefault, level)

	options.Compression = "zstd:1"
	level, err = options.EncoderLevel()
	require.NoError(t, err)
	assert.Equal(t, zstd.EncoderLevelFromZstd(1), level)

	options.Compression = "lz4:3"
	_, err = options.EncoderLevel()
	assert.IsType(t, TransformError{}, err)

	options.Compression = "zstd:fast"
	_, err = options.EncoderLevel()
	assert.IsType(t, TransformError{}, err)
}

func TestCompressDataFlag(t *testing.T) {
	options := NewOptions()
	assert.False(t, options.CompressData())

	options.Compression = "zstd:3"
	assert.True(t, options.CompressData())

	options.Compression = ""
	assert.False(t, options.CompressData())
}

func TestValidateDefaults(t *testing.T) {
	options := NewOptions()
	options.Threads = 2
	assert.NoError(t, options.Validate())
}
