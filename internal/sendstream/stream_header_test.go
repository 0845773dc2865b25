package sendstream

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamHeaderRoundTrip(t *testing.T) {
	for _, version := range []Version{SendVersion1, SendVersion2} {
		var buf bytes.Buffer
		require.NoError(t, WriteStreamHeader(&buf, version))
		assert.Equal(t, StreamHeaderSize, buf.Len())

		read, err := ReadStreamHeader(&buf)
		require.NoError(t, err)
		assert.Equal(t, version, read)
	}
}

func TestStreamHeaderRejectsBadMagic(t *testing.T) {
	raw := []byte("btrfs-dream\x00\x00\x01\x00\x00\x00")
	_, err := ReadStreamHeader(bytes.NewReader(raw))
	assert.IsType(t, BadStreamHeaderError{}, err)
}

func TestStreamHeaderRejectsUnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStreamHeader(&buf, Version(9)))
	_, err := ReadStreamHeader(&buf)
	assert.IsType(t, UnsupportedVersionError{}, err)
}

func TestStreamHeaderDetectsTruncation(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStreamHeader(&buf, SendVersion1))
	_, err := ReadStreamHeader(bytes.NewReader(buf.Bytes()[:5]))
	assert.IsType(t, TruncatedStreamError{}, err)
}
