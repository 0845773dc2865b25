package sendstream

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const streamMagic = "btrfs-stream\x00"

// StreamHeaderSize is the size of the stream header: the magic followed by a
// little-endian u32 version.
const StreamHeaderSize = len(streamMagic) + 4

// ReadStreamHeader consumes and validates the stream header, returning the
// protocol version of the stream.
func ReadStreamHeader(reader io.Reader) (Version, error) {
	header := make([]byte, StreamHeaderSize)
	n, err := io.ReadFull(reader, header)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, NewTruncatedStreamError(StreamHeaderSize, n)
		}
		return 0, errors.WithStack(err)
	}
	if string(header[:len(streamMagic)]) != streamMagic {
		return 0, NewBadStreamHeaderError(header[:len(streamMagic)])
	}
	version := Version(binary.LittleEndian.Uint32(header[len(streamMagic):]))
	if !version.IsSupported() {
		return 0, NewUnsupportedVersionError(version)
	}
	return version, nil
}

// WriteStreamHeader emits a stream header for the given protocol version.
func WriteStreamHeader(writer io.Writer, version Version) error {
	header := make([]byte, StreamHeaderSize)
	copy(header, streamMagic)
	binary.LittleEndian.PutUint32(header[len(streamMagic):], uint32(version))
	_, err := writer.Write(header)
	return errors.WithStack(err)
}
