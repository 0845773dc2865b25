package sendstream

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// CommandHeaderSize is the fixed size of the command header: a little-endian
// u32 payload size, a u16 command type and a u32 crc32c.
const CommandHeaderSize = 10

// MaxCommandPayloadSize is the ceiling on the declared payload size of a
// single command. Real streams top out well below this; anything larger is a
// corrupt or hostile stream and must not drive allocation.
const MaxCommandPayloadSize uint32 = 32 << 20

// CommandHeader is the fixed-size header preceding every command payload.
// The crc32c covers the entire serialized command with the crc field itself
// zeroed during computation.
type CommandHeader struct {
	Size   uint32
	Type   CommandType
	Crc32c uint32
}

// ReadCommandHeader reads the next command header. A clean io.EOF before the
// first byte is propagated as-is so callers can detect the end of the input;
// a short read mid-header is a truncation.
func ReadCommandHeader(reader io.Reader, version Version) (CommandHeader, error) {
	raw := make([]byte, CommandHeaderSize)
	n, err := io.ReadFull(reader, raw)
	if err != nil {
		if err == io.EOF {
			return CommandHeader{}, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return CommandHeader{}, NewTruncatedStreamError(CommandHeaderSize, n)
		}
		return CommandHeader{}, errors.WithStack(err)
	}
	header := decodeCommandHeader(raw)
	if !header.Type.IsKnownIn(version) {
		return CommandHeader{}, NewBadCommandTypeError(uint16(header.Type), version)
	}
	return header, nil
}

func decodeCommandHeader(raw []byte) CommandHeader {
	return CommandHeader{
		Size:   binary.LittleEndian.Uint32(raw[0:4]),
		Type:   CommandType(binary.LittleEndian.Uint16(raw[4:6])),
		Crc32c: binary.LittleEndian.Uint32(raw[6:10]),
	}
}

// EncodeTo serializes the header into the first CommandHeaderSize bytes of buf.
func (header CommandHeader) EncodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], header.Size)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(header.Type))
	binary.LittleEndian.PutUint32(buf[6:10], header.Crc32c)
}
