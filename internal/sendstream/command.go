package sendstream

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// BlockSize is the filesystem block size pad commands align data payloads to.
const BlockSize = 4096

// Command is a single decoded send-stream command. It owns the fully
// serialized bytes of the command, header included; transforms produce new
// commands with new buffers and freshly computed checksums, so an
// untransformed command round-trips byte for byte.
type Command struct {
	header  CommandHeader
	buf     []byte
	version Version

	// Write-command geometry, populated lazily by parse.
	parsed        bool
	dataOffset    int
	path          []byte
	fileOffset    uint64
	hasFileOffset bool
}

// NewCommandFromWire wraps a fully serialized command. buf must hold
// CommandHeaderSize+header.Size bytes with the header already encoded at the
// front. The checksum is not verified here; call Verify for that.
func NewCommandFromWire(header CommandHeader, buf []byte, version Version) (*Command, error) {
	expected := CommandHeaderSize + int(header.Size)
	if len(buf) != expected {
		return nil, errors.Errorf("command buffer holds %vB, header declares %vB", len(buf), expected)
	}
	return &Command{header: header, buf: buf, version: version, dataOffset: -1}, nil
}

// ReadCommand reads the next command from reader. A clean io.EOF before the
// header means the input is exhausted.
func ReadCommand(reader io.Reader, version Version) (*Command, error) {
	header, err := ReadCommandHeader(reader, version)
	if err != nil {
		return nil, err
	}
	if header.Size > MaxCommandPayloadSize {
		return nil, NewOversizedCommandError(header.Size, MaxCommandPayloadSize)
	}
	buf := make([]byte, CommandHeaderSize+int(header.Size))
	if err := FillCommandWire(reader, header, buf); err != nil {
		return nil, err
	}
	return NewCommandFromWire(header, buf, version)
}

// FillCommandWire re-encodes an already decoded header into the front of buf
// and reads the command payload into the rest. buf must hold exactly the
// serialized command and may be caller-pooled storage.
func FillCommandWire(reader io.Reader, header CommandHeader, buf []byte) error {
	if len(buf) != CommandHeaderSize+int(header.Size) {
		return errors.Errorf("command buffer holds %vB, header declares %vB",
			len(buf), CommandHeaderSize+int(header.Size))
	}
	header.EncodeTo(buf)
	n, err := io.ReadFull(reader, buf[CommandHeaderSize:])
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return NewTruncatedStreamError(int(header.Size), n)
		}
		return errors.WithStack(err)
	}
	return nil
}

func (command *Command) Type() CommandType { return command.header.Type }

func (command *Command) Version() Version { return command.version }

func (command *Command) Crc32c() uint32 { return command.header.Crc32c }

// TotalSize is the serialized size of the command, header included.
func (command *Command) TotalSize() int { return len(command.buf) }

// Bytes exposes the serialized command. Callers must not mutate it.
func (command *Command) Bytes() []byte { return command.buf }

func (command *Command) IsEnd() bool { return command.header.Type == CmdEnd }

func (command *Command) String() string {
	return fmt.Sprintf("<Command Type=%v Size=%v CRC32C=%08X Version=%v/>",
		command.header.Type, command.header.Size, command.header.Crc32c, command.version)
}

var zeroCrcField = make([]byte, 4)

// computeCrc32c checksums the serialized command with the crc field zeroed.
func (command *Command) computeCrc32c() uint32 {
	crc := ChecksumUpdate(0, command.buf[0:6])
	crc = ChecksumUpdate(crc, zeroCrcField)
	return ChecksumUpdate(crc, command.buf[CommandHeaderSize:])
}

// Verify recomputes the checksum and fails with a ChecksumMismatchError when
// it disagrees with the stored one. The upstream data is not trustworthy
// after a mismatch; the error is fatal for the stream.
func (command *Command) Verify() error {
	actual := command.computeCrc32c()
	if actual != command.header.Crc32c {
		return NewChecksumMismatchError(command.header.Type, command.header.Crc32c, actual)
	}
	return nil
}

// Persist writes the serialized command to writer.
func (command *Command) Persist(writer io.Writer) error {
	_, err := writer.Write(command.buf)
	return errors.WithStack(err)
}

// Attributes decodes the attribute region. Values alias the command buffer.
func (command *Command) Attributes() ([]Attribute, error) {
	var attributes []Attribute
	err := forEachAttribute(command.buf, command.version, func(attribute Attribute) error {
		attributes = append(attributes, attribute)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return attributes, nil
}

func (command *Command) parse() error {
	if command.parsed {
		return nil
	}
	command.dataOffset = -1
	err := forEachAttribute(command.buf, command.version, func(attribute Attribute) error {
		switch attribute.Type {
		case AttrPath:
			command.path = attribute.Value
		case AttrFileOffset:
			if len(attribute.Value) != 8 {
				return NewBadAttributeError("file offset value is %vB, want 8B", len(attribute.Value))
			}
			command.fileOffset = binary.LittleEndian.Uint64(attribute.Value)
			command.hasFileOffset = true
		case AttrData:
			if command.dataOffset >= 0 {
				return NewBadAttributeError("duplicate data attribute")
			}
			command.dataOffset = attribute.ValueOffset
		}
		return nil
	})
	if err != nil {
		return err
	}
	command.parsed = true
	return nil
}

// Path returns the path attribute value, if any.
func (command *Command) Path() ([]byte, error) {
	if err := command.parse(); err != nil {
		return nil, err
	}
	return command.path, nil
}

// Data returns the data attribute payload, if any.
func (command *Command) Data() ([]byte, error) {
	if err := command.parse(); err != nil {
		return nil, err
	}
	if command.dataOffset < 0 {
		return nil, nil
	}
	return command.buf[command.dataOffset:dataEnd(command)], nil
}

// dataEnd locates the end of the data attribute value. Sized v1 data
// attributes may be followed by further attributes; the sizeless v2 form
// always runs to the end of the command.
func dataEnd(command *Command) int {
	if AttrData.IsSizelessIn(command.version) {
		return len(command.buf)
	}
	size := int(binary.LittleEndian.Uint16(command.buf[command.dataOffset-2 : command.dataOffset]))
	return command.dataOffset + size
}

// IsUpgradeable reports whether the command's encoding changes between its
// current version and the destination version.
func (command *Command) IsUpgradeable(destination Version) bool {
	return command.version < destination &&
		command.header.Type == CmdWrite &&
		destination >= SendVersion2
}

// FakeUpgrade stamps the destination version on a command whose encoding is
// identical in both versions.
func (command *Command) FakeUpgrade(destination Version) {
	command.version = destination
}

// Upgrade rewrites the command for the destination version. For writes this
// drops the length field of the data attribute, which must be the last
// attribute of the command. The checksum is recomputed over the new bytes.
func (command *Command) Upgrade(destination Version) (*Command, error) {
	if !command.IsUpgradeable(destination) {
		return nil, errors.Errorf("trying to upgrade an unupgradeable command %v", command)
	}
	payload := make([]byte, 0, len(command.buf)-CommandHeaderSize)
	dataSeen := false
	err := forEachAttribute(command.buf, command.version, func(attribute Attribute) error {
		if dataSeen {
			return NewBadAttributeError("%v attribute after the data attribute", attribute.Type)
		}
		if attribute.Type.IsSizelessIn(destination) {
			payload = appendSizelessAttribute(payload, attribute.Type, attribute.Value)
			dataSeen = true
			return nil
		}
		// Unknown attribute type codes are carried over verbatim for
		// forward compatibility.
		payload = appendAttribute(payload, attribute.Type, attribute.Value)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sealCommand(command.header.Type, payload, destination)
}

// IsCompressible reports whether the command can be rewritten into an
// encoded write. Only v2 writes with a data attribute qualify.
func (command *Command) IsCompressible() bool {
	if !command.header.Type.IsCompressibleIn(command.version) {
		return false
	}
	if err := command.parse(); err != nil {
		return false
	}
	return command.dataOffset >= 0
}

// Compress rewrites a v2 write into an encoded write carrying a
// zstd-compressed payload. When compression fails to shrink the serialized
// command the original must be kept; that case surfaces as a
// FailedToShrinkPayloadError.
func (command *Command) Compress(encoder *zstd.Encoder) (*Command, error) {
	if !command.IsCompressible() {
		return nil, errors.Errorf("trying to compress an uncompressible command %v", command)
	}
	data := command.buf[command.dataOffset:]
	compressed := encoder.EncodeAll(data, nil)

	// Pre-data attributes (path, file offset) are carried over verbatim,
	// followed by the encoded-write metadata and the compressed payload.
	preData := command.buf[CommandHeaderSize : command.dataOffset-2]
	payload := make([]byte, 0, len(preData)+len(compressed)+64)
	payload = append(payload, preData...)
	payload = appendAttributeU64(payload, AttrUnencodedFileLen, uint64(len(data)))
	payload = appendAttributeU64(payload, AttrUnencodedLen, uint64(len(data)))
	payload = appendAttributeU64(payload, AttrUnencodedOffset, 0)
	payload = appendAttributeU32(payload, AttrCompression, CompressionZstd)
	payload = appendSizelessAttribute(payload, AttrData, compressed)

	newTotal := CommandHeaderSize + len(payload)
	if newTotal >= len(command.buf) {
		return nil, NewFailedToShrinkPayloadError(len(command.buf), newTotal)
	}
	return sealCommand(CmdEncodedWrite, payload, command.version)
}

// CanAppend reports whether other directly extends this write command: same
// path, contiguous file offsets, and a merged payload no larger than
// maxBatchedExtentSize.
func (command *Command) CanAppend(other *Command, maxBatchedExtentSize int) bool {
	if command.header.Type != CmdWrite || other.header.Type != CmdWrite {
		return false
	}
	if command.version != other.version || command.version < SendVersion2 {
		return false
	}
	if command.parse() != nil || other.parse() != nil {
		return false
	}
	if command.dataOffset < 0 || other.dataOffset < 0 {
		return false
	}
	if !command.hasFileOffset || !other.hasFileOffset {
		return false
	}
	if !bytes.Equal(command.path, other.path) {
		return false
	}
	dataLen := len(command.buf) - command.dataOffset
	otherDataLen := len(other.buf) - other.dataOffset
	if other.fileOffset != command.fileOffset+uint64(dataLen) {
		return false
	}
	return dataLen+otherDataLen <= maxBatchedExtentSize
}

// Append merges other into this write command, producing a single write
// covering both extents. Callers must have checked CanAppend.
func (command *Command) Append(other *Command) (*Command, error) {
	if command.dataOffset < 0 || other.dataOffset < 0 {
		return nil, errors.Errorf("trying to append commands without data attributes")
	}
	// The data attribute is sizeless and last in v2, so the merged payload
	// is this command's payload followed by the other's data bytes.
	payload := make([]byte, 0, len(command.buf)-CommandHeaderSize+len(other.buf)-other.dataOffset)
	payload = append(payload, command.buf[CommandHeaderSize:]...)
	payload = append(payload, other.buf[other.dataOffset:]...)
	return sealCommand(CmdWrite, payload, command.version)
}

// PreDataSize is the number of serialized bytes preceding the data attribute
// value, header included. Used for pad alignment.
func (command *Command) PreDataSize() (int, error) {
	if err := command.parse(); err != nil {
		return 0, err
	}
	if command.dataOffset < 0 {
		return 0, errors.Errorf("command %v has no data attribute", command)
	}
	return command.dataOffset, nil
}

// GeneratePadCommand builds a dummy update-extent command sized so that the
// data payload of next starts on a BlockSize boundary when next is written
// at writeOffset. Returns nil when the payload is already aligned.
func GeneratePadCommand(writeOffset int64, next *Command, version Version) (*Command, error) {
	preData, err := next.PreDataSize()
	if err != nil {
		return nil, err
	}
	padSize := int((BlockSize - (writeOffset+int64(preData))%BlockSize) % BlockSize)
	if padSize == 0 {
		return nil, nil
	}
	// The pad carries an empty-file-offset/size update extent whose path
	// attribute is filler sized to hit the target alignment exactly.
	minimumOverhead := CommandHeaderSize + attributeHeaderSize*3 + 8 + 8
	if padSize < minimumOverhead {
		padSize += BlockSize
	}
	filler := bytes.Repeat([]byte{'a'}, padSize-minimumOverhead)
	payload := make([]byte, 0, padSize-CommandHeaderSize)
	payload = appendAttribute(payload, AttrPath, filler)
	payload = appendAttributeU64(payload, AttrFileOffset, 0)
	payload = appendAttributeU64(payload, AttrSize, 0)
	return sealCommand(CmdUpdateExtent, payload, version)
}

// AttributeValue pairs an attribute type with the value to encode. Used by
// BuildCommand; U64Value and U32Value build the fixed-width forms.
type AttributeValue struct {
	Type  AttributeType
	Value []byte
}

func U64Value(attributeType AttributeType, value uint64) AttributeValue {
	return AttributeValue{Type: attributeType, Value: binary.LittleEndian.AppendUint64(nil, value)}
}

func U32Value(attributeType AttributeType, value uint32) AttributeValue {
	return AttributeValue{Type: attributeType, Value: binary.LittleEndian.AppendUint32(nil, value)}
}

// BuildCommand serializes a command from scratch. Attributes are encoded in
// the given order; a data attribute takes the sizeless form when the version
// calls for it and must come last.
func BuildCommand(commandType CommandType, version Version, attributes ...AttributeValue) (*Command, error) {
	var payload []byte
	for i, attribute := range attributes {
		if attribute.Type.IsSizelessIn(version) {
			if i != len(attributes)-1 {
				return nil, NewBadAttributeError("%v attribute after the data attribute", attributes[i+1].Type)
			}
			payload = appendSizelessAttribute(payload, attribute.Type, attribute.Value)
			break
		}
		if len(attribute.Value) > math.MaxUint16 {
			return nil, NewBadAttributeError("%v value of %vB does not fit a sized attribute",
				attribute.Type, len(attribute.Value))
		}
		payload = appendAttribute(payload, attribute.Type, attribute.Value)
	}
	return sealCommand(commandType, payload, version)
}

// sealCommand assembles a serialized command around payload and computes its
// checksum.
func sealCommand(commandType CommandType, payload []byte, version Version) (*Command, error) {
	if uint64(len(payload)) > uint64(MaxCommandPayloadSize) {
		return nil, NewOversizedCommandError(uint32(len(payload)), MaxCommandPayloadSize)
	}
	header := CommandHeader{Size: uint32(len(payload)), Type: commandType}
	buf := make([]byte, CommandHeaderSize+len(payload))
	header.EncodeTo(buf)
	copy(buf[CommandHeaderSize:], payload)
	header.Crc32c = Checksum(buf)
	binary.LittleEndian.PutUint32(buf[6:10], header.Crc32c)
	return &Command{header: header, buf: buf, version: version, dataOffset: -1}, nil
}
