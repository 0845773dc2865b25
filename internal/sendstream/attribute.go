package sendstream

import "encoding/binary"

const attributeHeaderSize = 4

// Attribute is a single decoded TLV from a command payload. Value aliases
// the command buffer; callers must copy it to retain it past the command.
type Attribute struct {
	Type AttributeType
	// ValueOffset is the offset of the value within the serialized command,
	// counted from the start of the command header.
	ValueOffset int
	Value       []byte
	// Sizeless marks the v2 trailing data attribute, whose length is
	// implicitly the remainder of the command.
	Sizeless bool
}

// forEachAttribute walks the attribute region of a serialized command and
// invokes fn for each attribute in order. Unknown attribute type codes are
// surfaced like any other TLV so that callers can preserve them opaquely.
func forEachAttribute(command []byte, version Version, fn func(Attribute) error) error {
	payload := command[CommandHeaderSize:]
	offset := 0
	for offset < len(payload) {
		if len(payload)-offset < 2 {
			return NewBadAttributeError("%vB left for a type code at offset %v", len(payload)-offset, offset)
		}
		attributeType := AttributeType(binary.LittleEndian.Uint16(payload[offset : offset+2]))
		offset += 2
		if attributeType.IsSizelessIn(version) {
			err := fn(Attribute{
				Type:        attributeType,
				ValueOffset: CommandHeaderSize + offset,
				Value:       payload[offset:],
				Sizeless:    true,
			})
			if err != nil {
				return err
			}
			return nil
		}
		if len(payload)-offset < 2 {
			return NewBadAttributeError("%vB left for a length at offset %v", len(payload)-offset, offset)
		}
		size := int(binary.LittleEndian.Uint16(payload[offset : offset+2]))
		offset += 2
		if len(payload)-offset < size {
			return NewBadAttributeError("%vB left for a %vB value at offset %v", len(payload)-offset, size, offset)
		}
		err := fn(Attribute{
			Type:        attributeType,
			ValueOffset: CommandHeaderSize + offset,
			Value:       payload[offset : offset+size],
		})
		if err != nil {
			return err
		}
		offset += size
	}
	return nil
}

func appendAttribute(buf []byte, attributeType AttributeType, value []byte) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, uint16(attributeType))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(value)))
	return append(buf, value...)
}

func appendAttributeU64(buf []byte, attributeType AttributeType, value uint64) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, uint16(attributeType))
	buf = binary.LittleEndian.AppendUint16(buf, 8)
	return binary.LittleEndian.AppendUint64(buf, value)
}

func appendAttributeU32(buf []byte, attributeType AttributeType, value uint32) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, uint16(attributeType))
	buf = binary.LittleEndian.AppendUint16(buf, 4)
	return binary.LittleEndian.AppendUint32(buf, value)
}

// appendSizelessAttribute emits the v2 form of the data attribute: type code
// only, value running to the end of the command.
func appendSizelessAttribute(buf []byte, attributeType AttributeType, value []byte) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, uint16(attributeType))
	return append(buf, value...)
}
