package upgrade

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/table"
	"github.com/pkg/errors"

	"github.com/btrfsgo/sendstream/internal/sendstream"
)

type InspectOptions struct {
	InputPath string
	// Limit caps the number of listed commands, 0 lists everything.
	Limit int
}

// HandleInspect renders the stream as a command table on output.
func HandleInspect(options InspectOptions, output io.Writer) error {
	reader, closeInput, err := openInput(options.InputPath)
	if err != nil {
		return err
	}
	defer closeInput()

	version, err := sendstream.ReadStreamHeader(reader)
	if err != nil {
		return err
	}
	fmt.Fprintf(output, "send-stream %v\n", version)

	writer := table.NewWriter()
	writer.SetOutputMirror(output)
	defer writer.Render()
	writer.AppendHeader(table.Row{"#", "Command", "Size", "CRC32C", "Details"})

	for count := 0; options.Limit == 0 || count < options.Limit; count++ {
		command, err := sendstream.ReadCommand(reader, version)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		writer.AppendRow(table.Row{
			count,
			command.Type().String(),
			command.TotalSize(),
			fmt.Sprintf("%08x", command.Crc32c()),
			describeCommand(command),
		})
		if command.IsEnd() {
			return nil
		}
	}
	return nil
}

// describeCommand summarizes the attributes of a command in one line. UUID
// attributes render canonically, the data attribute renders as its length.
func describeCommand(command *sendstream.Command) string {
	attributes, err := command.Attributes()
	if err != nil {
		return fmt.Sprintf("bad attributes: %v", err)
	}
	parts := make([]string, 0, len(attributes))
	for _, attribute := range attributes {
		parts = append(parts, describeAttribute(attribute))
	}
	return strings.Join(parts, " ")
}

func describeAttribute(attribute sendstream.Attribute) string {
	name := attribute.Type.String()
	switch attribute.Type {
	case sendstream.AttrUUID, sendstream.AttrCloneUUID:
		id, err := uuid.FromBytes(attribute.Value)
		if err != nil {
			return fmt.Sprintf("%v=<%v bytes>", name, len(attribute.Value))
		}
		return fmt.Sprintf("%v=%v", name, id)
	case sendstream.AttrPath, sendstream.AttrPathTo, sendstream.AttrPathLink,
		sendstream.AttrClonePath, sendstream.AttrXattrName:
		return fmt.Sprintf("%v=%q", name, attribute.Value)
	case sendstream.AttrData, sendstream.AttrXattrData:
		return fmt.Sprintf("%v=<%v bytes>", name, len(attribute.Value))
	default:
		if len(attribute.Value) == 8 {
			return fmt.Sprintf("%v=%v", name, binary.LittleEndian.Uint64(attribute.Value))
		}
		if len(attribute.Value) == 4 {
			return fmt.Sprintf("%v=%v", name, binary.LittleEndian.Uint32(attribute.Value))
		}
		return fmt.Sprintf("%v=<%v bytes>", name, len(attribute.Value))
	}
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" {
		return bufio.NewReader(os.Stdin), func() {}, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open input %v", path)
	}
	return bufio.NewReader(file), func() { _ = file.Close() }, nil
}
