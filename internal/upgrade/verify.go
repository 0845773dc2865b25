package upgrade

import (
	"io"

	"github.com/pkg/errors"
	"github.com/wal-g/tracelog"

	"github.com/btrfsgo/sendstream/internal/checksum"
	"github.com/btrfsgo/sendstream/internal/sendstream"
)

// HandleVerify decodes the whole stream and validates every command checksum.
// The stream must terminate with an end command.
func HandleVerify(inputPath string) error {
	input, closeInput, err := openInput(inputPath)
	if err != nil {
		return err
	}
	defer closeInput()

	calculator := checksum.CreateCalculatorByName(checksum.AlgorithmSha256)
	reader := checksum.CreateReaderWithChecksum(input, calculator)

	version, err := sendstream.ReadStreamHeader(reader)
	if err != nil {
		return err
	}

	commands := 0
	bytes := sendstream.StreamHeaderSize
	for {
		command, err := sendstream.ReadCommand(reader, version)
		if err == io.EOF {
			return errors.Errorf("stream ended after %v commands without an end command", commands)
		}
		if err != nil {
			return err
		}
		if err := command.Verify(); err != nil {
			return errors.Wrapf(err, "command #%v at byte offset %v", commands, bytes)
		}
		commands++
		bytes += command.TotalSize()
		if command.IsEnd() {
			tracelog.InfoLogger.Printf("valid %v send-stream: %v commands, %v bytes, sha256 %v",
				version, commands, bytes, calculator.Checksum())
			return nil
		}
	}
}
