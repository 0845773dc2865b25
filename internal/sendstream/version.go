package sendstream

import "fmt"

// Version is the send-stream protocol version carried in the stream header.
type Version uint32

const (
	SendVersion1 Version = 1
	SendVersion2 Version = 2

	// MaxSupportedVersion is the newest protocol version this package can
	// produce.
	MaxSupportedVersion = SendVersion2
)

func (version Version) String() string {
	return fmt.Sprintf("v%d", uint32(version))
}

func (version Version) IsSupported() bool {
	return version >= SendVersion1 && version <= MaxSupportedVersion
}
