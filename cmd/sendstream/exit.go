package sendstream

import (
	"errors"

	"github.com/btrfsgo/sendstream/internal/sendstream"
	"github.com/btrfsgo/sendstream/internal/upgrade"
)

const (
	ExitCodeInternal  = 1
	ExitCodeUsage     = 2
	ExitCodeDecode    = 3
	ExitCodeIO        = 4
	ExitCodeTransform = 5
)

// commandRan flips once a subcommand body starts, so errors before it are
// usage errors.
var commandRan = false

func exitCode(err error) int {
	if !commandRan {
		return ExitCodeUsage
	}
	var invalidOptions upgrade.InvalidOptionsError
	if errors.As(err, &invalidOptions) {
		return ExitCodeUsage
	}
	var (
		badHeader          sendstream.BadStreamHeaderError
		unsupportedVersion sendstream.UnsupportedVersionError
		badCommandType     sendstream.BadCommandTypeError
		oversized          sendstream.OversizedCommandError
		checksumMismatch   sendstream.ChecksumMismatchError
		truncated          sendstream.TruncatedStreamError
		badAttribute       sendstream.BadAttributeError
	)
	switch {
	case errors.As(err, &badHeader), errors.As(err, &unsupportedVersion),
		errors.As(err, &badCommandType), errors.As(err, &oversized),
		errors.As(err, &checksumMismatch), errors.As(err, &truncated),
		errors.As(err, &badAttribute):
		return ExitCodeDecode
	}
	var (
		encode upgrade.EncodeError
		locked upgrade.OutputLockedError
	)
	if errors.As(err, &encode) || errors.As(err, &locked) {
		return ExitCodeIO
	}
	var transform upgrade.TransformError
	if errors.As(err, &transform) {
		return ExitCodeTransform
	}
	return ExitCodeInternal
}
