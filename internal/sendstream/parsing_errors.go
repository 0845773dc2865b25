package sendstream

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/wal-g/tracelog"
)

type BadStreamHeaderError struct {
	error
}

func NewBadStreamHeaderError(magic []byte) BadStreamHeaderError {
	return BadStreamHeaderError{errors.Errorf("stream header has bad magic: %q", magic)}
}

func (err BadStreamHeaderError) Error() string {
	return fmt.Sprintf(tracelog.GetErrorFormatter(), err.error)
}

type UnsupportedVersionError struct {
	error
}

func NewUnsupportedVersionError(version Version) UnsupportedVersionError {
	return UnsupportedVersionError{errors.Errorf("unsupported stream version: %d", uint32(version))}
}

func (err UnsupportedVersionError) Error() string {
	return fmt.Sprintf(tracelog.GetErrorFormatter(), err.error)
}

type BadCommandTypeError struct {
	error
}

func NewBadCommandTypeError(typeCode uint16, version Version) BadCommandTypeError {
	return BadCommandTypeError{
		errors.Errorf("bad command type code: %v for stream version %v", typeCode, version)}
}

func (err BadCommandTypeError) Error() string {
	return fmt.Sprintf(tracelog.GetErrorFormatter(), err.error)
}

type OversizedCommandError struct {
	error
}

func NewOversizedCommandError(size uint32, limit uint32) OversizedCommandError {
	return OversizedCommandError{
		errors.Errorf("command payload of %vB exceeds the %vB ceiling", size, limit)}
}

func (err OversizedCommandError) Error() string {
	return fmt.Sprintf(tracelog.GetErrorFormatter(), err.error)
}

type ChecksumMismatchError struct {
	error
}

func NewChecksumMismatchError(commandType CommandType, expected uint32, actual uint32) ChecksumMismatchError {
	return ChecksumMismatchError{
		errors.Errorf("crc32c mismatch on %v command: stored %08X, computed %08X",
			commandType, expected, actual)}
}

func (err ChecksumMismatchError) Error() string {
	return fmt.Sprintf(tracelog.GetErrorFormatter(), err.error)
}

type TruncatedStreamError struct {
	error
}

func NewTruncatedStreamError(expected int, actual int) TruncatedStreamError {
	return TruncatedStreamError{
		errors.Errorf("stream truncated: expected %vB, got %vB", expected, actual)}
}

func (err TruncatedStreamError) Error() string {
	return fmt.Sprintf(tracelog.GetErrorFormatter(), err.error)
}

type BadAttributeError struct {
	error
}

func NewBadAttributeError(description string, args ...interface{}) BadAttributeError {
	return BadAttributeError{errors.Errorf("bad attribute: "+description, args...)}
}

func (err BadAttributeError) Error() string {
	return fmt.Sprintf(tracelog.GetErrorFormatter(), err.error)
}

type FailedToShrinkPayloadError struct {
	error
}

func NewFailedToShrinkPayloadError(oldSize int, newSize int) FailedToShrinkPayloadError {
	return FailedToShrinkPayloadError{
		errors.Errorf("compression grew command from %vB to %vB", oldSize, newSize)}
}

func (err FailedToShrinkPayloadError) Error() string {
	return fmt.Sprintf(tracelog.GetErrorFormatter(), err.error)
}
