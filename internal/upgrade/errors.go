package upgrade

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/wal-g/tracelog"
)

// InvalidOptionsError rejects an unusable combination of run options before
// any work starts. It is a caller mistake, not a stream or pipeline failure.
type InvalidOptionsError struct {
	error
}

func NewInvalidOptionsError(format string, args ...interface{}) InvalidOptionsError {
	return InvalidOptionsError{errors.Errorf(format, args...)}
}

func (err InvalidOptionsError) Error() string {
	return fmt.Sprintf(tracelog.GetErrorFormatter(), err.error)
}

// TransformError marks a failure to rewrite a command into its destination
// form: an unsupported target version, a bad compression spec, or a command
// the transform cannot express.
type TransformError struct {
	error
}

func NewTransformError(format string, args ...interface{}) TransformError {
	return TransformError{errors.Errorf(format, args...)}
}

func WrapTransformError(err error, sequence uint64) TransformError {
	return TransformError{errors.Wrapf(err, "transform of command #%v failed", sequence)}
}

func (err TransformError) Error() string {
	return fmt.Sprintf(tracelog.GetErrorFormatter(), err.error)
}

// EncodeError wraps failures while writing the output stream. Partial output
// is left in place and is not a valid send-stream.
type EncodeError struct {
	error
}

func NewEncodeError(err error, byteOffset int64) EncodeError {
	return EncodeError{errors.Wrapf(err, "output write failed at byte offset %v", byteOffset)}
}

func (err EncodeError) Error() string {
	return fmt.Sprintf(tracelog.GetErrorFormatter(), err.error)
}

// OutputLockedError reports that another process holds the output lock.
type OutputLockedError struct {
	error
}

func NewOutputLockedError(path string) OutputLockedError {
	return OutputLockedError{errors.Errorf("output %v is locked by another process", path)}
}

func (err OutputLockedError) Error() string {
	return fmt.Sprintf(tracelog.GetErrorFormatter(), err.error)
}
