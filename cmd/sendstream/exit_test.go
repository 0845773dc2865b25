package sendstream

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/btrfsgo/sendstream/internal/sendstream"
	"github.com/btrfsgo/sendstream/internal/upgrade"
)

func TestExitCodeClassifiesErrors(t *testing.T) {
	commandRan = true
	defer func() { commandRan = false }()

	assert.Equal(t, ExitCodeUsage, exitCode(upgrade.NewInvalidOptionsError("thread count 0 is not positive")))
	assert.Equal(t, ExitCodeUsage,
		exitCode(errors.Wrap(upgrade.NewInvalidOptionsError("unknown checksum algorithm md5"), "upgrade failed")))
	assert.Equal(t, ExitCodeDecode, exitCode(sendstream.NewTruncatedStreamError(64, 3)))
	assert.Equal(t, ExitCodeIO, exitCode(upgrade.NewEncodeError(fmt.Errorf("disk full"), 17)))
	assert.Equal(t, ExitCodeTransform, exitCode(upgrade.NewTransformError("cannot downgrade")))
	assert.Equal(t, ExitCodeInternal, exitCode(fmt.Errorf("unexpected")))
}

func TestExitCodeBeforeAnyCommandIsUsage(t *testing.T) {
	assert.Equal(t, ExitCodeUsage, exitCode(fmt.Errorf("unknown flag")))
}
