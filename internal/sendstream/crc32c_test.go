package sendstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// referenceCrc32c is a bitwise implementation of the kernel btrfs_crc32c
// convention: reflected Castagnoli, caller-provided seed, no final inversion.
func referenceCrc32c(crc uint32, data []byte) uint32 {
	const polynomial = 0x82F63B78
	for _, b := range data {
		crc ^= uint32(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ polynomial
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

func TestChecksumOfNothingIsZero(t *testing.T) {
	assert.Equal(t, uint32(0), Checksum(nil))
	assert.Equal(t, uint32(0), Checksum([]byte{}))
}

func TestChecksumMatchesKernelConvention(t *testing.T) {
	inputs := [][]byte{
		[]byte("123456789"),
		[]byte("btrfs-stream\x00"),
		{0x00},
		{0xFF, 0xFF, 0xFF, 0xFF},
		make([]byte, 32),
		[]byte("a somewhat longer input covering more than one table stride"),
	}
	for _, input := range inputs {
		assert.Equal(t, referenceCrc32c(0, input), Checksum(input), "input %q", input)
	}
}

func TestChecksumUpdateChains(t *testing.T) {
	whole := []byte("stream header, then a command, then another")
	split := ChecksumUpdate(ChecksumUpdate(0, whole[:17]), whole[17:])
	assert.Equal(t, Checksum(whole), split)

	seeded := ChecksumUpdate(0xDEADBEEF, whole)
	assert.Equal(t, referenceCrc32c(0xDEADBEEF, whole), seeded)
}
