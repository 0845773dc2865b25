package checksum

import (
	"hash/crc32"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSha256Digest(t *testing.T) {
	calculator := CreateCalculatorByName(AlgorithmSha256)
	calculator.AddData([]byte("hello"))
	assert.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		calculator.Checksum())
}

func TestDigestAccumulatesAcrossWrites(t *testing.T) {
	oneShot := CreateCalculatorByName(AlgorithmSha256)
	oneShot.AddData([]byte("hello world"))

	incremental := CreateCalculatorByName(AlgorithmSha256)
	incremental.AddData([]byte("hello "))
	incremental.AddData([]byte("world"))

	assert.Equal(t, oneShot.Checksum(), incremental.Checksum())
}

func TestCrc32cDigest(t *testing.T) {
	calculator := CreateCalculatorByName(AlgorithmCrc32c)
	calculator.AddData([]byte("hello"))

	expected := crc32.Checksum([]byte("hello"), crc32.MakeTable(crc32.Castagnoli))
	padded := calculator.Checksum()
	value, err := strconv.ParseUint(padded, 16, 64)
	assert.NoError(t, err)
	assert.Equal(t, uint64(expected), value)
}

func TestNoneDigestIsEmpty(t *testing.T) {
	calculator := CreateCalculatorByName(AlgorithmNone)
	calculator.AddData([]byte("hello"))
	assert.Equal(t, "", calculator.Checksum())
	assert.Equal(t, AlgorithmNone, calculator.Algorithm())
}
