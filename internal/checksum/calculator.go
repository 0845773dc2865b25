package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"hash/crc32"

	"github.com/wal-g/tracelog"
)

const (
	AlgorithmSha256 = "sha256"
	AlgorithmCrc32c = "crc32c"
	AlgorithmNone   = "none"
)

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// Calculator accumulates a digest over every byte that passes through
// a ReaderWithChecksum or WriterWithChecksum.
type Calculator struct {
	algorithm string
	hash      hash.Hash
}

func CreateCalculator() *Calculator {
	return CreateCalculatorByName(AlgorithmSha256)
}

func CreateCalculatorByName(algorithm string) *Calculator {
	switch algorithm {
	case AlgorithmSha256:
		return &Calculator{algorithm: algorithm, hash: sha256.New()}
	case AlgorithmCrc32c:
		return &Calculator{algorithm: algorithm, hash: crc32.New(crc32cTable)}
	case AlgorithmNone:
		return &Calculator{algorithm: algorithm}
	default:
		tracelog.ErrorLogger.Panicf("unknown checksum algorithm: %v", algorithm)
		return nil
	}
}

func (calculator *Calculator) Algorithm() string {
	return calculator.algorithm
}

func (calculator *Calculator) AddData(data []byte) {
	if calculator.hash == nil {
		return
	}
	_, _ = calculator.hash.Write(data)
}

// Checksum returns the hex digest of all data added so far.
func (calculator *Calculator) Checksum() string {
	if calculator.hash == nil {
		return ""
	}
	return hex.EncodeToString(calculator.hash.Sum(nil))
}
