package compression

import (
	"io"

	"github.com/btrfsgo/sendstream/internal/compression/lz4"
	"github.com/btrfsgo/sendstream/internal/compression/lzma"
	"github.com/btrfsgo/sendstream/internal/compression/none"
	"github.com/btrfsgo/sendstream/internal/compression/zstd"
)

// NoneAlgorithmName is the passthrough method; the artifact is stored as-is.
const NoneAlgorithmName = none.AlgorithmName

// CompressingAlgorithms are the methods available for compressing the output
// stream artifact as stored on disk. This is independent of the in-command
// payload compression of encoded writes, which is always zstd.
var CompressingAlgorithms = []string{zstd.AlgorithmName, lz4.AlgorithmName, lzma.AlgorithmName, none.AlgorithmName}

type Compressor interface {
	NewWriter(writer io.Writer) io.WriteCloser
	FileExtension() string
}

type Decompressor interface {
	Decompress(dst io.Writer, src io.Reader) error
	FileExtension() string
}

var Compressors = map[string]Compressor{
	zstd.AlgorithmName: zstd.Compressor{},
	lz4.AlgorithmName:  lz4.Compressor{},
	lzma.AlgorithmName: lzma.Compressor{},
	none.AlgorithmName: none.Compressor{},
}

var Decompressors = []Decompressor{
	zstd.Decompressor{},
	lz4.Decompressor{},
	lzma.Decompressor{},
	none.Decompressor{},
}

func GetDecompressorByCompressor(compressor Compressor) Decompressor {
	return FindDecompressor(compressor.FileExtension())
}

func FindDecompressor(fileExtension string) Decompressor {
	for _, decompressor := range Decompressors {
		if decompressor.FileExtension() == fileExtension {
			return decompressor
		}
	}
	return nil
}
