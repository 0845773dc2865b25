package none

import (
	"io"

	"github.com/pkg/errors"

	"github.com/btrfsgo/sendstream/utility"
)

const (
	AlgorithmName = "none"
	FileExtension = ""
)

type Compressor struct{}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func (compressor Compressor) NewWriter(writer io.Writer) io.WriteCloser {
	return nopWriteCloser{writer}
}

func (compressor Compressor) FileExtension() string {
	return FileExtension
}

type Decompressor struct{}

func (decompressor Decompressor) Decompress(dst io.Writer, src io.Reader) error {
	_, err := utility.FastCopy(dst, src)
	return errors.Wrap(err, "DecompressNone: copy failed")
}

func (decompressor Decompressor) FileExtension() string {
	return FileExtension
}
