package zstd

import (
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/btrfsgo/sendstream/utility"
)

type Decompressor struct{}

func (decompressor Decompressor) Decompress(dst io.Writer, src io.Reader) error {
	zr, err := zstd.NewReader(src)
	if err != nil {
		return errors.Wrap(err, "DecompressZstd: zstd reader init failed")
	}
	defer zr.Close()
	_, err = utility.FastCopy(dst, zr)
	return errors.Wrap(err, "DecompressZstd: zstd write failed")
}

func (decompressor Decompressor) FileExtension() string {
	return FileExtension
}
