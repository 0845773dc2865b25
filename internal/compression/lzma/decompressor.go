package lzma

import (
	"io"

	"github.com/pkg/errors"
	"github.com/ulikunitz/xz/lzma"

	"github.com/btrfsgo/sendstream/utility"
)

type Decompressor struct{}

func (decompressor Decompressor) Decompress(dst io.Writer, src io.Reader) error {
	lzmaReader, err := lzma.NewReader(src)
	if err != nil {
		return errors.Wrap(err, "DecompressLzma: lzma reader init failed")
	}
	_, err = utility.FastCopy(dst, lzmaReader)
	return errors.Wrap(err, "DecompressLzma: lzma write failed")
}

func (decompressor Decompressor) FileExtension() string {
	return FileExtension
}
