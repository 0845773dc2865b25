package utility

import "io"

const CopiedBlockMaxSize = 4 << 20

func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// FastCopy copies with a larger block size than io.Copy defaults to.
func FastCopy(dst io.Writer, src io.Reader) (int64, error) {
	n := int64(0)
	buf := make([]byte, CopiedBlockMaxSize)
	for {
		m, readingErr := src.Read(buf)
		if readingErr != nil && readingErr != io.EOF {
			return n, readingErr
		}
		m, writingErr := dst.Write(buf[:m])
		n += int64(m)
		if writingErr != nil || readingErr == io.EOF {
			return n, writingErr
		}
	}
}
