package mdict

import (
	"fmt"
	"io"
	"os"
)

// blockSource is the random-access byte source the rest of the package reads
// through. os.File already satisfies io.ReaderAt and is safe for concurrent
// ReadAt calls at independent offsets, which is what lets Lookup/Search be
// called concurrently once a dictionary has finished opening.
type blockSource struct {
	r    io.ReaderAt
	path string
}

func openBlockSource(path string) (*blockSource, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, newErr(ErrKindIO, "open", path, err)
	}
	return &blockSource{r: f, path: path}, f.Close, nil
}

// read fetches exactly length bytes starting at offset, failing on a short read.
func (b *blockSource) read(offset, length int64) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	buf := make([]byte, length)
	n, err := b.r.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, newErr(ErrKindIO, "read", b.path, err)
	}
	if int64(n) != length {
		return nil, newErr(ErrKindIO, "read", b.path, fmt.Errorf("short read at offset %d: wanted %d, got %d", offset, length, n))
	}
	return buf, nil
}
