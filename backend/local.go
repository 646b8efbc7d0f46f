package backend

import (
	"context"
	"fmt"

	"github.com/hupe1980/omfile/internal/mmap"
)

// Local is a read backend over a memory-mapped local file. Range reads are
// zero-copy slices into the mapping.
type Local struct {
	m *mmap.Mapping
}

var _ Backend = (*Local)(nil)

// OpenLocal maps the file at path for reading.
func OpenLocal(path string) (*Local, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	return &Local{m: m}, nil
}

// ReadRange returns a slice of the mapping. The slice is valid until Close.
func (l *Local) ReadRange(ctx context.Context, offset, length uint64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data := l.m.Bytes()
	if data == nil {
		return nil, mmap.ErrClosed
	}
	if size := uint64(len(data)); offset > size || length > size-offset {
		return nil, fmt.Errorf("read %d bytes at %d beyond end of file (%d bytes)", length, offset, size)
	}
	return data[offset : offset+length], nil
}

// Size returns the mapped file size.
func (l *Local) Size() (uint64, error) {
	return uint64(l.m.Size()), nil
}

// Close unmaps the file.
func (l *Local) Close() error {
	return l.m.Close()
}
