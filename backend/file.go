package backend

import (
	"bufio"
	"os"
)

// File is an append-only writer backend over a local file. Appends go
// through a buffered writer; Sync flushes and fsyncs.
type File struct {
	f   *os.File
	w   *bufio.Writer
	pos uint64
}

var _ Appender = (*File)(nil)

// CreateFile creates (or truncates) the file at path for writing.
func CreateFile(path string) (*File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &File{f: f, w: bufio.NewWriterSize(f, 1<<16)}, nil
}

// Append writes p at the end of the file and returns its offset.
func (b *File) Append(p []byte) (uint64, error) {
	offset := b.pos
	n, err := b.w.Write(p)
	b.pos += uint64(n)
	if err != nil {
		return 0, err
	}
	return offset, nil
}

// Sync flushes the buffer and fsyncs the file.
func (b *File) Sync() error {
	if err := b.w.Flush(); err != nil {
		return err
	}
	return b.f.Sync()
}

// Close flushes and closes the file.
func (b *File) Close() error {
	if err := b.w.Flush(); err != nil {
		b.f.Close()
		return err
	}
	return b.f.Close()
}
