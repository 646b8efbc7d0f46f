// Package backend abstracts the byte storage under an OM file: positioned
// range reads for the Reader and append-only writes for the Writer. Local
// files, in-memory buffers and remote object stores implement the same
// contracts, so the format engine behaves identically over all of them.
package backend

import (
	"context"
	"fmt"
)

// Backend provides positioned reads over a finalized OM file.
//
// ReadRange must return exactly length bytes or an error; short reads of
// structurally required data are surfaced by the caller as truncation.
// Implementations must be safe for concurrent use: the Reader issues chunk
// reads for disjoint byte ranges in parallel.
type Backend interface {
	// ReadRange reads length bytes starting at offset. The returned slice
	// must be treated as read-only and may alias an internal buffer.
	ReadRange(ctx context.Context, offset, length uint64) ([]byte, error)
	// Size returns the total length of the file in bytes.
	Size() (uint64, error)
	// Close releases resources held by the backend.
	Close() error
}

// Appender receives the append-only byte stream of a file being written.
// OM files are never mutated in place; every write extends the file, and
// the offset of the next append is determined by all previous ones.
type Appender interface {
	// Append writes p at the end of the file and returns the offset at
	// which it landed.
	Append(p []byte) (offset uint64, err error)
	// Sync flushes buffered data to durable storage.
	Sync() error
	// Close releases resources held by the appender.
	Close() error
}

// ContractError indicates that a supplied backend lacks a capability the
// operation needs, such as appending to a read-only remote object.
type ContractError struct {
	Op     string
	Reason string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("omfile: backend cannot %s: %s", e.Op, e.Reason)
}
