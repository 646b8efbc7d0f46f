package omfile

import (
	"fmt"

	"github.com/hupe1980/omfile/format"
)

// The error kinds below complete the taxonomy started in the format,
// codec and backend packages. All of them are inspectable with errors.As;
// none are downgraded to generic failures.

// SelectionError indicates a malformed selection or data shape: an
// out-of-range index, a step other than 1, or a dimension count that does
// not match the variable.
type SelectionError struct {
	Reason string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("omfile: invalid selection: %s", e.Reason)
}

// DependencyOrderError indicates a child variable referenced before its
// location was committed to storage. Children must be written before the
// parent that lists them.
type DependencyOrderError struct {
	Reason string
}

func (e *DependencyOrderError) Error() string {
	return fmt.Sprintf("omfile: dependency order violated: %s", e.Reason)
}

// InvalidStateError indicates an operation issued against a Writer or
// Reader in the wrong lifecycle state, such as finalizing twice or writing
// after finalize.
type InvalidStateError struct {
	Op    string
	State string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("omfile: cannot %s: writer is %s", e.Op, e.State)
}

// DataTypeMismatchError indicates a typed read or scalar access against a
// variable of a different stored element type.
type DataTypeMismatchError struct {
	Want format.DataType
	Got  format.DataType
}

func (e *DataTypeMismatchError) Error() string {
	return fmt.Sprintf("omfile: data type mismatch: requested %s, stored %s", e.Want, e.Got)
}

// ReadError wraps a backend I/O failure during a read operation, including
// remote fetch failures after retries are exhausted.
type ReadError struct {
	Op  string
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("omfile: read %s: %v", e.Op, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError wraps a backend I/O failure during a write operation.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("omfile: write %s: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
