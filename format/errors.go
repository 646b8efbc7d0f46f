package format

import "fmt"

// FormatError indicates a structurally invalid file: bad magic, unsupported
// version, or a field whose value contradicts the layout.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("omfile: invalid format: %s", e.Reason)
}

// TruncatedDataError indicates a short read of a structurally required field.
type TruncatedDataError struct {
	Field string
	Want  int
	Got   int
}

func (e *TruncatedDataError) Error() string {
	return fmt.Sprintf("omfile: truncated %s: need %d bytes, have %d", e.Field, e.Want, e.Got)
}
