package codec

import (
	"fmt"

	"github.com/hupe1980/omfile/format"
)

// UnsupportedCodecError indicates an unknown compression tag or a codec
// applied to an element type it cannot encode.
type UnsupportedCodecError struct {
	Compression format.Compression
	DataType    format.DataType
}

func (e *UnsupportedCodecError) Error() string {
	return fmt.Sprintf("omfile: codec %s does not support %s", e.Compression, e.DataType)
}

// DecodeError indicates a corrupt or short compressed chunk payload.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("omfile: decode failed: %s", e.Reason)
}
