package format

import "fmt"

// Compression tags the per-chunk codec of an array variable. The numeric
// values are part of the on-disk format and must never change.
type Compression uint8

const (
	// CompressionPforDelta2dInt16 quantizes float samples to int16 with the
	// variable's scale factor, then applies 2D delta coding and
	// frame-of-reference bit packing. Lossy.
	CompressionPforDelta2dInt16 Compression = 0
	// CompressionFpxXor2d XORs IEEE-754 bit patterns against the previous
	// row and packs the residuals byte-wise. Lossless for floats.
	CompressionFpxXor2d Compression = 1
	// CompressionPforDelta2d is the integer path: values quantized with
	// scale/offset, 2D delta coded and bit packed.
	CompressionPforDelta2d Compression = 2
	// CompressionPforDelta2dInt16Logarithmic is the int16 scheme with a
	// log10(1+x) transform applied before scaling.
	CompressionPforDelta2dInt16Logarithmic Compression = 3
	// CompressionNone stores raw little-endian element bytes.
	CompressionNone Compression = 4

	compressionMax
)

// ParseCompression validates a raw on-disk tag.
func ParseCompression(v uint8) (Compression, error) {
	if v >= uint8(compressionMax) {
		return 0, &FormatError{Reason: fmt.Sprintf("unknown compression tag %d", v)}
	}
	return Compression(v), nil
}

// CompressionByName resolves the API tag strings, including the legacy
// aliases kept for files written by earlier tooling.
func CompressionByName(name string) (Compression, bool) {
	switch name {
	case "pfor_delta_2d_int16", "p4nzdec256":
		return CompressionPforDelta2dInt16, true
	case "fpx_xor_2d", "fpxdec32":
		return CompressionFpxXor2d, true
	case "pfor_delta_2d":
		return CompressionPforDelta2d, true
	case "pfor_delta_2d_int16_logarithmic", "p4nzdec256logarithmic":
		return CompressionPforDelta2dInt16Logarithmic, true
	case "none":
		return CompressionNone, true
	default:
		return 0, false
	}
}

func (c Compression) String() string {
	switch c {
	case CompressionPforDelta2dInt16:
		return "pfor_delta_2d_int16"
	case CompressionFpxXor2d:
		return "fpx_xor_2d"
	case CompressionPforDelta2d:
		return "pfor_delta_2d"
	case CompressionPforDelta2dInt16Logarithmic:
		return "pfor_delta_2d_int16_logarithmic"
	case CompressionNone:
		return "none"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}
