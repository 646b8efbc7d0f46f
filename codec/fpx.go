package codec

import (
	"math"
	mathbits "math/bits"

	"github.com/hupe1980/omfile/format"
)

// fpx_xor_2d layout: a nibble-per-value control section (significant byte
// count of the XOR residual, low nibble first) of ceil(n/2) bytes, followed
// by the significant little-endian bytes of every residual in order.
// Neighboring samples share exponent and high mantissa bits, so residuals
// are mostly leading zeros and pack to a few bytes.

func fpxEncode[T format.Element](vals []T, cols int) ([]byte, error) {
	switch vs := any(vals).(type) {
	case []float32:
		return fpxEncode32(vs, cols), nil
	case []float64:
		return fpxEncode64(vs, cols), nil
	default:
		return nil, &UnsupportedCodecError{
			Compression: format.CompressionFpxXor2d,
			DataType:    format.DataTypeOf[T](),
		}
	}
}

func fpxDecode[T format.Element](src []byte, dst []T, cols int) error {
	switch d := any(dst).(type) {
	case []float32:
		return fpxDecode32(src, d, cols)
	case []float64:
		return fpxDecode64(src, d, cols)
	default:
		return &UnsupportedCodecError{
			Compression: format.CompressionFpxXor2d,
			DataType:    format.DataTypeOf[T](),
		}
	}
}

func fpxEncode32(vals []float32, cols int) []byte {
	xored := make([]uint32, len(vals))
	for i, v := range vals {
		xored[i] = math.Float32bits(v)
	}
	xorEncode2dBits32(xored, cols)

	ctrl := make([]byte, (len(xored)+1)/2)
	data := make([]byte, 0, len(xored))
	for i, x := range xored {
		nb := (mathbits.Len32(x) + 7) / 8
		if i%2 == 0 {
			ctrl[i/2] = byte(nb)
		} else {
			ctrl[i/2] |= byte(nb) << 4
		}
		for j := 0; j < nb; j++ {
			data = append(data, byte(x>>(8*j)))
		}
	}
	return append(ctrl, data...)
}

func fpxDecode32(src []byte, dst []float32, cols int) error {
	ctrlLen := (len(dst) + 1) / 2
	if len(src) < ctrlLen {
		return &DecodeError{Reason: "short fpx control section"}
	}
	data := src[ctrlLen:]

	xored := make([]uint32, len(dst))
	pos := 0
	for i := range xored {
		nb := int(src[i/2] >> (4 * uint(i%2)) & 0x0f)
		if nb > 4 {
			return &DecodeError{Reason: "fpx byte count exceeds element width"}
		}
		if pos+nb > len(data) {
			return &DecodeError{Reason: "short fpx payload"}
		}
		var x uint32
		for j := 0; j < nb; j++ {
			x |= uint32(data[pos+j]) << (8 * j)
		}
		xored[i] = x
		pos += nb
	}
	if pos != len(data) {
		return &DecodeError{Reason: "trailing bytes after fpx payload"}
	}

	xorDecode2dBits32(xored, cols)
	for i, x := range xored {
		dst[i] = math.Float32frombits(x)
	}
	return nil
}

func fpxEncode64(vals []float64, cols int) []byte {
	xored := make([]uint64, len(vals))
	for i, v := range vals {
		xored[i] = math.Float64bits(v)
	}
	xorEncode2dBits64(xored, cols)

	ctrl := make([]byte, (len(xored)+1)/2)
	data := make([]byte, 0, len(xored))
	for i, x := range xored {
		nb := (mathbits.Len64(x) + 7) / 8
		if i%2 == 0 {
			ctrl[i/2] = byte(nb)
		} else {
			ctrl[i/2] |= byte(nb) << 4
		}
		for j := 0; j < nb; j++ {
			data = append(data, byte(x>>(8*j)))
		}
	}
	return append(ctrl, data...)
}

func fpxDecode64(src []byte, dst []float64, cols int) error {
	ctrlLen := (len(dst) + 1) / 2
	if len(src) < ctrlLen {
		return &DecodeError{Reason: "short fpx control section"}
	}
	data := src[ctrlLen:]

	xored := make([]uint64, len(dst))
	pos := 0
	for i := range xored {
		nb := int(src[i/2] >> (4 * uint(i%2)) & 0x0f)
		if nb > 8 {
			return &DecodeError{Reason: "fpx byte count exceeds element width"}
		}
		if pos+nb > len(data) {
			return &DecodeError{Reason: "short fpx payload"}
		}
		var x uint64
		for j := 0; j < nb; j++ {
			x |= uint64(data[pos+j]) << (8 * j)
		}
		xored[i] = x
		pos += nb
	}
	if pos != len(data) {
		return &DecodeError{Reason: "trailing bytes after fpx payload"}
	}

	xorDecode2dBits64(xored, cols)
	for i, x := range xored {
		dst[i] = math.Float64frombits(x)
	}
	return nil
}
