// Package codec implements the per-chunk compression schemes of the OM
// container: 2D delta coding with frame-of-reference bit packing
// (pfor_delta_2d and its int16 variants), XOR float coding (fpx_xor_2d),
// raw storage, and the scale/offset quantization applied before the
// integer codecs.
//
// Every codec views a chunk as a 2D block: cols is the extent of the
// fastest-varying (last) dimension, rows is the product of all others.
// Encoding is deterministic; decoding the produced bytes with the same
// geometry reproduces the input within the quantization tolerance
// (exactly, when no quantization is active).
package codec

import (
	"github.com/hupe1980/omfile/format"
)

// Encode compresses one chunk of vals into a fresh byte slice. cols is the
// extent of the fastest-varying dimension of this chunk after clipping at
// the array edge; len(vals) must be a multiple of cols.
func Encode[T format.Element](c format.Compression, vals []T, cols int, scaleFactor, addOffset float64) ([]byte, error) {
	if err := validate[T](c, len(vals), cols); err != nil {
		return nil, err
	}
	switch c {
	case format.CompressionPforDelta2d:
		q := quantize(vals, scaleFactor, addOffset)
		deltaEncode2d(q, cols)
		return pforPack(q), nil
	case format.CompressionPforDelta2dInt16:
		q := quantizeInt16(vals, scaleFactor, addOffset, false)
		deltaEncode2d(q, cols)
		return pforPack(q), nil
	case format.CompressionPforDelta2dInt16Logarithmic:
		q := quantizeInt16(vals, scaleFactor, addOffset, true)
		deltaEncode2d(q, cols)
		return pforPack(q), nil
	case format.CompressionFpxXor2d:
		return fpxEncode(vals, cols)
	case format.CompressionNone:
		return rawEncode(vals), nil
	default:
		return nil, &UnsupportedCodecError{Compression: c, DataType: format.DataTypeOf[T]()}
	}
}

// Decode decompresses one chunk into dst. The destination length and cols
// define the chunk geometry and must match the values used at encode time.
func Decode[T format.Element](c format.Compression, src []byte, dst []T, cols int, scaleFactor, addOffset float64) error {
	if err := validate[T](c, len(dst), cols); err != nil {
		return err
	}
	switch c {
	case format.CompressionPforDelta2d:
		q, err := pforUnpack(src, len(dst))
		if err != nil {
			return err
		}
		deltaDecode2d(q, cols)
		dequantize(q, dst, scaleFactor, addOffset)
		return nil
	case format.CompressionPforDelta2dInt16:
		q, err := pforUnpack(src, len(dst))
		if err != nil {
			return err
		}
		deltaDecode2d(q, cols)
		dequantizeInt16(q, dst, scaleFactor, addOffset, false)
		return nil
	case format.CompressionPforDelta2dInt16Logarithmic:
		q, err := pforUnpack(src, len(dst))
		if err != nil {
			return err
		}
		deltaDecode2d(q, cols)
		dequantizeInt16(q, dst, scaleFactor, addOffset, true)
		return nil
	case format.CompressionFpxXor2d:
		return fpxDecode(src, dst, cols)
	case format.CompressionNone:
		return rawDecode(src, dst)
	default:
		return &UnsupportedCodecError{Compression: c, DataType: format.DataTypeOf[T]()}
	}
}

func validate[T format.Element](c format.Compression, n, cols int) error {
	if cols <= 0 || n%cols != 0 {
		return &DecodeError{Reason: "chunk length is not a multiple of its row length"}
	}
	dt := format.DataTypeOf[T]()
	switch c {
	case format.CompressionFpxXor2d,
		format.CompressionPforDelta2dInt16,
		format.CompressionPforDelta2dInt16Logarithmic:
		if !dt.IsFloat() {
			return &UnsupportedCodecError{Compression: c, DataType: dt}
		}
	}
	return nil
}
