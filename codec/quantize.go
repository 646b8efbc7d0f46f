package codec

import (
	"math"

	"github.com/hupe1980/omfile/format"
)

// nanSentinel marks NaN samples on the int64 quantization path. The int16
// path uses math.MinInt16 for the same purpose, matching the storage width.
const nanSentinel = math.MinInt64

// quantize maps chunk values to int64 residual space. With scale 1 and
// offset 0, integer sources pass through bit-exactly (unsigned values wrap,
// which the dequantization reverses). Everything else goes through
// round((v - addOffset) / scaleFactor), the lossy half of the format's
// quantization contract.
func quantize[T format.Element](vals []T, scaleFactor, addOffset float64) []int64 {
	q := make([]int64, len(vals))
	isFloat := format.DataTypeOf[T]().IsFloat()

	if scaleFactor == 1 && addOffset == 0 && !isFloat {
		for i, v := range vals {
			q[i] = int64(v)
		}
		return q
	}

	for i, v := range vals {
		f := float64(v)
		if isFloat && math.IsNaN(f) {
			q[i] = nanSentinel
			continue
		}
		q[i] = int64(math.Round((f - addOffset) / scaleFactor))
	}
	return q
}

// dequantize reverses quantize into dst.
func dequantize[T format.Element](q []int64, dst []T, scaleFactor, addOffset float64) {
	isFloat := format.DataTypeOf[T]().IsFloat()

	if scaleFactor == 1 && addOffset == 0 && !isFloat {
		for i, v := range q {
			dst[i] = T(v)
		}
		return
	}

	for i, v := range q {
		if isFloat && v == nanSentinel {
			dst[i] = T(math.NaN())
			continue
		}
		f := float64(v)*scaleFactor + addOffset
		if !isFloat {
			f = math.Round(f)
		}
		dst[i] = T(f)
	}
}

// quantizeInt16 maps float samples to the int16 range used by the
// pfor_delta_2d_int16 codecs. Values are clamped, NaN becomes the
// math.MinInt16 sentinel, and the logarithmic variant passes values
// through log10(1+x) before scaling.
func quantizeInt16[T format.Element](vals []T, scaleFactor, addOffset float64, logarithmic bool) []int64 {
	q := make([]int64, len(vals))
	for i, v := range vals {
		f := float64(v)
		if math.IsNaN(f) {
			q[i] = math.MinInt16
			continue
		}
		if logarithmic {
			f = math.Log10(1 + f)
		}
		r := math.Round((f - addOffset) / scaleFactor)
		if r < math.MinInt16 {
			r = math.MinInt16
		} else if r > math.MaxInt16 {
			r = math.MaxInt16
		}
		q[i] = int64(r)
	}
	return q
}

// dequantizeInt16 reverses quantizeInt16 into dst.
func dequantizeInt16[T format.Element](q []int64, dst []T, scaleFactor, addOffset float64, logarithmic bool) {
	for i, v := range q {
		if v == math.MinInt16 {
			dst[i] = T(math.NaN())
			continue
		}
		f := float64(v)*scaleFactor + addOffset
		if logarithmic {
			f = math.Pow(10, f) - 1
		}
		dst[i] = T(f)
	}
}
