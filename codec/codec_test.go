package codec

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/omfile/format"
)

func roundTrip[T format.Element](t *testing.T, c format.Compression, vals []T, cols int, scaleFactor, addOffset float64) []T {
	t.Helper()

	enc, err := Encode(c, vals, cols, scaleFactor, addOffset)
	require.NoError(t, err)

	dst := make([]T, len(vals))
	require.NoError(t, Decode(c, enc, dst, cols, scaleFactor, addOffset))
	return dst
}

func TestPforDelta2dIntegerExact(t *testing.T) {
	vals := []int32{0, 1, -1, 100, -100, 1 << 20, -(1 << 20), 42, 7, -7, 0, 12345}
	got := roundTrip(t, format.CompressionPforDelta2d, vals, 4, 1, 0)
	assert.Equal(t, vals, got)
}

func TestPforDelta2dAllTypes(t *testing.T) {
	t.Run("int8", func(t *testing.T) {
		vals := []int8{-128, 127, 0, -1, 1, 64, -64, 33}
		assert.Equal(t, vals, roundTrip(t, format.CompressionPforDelta2d, vals, 4, 1, 0))
	})
	t.Run("uint8", func(t *testing.T) {
		vals := []uint8{0, 255, 128, 1, 254, 2, 100, 200}
		assert.Equal(t, vals, roundTrip(t, format.CompressionPforDelta2d, vals, 4, 1, 0))
	})
	t.Run("int16", func(t *testing.T) {
		vals := []int16{-32768, 32767, 0, 1, -1, 1000, -1000, 7}
		assert.Equal(t, vals, roundTrip(t, format.CompressionPforDelta2d, vals, 4, 1, 0))
	})
	t.Run("uint16", func(t *testing.T) {
		vals := []uint16{0, 65535, 32768, 1, 2, 3, 4, 5}
		assert.Equal(t, vals, roundTrip(t, format.CompressionPforDelta2d, vals, 4, 1, 0))
	})
	t.Run("int64", func(t *testing.T) {
		vals := []int64{math.MinInt64, math.MaxInt64, 0, -1, 1, 1 << 40, -(1 << 40), 9}
		assert.Equal(t, vals, roundTrip(t, format.CompressionPforDelta2d, vals, 4, 1, 0))
	})
	t.Run("uint64", func(t *testing.T) {
		vals := []uint64{0, math.MaxUint64, 1 << 63, 1, 2, 3, 4, 5}
		assert.Equal(t, vals, roundTrip(t, format.CompressionPforDelta2d, vals, 4, 1, 0))
	})
	t.Run("uint32", func(t *testing.T) {
		vals := []uint32{0, math.MaxUint32, 1 << 31, 7, 8, 9, 10, 11}
		assert.Equal(t, vals, roundTrip(t, format.CompressionPforDelta2d, vals, 4, 1, 0))
	})
}

func TestPforDelta2dQuantized(t *testing.T) {
	const scale = 0.05
	vals := make([]float32, 500)
	rng := rand.New(rand.NewSource(1))
	for i := range vals {
		vals[i] = 20*rng.Float32() - 10
	}

	got := roundTrip(t, format.CompressionPforDelta2d, vals, 50, scale, 0)
	for i := range vals {
		assert.InDelta(t, vals[i], got[i], scale/2+1e-6)
	}
}

func TestPforDelta2dFloatNaN(t *testing.T) {
	nan := float32(math.NaN())
	vals := []float32{1.5, nan, -2.25, nan, 0, 3, nan, 4}

	got := roundTrip(t, format.CompressionPforDelta2d, vals, 4, 0.25, 0)
	for i := range vals {
		if math.IsNaN(float64(vals[i])) {
			assert.True(t, math.IsNaN(float64(got[i])), "index %d", i)
		} else {
			assert.InDelta(t, vals[i], got[i], 0.25/2+1e-6)
		}
	}
}

func TestFpxXor2dLossless(t *testing.T) {
	t.Run("float32", func(t *testing.T) {
		vals := []float32{0, 1.5, -2.75, float32(math.Pi), 1e-20, 1e20, float32(math.NaN()), float32(math.Inf(1))}
		got := roundTrip(t, format.CompressionFpxXor2d, vals, 4, 1, 0)
		for i := range vals {
			assert.Equal(t, math.Float32bits(vals[i]), math.Float32bits(got[i]), "index %d", i)
		}
	})
	t.Run("float64", func(t *testing.T) {
		vals := []float64{0, 1.5, -2.75, math.Pi, 1e-300, 1e300, math.NaN(), math.Inf(-1)}
		got := roundTrip(t, format.CompressionFpxXor2d, vals, 4, 1, 0)
		for i := range vals {
			assert.Equal(t, math.Float64bits(vals[i]), math.Float64bits(got[i]), "index %d", i)
		}
	})
}

func TestFpxXor2dSmooth(t *testing.T) {
	// Smooth data XORs to few significant bytes; verify a larger block.
	vals := make([]float64, 1000)
	for i := range vals {
		vals[i] = 15 + 0.01*float64(i%100)
	}
	got := roundTrip(t, format.CompressionFpxXor2d, vals, 100, 1, 0)
	assert.Equal(t, vals, got)
}

func TestPforDelta2dInt16(t *testing.T) {
	const scale = 0.05
	vals := []float32{0, 0.05, -0.05, 10, -10, 100.25, -100.25, 0.5}

	got := roundTrip(t, format.CompressionPforDelta2dInt16, vals, 4, scale, 0)
	for i := range vals {
		assert.InDelta(t, vals[i], got[i], scale/2+1e-6)
	}
}

func TestPforDelta2dInt16Clamp(t *testing.T) {
	// Values beyond the int16 range clamp to its edges.
	vals := []float32{1e9, -1e9}
	got := roundTrip(t, format.CompressionPforDelta2dInt16, vals, 2, 1, 0)

	assert.Equal(t, float32(math.MaxInt16), got[0])
	// MinInt16 is the NaN sentinel, so the negative edge decodes as NaN.
	assert.True(t, math.IsNaN(float64(got[1])))
}

func TestPforDelta2dInt16NaN(t *testing.T) {
	nan := float32(math.NaN())
	vals := []float32{1, nan, 3, nan}

	got := roundTrip(t, format.CompressionPforDelta2dInt16, vals, 2, 1, 0)
	assert.Equal(t, float32(1), got[0])
	assert.True(t, math.IsNaN(float64(got[1])))
	assert.Equal(t, float32(3), got[2])
	assert.True(t, math.IsNaN(float64(got[3])))
}

func TestPforDelta2dInt16Logarithmic(t *testing.T) {
	const scale = 0.001
	vals := []float32{0, 0.001, 0.1, 1, 10, 25.5, 3.25, 0.5}

	got := roundTrip(t, format.CompressionPforDelta2dInt16Logarithmic, vals, 4, scale, 0)
	for i := range vals {
		// The tolerance is scale/2 in log10(1+x) space.
		wantLog := math.Log10(1 + float64(vals[i]))
		gotLog := math.Log10(1 + float64(got[i]))
		assert.InDelta(t, wantLog, gotLog, scale/2+1e-6)
	}
}

func TestNoneRaw(t *testing.T) {
	t.Run("float32", func(t *testing.T) {
		vals := []float32{1.5, -2.5, float32(math.NaN()), 0}
		got := roundTrip(t, format.CompressionNone, vals, 2, 1, 0)
		for i := range vals {
			assert.Equal(t, math.Float32bits(vals[i]), math.Float32bits(got[i]))
		}
	})
	t.Run("uint64", func(t *testing.T) {
		vals := []uint64{0, math.MaxUint64, 42, 7}
		assert.Equal(t, vals, roundTrip(t, format.CompressionNone, vals, 2, 1, 0))
	})
}

func TestEncodeGeometryMismatch(t *testing.T) {
	vals := []int32{1, 2, 3, 4, 5}
	_, err := Encode(format.CompressionPforDelta2d, vals, 2, 1, 0)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestIntegerTypeRejectedByFloatCodecs(t *testing.T) {
	vals := []int32{1, 2, 3, 4}

	for _, c := range []format.Compression{
		format.CompressionFpxXor2d,
		format.CompressionPforDelta2dInt16,
		format.CompressionPforDelta2dInt16Logarithmic,
	} {
		_, err := Encode(c, vals, 2, 1, 0)

		var unsupported *UnsupportedCodecError
		require.ErrorAs(t, err, &unsupported, c.String())
		assert.Equal(t, c, unsupported.Compression)
	}
}

func TestDecodeCorruptPayload(t *testing.T) {
	vals := []int32{1, 2, 3, 4}
	enc, err := Encode(format.CompressionPforDelta2d, vals, 2, 1, 0)
	require.NoError(t, err)

	dst := make([]int32, 4)
	var decodeErr *DecodeError

	// Truncated payload.
	err = Decode(format.CompressionPforDelta2d, enc[:len(enc)-1], dst, 2, 1, 0)
	require.ErrorAs(t, err, &decodeErr)

	// Trailing garbage.
	err = Decode(format.CompressionPforDelta2d, append(append([]byte(nil), enc...), 0xff), dst, 2, 1, 0)
	require.ErrorAs(t, err, &decodeErr)
}

func TestAddOffset(t *testing.T) {
	vals := []float64{1000.5, 1001.25, 1002, 1003.75}
	got := roundTrip(t, format.CompressionPforDelta2d, vals, 2, 0.25, 1000)
	assert.Equal(t, vals, got)
}
