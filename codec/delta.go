package codec

// deltaEncode2d replaces every row of a 2D block with its elementwise
// difference to the previous row. The first row is left untouched. Rows of
// slowly varying data collapse to small residuals this way, which is what
// the bit-packing pass exploits.
func deltaEncode2d(v []int64, cols int) {
	for i := len(v) - 1; i >= cols; i-- {
		v[i] -= v[i-cols]
	}
}

// deltaDecode2d reverses deltaEncode2d by prefix-summing along rows.
func deltaDecode2d(v []int64, cols int) {
	for i := cols; i < len(v); i++ {
		v[i] += v[i-cols]
	}
}

// xorEncode2dBits32 XORs every row of float bit patterns with the previous
// row in place.
func xorEncode2dBits32(v []uint32, cols int) {
	for i := len(v) - 1; i >= cols; i-- {
		v[i] ^= v[i-cols]
	}
}

func xorDecode2dBits32(v []uint32, cols int) {
	for i := cols; i < len(v); i++ {
		v[i] ^= v[i-cols]
	}
}

func xorEncode2dBits64(v []uint64, cols int) {
	for i := len(v) - 1; i >= cols; i-- {
		v[i] ^= v[i-cols]
	}
}

func xorDecode2dBits64(v []uint64, cols int) {
	for i := cols; i < len(v); i++ {
		v[i] ^= v[i-cols]
	}
}

// zigzag maps signed residuals to unsigned so that small magnitudes of
// either sign pack into few bits.
func zigzag(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func unzigzag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}
