package codec

import "encoding/binary"

// The chunk-offset lookup table holds nChunks+1 cumulative byte offsets;
// chunk i spans [lut[i], lut[i+1]). Offsets are monotonic, so the table is
// stored as uvarint deltas behind a uvarint entry count.

// EncodeLUT compresses a chunk-offset lookup table.
func EncodeLUT(lut []uint64) []byte {
	buf := binary.AppendUvarint(nil, uint64(len(lut)))
	prev := uint64(0)
	for _, off := range lut {
		buf = binary.AppendUvarint(buf, off-prev)
		prev = off
	}
	return buf
}

// DecodeLUT decompresses a lookup table, verifying the expected entry
// count and monotonicity.
func DecodeLUT(src []byte, want int) ([]uint64, error) {
	count, n := binary.Uvarint(src)
	if n <= 0 {
		return nil, &DecodeError{Reason: "missing lookup table count"}
	}
	if count != uint64(want) {
		return nil, &DecodeError{Reason: "lookup table count does not match chunk count"}
	}
	src = src[n:]

	lut := make([]uint64, count)
	prev := uint64(0)
	for i := range lut {
		delta, n := binary.Uvarint(src)
		if n <= 0 {
			return nil, &DecodeError{Reason: "short lookup table"}
		}
		src = src[n:]
		prev += delta
		lut[i] = prev
	}
	if len(src) != 0 {
		return nil, &DecodeError{Reason: "trailing bytes after lookup table"}
	}
	return lut, nil
}
