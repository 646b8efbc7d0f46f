package codec

import (
	"math/bits"

	"github.com/hupe1980/omfile/format"
)

// pforFrameSize is the number of values per bit-packing frame. Each frame
// carries one width byte followed by ceil(count*width/8) packed bytes, so
// the width adapts to the largest residual of the frame.
const pforFrameSize = 128

// pforPack zigzag-encodes the residuals and bit-packs them in frames,
// LSB-first. Frames are byte-aligned; the value count is not stored because
// the chunk geometry determines it.
func pforPack(v []int64) []byte {
	// Worst case: full 64-bit width plus one width byte per frame.
	out := make([]byte, 0, len(v)*8+len(v)/pforFrameSize+1)

	for start := 0; start < len(v); start += pforFrameSize {
		end := min(start+pforFrameSize, len(v))
		frame := v[start:end]

		width := 0
		for _, x := range frame {
			if w := bits.Len64(zigzag(x)); w > width {
				width = w
			}
		}
		out = append(out, byte(width))
		if width == 0 {
			continue
		}

		var acc uint64
		var nacc uint
		for _, x := range frame {
			z := zigzag(x)
			acc |= z << nacc
			if nacc+uint(width) >= 64 {
				out = format.ByteOrder.AppendUint64(out, acc)
				acc = z >> (64 - nacc)
				nacc = nacc + uint(width) - 64
			} else {
				nacc += uint(width)
			}
		}
		for nacc > 0 {
			out = append(out, byte(acc))
			acc >>= 8
			if nacc >= 8 {
				nacc -= 8
			} else {
				nacc = 0
			}
		}
	}
	return out
}

// pforUnpack reverses pforPack for exactly n values.
func pforUnpack(src []byte, n int) ([]int64, error) {
	v := make([]int64, n)
	pos := 0

	for start := 0; start < n; start += pforFrameSize {
		count := min(pforFrameSize, n-start)

		if pos >= len(src) {
			return nil, &DecodeError{Reason: "missing frame header"}
		}
		width := int(src[pos])
		pos++
		if width > 64 {
			return nil, &DecodeError{Reason: "frame width exceeds 64 bits"}
		}
		if width == 0 {
			continue
		}

		packed := (count*width + 7) / 8
		if pos+packed > len(src) {
			return nil, &DecodeError{Reason: "short frame payload"}
		}
		// Pad so positioned 64-bit loads near the frame tail stay in bounds.
		payload := make([]byte, packed+8)
		copy(payload, src[pos:pos+packed])
		pos += packed

		mask := ^uint64(0)
		if width < 64 {
			mask = (1 << width) - 1
		}
		for i := 0; i < count; i++ {
			bitpos := i * width
			b := bitpos >> 3
			shift := uint(bitpos & 7)
			z := format.ByteOrder.Uint64(payload[b:]) >> shift
			if shift+uint(width) > 64 {
				z |= uint64(payload[b+8]) << (64 - shift)
			}
			v[start+i] = unzigzag(z & mask)
		}
	}

	if pos != len(src) {
		return nil, &DecodeError{Reason: "trailing bytes after last frame"}
	}
	return v, nil
}
