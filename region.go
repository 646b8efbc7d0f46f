package omfile

// chunkGrid returns the number of chunks along each dimension. Chunks may
// overhang the array edge; the overhanging tail is clipped when encoded.
func chunkGrid(shape, chunkShape []uint64) []uint64 {
	grid := make([]uint64, len(shape))
	for i := range shape {
		grid[i] = (shape[i] + chunkShape[i] - 1) / chunkShape[i]
	}
	return grid
}

// chunkLinearIndex converts row-major chunk coordinates to the flat chunk
// number used to address the offset table.
func chunkLinearIndex(coords, grid []uint64) uint64 {
	var idx uint64
	for i := range grid {
		idx = idx*grid[i] + coords[i]
	}
	return idx
}

// chunkExtent returns the valid (clipped) extent of the chunk at coords.
func chunkExtent(coords, shape, chunkShape []uint64) []uint64 {
	ext := make([]uint64, len(shape))
	for i := range shape {
		start := coords[i] * chunkShape[i]
		ext[i] = chunkShape[i]
		if start+ext[i] > shape[i] {
			ext[i] = shape[i] - start
		}
	}
	return ext
}

// product multiplies extents, treating the empty shape as one element.
func product(dims []uint64) uint64 {
	n := uint64(1)
	for _, d := range dims {
		n *= d
	}
	return n
}

// strides returns row-major strides for a shape.
func strides(shape []uint64) []uint64 {
	s := make([]uint64, len(shape))
	acc := uint64(1)
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}

// copyRegion copies a hyper-rectangle of `extent` elements from src at
// srcOffset into dst at dstOffset. Both buffers are row-major with the
// given shapes. The innermost dimension is copied as a contiguous run.
func copyRegion[T any](dst []T, dstShape, dstOffset []uint64, src []T, srcShape, srcOffset, extent []uint64) {
	if len(extent) == 0 {
		dst[0] = src[0]
		return
	}

	dstStride := strides(dstShape)
	srcStride := strides(srcShape)

	var dstBase, srcBase uint64
	for i := range extent {
		dstBase += dstOffset[i] * dstStride[i]
		srcBase += srcOffset[i] * srcStride[i]
	}

	last := len(extent) - 1
	run := extent[last]
	rows := product(extent[:last])

	odo := make([]uint64, last)
	for r := uint64(0); r < rows; r++ {
		var d, s uint64
		for i := 0; i < last; i++ {
			d += odo[i] * dstStride[i]
			s += odo[i] * srcStride[i]
		}
		copy(dst[dstBase+d:dstBase+d+run], src[srcBase+s:srcBase+s+run])

		for i := last - 1; i >= 0; i-- {
			odo[i]++
			if odo[i] < extent[i] {
				break
			}
			odo[i] = 0
		}
	}
}
