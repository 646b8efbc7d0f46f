package omfile

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/omfile/codec"
	"github.com/hupe1980/omfile/format"
)

// Read decodes the selected hyper-rectangle of an array variable. Only the
// chunks intersecting the selection are fetched and decompressed; chunk
// work runs concurrently up to the Reader's configured limit. The result
// is all-or-nothing: any chunk failure aborts the whole read.
func Read[T format.Element](ctx context.Context, r *Reader, sel Selection) (*Array[T], error) {
	want := format.DataTypeOf[T]().ArrayType()
	if r.v.DataType != want {
		return nil, &DataTypeMismatchError{Want: want, Got: r.v.DataType}
	}

	axes, err := sel.resolve(r.v.Dims)
	if err != nil {
		return nil, err
	}

	counts := make([]uint64, len(axes))
	for i, ax := range axes {
		counts[i] = ax.count
	}
	out := make([]T, product(counts))
	result := &Array[T]{shape: outputShape(axes), data: out}
	if len(out) == 0 {
		return result, nil
	}

	lut, err := r.chunkLUT(ctx)
	if err != nil {
		return nil, err
	}

	chunkShape := r.v.ChunkDims
	grid := chunkGrid(r.v.Dims, chunkShape)

	// Chunk coordinate range touched by the selection, per dimension.
	first := make([]uint64, len(axes))
	last := make([]uint64, len(axes))
	for i, ax := range axes {
		first[i] = ax.start / chunkShape[i]
		last[i] = (ax.start + ax.count - 1) / chunkShape[i]
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.h.cfg.concurrency)

	nChunks := 0
	coords := make([]uint64, len(axes))
	copy(coords, first)
	for {
		chunk := append([]uint64(nil), coords...)
		nChunks++
		g.Go(func() error {
			return readChunk(ctx, r, lut, grid, chunk, axes, out, counts)
		})

		i := len(coords) - 1
		for ; i >= 0; i-- {
			coords[i]++
			if coords[i] <= last[i] {
				break
			}
			coords[i] = first[i]
		}
		if i < 0 {
			break
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.h.cfg.logger.Debug("read selection",
		"variable", r.v.Name,
		"chunks", nChunks,
		"elements", len(out))
	return result, nil
}

// readChunk fetches, decodes and scatters one chunk into its destination
// region. Regions of distinct chunks are disjoint, so chunk reads write to
// out without synchronization.
func readChunk[T format.Element](ctx context.Context, r *Reader, lut, grid, coords []uint64, axes []axis, out []T, outShape []uint64) error {
	idx := chunkLinearIndex(coords, grid)
	start, end := lut[idx], lut[idx+1]
	if end < start {
		return &codec.DecodeError{Reason: "non-monotonic chunk offset table"}
	}

	raw, err := r.h.b.ReadRange(ctx, start, end-start)
	if err != nil {
		return &ReadError{Op: "chunk", Err: err}
	}

	extent := chunkExtent(coords, r.v.Dims, r.v.ChunkDims)
	scratch := make([]T, product(extent))
	cols := int(extent[len(extent)-1])
	if err := codec.Decode(r.v.Compression, raw, scratch, cols, r.v.ScaleFactor, r.v.AddOffset); err != nil {
		return err
	}

	// Intersect the chunk with the selection in every dimension.
	srcOffset := make([]uint64, len(axes))
	dstOffset := make([]uint64, len(axes))
	copyExtent := make([]uint64, len(axes))
	for i, ax := range axes {
		chunkStart := coords[i] * r.v.ChunkDims[i]
		isectStart := max(ax.start, chunkStart)
		isectEnd := min(ax.start+ax.count, chunkStart+extent[i])
		srcOffset[i] = isectStart - chunkStart
		dstOffset[i] = isectStart - ax.start
		copyExtent[i] = isectEnd - isectStart
	}

	copyRegion(out, outShape, dstOffset, scratch, extent, srcOffset, copyExtent)
	return nil
}
