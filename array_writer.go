package omfile

import (
	"fmt"

	"github.com/hupe1980/omfile/codec"
	"github.com/hupe1980/omfile/format"
)

// ArrayOptions configures how an array variable is stored.
type ArrayOptions struct {
	// Compression selects the chunk codec. The zero value is
	// PforDelta2dInt16, which requires a float element type; integer
	// arrays typically use CompressionPforDelta2d or CompressionNone.
	Compression format.Compression
	// ScaleFactor and AddOffset define the quantization
	// encoded = round((value - AddOffset) / ScaleFactor). A zero
	// ScaleFactor means 1 (no scaling).
	ScaleFactor float64
	AddOffset   float64
}

// ArrayWriter streams one chunked array variable into a Writer. Data
// arrives in row-major slabs aligned to chunk boundaries along dimension 0,
// so arrays larger than memory can be written incrementally. At most one
// ArrayWriter per Writer may be in flight.
type ArrayWriter[T format.Element] struct {
	w          *Writer
	shape      []uint64
	chunkShape []uint64
	grid       []uint64
	opts       ArrayOptions

	lut         []uint64
	rowsWritten uint64
	done        bool
}

// NewArrayWriter starts an array variable with the given shape and chunk
// shape. Chunks may overhang the trailing edge of any dimension; the
// overhang is clipped, never stored.
func NewArrayWriter[T format.Element](w *Writer, shape, chunkShape []uint64, opts ArrayOptions) (*ArrayWriter[T], error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writable("write array"); err != nil {
		return nil, err
	}
	if len(shape) == 0 {
		return nil, &SelectionError{Reason: "array variable needs at least one dimension"}
	}
	if len(chunkShape) != len(shape) {
		return nil, &SelectionError{Reason: fmt.Sprintf("chunk shape has %d dimensions, array has %d", len(chunkShape), len(shape))}
	}
	for i, c := range chunkShape {
		if c == 0 {
			return nil, &SelectionError{Reason: fmt.Sprintf("zero chunk extent for dimension %d", i)}
		}
	}
	if opts.ScaleFactor == 0 {
		opts.ScaleFactor = 1
	}
	dt := format.DataTypeOf[T]()
	switch opts.Compression {
	case format.CompressionPforDelta2dInt16,
		format.CompressionPforDelta2dInt16Logarithmic,
		format.CompressionFpxXor2d:
		if !dt.IsFloat() {
			return nil, &codec.UnsupportedCodecError{Compression: opts.Compression, DataType: dt}
		}
	case format.CompressionPforDelta2d, format.CompressionNone:
	default:
		return nil, &codec.UnsupportedCodecError{Compression: opts.Compression, DataType: dt}
	}

	w.busy = true
	aw := &ArrayWriter[T]{
		w:          w,
		shape:      append([]uint64(nil), shape...),
		chunkShape: append([]uint64(nil), chunkShape...),
		grid:       chunkGrid(shape, chunkShape),
		opts:       opts,
	}
	return aw, nil
}

// WriteData appends one slab of row-major data. Every slab except the last
// must cover a whole number of chunks along dimension 0; the last slab
// completes the array.
func (aw *ArrayWriter[T]) WriteData(vals []T) error {
	aw.w.mu.Lock()
	defer aw.w.mu.Unlock()

	if aw.done {
		return &InvalidStateError{Op: "write data", State: "array variable finalized"}
	}
	if aw.w.state != writerOpen {
		return &InvalidStateError{Op: "write data", State: aw.w.state.String()}
	}

	rowElems := product(aw.shape[1:])
	if rowElems == 0 {
		if len(vals) != 0 {
			return &SelectionError{Reason: "data written to an empty array"}
		}
		return nil
	}
	if uint64(len(vals))%rowElems != 0 {
		return &SelectionError{Reason: fmt.Sprintf("slab of %d elements is not a whole number of rows of %d", len(vals), rowElems)}
	}
	rows := uint64(len(vals)) / rowElems
	if aw.rowsWritten+rows > aw.shape[0] {
		return &SelectionError{Reason: fmt.Sprintf("slab exceeds array: %d+%d rows of %d", aw.rowsWritten, rows, aw.shape[0])}
	}
	chunk0 := aw.chunkShape[0]
	if rows%chunk0 != 0 && aw.rowsWritten+rows != aw.shape[0] {
		return &SelectionError{Reason: fmt.Sprintf("slab of %d rows is not aligned to the chunk extent %d", rows, chunk0)}
	}

	slabShape := append([]uint64{rows}, aw.shape[1:]...)
	coords := make([]uint64, len(aw.shape))
	srcOffset := make([]uint64, len(aw.shape))
	zeroOffset := make([]uint64, len(aw.shape))

	firstBand := aw.rowsWritten / chunk0
	lastBand := (aw.rowsWritten + rows + chunk0 - 1) / chunk0

	for band := firstBand; band < lastBand; band++ {
		coords[0] = band
		for i := 1; i < len(coords); i++ {
			coords[i] = 0
		}
		for {
			extent := chunkExtent(coords, aw.shape, aw.chunkShape)
			// Clip dimension 0 against both the array and the slab.
			if end := coords[0]*chunk0 + extent[0]; end > aw.rowsWritten+rows {
				extent[0] -= end - (aw.rowsWritten + rows)
			}
			srcOffset[0] = coords[0]*chunk0 - aw.rowsWritten
			for i := 1; i < len(coords); i++ {
				srcOffset[i] = coords[i] * aw.chunkShape[i]
			}

			scratch := make([]T, product(extent))
			copyRegion(scratch, extent, zeroOffset, vals, slabShape, srcOffset, extent)

			cols := int(extent[len(extent)-1])
			encoded, err := codec.Encode(aw.opts.Compression, scratch, cols, aw.opts.ScaleFactor, aw.opts.AddOffset)
			if err != nil {
				return err
			}
			if len(aw.lut) == 0 {
				aw.lut = append(aw.lut, aw.w.pos)
			}
			if err := aw.w.append(encoded, "chunk"); err != nil {
				return err
			}
			aw.lut = append(aw.lut, aw.w.pos)

			// Advance to the next chunk within this band.
			i := len(coords) - 1
			for ; i >= 1; i-- {
				coords[i]++
				if coords[i] < aw.grid[i] {
					break
				}
				coords[i] = 0
			}
			if i < 1 {
				break
			}
		}
	}

	aw.rowsWritten += rows
	return nil
}

// Finalize writes the chunk-offset table and the variable block, returning
// a ref for use as a child of another variable or as the file root.
func (aw *ArrayWriter[T]) Finalize(name string, children ...VariableRef) (VariableRef, error) {
	aw.w.mu.Lock()
	defer aw.w.mu.Unlock()

	if aw.done {
		return VariableRef{}, &InvalidStateError{Op: "finalize array", State: "array variable finalized"}
	}
	if aw.w.state != writerOpen {
		return VariableRef{}, &InvalidStateError{Op: "finalize array", State: aw.w.state.String()}
	}
	if aw.rowsWritten != aw.shape[0] && product(aw.shape) != 0 {
		return VariableRef{}, &InvalidStateError{Op: "finalize array", State: fmt.Sprintf("missing data, %d of %d rows written", aw.rowsWritten, aw.shape[0])}
	}

	if len(aw.lut) == 0 {
		aw.lut = []uint64{aw.w.pos}
	}
	lutBytes := codec.EncodeLUT(aw.lut)
	lutOffset := aw.w.pos
	if err := aw.w.append(lutBytes, "chunk offset table"); err != nil {
		return VariableRef{}, err
	}

	v := &format.Variable{
		DataType:    format.DataTypeOf[T]().ArrayType(),
		Compression: aw.opts.Compression,
		ScaleFactor: aw.opts.ScaleFactor,
		AddOffset:   aw.opts.AddOffset,
		Name:        name,
		Dims:        aw.shape,
		ChunkDims:   aw.chunkShape,
		LUTOffset:   lutOffset,
		LUTSize:     uint64(len(lutBytes)),
	}
	aw.done = true
	aw.w.busy = false
	return aw.w.commitVariable(v, children)
}
