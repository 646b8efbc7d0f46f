package omfile

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/omfile/backend"
	"github.com/hupe1980/omfile/format"
)

// writeArrayFile writes a single int32 array variable to the given appender
// and returns the row-major source data.
func writeArrayFile(t *testing.T, a backend.Appender, shape, chunkShape []uint64, slabRows ...uint64) []int32 {
	t.Helper()

	data := make([]int32, product(shape))
	for i := range data {
		data[i] = int32(i*31%10007) - 5000
	}

	w, err := NewWriter(a)
	require.NoError(t, err)

	aw, err := NewArrayWriter[int32](w, shape, chunkShape, ArrayOptions{
		Compression: format.CompressionPforDelta2d,
	})
	require.NoError(t, err)

	if len(slabRows) == 0 {
		slabRows = []uint64{shape[0]}
	}
	rowElems := product(shape[1:])
	pos := uint64(0)
	for _, rows := range slabRows {
		require.NoError(t, aw.WriteData(data[pos*rowElems:(pos+rows)*rowElems]))
		pos += rows
	}

	root, err := aw.Finalize("values")
	require.NoError(t, err)
	require.NoError(t, w.Finalize(root))
	require.NoError(t, w.Close())
	return data
}

func TestRoundTripMemory(t *testing.T) {
	ctx := context.Background()
	m := backend.NewMemory()
	data := writeArrayFile(t, m, []uint64{20, 30}, []uint64{7, 9})

	r, err := NewReader(ctx, m)
	require.NoError(t, err)

	assert.Equal(t, "values", r.Name())
	assert.Equal(t, []uint64{20, 30}, r.Shape())
	assert.Equal(t, []uint64{7, 9}, r.ChunkShape())
	assert.Equal(t, format.DataTypeInt32Array, r.DataType())
	assert.Equal(t, format.CompressionPforDelta2d, r.Compression())

	arr, err := Read[int32](ctx, r, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{20, 30}, arr.Shape())
	assert.Equal(t, data, arr.Data())
}

func TestRoundTripLocalFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "values.om")

	w, err := Create(path)
	require.NoError(t, err)

	vals := make([]float32, 64*48)
	for i := range vals {
		vals[i] = float32(math.Sin(float64(i) / 10))
	}
	aw, err := NewArrayWriter[float32](w, []uint64{64, 48}, []uint64{16, 16}, ArrayOptions{
		Compression: format.CompressionPforDelta2dInt16,
		ScaleFactor: 0.001,
	})
	require.NoError(t, err)
	require.NoError(t, aw.WriteData(vals))
	root, err := aw.Finalize("wave")
	require.NoError(t, err)
	require.NoError(t, w.Finalize(root))
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	arr, err := Read[float32](ctx, r, nil)
	require.NoError(t, err)
	require.Equal(t, len(vals), arr.Len())
	for i := range vals {
		assert.InDelta(t, vals[i], arr.Data()[i], 0.001/2+1e-6)
	}
}

func TestChunkBoundaries(t *testing.T) {
	ctx := context.Background()
	m := backend.NewMemory()

	// 237 and 501 are not multiples of 50, so the trailing chunks overhang
	// and get clipped. Data arrives in two slabs, the second partial.
	shape := []uint64{237, 501}
	data := writeArrayFile(t, m, shape, []uint64{50, 50}, 200, 37)

	r, err := NewReader(ctx, m)
	require.NoError(t, err)

	full, err := Read[int32](ctx, r, nil)
	require.NoError(t, err)
	assert.Equal(t, data, full.Data())

	// A window crossing chunk boundaries in both dimensions.
	win, err := Read[int32](ctx, r, Sel(Range(49, 51), Range(49, 51)))
	require.NoError(t, err)
	require.Equal(t, []uint64{2, 2}, win.Shape())
	assert.Equal(t, data[49*501+49], win.At(0, 0))
	assert.Equal(t, data[49*501+50], win.At(0, 1))
	assert.Equal(t, data[50*501+49], win.At(1, 0))
	assert.Equal(t, data[50*501+50], win.At(1, 1))

	// The clipped corner chunk.
	corner, err := Read[int32](ctx, r, Sel(Range(230, 237), Range(495, 501)))
	require.NoError(t, err)
	require.Equal(t, []uint64{7, 6}, corner.Shape())
	for i := uint64(0); i < 7; i++ {
		for j := uint64(0); j < 6; j++ {
			assert.Equal(t, data[(230+i)*501+495+j], corner.At(i, j))
		}
	}
}

func TestSqueeze(t *testing.T) {
	ctx := context.Background()
	m := backend.NewMemory()
	data := writeArrayFile(t, m, []uint64{3, 4, 5}, []uint64{2, 2, 2})

	r, err := NewReader(ctx, m)
	require.NoError(t, err)

	// Scalar indices squeeze their dimension away.
	arr, err := Read[int32](ctx, r, Sel(At(1), All(), At(2)))
	require.NoError(t, err)
	assert.Equal(t, []uint64{4}, arr.Shape())
	for j := uint64(0); j < 4; j++ {
		assert.Equal(t, data[1*4*5+j*5+2], arr.At(j))
	}

	// Unit-length ranges do not squeeze.
	arr, err = Read[int32](ctx, r, Sel(Range(1, 2), All(), Range(2, 3)))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 4, 1}, arr.Shape())
	for j := uint64(0); j < 4; j++ {
		assert.Equal(t, data[1*4*5+j*5+2], arr.At(0, j, 0))
	}

	// All dimensions squeezed yields a zero-rank array with one element.
	arr, err = Read[int32](ctx, r, Sel(At(2), At(3), At(4)))
	require.NoError(t, err)
	assert.Empty(t, arr.Shape())
	require.Equal(t, 1, arr.Len())
	assert.Equal(t, data[2*4*5+3*5+4], arr.Data()[0])
}

func TestSelectionNegativeAndEllipsis(t *testing.T) {
	ctx := context.Background()
	m := backend.NewMemory()
	data := writeArrayFile(t, m, []uint64{3, 4, 5}, []uint64{3, 4, 5})

	r, err := NewReader(ctx, m)
	require.NoError(t, err)

	arr, err := Read[int32](ctx, r, Sel(At(-1), Ellipsis(), At(-2)))
	require.NoError(t, err)
	assert.Equal(t, []uint64{4}, arr.Shape())
	for j := uint64(0); j < 4; j++ {
		assert.Equal(t, data[2*4*5+j*5+3], arr.At(j))
	}
}

func TestSelectionErrors(t *testing.T) {
	ctx := context.Background()
	m := backend.NewMemory()
	writeArrayFile(t, m, []uint64{50, 10}, []uint64{10, 10})

	r, err := NewReader(ctx, m)
	require.NoError(t, err)

	var selErr *SelectionError

	_, err = Read[int32](ctx, r, Sel(At(100)))
	require.ErrorAs(t, err, &selErr)

	_, err = Read[int32](ctx, r, Sel(At(50)))
	require.ErrorAs(t, err, &selErr)

	_, err = Read[int32](ctx, r, Sel(Step(0, 10, 2)))
	require.ErrorAs(t, err, &selErr)

	_, err = Read[int32](ctx, r, Sel(All(), All(), All()))
	require.ErrorAs(t, err, &selErr)

	_, err = Read[int32](ctx, r, Sel(Ellipsis(), Ellipsis()))
	require.ErrorAs(t, err, &selErr)

	_, err = Read[int32](ctx, r, Sel(Range(5, 3)))
	require.ErrorAs(t, err, &selErr)
}

func TestReadDataTypeMismatch(t *testing.T) {
	ctx := context.Background()
	m := backend.NewMemory()
	writeArrayFile(t, m, []uint64{10, 10}, []uint64{5, 5})

	r, err := NewReader(ctx, m)
	require.NoError(t, err)

	var mismatch *DataTypeMismatchError
	_, err = Read[float64](ctx, r, nil)
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, format.DataTypeFloat64Array, mismatch.Want)
	assert.Equal(t, format.DataTypeInt32Array, mismatch.Got)
}

func TestVariableTree(t *testing.T) {
	ctx := context.Background()
	m := backend.NewMemory()

	w, err := NewWriter(m)
	require.NoError(t, err)

	features := make([]float32, 1000*64)
	for i := range features {
		features[i] = float32(i%977) / 100
	}
	faw, err := NewArrayWriter[float32](w, []uint64{1000, 64}, []uint64{100, 64}, ArrayOptions{
		Compression: format.CompressionFpxXor2d,
	})
	require.NoError(t, err)
	require.NoError(t, faw.WriteData(features))
	featuresRef, err := faw.Finalize("features")
	require.NoError(t, err)

	labels := make([]int32, 1000)
	for i := range labels {
		labels[i] = int32(i % 10)
	}
	law, err := NewArrayWriter[int32](w, []uint64{1000}, []uint64{250}, ArrayOptions{
		Compression: format.CompressionPforDelta2d,
	})
	require.NoError(t, err)
	require.NoError(t, law.WriteData(labels))
	labelsRef, err := law.Finalize("labels")
	require.NoError(t, err)

	metaRef, err := w.WriteScalar(int64(42), "metadata")
	require.NoError(t, err)

	root, err := w.WriteScalar("v1", "dataset", featuresRef, labelsRef, metaRef)
	require.NoError(t, err)
	require.NoError(t, w.Finalize(root))

	r, err := NewReader(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, "dataset", r.Name())
	assert.Equal(t, 3, r.NumChildren())

	version, err := r.ScalarString()
	require.NoError(t, err)
	assert.Equal(t, "v1", version)

	fr, err := r.Child(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "features", fr.Name())
	got, err := Read[float32](ctx, fr, Sel(At(500)))
	require.NoError(t, err)
	assert.Equal(t, features[500*64:501*64], got.Data())

	lr, err := r.Child(ctx, 1)
	require.NoError(t, err)
	larr, err := Read[int32](ctx, lr, nil)
	require.NoError(t, err)
	assert.Equal(t, labels, larr.Data())

	mr, err := r.Child(ctx, 2)
	require.NoError(t, err)
	metaVal, err := ReadScalar[int64](mr)
	require.NoError(t, err)
	assert.Equal(t, int64(42), metaVal)

	var mismatch *DataTypeMismatchError
	_, err = ReadScalar[int32](mr)
	require.ErrorAs(t, err, &mismatch)

	_, err = r.Child(ctx, 3)
	var selErr *SelectionError
	require.ErrorAs(t, err, &selErr)

	// The flat index locates every variable by path and ChildAt resolves
	// entries independently of the tree walk.
	meta, err := r.FlatMetadata(ctx)
	require.NoError(t, err)
	require.Len(t, meta, 4)
	assert.Contains(t, meta, "dataset")
	assert.Contains(t, meta, "dataset/features")
	assert.Contains(t, meta, "dataset/labels")
	assert.Contains(t, meta, "dataset/metadata")
	assert.True(t, meta["dataset/metadata"].IsScalar)
	assert.False(t, meta["dataset/features"].IsScalar)

	loc := meta["dataset/labels"].Location
	direct, err := r.ChildAt(ctx, loc.Offset, loc.Size)
	require.NoError(t, err)
	assert.Equal(t, "labels", direct.Name())
}

func TestFlatMetadataWalkFallback(t *testing.T) {
	ctx := context.Background()
	m := backend.NewMemory()

	w, err := NewWriter(m)
	require.NoError(t, err)
	child, err := w.WriteScalar(int32(1), "child")
	require.NoError(t, err)
	root, err := w.WriteScalar(int32(0), "root", child)
	require.NoError(t, err)
	require.NoError(t, w.Finalize(root))

	// Blank out the index location in the trailer, as a minimal writer
	// that skips the flat index would leave it.
	file := append([]byte(nil), m.Bytes()...)
	trailerOff := len(file) - format.TrailerSize
	format.ByteOrder.PutUint64(file[trailerOff+24:], 0)
	format.ByteOrder.PutUint64(file[trailerOff+32:], 0)

	r, err := NewReader(ctx, backend.NewMemoryFrom(file))
	require.NoError(t, err)

	meta, err := r.FlatMetadata(ctx)
	require.NoError(t, err)
	require.Len(t, meta, 2)
	assert.Contains(t, meta, "root")
	assert.Contains(t, meta, "root/child")
}

func TestBackendEquivalence(t *testing.T) {
	ctx := context.Background()
	shape, chunks := []uint64{60, 80}, []uint64{25, 30}

	mem := backend.NewMemory()
	data := writeArrayFile(t, mem, shape, chunks)

	path := filepath.Join(t.TempDir(), "equiv.om")
	f, err := backend.CreateFile(path)
	require.NoError(t, err)
	writeArrayFile(t, f, shape, chunks)
	require.NoError(t, f.Close())

	local, err := backend.OpenLocal(path)
	require.NoError(t, err)
	defer local.Close()

	// Same input produces bit-identical files on every backend.
	size, err := local.Size()
	require.NoError(t, err)
	fileBytes, err := local.ReadRange(ctx, 0, size)
	require.NoError(t, err)
	assert.Equal(t, mem.Bytes(), fileBytes)

	cached, err := backend.NewCaching(backend.NewMemoryFrom(mem.Bytes()), 1<<20, 4096)
	require.NoError(t, err)

	sel := Sel(Range(10, 55), Range(29, 61))
	var results [][]int32
	for _, b := range []backend.Backend{mem, local, cached} {
		r, err := NewReader(ctx, b)
		require.NoError(t, err)
		arr, err := Read[int32](ctx, r, sel)
		require.NoError(t, err)
		results = append(results, arr.Data())
	}
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, results[0], results[2])

	for i := uint64(10); i < 55; i++ {
		for j := uint64(29); j < 61; j++ {
			assert.Equal(t, data[i*80+j], results[0][(i-10)*32+(j-29)])
		}
	}
}

func TestWriterLifecycle(t *testing.T) {
	m := backend.NewMemory()
	w, err := NewWriter(m)
	require.NoError(t, err)

	root, err := w.WriteScalar(int32(7), "root")
	require.NoError(t, err)
	require.NoError(t, w.Finalize(root))

	var stateErr *InvalidStateError

	// Finalize is once-only.
	err = w.Finalize(root)
	require.ErrorAs(t, err, &stateErr)

	// No writes after finalize.
	_, err = w.WriteScalar(int32(8), "late")
	require.ErrorAs(t, err, &stateErr)

	_, err = NewArrayWriter[int32](w, []uint64{4}, []uint64{2}, ArrayOptions{
		Compression: format.CompressionNone,
	})
	require.ErrorAs(t, err, &stateErr)

	require.NoError(t, w.Close())
	_, err = w.WriteScalar(int32(9), "closed")
	require.ErrorAs(t, err, &stateErr)
}

func TestWriterDependencyOrder(t *testing.T) {
	m := backend.NewMemory()
	w, err := NewWriter(m)
	require.NoError(t, err)

	other, err := NewWriter(backend.NewMemory())
	require.NoError(t, err)
	foreign, err := other.WriteScalar(int32(1), "foreign")
	require.NoError(t, err)

	var depErr *DependencyOrderError

	// A zero ref was never produced by a write.
	_, err = w.WriteScalar(int32(1), "parent", VariableRef{})
	require.ErrorAs(t, err, &depErr)

	// Refs from another writer point into a different file.
	_, err = w.WriteScalar(int32(1), "parent", foreign)
	require.ErrorAs(t, err, &depErr)

	err = w.Finalize(VariableRef{})
	require.ErrorAs(t, err, &depErr)
}

func TestArrayWriterLifecycle(t *testing.T) {
	m := backend.NewMemory()
	w, err := NewWriter(m)
	require.NoError(t, err)

	aw, err := NewArrayWriter[int32](w, []uint64{10, 4}, []uint64{5, 4}, ArrayOptions{
		Compression: format.CompressionPforDelta2d,
	})
	require.NoError(t, err)

	var stateErr *InvalidStateError

	// Only one array writer may be in flight.
	_, err = NewArrayWriter[int32](w, []uint64{4}, []uint64{2}, ArrayOptions{
		Compression: format.CompressionNone,
	})
	require.ErrorAs(t, err, &stateErr)

	// Finalizing before all rows arrived is an error.
	require.NoError(t, aw.WriteData(make([]int32, 5*4)))
	_, err = aw.Finalize("incomplete")
	require.ErrorAs(t, err, &stateErr)

	require.NoError(t, aw.WriteData(make([]int32, 5*4)))
	ref, err := aw.Finalize("complete")
	require.NoError(t, err)

	// The array writer is spent after Finalize.
	err = aw.WriteData(make([]int32, 4))
	require.ErrorAs(t, err, &stateErr)
	_, err = aw.Finalize("again")
	require.ErrorAs(t, err, &stateErr)

	require.NoError(t, w.Finalize(ref))
}

func TestArrayWriterSlabValidation(t *testing.T) {
	m := backend.NewMemory()
	w, err := NewWriter(m)
	require.NoError(t, err)

	aw, err := NewArrayWriter[int32](w, []uint64{10, 4}, []uint64{4, 4}, ArrayOptions{
		Compression: format.CompressionNone,
	})
	require.NoError(t, err)

	var selErr *SelectionError

	// Not a whole number of rows.
	require.ErrorAs(t, aw.WriteData(make([]int32, 6)), &selErr)

	// Not chunk-aligned and not the final slab.
	require.ErrorAs(t, aw.WriteData(make([]int32, 2*4)), &selErr)

	// More rows than the array has.
	require.ErrorAs(t, aw.WriteData(make([]int32, 11*4)), &selErr)

	// Chunk-aligned slab, then a final partial one.
	require.NoError(t, aw.WriteData(make([]int32, 8*4)))
	require.NoError(t, aw.WriteData(make([]int32, 2*4)))
}

func TestArrayWriterOptionsValidation(t *testing.T) {
	m := backend.NewMemory()
	w, err := NewWriter(m)
	require.NoError(t, err)

	_, err = NewArrayWriter[int32](w, []uint64{10}, []uint64{5, 5}, ArrayOptions{})
	var selErr *SelectionError
	require.ErrorAs(t, err, &selErr)

	_, err = NewArrayWriter[int32](w, []uint64{10}, []uint64{0}, ArrayOptions{})
	require.ErrorAs(t, err, &selErr)

	// Integer elements cannot use the float-only codecs.
	_, err = NewArrayWriter[int32](w, []uint64{10}, []uint64{5}, ArrayOptions{
		Compression: format.CompressionFpxXor2d,
	})
	require.Error(t, err)
}

func TestScalarTypes(t *testing.T) {
	ctx := context.Background()
	m := backend.NewMemory()

	w, err := NewWriter(m)
	require.NoError(t, err)

	f64, err := w.WriteScalar(2.5, "threshold")
	require.NoError(t, err)
	u8, err := w.WriteScalar(uint8(255), "levels")
	require.NoError(t, err)
	root, err := w.WriteScalar("config", "root", f64, u8)
	require.NoError(t, err)
	require.NoError(t, w.Finalize(root))

	r, err := NewReader(ctx, m)
	require.NoError(t, err)

	c0, err := r.Child(ctx, 0)
	require.NoError(t, err)
	tv, err := ReadScalar[float64](c0)
	require.NoError(t, err)
	assert.Equal(t, 2.5, tv)

	c1, err := r.Child(ctx, 1)
	require.NoError(t, err)
	lv, err := ReadScalar[uint8](c1)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), lv)

	// String scalars are not numeric.
	_, err = c0.ScalarString()
	var mismatch *DataTypeMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestOpenInvalidFile(t *testing.T) {
	ctx := context.Background()

	_, err := NewReader(ctx, backend.NewMemoryFrom([]byte("too short")))
	var truncated *format.TruncatedDataError
	require.ErrorAs(t, err, &truncated)

	// Valid length, garbage content.
	junk := make([]byte, 256)
	for i := range junk {
		junk[i] = byte(i)
	}
	_, err = NewReader(ctx, backend.NewMemoryFrom(junk))
	var formatErr *format.FormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestCorruptTrailerOffsets(t *testing.T) {
	ctx := context.Background()
	m := backend.NewMemory()
	writeArrayFile(t, m, []uint64{10, 10}, []uint64{5, 5})

	base := m.Bytes()
	trailerOff := len(base) - format.TrailerSize

	patch := func(field int, value uint64) []byte {
		file := append([]byte(nil), base...)
		format.ByteOrder.PutUint64(file[trailerOff+field:], value)
		return file
	}

	var formatErr *format.FormatError

	// A root offset near MaxUint64 wraps the naive offset+size sum; it must
	// surface as a format error, not a panic.
	_, err := NewReader(ctx, backend.NewMemoryFrom(patch(8, math.MaxUint64-7)))
	require.ErrorAs(t, err, &formatErr)

	// Same for a root size that overshoots the file.
	_, err = NewReader(ctx, backend.NewMemoryFrom(patch(16, math.MaxUint64)))
	require.ErrorAs(t, err, &formatErr)

	// A corrupt flat-index offset fails the index read cleanly.
	r, err := NewReader(ctx, backend.NewMemoryFrom(patch(24, math.MaxUint64-7)))
	require.NoError(t, err)
	_, err = r.FlatMetadata(ctx)
	var readErr *ReadError
	require.ErrorAs(t, err, &readErr)
}

func TestCorruptChildLocation(t *testing.T) {
	ctx := context.Background()
	m := backend.NewMemory()

	w, err := NewWriter(m)
	require.NoError(t, err)
	child, err := w.WriteScalar(int32(1), "child")
	require.NoError(t, err)
	root, err := w.WriteScalar(int32(0), "root", child)
	require.NoError(t, err)
	require.NoError(t, w.Finalize(root))

	// Corrupt the root block's child offset table. The offset array starts
	// right after the 24-byte prelude of a scalar variable.
	file := append([]byte(nil), m.Bytes()...)
	format.ByteOrder.PutUint64(file[root.loc.Offset+24:], math.MaxUint64-3)

	r, err := NewReader(ctx, backend.NewMemoryFrom(file))
	require.NoError(t, err)

	var formatErr *format.FormatError
	_, err = r.Child(ctx, 0)
	require.ErrorAs(t, err, &formatErr)
}

func TestReadConcurrencyOption(t *testing.T) {
	ctx := context.Background()
	m := backend.NewMemory()
	data := writeArrayFile(t, m, []uint64{100, 100}, []uint64{10, 10})

	r, err := NewReader(ctx, m, WithConcurrency(2))
	require.NoError(t, err)

	arr, err := Read[int32](ctx, r, nil)
	require.NoError(t, err)
	assert.Equal(t, data, arr.Data())
}
