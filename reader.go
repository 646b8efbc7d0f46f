package omfile

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/omfile/backend"
	"github.com/hupe1980/omfile/codec"
	"github.com/hupe1980/omfile/format"
)

// fileHandle is the per-file state shared between a root Reader and the
// readers of its descendants.
type fileHandle struct {
	b       backend.Backend
	cfg     config
	trailer format.Trailer
	size    uint64
}

// Reader provides metadata access to one variable of a finalized OM file
// and is the anchor for typed reads. Child variables are materialized
// lazily and share the root's backend. A Reader is safe for concurrent use.
type Reader struct {
	h *fileHandle
	v *format.Variable

	ownsBackend bool

	lutOnce sync.Once
	lut     []uint64
	lutErr  error
}

// Open opens the OM file at path through a memory-mapped local backend.
// The returned root Reader owns the mapping and releases it on Close.
func Open(path string, opts ...Option) (*Reader, error) {
	b, err := backend.OpenLocal(path)
	if err != nil {
		return nil, &ReadError{Op: "open file", Err: err}
	}
	r, err := NewReader(context.Background(), b, opts...)
	if err != nil {
		b.Close()
		return nil, err
	}
	r.ownsBackend = true
	return r, nil
}

// NewReader opens an OM file over an arbitrary backend: the header and
// trailer are validated and the root variable block is decoded. The caller
// keeps ownership of the backend.
func NewReader(ctx context.Context, b backend.Backend, opts ...Option) (*Reader, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	size, err := b.Size()
	if err != nil {
		return nil, &ReadError{Op: "file size", Err: err}
	}
	if size < format.HeaderSize+format.TrailerSize {
		return nil, &format.TruncatedDataError{Field: "file", Want: format.HeaderSize + format.TrailerSize, Got: int(size)}
	}

	hdrBytes, err := b.ReadRange(ctx, 0, format.HeaderSize)
	if err != nil {
		return nil, &ReadError{Op: "header", Err: err}
	}
	if _, err := format.DecodeHeader(hdrBytes); err != nil {
		return nil, err
	}

	trailerBytes, err := b.ReadRange(ctx, size-format.TrailerSize, format.TrailerSize)
	if err != nil {
		return nil, &ReadError{Op: "trailer", Err: err}
	}
	trailer, err := format.DecodeTrailer(trailerBytes)
	if err != nil {
		return nil, err
	}
	if trailer.RootOffset > size || trailer.RootSize > size-trailer.RootOffset {
		return nil, &format.FormatError{Reason: "root variable extends past end of file"}
	}

	h := &fileHandle{b: b, cfg: cfg, trailer: trailer, size: size}
	root, err := h.variableAt(ctx, format.OffsetSize{Offset: trailer.RootOffset, Size: trailer.RootSize})
	if err != nil {
		return nil, err
	}

	cfg.logger.Debug("opened file",
		"size", size,
		"root", root.v.Name,
		"dtype", root.v.DataType.String())
	return root, nil
}

func (h *fileHandle) variableAt(ctx context.Context, loc format.OffsetSize) (*Reader, error) {
	if loc.Offset > h.size || loc.Size > h.size-loc.Offset {
		return nil, &format.FormatError{Reason: "variable block extends past end of file"}
	}
	block, err := h.b.ReadRange(ctx, loc.Offset, loc.Size)
	if err != nil {
		return nil, &ReadError{Op: "variable block", Err: err}
	}
	v, err := format.DecodeVariable(block)
	if err != nil {
		return nil, err
	}
	return &Reader{h: h, v: v}, nil
}

// Name returns the variable name.
func (r *Reader) Name() string { return r.v.Name }

// DataType returns the stored element type tag.
func (r *Reader) DataType() format.DataType { return r.v.DataType }

// Compression returns the chunk codec of an array variable.
func (r *Reader) Compression() format.Compression { return r.v.Compression }

// ScaleFactor returns the quantization scale factor.
func (r *Reader) ScaleFactor() float64 { return r.v.ScaleFactor }

// AddOffset returns the quantization offset.
func (r *Reader) AddOffset() float64 { return r.v.AddOffset }

// IsScalar reports whether the variable holds a single attribute value.
func (r *Reader) IsScalar() bool { return r.v.IsScalar() }

// Shape returns the array dimensions, or nil for a scalar variable.
func (r *Reader) Shape() []uint64 { return r.v.Dims }

// ChunkShape returns the chunk dimensions, or nil for a scalar variable.
func (r *Reader) ChunkShape() []uint64 { return r.v.ChunkDims }

// NumChildren returns the number of child variables.
func (r *Reader) NumChildren() int { return len(r.v.Children) }

// Child decodes the i-th child variable. The child shares this Reader's
// backend; only the root Reader's Close releases it.
func (r *Reader) Child(ctx context.Context, i int) (*Reader, error) {
	if i < 0 || i >= len(r.v.Children) {
		return nil, &SelectionError{Reason: fmt.Sprintf("child index %d out of range, variable has %d children", i, len(r.v.Children))}
	}
	return r.h.variableAt(ctx, r.v.Children[i])
}

// ChildAt decodes the variable block at an explicit location, typically
// taken from FlatMetadata. It does not have to be a child of this Reader.
func (r *Reader) ChildAt(ctx context.Context, offset, size uint64) (*Reader, error) {
	return r.h.variableAt(ctx, format.OffsetSize{Offset: offset, Size: size})
}

// VariableMeta locates one variable in the file, keyed by its "/"-joined
// path from the root.
type VariableMeta struct {
	Location format.OffsetSize
	IsScalar bool
}

// FlatMetadata returns the location of every variable reachable from the
// file root. The trailer's flat index is used when present; files written
// without one are walked recursively instead.
func (r *Reader) FlatMetadata(ctx context.Context) (map[string]VariableMeta, error) {
	if r.h.trailer.IndexSize != 0 {
		raw, err := r.h.b.ReadRange(ctx, r.h.trailer.IndexOffset, r.h.trailer.IndexSize)
		if err != nil {
			return nil, &ReadError{Op: "flat index", Err: err}
		}
		entries, err := format.DecodeFlatIndex(raw)
		if err != nil {
			return nil, err
		}
		meta := make(map[string]VariableMeta, len(entries))
		for _, e := range entries {
			meta[e.Name] = VariableMeta{Location: e.Location, IsScalar: e.IsScalar}
		}
		return meta, nil
	}

	meta := make(map[string]VariableMeta)
	var walk func(loc format.OffsetSize, path string) error
	walk = func(loc format.OffsetSize, path string) error {
		node, err := r.h.variableAt(ctx, loc)
		if err != nil {
			return err
		}
		if path == "" {
			path = node.v.Name
		} else {
			path = path + "/" + node.v.Name
		}
		meta[path] = VariableMeta{Location: loc, IsScalar: node.v.IsScalar()}
		for _, child := range node.v.Children {
			if err := walk(child, path); err != nil {
				return err
			}
		}
		return nil
	}
	rootLoc := format.OffsetSize{Offset: r.h.trailer.RootOffset, Size: r.h.trailer.RootSize}
	if err := walk(rootLoc, ""); err != nil {
		return nil, err
	}
	return meta, nil
}

// ScalarString returns the value of a string scalar variable.
func (r *Reader) ScalarString() (string, error) {
	if r.v.DataType != format.DataTypeString {
		return "", &DataTypeMismatchError{Want: format.DataTypeString, Got: r.v.DataType}
	}
	return string(r.v.Scalar), nil
}

// Close releases the backend if this Reader owns it (readers from Open).
// Child readers and readers over caller-supplied backends are no-ops.
func (r *Reader) Close() error {
	if !r.ownsBackend {
		return nil
	}
	return r.h.b.Close()
}

// chunkLUT loads and caches the chunk-offset table of an array variable.
func (r *Reader) chunkLUT(ctx context.Context) ([]uint64, error) {
	r.lutOnce.Do(func() {
		want := int(r.v.NumChunks()) + 1
		raw, err := r.h.b.ReadRange(ctx, r.v.LUTOffset, r.v.LUTSize)
		if err != nil {
			r.lutErr = &ReadError{Op: "chunk offset table", Err: err}
			return
		}
		r.lut, r.lutErr = codec.DecodeLUT(raw, want)
	})
	return r.lut, r.lutErr
}

// ReadScalar returns the value of a numeric scalar variable. The requested
// type must match the stored type exactly.
func ReadScalar[T format.Element](r *Reader) (T, error) {
	var zero T
	want := format.DataTypeOf[T]()
	if r.v.DataType != want {
		return zero, &DataTypeMismatchError{Want: want, Got: r.v.DataType}
	}
	value, err := format.DecodeScalarValue(r.v.DataType, r.v.Scalar)
	if err != nil {
		return zero, err
	}
	return value.(T), nil
}
