package omfile

import (
	"fmt"
	"sync"

	"github.com/hupe1980/omfile/backend"
	"github.com/hupe1980/omfile/format"
)

type writerState uint8

const (
	writerOpen writerState = iota
	writerFinalized
	writerClosed
)

func (s writerState) String() string {
	switch s {
	case writerOpen:
		return "open"
	case writerFinalized:
		return "finalized"
	default:
		return "closed"
	}
}

// VariableRef is a handle to a variable block already committed to storage.
// Refs are only ever produced by successful writes, so a parent can never
// reference a child that is not durable yet.
type VariableRef struct {
	w        *Writer
	loc      format.OffsetSize
	name     string
	isScalar bool
	children []VariableRef
}

// Writer assembles an OM file over an append-only backend. Variables are
// written bottom-up (children before parents) and the file becomes valid
// only once Finalize returns.
type Writer struct {
	mu   sync.Mutex
	a    backend.Appender
	cfg  config
	pos  uint64
	busy bool // an ArrayWriter is in flight

	state     writerState
	ownsFile  bool
	finalized format.Trailer
}

// Create creates an OM file at path. The returned Writer owns the
// underlying file and closes it on Close.
func Create(path string, opts ...Option) (*Writer, error) {
	f, err := backend.CreateFile(path)
	if err != nil {
		return nil, &WriteError{Op: "create file", Err: err}
	}
	w, err := NewWriter(f, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.ownsFile = true
	return w, nil
}

// NewWriter wraps an append-only backend. The file header is written
// immediately.
func NewWriter(a backend.Appender, opts ...Option) (*Writer, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	w := &Writer{a: a, cfg: cfg}
	hdr := format.Header{Magic: format.MagicNumber, Version: format.Version}
	if err := w.append(hdr.Encode(), "header"); err != nil {
		return nil, err
	}
	return w, nil
}

// WriteScalar writes a scalar (attribute) variable and returns its ref.
// Supported value types are the ten numeric element types and string.
// Children must have been written through this Writer.
func (w *Writer) WriteScalar(value any, name string, children ...VariableRef) (VariableRef, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writable("write scalar"); err != nil {
		return VariableRef{}, err
	}

	dt, payload, err := format.EncodeScalarValue(value)
	if err != nil {
		return VariableRef{}, err
	}

	v := &format.Variable{
		DataType:    dt,
		Compression: format.CompressionNone,
		ScaleFactor: 1,
		Name:        name,
		Scalar:      payload,
	}
	return w.commitVariable(v, children)
}

// Finalize writes the flat metadata index and the trailer, then syncs.
// The file is not valid until Finalize returns successfully. Finalize may
// be called once; the Writer rejects any further writes.
func (w *Writer) Finalize(root VariableRef) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writable("finalize"); err != nil {
		return err
	}
	if err := w.checkRef(root); err != nil {
		return err
	}

	var entries []format.IndexEntry
	var walk func(ref VariableRef, path string)
	walk = func(ref VariableRef, path string) {
		entries = append(entries, format.IndexEntry{
			Name:     path,
			Location: ref.loc,
			IsScalar: ref.isScalar,
		})
		for _, child := range ref.children {
			walk(child, path+"/"+child.name)
		}
	}
	walk(root, root.name)

	index, err := format.EncodeFlatIndex(entries)
	if err != nil {
		return &WriteError{Op: "encode flat index", Err: err}
	}
	if err := w.align(); err != nil {
		return err
	}
	indexOffset := w.pos
	if err := w.append(index, "flat index"); err != nil {
		return err
	}

	trailer := format.Trailer{
		Magic:       format.MagicNumber,
		Version:     format.Version,
		RootOffset:  root.loc.Offset,
		RootSize:    root.loc.Size,
		IndexOffset: indexOffset,
		IndexSize:   uint64(len(index)),
	}
	if err := w.align(); err != nil {
		return err
	}
	if err := w.append(trailer.Encode(), "trailer"); err != nil {
		return err
	}
	if err := w.a.Sync(); err != nil {
		return &WriteError{Op: "sync", Err: err}
	}

	w.state = writerFinalized
	w.finalized = trailer
	w.cfg.logger.Debug("finalized file",
		"root_offset", trailer.RootOffset,
		"root_size", trailer.RootSize,
		"variables", len(entries),
		"size", w.pos)
	return nil
}

// Close releases the backend. If the Writer owns the underlying file it is
// closed; otherwise only the Writer is invalidated and the caller keeps
// responsibility for the backend.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == writerClosed {
		return nil
	}
	w.state = writerClosed
	if w.ownsFile {
		if err := w.a.Close(); err != nil {
			return &WriteError{Op: "close file", Err: err}
		}
	}
	return nil
}

func (w *Writer) writable(op string) error {
	if w.state != writerOpen {
		return &InvalidStateError{Op: op, State: w.state.String()}
	}
	if w.busy {
		return &InvalidStateError{Op: op, State: "writing an array variable"}
	}
	return nil
}

// checkRef verifies that a ref originated from this Writer.
func (w *Writer) checkRef(refs ...VariableRef) error {
	for _, ref := range refs {
		if ref.w == nil || ref.loc.Size == 0 {
			return &DependencyOrderError{Reason: "variable reference was not produced by a write"}
		}
		if ref.w != w {
			return &DependencyOrderError{Reason: fmt.Sprintf("variable %q was written through a different writer", ref.name)}
		}
	}
	return nil
}

// commitVariable serializes a variable block at the next aligned offset.
// Callers hold w.mu.
func (w *Writer) commitVariable(v *format.Variable, children []VariableRef) (VariableRef, error) {
	if err := w.checkRef(children...); err != nil {
		return VariableRef{}, err
	}
	for _, child := range children {
		v.Children = append(v.Children, child.loc)
	}

	block, err := v.Encode()
	if err != nil {
		return VariableRef{}, err
	}
	if err := w.align(); err != nil {
		return VariableRef{}, err
	}
	offset := w.pos
	if err := w.append(block, "variable block"); err != nil {
		return VariableRef{}, err
	}

	w.cfg.logger.Debug("wrote variable",
		"name", v.Name,
		"dtype", v.DataType.String(),
		"offset", offset,
		"size", len(block))

	return VariableRef{
		w:        w,
		loc:      format.OffsetSize{Offset: offset, Size: uint64(len(block))},
		name:     v.Name,
		isScalar: v.IsScalar(),
		children: children,
	}, nil
}

var padding [format.Alignment]byte

// align pads the stream to the next block boundary.
func (w *Writer) align() error {
	aligned := format.Align(w.pos)
	if aligned == w.pos {
		return nil
	}
	return w.append(padding[:aligned-w.pos], "padding")
}

func (w *Writer) append(p []byte, what string) error {
	offset, err := w.a.Append(p)
	if err != nil {
		return &WriteError{Op: what, Err: err}
	}
	if offset != w.pos {
		return &backend.ContractError{Op: "append", Reason: fmt.Sprintf("backend appended at offset %d, expected %d", offset, w.pos)}
	}
	w.pos += uint64(len(p))
	return nil
}
