package format

import (
	"fmt"
	"math"
)

// OffsetSize locates a serialized variable block within the file.
type OffsetSize struct {
	Offset uint64
	Size   uint64
}

// variablePreludeSize is the fixed-width part shared by scalar and array
// blocks: dtype, compression, name length, child count, scale factor and
// add offset.
const variablePreludeSize = 1 + 1 + 2 + 4 + 8 + 8

// arrayFieldsSize covers the array-only fixed fields: dimension count and
// the chunk-offset LUT location.
const arrayFieldsSize = 8 + 8 + 8

// Variable is the decoded metadata block of one node in the file hierarchy.
// Array variables carry dimensions, chunk dimensions and the location of
// their chunk-offset LUT; scalar variables carry a raw value payload.
type Variable struct {
	DataType    DataType
	Compression Compression
	ScaleFactor float64
	AddOffset   float64
	Name        string
	Dims        []uint64
	ChunkDims   []uint64
	LUTOffset   uint64
	LUTSize     uint64
	Children    []OffsetSize
	Scalar      []byte
}

// IsScalar reports whether the variable holds a single value (an attribute)
// rather than a chunked array.
func (v *Variable) IsScalar() bool {
	return v.DataType.IsScalar()
}

// NumChunks returns the total number of chunks of an array variable.
// Chunks may overhang the array edge; partial chunks count as one.
func (v *Variable) NumChunks() uint64 {
	if v.IsScalar() {
		return 0
	}
	n := uint64(1)
	for i, dim := range v.Dims {
		n *= (dim + v.ChunkDims[i] - 1) / v.ChunkDims[i]
	}
	return n
}

// EncodedSize returns the exact serialized size of the block in bytes.
func (v *Variable) EncodedSize() int {
	size := variablePreludeSize
	if !v.IsScalar() {
		size += arrayFieldsSize + 16*len(v.Dims)
	}
	size += 16 * len(v.Children)
	size += len(v.Name)
	size += len(v.Scalar)
	return size
}

// Encode serializes the variable block.
func (v *Variable) Encode() ([]byte, error) {
	if len(v.Name) > math.MaxUint16 {
		return nil, &FormatError{Reason: fmt.Sprintf("variable name too long (%d bytes)", len(v.Name))}
	}
	if len(v.Children) > math.MaxUint32 {
		return nil, &FormatError{Reason: "too many children"}
	}
	if !v.IsScalar() && len(v.Dims) != len(v.ChunkDims) {
		return nil, &FormatError{Reason: fmt.Sprintf("dimension count %d does not match chunk dimension count %d", len(v.Dims), len(v.ChunkDims))}
	}

	buf := make([]byte, 0, v.EncodedSize())
	buf = append(buf, byte(v.DataType), byte(v.Compression))
	buf = ByteOrder.AppendUint16(buf, uint16(len(v.Name)))
	buf = ByteOrder.AppendUint32(buf, uint32(len(v.Children)))
	buf = ByteOrder.AppendUint64(buf, math.Float64bits(v.ScaleFactor))
	buf = ByteOrder.AppendUint64(buf, math.Float64bits(v.AddOffset))

	if !v.IsScalar() {
		buf = ByteOrder.AppendUint64(buf, uint64(len(v.Dims)))
		buf = ByteOrder.AppendUint64(buf, v.LUTOffset)
		buf = ByteOrder.AppendUint64(buf, v.LUTSize)
		for _, d := range v.Dims {
			buf = ByteOrder.AppendUint64(buf, d)
		}
		for _, c := range v.ChunkDims {
			buf = ByteOrder.AppendUint64(buf, c)
		}
	}

	for _, child := range v.Children {
		buf = ByteOrder.AppendUint64(buf, child.Offset)
	}
	for _, child := range v.Children {
		buf = ByteOrder.AppendUint64(buf, child.Size)
	}

	buf = append(buf, v.Name...)
	buf = append(buf, v.Scalar...)
	return buf, nil
}

// DecodeVariable parses a serialized variable block. The buffer must span
// exactly the block recorded in the parent's child table or the trailer.
func DecodeVariable(buf []byte) (*Variable, error) {
	if len(buf) < variablePreludeSize {
		return nil, &TruncatedDataError{Field: "variable prelude", Want: variablePreludeSize, Got: len(buf)}
	}

	dtype, err := ParseDataType(buf[0])
	if err != nil {
		return nil, err
	}
	compression, err := ParseCompression(buf[1])
	if err != nil {
		return nil, err
	}

	v := &Variable{
		DataType:    dtype,
		Compression: compression,
		ScaleFactor: math.Float64frombits(ByteOrder.Uint64(buf[8:])),
		AddOffset:   math.Float64frombits(ByteOrder.Uint64(buf[16:])),
	}
	nameLen := int(ByteOrder.Uint16(buf[2:]))
	childCount := int(ByteOrder.Uint32(buf[4:]))
	pos := variablePreludeSize

	if !v.IsScalar() {
		if len(buf) < pos+arrayFieldsSize {
			return nil, &TruncatedDataError{Field: "array fields", Want: pos + arrayFieldsSize, Got: len(buf)}
		}
		numDims := ByteOrder.Uint64(buf[pos:])
		v.LUTOffset = ByteOrder.Uint64(buf[pos+8:])
		v.LUTSize = ByteOrder.Uint64(buf[pos+16:])
		pos += arrayFieldsSize

		if numDims == 0 {
			return nil, &FormatError{Reason: "array variable without dimensions"}
		}
		if numDims > uint64(len(buf)/16) {
			return nil, &FormatError{Reason: fmt.Sprintf("implausible dimension count %d", numDims)}
		}
		need := pos + int(numDims)*16
		if len(buf) < need {
			return nil, &TruncatedDataError{Field: "dimensions", Want: need, Got: len(buf)}
		}
		v.Dims = make([]uint64, numDims)
		v.ChunkDims = make([]uint64, numDims)
		for i := range v.Dims {
			v.Dims[i] = ByteOrder.Uint64(buf[pos:])
			pos += 8
		}
		for i := range v.ChunkDims {
			v.ChunkDims[i] = ByteOrder.Uint64(buf[pos:])
			if v.ChunkDims[i] == 0 {
				return nil, &FormatError{Reason: "zero chunk dimension"}
			}
			pos += 8
		}
	}

	need := pos + childCount*16 + nameLen
	if len(buf) < need {
		return nil, &TruncatedDataError{Field: "variable block", Want: need, Got: len(buf)}
	}
	if childCount > 0 {
		v.Children = make([]OffsetSize, childCount)
		for i := range v.Children {
			v.Children[i].Offset = ByteOrder.Uint64(buf[pos:])
			pos += 8
		}
		for i := range v.Children {
			v.Children[i].Size = ByteOrder.Uint64(buf[pos:])
			pos += 8
		}
	}

	v.Name = string(buf[pos : pos+nameLen])
	pos += nameLen

	if v.IsScalar() && pos < len(buf) {
		v.Scalar = buf[pos:]
	}
	return v, nil
}
