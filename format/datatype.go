package format

import "fmt"

// DataType tags the element type of a variable. Tags 1-11 are scalar types,
// tags 12-22 are their array counterparts. The numeric values are part of
// the on-disk format and must never change.
type DataType uint8

const (
	DataTypeNone DataType = iota
	DataTypeInt8
	DataTypeUint8
	DataTypeInt16
	DataTypeUint16
	DataTypeInt32
	DataTypeUint32
	DataTypeInt64
	DataTypeUint64
	DataTypeFloat32
	DataTypeFloat64
	DataTypeString
	DataTypeInt8Array
	DataTypeUint8Array
	DataTypeInt16Array
	DataTypeUint16Array
	DataTypeInt32Array
	DataTypeUint32Array
	DataTypeInt64Array
	DataTypeUint64Array
	DataTypeFloat32Array
	DataTypeFloat64Array
	DataTypeStringArray

	dataTypeMax
)

// ParseDataType validates a raw on-disk tag.
func ParseDataType(v uint8) (DataType, error) {
	if v >= uint8(dataTypeMax) {
		return DataTypeNone, &FormatError{Reason: fmt.Sprintf("unknown data type tag %d", v)}
	}
	return DataType(v), nil
}

// IsScalar reports whether the tag denotes a single scalar value rather
// than an array. Attributes are scalar variables.
func (d DataType) IsScalar() bool {
	return d <= DataTypeString
}

// ScalarType returns the scalar counterpart of an array tag. Scalar tags
// are returned unchanged.
func (d DataType) ScalarType() DataType {
	if d.IsScalar() {
		return d
	}
	return d - DataTypeInt8Array + DataTypeInt8
}

// ArrayType returns the array counterpart of a scalar tag. Array tags are
// returned unchanged.
func (d DataType) ArrayType() DataType {
	if !d.IsScalar() {
		return d
	}
	if d == DataTypeNone {
		return DataTypeNone
	}
	return d - DataTypeInt8 + DataTypeInt8Array
}

// ElemSize returns the storage width in bytes of one element, or 0 for
// variable-width types (string, none).
func (d DataType) ElemSize() int {
	switch d.ScalarType() {
	case DataTypeInt8, DataTypeUint8:
		return 1
	case DataTypeInt16, DataTypeUint16:
		return 2
	case DataTypeInt32, DataTypeUint32, DataTypeFloat32:
		return 4
	case DataTypeInt64, DataTypeUint64, DataTypeFloat64:
		return 8
	default:
		return 0
	}
}

// IsFloat reports whether the element type is an IEEE-754 float.
func (d DataType) IsFloat() bool {
	s := d.ScalarType()
	return s == DataTypeFloat32 || s == DataTypeFloat64
}

func (d DataType) String() string {
	names := [...]string{
		"none", "int8", "uint8", "int16", "uint16", "int32", "uint32",
		"int64", "uint64", "float32", "float64", "string",
		"int8[]", "uint8[]", "int16[]", "uint16[]", "int32[]", "uint32[]",
		"int64[]", "uint64[]", "float32[]", "float64[]", "string[]",
	}
	if int(d) < len(names) {
		return names[d]
	}
	return fmt.Sprintf("datatype(%d)", uint8(d))
}
