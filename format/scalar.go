package format

import (
	"fmt"
	"math"
)

// EncodeScalarValue serializes a scalar (attribute) value and returns its
// dtype tag. Supported types are the ten numeric element types and string.
func EncodeScalarValue(value any) (DataType, []byte, error) {
	switch v := value.(type) {
	case int8:
		return DataTypeInt8, []byte{byte(v)}, nil
	case uint8:
		return DataTypeUint8, []byte{v}, nil
	case int16:
		return DataTypeInt16, ByteOrder.AppendUint16(nil, uint16(v)), nil
	case uint16:
		return DataTypeUint16, ByteOrder.AppendUint16(nil, v), nil
	case int32:
		return DataTypeInt32, ByteOrder.AppendUint32(nil, uint32(v)), nil
	case uint32:
		return DataTypeUint32, ByteOrder.AppendUint32(nil, v), nil
	case int64:
		return DataTypeInt64, ByteOrder.AppendUint64(nil, uint64(v)), nil
	case uint64:
		return DataTypeUint64, ByteOrder.AppendUint64(nil, v), nil
	case float32:
		return DataTypeFloat32, ByteOrder.AppendUint32(nil, math.Float32bits(v)), nil
	case float64:
		return DataTypeFloat64, ByteOrder.AppendUint64(nil, math.Float64bits(v)), nil
	case string:
		return DataTypeString, []byte(v), nil
	default:
		return DataTypeNone, nil, fmt.Errorf("omfile: unsupported scalar type %T", value)
	}
}

// DecodeScalarValue parses a scalar payload into the Go value matching its
// dtype tag.
func DecodeScalarValue(dt DataType, payload []byte) (any, error) {
	if dt == DataTypeString {
		return string(payload), nil
	}
	if size := dt.ElemSize(); size == 0 || len(payload) < size {
		return nil, &TruncatedDataError{Field: "scalar value", Want: dt.ElemSize(), Got: len(payload)}
	}
	switch dt {
	case DataTypeInt8:
		return int8(payload[0]), nil
	case DataTypeUint8:
		return payload[0], nil
	case DataTypeInt16:
		return int16(ByteOrder.Uint16(payload)), nil
	case DataTypeUint16:
		return ByteOrder.Uint16(payload), nil
	case DataTypeInt32:
		return int32(ByteOrder.Uint32(payload)), nil
	case DataTypeUint32:
		return ByteOrder.Uint32(payload), nil
	case DataTypeInt64:
		return int64(ByteOrder.Uint64(payload)), nil
	case DataTypeUint64:
		return ByteOrder.Uint64(payload), nil
	case DataTypeFloat32:
		return math.Float32frombits(ByteOrder.Uint32(payload)), nil
	case DataTypeFloat64:
		return math.Float64frombits(ByteOrder.Uint64(payload)), nil
	default:
		return nil, &FormatError{Reason: fmt.Sprintf("%s is not a scalar type", dt)}
	}
}
