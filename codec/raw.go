package codec

import (
	"math"

	"github.com/hupe1980/omfile/format"
)

// rawEncode stores elements as canonical little-endian bytes without any
// transform.
func rawEncode[T format.Element](vals []T) []byte {
	elemSize := format.DataTypeOf[T]().ElemSize()
	buf := make([]byte, 0, len(vals)*elemSize)
	for _, v := range vals {
		buf = appendElem(buf, v)
	}
	return buf
}

func rawDecode[T format.Element](src []byte, dst []T) error {
	elemSize := format.DataTypeOf[T]().ElemSize()
	if len(src) != len(dst)*elemSize {
		return &DecodeError{Reason: "raw chunk size does not match geometry"}
	}
	for i := range dst {
		dst[i] = elemAt[T](src[i*elemSize:])
	}
	return nil
}

func appendElem[T format.Element](buf []byte, v T) []byte {
	switch x := any(v).(type) {
	case int8:
		return append(buf, byte(x))
	case uint8:
		return append(buf, x)
	case int16:
		return format.ByteOrder.AppendUint16(buf, uint16(x))
	case uint16:
		return format.ByteOrder.AppendUint16(buf, x)
	case int32:
		return format.ByteOrder.AppendUint32(buf, uint32(x))
	case uint32:
		return format.ByteOrder.AppendUint32(buf, x)
	case int64:
		return format.ByteOrder.AppendUint64(buf, uint64(x))
	case uint64:
		return format.ByteOrder.AppendUint64(buf, x)
	case float32:
		return format.ByteOrder.AppendUint32(buf, math.Float32bits(x))
	case float64:
		return format.ByteOrder.AppendUint64(buf, math.Float64bits(x))
	default:
		return buf
	}
}

func elemAt[T format.Element](buf []byte) T {
	var zero T
	switch any(zero).(type) {
	case int8:
		return T(int8(buf[0]))
	case uint8:
		return T(buf[0])
	case int16:
		return T(int16(format.ByteOrder.Uint16(buf)))
	case uint16:
		return T(format.ByteOrder.Uint16(buf))
	case int32:
		return T(int32(format.ByteOrder.Uint32(buf)))
	case uint32:
		return T(format.ByteOrder.Uint32(buf))
	case int64:
		return T(int64(format.ByteOrder.Uint64(buf)))
	case uint64:
		return T(format.ByteOrder.Uint64(buf))
	case float32:
		return T(math.Float32frombits(format.ByteOrder.Uint32(buf)))
	case float64:
		return T(math.Float64frombits(format.ByteOrder.Uint64(buf)))
	default:
		return zero
	}
}
