package format

import (
	"encoding/binary"
	"fmt"
)

const (
	// MagicNumber identifies an OM container ("OM1F").
	MagicNumber = 0x464D4F31
	// Version is the current container format version.
	Version = 1

	// HeaderSize is the fixed size of the file header in bytes.
	HeaderSize = 8
	// TrailerSize is the fixed size of the file trailer in bytes.
	TrailerSize = 40

	// Alignment is the byte alignment of variable blocks and the trailer.
	Alignment = 64
)

// ByteOrder is the canonical byte order of every numeric field in the
// container. The format is never host-endianness-dependent.
var ByteOrder = binary.LittleEndian

// Header is stored at offset 0 of every OM file.
type Header struct {
	Magic   uint32
	Version uint32
}

// Encode serializes the header.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	ByteOrder.PutUint32(buf[0:], h.Magic)
	ByteOrder.PutUint32(buf[4:], h.Version)
	return buf
}

// DecodeHeader parses and validates the file header.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, &TruncatedDataError{Field: "header", Want: HeaderSize, Got: len(buf)}
	}
	h := Header{
		Magic:   ByteOrder.Uint32(buf[0:]),
		Version: ByteOrder.Uint32(buf[4:]),
	}
	if h.Magic != MagicNumber {
		return Header{}, &FormatError{Reason: fmt.Sprintf("bad magic 0x%08x", h.Magic)}
	}
	if h.Version != Version {
		return Header{}, &FormatError{Reason: fmt.Sprintf("unsupported version %d", h.Version)}
	}
	return h, nil
}

// Trailer is stored at the end of every finalized OM file. It records the
// location of the root variable block and, optionally, of a flat
// name-to-location index covering every variable reachable from the root.
type Trailer struct {
	Magic       uint32
	Version     uint32
	RootOffset  uint64
	RootSize    uint64
	IndexOffset uint64 // 0 when no flat index is present
	IndexSize   uint64
}

// Encode serializes the trailer.
func (t Trailer) Encode() []byte {
	buf := make([]byte, TrailerSize)
	ByteOrder.PutUint32(buf[0:], t.Magic)
	ByteOrder.PutUint32(buf[4:], t.Version)
	ByteOrder.PutUint64(buf[8:], t.RootOffset)
	ByteOrder.PutUint64(buf[16:], t.RootSize)
	ByteOrder.PutUint64(buf[24:], t.IndexOffset)
	ByteOrder.PutUint64(buf[32:], t.IndexSize)
	return buf
}

// DecodeTrailer parses and validates the file trailer.
func DecodeTrailer(buf []byte) (Trailer, error) {
	if len(buf) < TrailerSize {
		return Trailer{}, &TruncatedDataError{Field: "trailer", Want: TrailerSize, Got: len(buf)}
	}
	t := Trailer{
		Magic:       ByteOrder.Uint32(buf[0:]),
		Version:     ByteOrder.Uint32(buf[4:]),
		RootOffset:  ByteOrder.Uint64(buf[8:]),
		RootSize:    ByteOrder.Uint64(buf[16:]),
		IndexOffset: ByteOrder.Uint64(buf[24:]),
		IndexSize:   ByteOrder.Uint64(buf[32:]),
	}
	if t.Magic != MagicNumber {
		return Trailer{}, &FormatError{Reason: fmt.Sprintf("bad trailer magic 0x%08x", t.Magic)}
	}
	if t.Version != Version {
		return Trailer{}, &FormatError{Reason: fmt.Sprintf("unsupported trailer version %d", t.Version)}
	}
	if t.RootSize == 0 {
		return Trailer{}, &FormatError{Reason: "trailer has no root variable"}
	}
	return t, nil
}

// Align returns the smallest multiple of Alignment that is >= pos.
func Align(pos uint64) uint64 {
	rem := pos % Alignment
	if rem == 0 {
		return pos
	}
	return pos + Alignment - rem
}
