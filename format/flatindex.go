package format

import (
	"encoding/binary"
	"sort"

	"github.com/klauspost/compress/zstd"
)

// IndexEntry is one record of the flat name-to-location index stored before
// the trailer. Names are fully qualified, "/"-joined paths from the root.
type IndexEntry struct {
	Name     string
	Location OffsetSize
	IsScalar bool
}

// EncodeFlatIndex serializes and zstd-compresses the flat index. Entries
// are sorted by name so that the output is deterministic.
func EncodeFlatIndex(entries []IndexEntry) ([]byte, error) {
	sorted := make([]IndexEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	raw := binary.AppendUvarint(nil, uint64(len(sorted)))
	for _, e := range sorted {
		raw = binary.AppendUvarint(raw, uint64(len(e.Name)))
		raw = append(raw, e.Name...)
		raw = binary.AppendUvarint(raw, e.Location.Offset)
		raw = binary.AppendUvarint(raw, e.Location.Size)
		if e.IsScalar {
			raw = append(raw, 1)
		} else {
			raw = append(raw, 0)
		}
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

// DecodeFlatIndex parses a zstd-compressed flat index block.
func DecodeFlatIndex(buf []byte) ([]IndexEntry, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(buf, nil)
	if err != nil {
		return nil, &FormatError{Reason: "corrupt flat index: " + err.Error()}
	}

	count, n := binary.Uvarint(raw)
	if n <= 0 {
		return nil, &TruncatedDataError{Field: "flat index count", Want: 1, Got: 0}
	}
	raw = raw[n:]

	entries := make([]IndexEntry, 0, count)
	for i := uint64(0); i < count; i++ {
		nameLen, n := binary.Uvarint(raw)
		if n <= 0 || uint64(len(raw)-n) < nameLen {
			return nil, &TruncatedDataError{Field: "flat index name", Want: int(nameLen), Got: len(raw)}
		}
		raw = raw[n:]
		name := string(raw[:nameLen])
		raw = raw[nameLen:]

		offset, n := binary.Uvarint(raw)
		if n <= 0 {
			return nil, &TruncatedDataError{Field: "flat index offset", Want: 1, Got: len(raw)}
		}
		raw = raw[n:]

		size, n := binary.Uvarint(raw)
		if n <= 0 {
			return nil, &TruncatedDataError{Field: "flat index size", Want: 1, Got: len(raw)}
		}
		raw = raw[n:]

		if len(raw) < 1 {
			return nil, &TruncatedDataError{Field: "flat index flags", Want: 1, Got: 0}
		}
		isScalar := raw[0] == 1
		raw = raw[1:]

		entries = append(entries, IndexEntry{
			Name:     name,
			Location: OffsetSize{Offset: offset, Size: size},
			IsScalar: isScalar,
		})
	}
	return entries, nil
}
