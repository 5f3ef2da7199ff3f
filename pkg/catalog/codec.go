// Package catalog implements the wire format and in-memory registries for
// Siodb's catalog records: tables, columns, column sets, column
// definitions, constraints, indices, users, and cipher keys. Every record
// is encoded with the same small set of primitives (unsigned base-128
// varints, length-prefixed strings and byte strings, one-byte presence
// tags for optional fields), mirroring the hand-rolled binary codec
// original_source/iomgr/lib/dbengine/reg uses throughout.
package catalog

import (
	"encoding/binary"
	"fmt"
)

// EncodeVarint appends v to buf as an unsigned base-128 varint (LEB128,
// little-endian group order, continuation bit set on all but the last
// byte).
func EncodeVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// VarintSize reports how many bytes EncodeVarint would append for v.
func VarintSize(v uint64) int {
	n := 1
	for v >= 0x80 {
		n++
		v >>= 7
	}
	return n
}

// DecodeVarint reads an unsigned varint from the front of buf, returning
// the value and the number of bytes consumed.
func DecodeVarint(buf []byte) (uint64, int, error) {
	var v uint64
	var shift uint
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, i + 1, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, 0, fmt.Errorf("catalog: varint too long")
		}
	}
	return 0, 0, fmt.Errorf("catalog: truncated varint")
}

// EncodeBytes appends a varint length prefix followed by b.
func EncodeBytes(buf []byte, b []byte) []byte {
	buf = EncodeVarint(buf, uint64(len(b)))
	return append(buf, b...)
}

// BytesSize reports the encoded size of b including its length prefix.
func BytesSize(b []byte) int {
	return VarintSize(uint64(len(b))) + len(b)
}

// DecodeBytes reads a varint-length-prefixed byte string from buf.
func DecodeBytes(buf []byte) ([]byte, int, error) {
	n, consumed, err := DecodeVarint(buf)
	if err != nil {
		return nil, 0, err
	}
	end := consumed + int(n)
	if end > len(buf) {
		return nil, 0, fmt.Errorf("catalog: truncated byte string: need %d, have %d", end, len(buf))
	}
	out := make([]byte, n)
	copy(out, buf[consumed:end])
	return out, end, nil
}

// EncodeString appends a varint-length-prefixed UTF-8 string.
func EncodeString(buf []byte, s string) []byte {
	return EncodeBytes(buf, []byte(s))
}

// StringSize reports the encoded size of s including its length prefix.
func StringSize(s string) int {
	return BytesSize([]byte(s))
}

// DecodeString reads a varint-length-prefixed string from buf.
func DecodeString(buf []byte) (string, int, error) {
	b, consumed, err := DecodeBytes(buf)
	if err != nil {
		return "", 0, err
	}
	return string(b), consumed, nil
}

// presentByte / absentByte are the one-byte presence tags that precede an
// optional field's encoding.
const (
	absentByte  = 0
	presentByte = 1
)

// EncodeOptionalString appends a presence byte, then the string if present.
func EncodeOptionalString(buf []byte, s *string) []byte {
	if s == nil {
		return append(buf, absentByte)
	}
	buf = append(buf, presentByte)
	return EncodeString(buf, *s)
}

// OptionalStringSize reports the encoded size of an optional string field.
func OptionalStringSize(s *string) int {
	if s == nil {
		return 1
	}
	return 1 + StringSize(*s)
}

// DecodeOptionalString reads an optional string field from buf.
func DecodeOptionalString(buf []byte) (*string, int, error) {
	if len(buf) < 1 {
		return nil, 0, fmt.Errorf("catalog: truncated optional string presence byte")
	}
	if buf[0] == absentByte {
		return nil, 1, nil
	}
	s, consumed, err := DecodeString(buf[1:])
	if err != nil {
		return nil, 0, err
	}
	return &s, 1 + consumed, nil
}

// EncodeOptionalInt64 appends a presence byte, then a fixed 8-byte
// little-endian value if present.
func EncodeOptionalInt64(buf []byte, v *int64) []byte {
	if v == nil {
		return append(buf, absentByte)
	}
	buf = append(buf, presentByte)
	return binary.LittleEndian.AppendUint64(buf, uint64(*v))
}

// OptionalInt64Size reports the encoded size of an optional int64 field.
func OptionalInt64Size(v *int64) int {
	if v == nil {
		return 1
	}
	return 9
}

// DecodeOptionalInt64 reads an optional fixed-width int64 field from buf.
func DecodeOptionalInt64(buf []byte) (*int64, int, error) {
	if len(buf) < 1 {
		return nil, 0, fmt.Errorf("catalog: truncated optional int64 presence byte")
	}
	if buf[0] == absentByte {
		return nil, 1, nil
	}
	if len(buf) < 9 {
		return nil, 0, fmt.Errorf("catalog: truncated optional int64 value")
	}
	v := int64(binary.LittleEndian.Uint64(buf[1:9]))
	return &v, 9, nil
}

// EncodeBool appends a single 0/1 byte.
func EncodeBool(buf []byte, b bool) []byte {
	if b {
		return append(buf, 1)
	}
	return append(buf, 0)
}

// DecodeBool reads a single 0/1 byte from buf.
func DecodeBool(buf []byte) (bool, int, error) {
	if len(buf) < 1 {
		return false, 0, fmt.Errorf("catalog: truncated bool")
	}
	return buf[0] != 0, 1, nil
}
