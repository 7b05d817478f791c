// Package wirecodec implements the minimal tag/length/value binary encoding
// the host application uses for its injected token record: unsigned base-128
// varints plus varint(0) and length-delimited(2) fields. The encoding must be
// byte-exact against an externally defined format, so fields are built
// explicitly rather than through a schema-driven serializer.
package wirecodec

import (
	"fmt"

	"github.com/lalds/AntigravityManager/internal/common"
)

// Wire types used by this codec. Only the two the host format needs.
const (
	TypeVarint int = 0
	TypeBytes  int = 2
)

// AppendUvarint appends v to dst as an unsigned base-128 varint:
// little-endian group order, continuation bit set on all but the final byte.
func AppendUvarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v&0x7F)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// EncodeVarint encodes n as an unsigned varint. Negative values are rejected:
// the host format carries only unsigned fields, so there is no zigzag path.
func EncodeVarint(n int64) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", common.ErrNegativeVarint, n)
	}
	return AppendUvarint(nil, uint64(n)), nil
}

// ReadUvarint decodes an unsigned varint from data starting at offset and
// returns the value together with the offset of the first byte after it.
// Returns common.ErrTruncatedVarint if the continuation bit never clears
// before the buffer ends.
func ReadUvarint(data []byte, offset int) (uint64, int, error) {
	var result uint64
	shift := uint(0)
	pos := offset

	for pos < len(data) {
		b := data[pos]
		result |= uint64(b&0x7F) << shift
		pos++
		if b&0x80 == 0 {
			return result, pos, nil
		}
		shift += 7
	}
	return 0, offset, common.ErrTruncatedVarint
}

// AppendVarintField appends a wire-type-0 field: tag varint followed by the
// value varint.
func AppendVarintField(dst []byte, fieldNum int, v uint64) ([]byte, error) {
	if fieldNum <= 0 {
		return nil, fmt.Errorf("%w: %d", common.ErrInvalidFieldNumber, fieldNum)
	}
	dst = AppendUvarint(dst, uint64(fieldNum)<<3|uint64(TypeVarint))
	return AppendUvarint(dst, v), nil
}

// AppendBytesField appends a length-delimited field: tag varint, payload
// length varint, then the payload bytes. Nested messages are payloads that
// are themselves serialized messages.
func AppendBytesField(dst []byte, fieldNum int, payload []byte) ([]byte, error) {
	if fieldNum <= 0 {
		return nil, fmt.Errorf("%w: %d", common.ErrInvalidFieldNumber, fieldNum)
	}
	dst = AppendUvarint(dst, uint64(fieldNum)<<3|uint64(TypeBytes))
	dst = AppendUvarint(dst, uint64(len(payload)))
	return append(dst, payload...), nil
}

// AppendStringField appends s as a length-delimited UTF-8 field.
func AppendStringField(dst []byte, fieldNum int, s string) ([]byte, error) {
	return AppendBytesField(dst, fieldNum, []byte(s))
}

// AppendMessageField appends an already serialized nested message as a
// length-delimited field.
func AppendMessageField(dst []byte, fieldNum int, msg []byte) ([]byte, error) {
	return AppendBytesField(dst, fieldNum, msg)
}

// Field is one decoded (fieldNumber, wireType, payload) triplet. For varint
// fields Value holds the decoded integer; for length-delimited fields Bytes
// holds the payload.
type Field struct {
	Num   int
	Type  int
	Value uint64
	Bytes []byte
}

// ReadField decodes a single field from data at offset. Returns the field and
// the offset just past it. Wire types other than varint and length-delimited
// are rejected: the host format never produces them.
func ReadField(data []byte, offset int) (Field, int, error) {
	tag, pos, err := ReadUvarint(data, offset)
	if err != nil {
		return Field{}, offset, err
	}

	f := Field{Num: int(tag >> 3), Type: int(tag & 0x7)}
	if f.Num <= 0 {
		return Field{}, offset, fmt.Errorf("%w: %d", common.ErrInvalidFieldNumber, f.Num)
	}

	switch f.Type {
	case TypeVarint:
		f.Value, pos, err = ReadUvarint(data, pos)
		if err != nil {
			return Field{}, offset, err
		}
	case TypeBytes:
		var n uint64
		n, pos, err = ReadUvarint(data, pos)
		if err != nil {
			return Field{}, offset, err
		}
		if uint64(len(data)-pos) < n {
			return Field{}, offset, fmt.Errorf("field %d: payload length %d exceeds buffer: %w", f.Num, n, common.ErrTruncatedVarint)
		}
		f.Bytes = data[pos : pos+int(n)]
		pos += int(n)
	default:
		return Field{}, offset, fmt.Errorf("field %d: unsupported wire type %d", f.Num, f.Type)
	}

	return f, pos, nil
}

// ReadMessage decodes all fields of a serialized message in order.
func ReadMessage(data []byte) ([]Field, error) {
	var fields []Field
	pos := 0
	for pos < len(data) {
		f, next, err := ReadField(data, pos)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
		pos = next
	}
	return fields, nil
}
