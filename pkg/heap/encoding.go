// ABOUTME: Schema-driven binary row encoding with no embedded per-row type tags
// ABOUTME: decode is entirely schema-driven: column count, then one encoding per column

package heap

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/nainya/sqlengine/pkg/sqlvalue"
)

// ErrCorruptRow is returned when a row's bytes cannot be decoded against
// the given schema (bad bool byte, invalid UTF-8, truncated buffer).
var ErrCorruptRow = fmt.Errorf("heap: corrupt row")

// EncodeRow encodes row according to schema: u16 column count, then per
// column in schema order: INTEGER as 8-byte LE i64, BOOLEAN as 1 byte,
// VARCHAR as u32 LE length + UTF-8 bytes. Caller must have already
// validated row against schema.
func EncodeRow(schema sqlvalue.Schema, row []sqlvalue.Value) []byte {
	buf := make([]byte, 2, 2+len(row)*9)
	binary.LittleEndian.PutUint16(buf, uint16(len(row)))

	for _, v := range row {
		switch v.Kind {
		case sqlvalue.Integer:
			var tmp [8]byte
			binary.LittleEndian.PutUint64(tmp[:], uint64(v.I))
			buf = append(buf, tmp[:]...)
		case sqlvalue.Boolean:
			if v.B {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		case sqlvalue.Varchar:
			var lenBuf [4]byte
			s := []byte(v.S)
			binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
			buf = append(buf, lenBuf[:]...)
			buf = append(buf, s...)
		}
	}
	return buf
}

// DecodeRow decodes bytes into a row of sqlvalue.Value per schema's column
// types, in schema order. Returns ErrCorruptRow on truncation, an invalid
// boolean byte, or invalid UTF-8 in a VARCHAR.
func DecodeRow(schema sqlvalue.Schema, data []byte) ([]sqlvalue.Value, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: missing column count", ErrCorruptRow)
	}
	count := binary.LittleEndian.Uint16(data)
	if int(count) != schema.Arity() {
		return nil, fmt.Errorf("%w: encoded column count %d does not match schema arity %d", ErrCorruptRow, count, schema.Arity())
	}

	pos := 2
	out := make([]sqlvalue.Value, 0, count)
	for _, col := range schema.Columns {
		switch col.Type {
		case sqlvalue.Integer:
			if pos+8 > len(data) {
				return nil, fmt.Errorf("%w: truncated integer for column %q", ErrCorruptRow, col.Name)
			}
			i := int64(binary.LittleEndian.Uint64(data[pos:]))
			out = append(out, sqlvalue.NewInteger(i))
			pos += 8

		case sqlvalue.Boolean:
			if pos+1 > len(data) {
				return nil, fmt.Errorf("%w: truncated boolean for column %q", ErrCorruptRow, col.Name)
			}
			b := data[pos]
			if b != 0 && b != 1 {
				return nil, fmt.Errorf("%w: invalid boolean byte %d for column %q", ErrCorruptRow, b, col.Name)
			}
			out = append(out, sqlvalue.NewBoolean(b == 1))
			pos++

		case sqlvalue.Varchar:
			if pos+4 > len(data) {
				return nil, fmt.Errorf("%w: truncated varchar length for column %q", ErrCorruptRow, col.Name)
			}
			length := binary.LittleEndian.Uint32(data[pos:])
			pos += 4
			if pos+int(length) > len(data) {
				return nil, fmt.Errorf("%w: truncated varchar bytes for column %q", ErrCorruptRow, col.Name)
			}
			strBytes := data[pos : pos+int(length)]
			if !utf8.Valid(strBytes) {
				return nil, fmt.Errorf("%w: invalid UTF-8 for column %q", ErrCorruptRow, col.Name)
			}
			out = append(out, sqlvalue.NewVarchar(string(strBytes)))
			pos += int(length)

		default:
			return nil, fmt.Errorf("%w: unknown column type for %q", ErrCorruptRow, col.Name)
		}
	}

	return out, nil
}

// EncodeSchema serializes a schema self-describingly: u32 column count,
// then per column a u8 type tag, u32 name length, name bytes. Used for
// HeapTable metadata page 0.
func EncodeSchema(schema sqlvalue.Schema) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(schema.Columns)))

	for _, c := range schema.Columns {
		buf = append(buf, byte(c.Type))
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(c.Name)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, []byte(c.Name)...)
	}
	return buf
}

// DecodeSchema is the inverse of EncodeSchema.
func DecodeSchema(data []byte) (sqlvalue.Schema, error) {
	if len(data) < 4 {
		return sqlvalue.Schema{}, fmt.Errorf("%w: missing schema column count", ErrCorruptRow)
	}
	count := binary.LittleEndian.Uint32(data)
	pos := 4

	cols := make([]sqlvalue.Column, 0, count)
	for i := uint32(0); i < count; i++ {
		if pos+1+4 > len(data) {
			return sqlvalue.Schema{}, fmt.Errorf("%w: truncated schema column header", ErrCorruptRow)
		}
		typ := sqlvalue.Kind(data[pos])
		pos++
		nameLen := binary.LittleEndian.Uint32(data[pos:])
		pos += 4
		if pos+int(nameLen) > len(data) {
			return sqlvalue.Schema{}, fmt.Errorf("%w: truncated schema column name", ErrCorruptRow)
		}
		name := string(data[pos : pos+int(nameLen)])
		pos += int(nameLen)
		cols = append(cols, sqlvalue.Column{Name: name, Type: typ})
	}

	return sqlvalue.NewSchema(cols)
}
