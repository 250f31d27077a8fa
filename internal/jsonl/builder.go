package jsonl

import (
	"github.com/parqlite/qcore/internal/bufferx"
	"github.com/parqlite/qcore/internal/columnar"
)

// initialColumnCapacity seeds each builder's int/offset buffers so the
// common case (a column present in most rows) grows geometrically
// from a useful size rather than bufferx's default minimum of 8.
const initialColumnCapacity = 64

// columnBuilder accumulates one projected column's values row by row,
// implementing spec.md §4.6's schema-padding strategy: every row
// appends exactly one value (parsed or null) to every builder, so no
// post-pass is needed to backfill missing keys. Integer values and
// string/list offsets accumulate through bufferx's growable buffers,
// the same write-side scratch space the join paths use.
type columnBuilder struct {
	name string
	typ  columnar.Type
	info FieldInfo

	row int

	validity []uint64
	int64s   *bufferx.IntBuffer
	float64s []float64
	bools    []uint64
	data     []byte
	offsets  *bufferx.Int32Buffer

	// list support: element values accumulate in a child builder.
	child *columnBuilder
}

func newColumnBuilder(name string, info FieldInfo) *columnBuilder {
	b := &columnBuilder{name: name, typ: info.Kind.ColumnarType(), info: info}
	switch b.typ {
	case columnar.TypeInt64, columnar.TypeTimestamp:
		b.int64s = bufferx.NewIntBuffer(initialColumnCapacity)
	case columnar.TypeUTF8, columnar.TypeBytes:
		b.offsets = bufferx.NewInt32Buffer(initialColumnCapacity)
		b.offsets.Append(0)
	case columnar.TypeList:
		b.offsets = bufferx.NewInt32Buffer(initialColumnCapacity)
		b.offsets.Append(0)
		b.child = newColumnBuilder(name+"[]", FieldInfo{Kind: info.ElemKind})
	}
	return b
}

func (b *columnBuilder) setValid(valid bool) {
	word := b.row / 64
	for len(b.validity) <= word {
		b.validity = append(b.validity, 0)
	}
	if valid {
		b.validity[word] |= 1 << uint(b.row%64)
	}
}

func (b *columnBuilder) appendNull() {
	switch b.typ {
	case columnar.TypeInt64, columnar.TypeTimestamp:
		b.int64s.Append(0)
	case columnar.TypeFloat64:
		b.float64s = append(b.float64s, 0)
	case columnar.TypeBool:
		// validity bit already defaults to 0; no storage needed
	case columnar.TypeUTF8, columnar.TypeBytes:
		b.offsets.Append(int32(len(b.data)))
	case columnar.TypeList:
		b.offsets.Append(int32(b.child.row))
	}
	b.setValid(false)
	b.row++
}

// appendValue parses raw (the value's byte range, including quotes
// for strings / brackets for arrays) according to b's inferred kind
// and appends it, falling back to null if the value cannot be parsed
// as that kind (a row-level type mismatch within an otherwise
// well-formed line, e.g. a merged String column seeing a bare
// numeric literal is fine, but a merged Int column seeing "abc" is
// not — spec.md treats only whole malformed lines as skippable, so a
// single bad cell degrades to null rather than discarding the row).
func (b *columnBuilder) appendValue(raw []byte) {
	trimmed := bytesTrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		b.appendNull()
		return
	}

	switch b.typ {
	case columnar.TypeInt64:
		v, ok := parseIntDigits(trimmed)
		if !ok {
			b.appendNull()
			return
		}
		b.int64s.Append(v)
		b.setValid(true)
		b.row++
	case columnar.TypeFloat64:
		v, ok := parseFloatBytes(trimmed)
		if !ok {
			b.appendNull()
			return
		}
		b.float64s = append(b.float64s, v)
		b.setValid(true)
		b.row++
	case columnar.TypeBool:
		v, ok := parseBoolBytes(trimmed)
		if !ok {
			b.appendNull()
			return
		}
		if v {
			word := b.row / 64
			for len(b.bools) <= word {
				b.bools = append(b.bools, 0)
			}
			b.bools[word] |= 1 << uint(b.row%64)
		}
		b.setValid(true)
		b.row++
	case columnar.TypeUTF8:
		s := unescapeJSONString(trimmed)
		if s == nil {
			if trimmed[0] == '"' {
				b.appendNull()
				return
			}
			// A bare literal (e.g. a number) keeps its raw text.
			s = trimmed
		}
		b.data = append(b.data, s...)
		b.offsets.Append(int32(len(b.data)))
		b.setValid(true)
		b.row++
	case columnar.TypeBytes:
		// Object-typed columns: store the raw JSON text undecoded.
		b.data = append(b.data, trimmed...)
		b.offsets.Append(int32(len(b.data)))
		b.setValid(true)
		b.row++
	case columnar.TypeList:
		b.appendListValue(trimmed)
	default:
		b.appendNull()
	}
}

func (b *columnBuilder) appendListValue(raw []byte) {
	if len(raw) < 2 || raw[0] != '[' {
		b.appendNull()
		return
	}
	inner := raw[1 : len(raw)-1]
	pos := 0
	for {
		pos = skipWS(inner, pos)
		if pos >= len(inner) {
			break
		}
		end, ok := matchValue(inner, pos)
		if !ok {
			break
		}
		b.child.appendValue(inner[pos:end])
		pos = end
		pos = skipWS(inner, pos)
		if pos < len(inner) && inner[pos] == ',' {
			pos++
			continue
		}
		break
	}
	b.offsets.Append(int32(b.child.row))
	b.setValid(true)
	b.row++
}

// finish produces the immutable columnar.Column for this builder.
func (b *columnBuilder) finish() columnar.Column {
	col := columnar.Column{Name: b.name, Type: b.typ, Validity: b.validity}
	switch b.typ {
	case columnar.TypeInt64, columnar.TypeTimestamp:
		col.Int64s = b.int64s.ToContiguousArray()
	case columnar.TypeFloat64:
		col.Float64s = b.float64s
	case columnar.TypeBool:
		col.Bools = b.bools
	case columnar.TypeUTF8, columnar.TypeBytes:
		col.Data = b.data
		col.Offsets = b.offsets.ToContiguousArray()
	case columnar.TypeList:
		child := b.child.finish()
		col.Child = &child
		col.Offsets = b.offsets.ToContiguousArray()
	}
	return col
}
