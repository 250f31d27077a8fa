// Package relstats computes and (de)serializes per-column relation
// statistics — null counts, order-preserving lower/upper bounds, and
// cardinality estimates — used by the optimizer's predicate ordering,
// join ordering, and predicate-compaction strategies (spec.md §3/§6).
//
// Grounded on the teacher's schema.Manager (which tracks per-column
// min/max/null-count metadata for pruning index blocks) generalized to
// the order-preserving int64 encoding and exact wire format spec.md §6
// specifies, replacing the teacher's native-typed bounds.
package relstats

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/parqlite/qcore/internal/columnar"
	"github.com/parqlite/qcore/internal/hashing"
	"github.com/parqlite/qcore/internal/qerr"
)

// NoValue is the sentinel representing "no value"/NaN, excluded from
// min/max updates, per spec.md §3.
const NoValue = math.MinInt64

// ColumnStats is one column's encoded statistics.
type ColumnStats struct {
	NullCount           int64
	LowerBound          int64 // order-preserving encoding, NoValue if unset
	UpperBound          int64
	CardinalityEstimate int64
}

// RelationStats is the full per-relation statistics set.
type RelationStats struct {
	RecordCount         int64
	RecordCountEstimate int64
	Columns             map[string]ColumnStats
}

// EncodeInt64 is the order-preserving encoding for integers: identity.
func EncodeInt64(v int64) int64 { return v }

// EncodeFloat64 is the order-preserving encoding for floats: clamped
// arithmetic value; NaN yields NoValue.
func EncodeFloat64(v float64) int64 {
	if math.IsNaN(v) {
		return NoValue
	}
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	if v <= math.MinInt64+1 {
		return math.MinInt64 + 1
	}
	return int64(v)
}

// EncodeTimestamp maps epoch-nanosecond values to epoch-seconds.
func EncodeTimestamp(epochNanos int64) int64 { return epochNanos / 1_000_000_000 }

// EncodeBytes maps a byte slice to an order-preserving int64 by taking
// the first 7 bytes big-endian into a zero-padded 8-byte slot whose
// high byte stays zero, so the result is never negative and
// lexicographic order over the original bytes is preserved up to
// ties beyond 7 bytes.
func EncodeBytes(b []byte) int64 {
	var buf [8]byte
	n := len(b)
	if n > 7 {
		n = 7
	}
	copy(buf[1:1+n], b[:n])
	return int64(binary.BigEndian.Uint64(buf[:]))
}

// Build computes statistics for every column of b.
func Build(b *columnar.Batch) *RelationStats {
	stats := &RelationStats{
		RecordCount:         int64(b.RowCount),
		RecordCountEstimate: int64(b.RowCount),
		Columns:             make(map[string]ColumnStats, len(b.Columns)),
	}
	for i := range b.Columns {
		col := &b.Columns[i]
		stats.Columns[col.Name] = buildColumn(b, col)
	}
	return stats
}

func buildColumn(b *columnar.Batch, col *columnar.Column) ColumnStats {
	cs := ColumnStats{LowerBound: NoValue, UpperBound: NoValue}
	set := hashing.NewHashSet()

	for row := 0; row < b.RowCount; row++ {
		if !col.IsValid(row) {
			cs.NullCount++
			continue
		}
		encoded, rawHash := encodeCell(col, row)
		if encoded == NoValue {
			cs.NullCount++
			continue
		}
		if cs.LowerBound == NoValue || encoded < cs.LowerBound {
			cs.LowerBound = encoded
		}
		if cs.UpperBound == NoValue || encoded > cs.UpperBound {
			cs.UpperBound = encoded
		}
		set.Insert(rawHash)
	}
	cs.CardinalityEstimate = int64(set.Len())
	return cs
}

// encodeCell returns the order-preserving bound encoding plus a
// distinctness hash (not necessarily equal to the bound encoding,
// since bounds collapse strings to 7 bytes but cardinality must not).
func encodeCell(col *columnar.Column, row int) (int64, uint64) {
	switch col.Type {
	case columnar.TypeInt64:
		if row >= len(col.Int64s) {
			return NoValue, 0
		}
		v := col.Int64s[row]
		return EncodeInt64(v), uint64(v)
	case columnar.TypeTimestamp:
		if row >= len(col.Int64s) {
			return NoValue, 0
		}
		v := col.Int64s[row]
		return EncodeTimestamp(v), uint64(v)
	case columnar.TypeFloat64:
		if row >= len(col.Float64s) {
			return NoValue, 0
		}
		v := col.Float64s[row]
		return EncodeFloat64(v), math.Float64bits(v)
	case columnar.TypeBool:
		if col.IsValid(row) && boolAt(col.Bools, row) {
			return 1, 1
		}
		return 0, 0
	case columnar.TypeUTF8, columnar.TypeBytes:
		b := col.Bytes(row)
		return EncodeBytes(b), fnvHash(b)
	default:
		return NoValue, 0
	}
}

func boolAt(bits []uint64, row int) bool {
	if row/64 >= len(bits) {
		return false
	}
	return bits[row/64]&(1<<uint(row%64)) != 0
}

func fnvHash(b []byte) uint64 {
	var h uint64 = 0xcbf29ce484222325
	for _, c := range b {
		h ^= uint64(c)
		h *= 0x100000001b3
	}
	return h
}

// Merge combines two relation statistics sets for the same schema
// (e.g. two batches of the same relation), widening bounds, summing
// counts, and taking the max of cardinality estimates (a conservative
// lower-bound-avoiding choice, since distinct sets may overlap
// arbitrarily and true union cardinality cannot be derived from
// per-batch estimates alone).
func Merge(a, b *RelationStats) *RelationStats {
	out := &RelationStats{
		RecordCount:         a.RecordCount + b.RecordCount,
		RecordCountEstimate: a.RecordCountEstimate + b.RecordCountEstimate,
		Columns:             make(map[string]ColumnStats),
	}
	names := make(map[string]struct{})
	for name := range a.Columns {
		names[name] = struct{}{}
	}
	for name := range b.Columns {
		names[name] = struct{}{}
	}
	for name := range names {
		ca, okA := a.Columns[name]
		cb, okB := b.Columns[name]
		if !okA {
			out.Columns[name] = cb
			continue
		}
		if !okB {
			out.Columns[name] = ca
			continue
		}
		merged := ColumnStats{
			NullCount:  ca.NullCount + cb.NullCount,
			LowerBound: minBound(ca.LowerBound, cb.LowerBound),
			UpperBound: maxBound(ca.UpperBound, cb.UpperBound),
		}
		merged.CardinalityEstimate = ca.CardinalityEstimate
		if cb.CardinalityEstimate > merged.CardinalityEstimate {
			merged.CardinalityEstimate = cb.CardinalityEstimate
		}
		out.Columns[name] = merged
	}
	return out
}

func minBound(a, b int64) int64 {
	if a == NoValue {
		return b
	}
	if b == NoValue {
		return a
	}
	if a < b {
		return a
	}
	return b
}

func maxBound(a, b int64) int64 {
	if a == NoValue {
		return b
	}
	if b == NoValue {
		return a
	}
	if a > b {
		return a
	}
	return b
}

// Serialize writes the exact wire format of spec.md §6: record_count
// and record_count_estimate (8 bytes big-endian signed each), then
// the four maps null_count/lower_bounds/upper_bounds/
// cardinality_estimate in that order, each a 4-byte big-endian count
// followed by [1-byte keylen][key][8-byte BE value] entries.
func (s *RelationStats) Serialize() []byte {
	names := make([]string, 0, len(s.Columns))
	for name := range s.Columns {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []byte
	out = appendInt64(out, s.RecordCount)
	out = appendInt64(out, s.RecordCountEstimate)

	out = appendMap(out, names, func(name string) int64 { return s.Columns[name].NullCount })
	out = appendMap(out, names, func(name string) int64 { return s.Columns[name].LowerBound })
	out = appendMap(out, names, func(name string) int64 { return s.Columns[name].UpperBound })
	out = appendMap(out, names, func(name string) int64 { return s.Columns[name].CardinalityEstimate })

	return out
}

func appendInt64(out []byte, v int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	return append(out, buf[:]...)
}

func appendMap(out []byte, names []string, value func(string) int64) []byte {
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(names)))
	out = append(out, countBuf[:]...)
	for _, name := range names {
		out = append(out, byte(len(name)))
		out = append(out, []byte(name)...)
		out = appendInt64(out, value(name))
	}
	return out
}

// Deserialize parses Serialize's output back into a RelationStats.
func Deserialize(data []byte) (*RelationStats, error) {
	if len(data) < 16 {
		return nil, qerr.ErrInvalidInput
	}
	s := &RelationStats{Columns: make(map[string]ColumnStats)}
	s.RecordCount = int64(binary.BigEndian.Uint64(data[0:8]))
	s.RecordCountEstimate = int64(binary.BigEndian.Uint64(data[8:16]))

	pos := 16
	nullCounts, pos, err := readMap(data, pos)
	if err != nil {
		return nil, err
	}
	lowerBounds, pos, err := readMap(data, pos)
	if err != nil {
		return nil, err
	}
	upperBounds, pos, err := readMap(data, pos)
	if err != nil {
		return nil, err
	}
	cardinalities, _, err := readMap(data, pos)
	if err != nil {
		return nil, err
	}

	names := make(map[string]struct{})
	for name := range nullCounts {
		names[name] = struct{}{}
	}
	for name := range lowerBounds {
		names[name] = struct{}{}
	}
	for name := range upperBounds {
		names[name] = struct{}{}
	}
	for name := range cardinalities {
		names[name] = struct{}{}
	}
	for name := range names {
		s.Columns[name] = ColumnStats{
			NullCount:           nullCounts[name],
			LowerBound:          lowerBounds[name],
			UpperBound:          upperBounds[name],
			CardinalityEstimate: cardinalities[name],
		}
	}
	return s, nil
}

func readMap(data []byte, pos int) (map[string]int64, int, error) {
	if pos+4 > len(data) {
		return nil, pos, qerr.ErrInvalidInput
	}
	n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4
	out := make(map[string]int64, n)
	for i := 0; i < n; i++ {
		if pos+1 > len(data) {
			return nil, pos, qerr.ErrInvalidInput
		}
		keyLen := int(data[pos])
		pos++
		if pos+keyLen+8 > len(data) {
			return nil, pos, qerr.ErrInvalidInput
		}
		key := string(data[pos : pos+keyLen])
		pos += keyLen
		v := int64(binary.BigEndian.Uint64(data[pos : pos+8]))
		pos += 8
		out[key] = v
	}
	return out, pos, nil
}
