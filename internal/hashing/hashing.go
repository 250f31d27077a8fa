// Package hashing implements the hash primitives of spec.md §3/§4.5:
// a tiered Bloom filter, a multi-valued HashTable, and a HashSet, all
// built on 64-bit row hashes produced by internal/rowhash.
//
// Grounded on the teacher's common.BloomFilter (bit array + header,
// serialize/deserialize), replacing its CRC32 double-hashing scheme
// with the fixed two-hash-from-one-64-bit-hash construction spec.md
// §3/§4.5 requires (h1 = h & mask, h2 = (h * phi) & mask), and its
// fixed capacity tiers in place of the teacher's optimal-m/k formula.
package hashing

import (
	"github.com/parqlite/qcore/internal/columnar"
	"github.com/parqlite/qcore/internal/qerr"
	"github.com/parqlite/qcore/internal/rowhash"
)

// goldenRatio64 is phi's 64-bit fixed-point representation used to
// derive the second bloom-filter hash position from the first,
// per spec.md §3.
const goldenRatio64 uint64 = 0x9E3779B97F4A7C15

// Bloom filter capacity tiers, spec.md §4.5: selected from
// expected-distinct-rows n against these ascending thresholds.
const (
	tierThreshold0 = 1000
	tierThreshold1 = 62000
	tierThreshold2 = 1000000
	tierThreshold3 = 16000000

	tierBits0 = 8 * 1024
	tierBits1 = 512 * 1024
	tierBits2 = 8 * 1024 * 1024
	tierBits3 = 128 * 1024 * 1024
)

// BloomFilter is a fixed-size, tiered, two-hash probabilistic set
// membership filter over 64-bit row hashes.
type BloomFilter struct {
	bits []uint64
	mask uint64 // size-1, size is a power of two
	tier int
}

// NewBloomFilter creates an empty filter sized for expectedRows per
// the fixed tier table. Returns qerr.ErrCapacityExceeded if
// expectedRows exceeds the largest tier (spec.md §4.5: "above the
// largest tier the filter is rejected").
func NewBloomFilter(expectedRows int) (*BloomFilter, error) {
	var sizeBits int
	var tier int
	switch {
	case expectedRows <= tierThreshold0:
		sizeBits, tier = tierBits0, 0
	case expectedRows <= tierThreshold1:
		sizeBits, tier = tierBits1, 1
	case expectedRows <= tierThreshold2:
		sizeBits, tier = tierBits2, 2
	case expectedRows <= tierThreshold3:
		sizeBits, tier = tierBits3, 3
	default:
		return nil, qerr.ErrCapacityExceeded
	}
	return &BloomFilter{
		bits: make([]uint64, sizeBits/64),
		mask: uint64(sizeBits - 1),
		tier: tier,
	}, nil
}

// Tier returns the filter's selected capacity tier, 0..3.
func (f *BloomFilter) Tier() int { return f.tier }

func (f *BloomFilter) positions(h uint64) (uint64, uint64) {
	h1 := h & f.mask
	h2 := (h * goldenRatio64) & f.mask
	return h1, h2
}

func (f *BloomFilter) setBit(pos uint64) {
	f.bits[pos/64] |= 1 << (pos % 64)
}

func (f *BloomFilter) testBit(pos uint64) bool {
	return f.bits[pos/64]&(1<<(pos%64)) != 0
}

// Insert sets both bit positions derived from row hash h.
func (f *BloomFilter) Insert(h uint64) {
	p1, p2 := f.positions(h)
	f.setBit(p1)
	f.setBit(p2)
}

// PossiblyContains tests both bit positions for row hash h.
func (f *BloomFilter) PossiblyContains(h uint64) bool {
	p1, p2 := f.positions(h)
	return f.testBit(p1) && f.testBit(p2)
}

// Create builds a BloomFilter from the null-avoidant rows of b over
// columns, per spec.md §4.5's create(batch, columns) operation.
func Create(b *columnar.Batch, columns []string) (*BloomFilter, error) {
	idx := rowhash.NullAvoidantIndices(b, columns)
	f, err := NewBloomFilter(len(idx))
	if err != nil {
		return nil, err
	}
	hashes := rowhash.RowHash(b, columns)
	for _, row := range idx {
		f.Insert(hashes[row])
	}
	return f, nil
}

// PossiblyContainsBatch tests every row of b against f. Rows with a
// null in any selected column yield false (definitely not present,
// since a bloom filter built via Create never inserted them).
func (f *BloomFilter) PossiblyContainsBatch(b *columnar.Batch, columns []string) []bool {
	nonNull := make(map[int]struct{}, b.RowCount)
	for _, row := range rowhash.NullAvoidantIndices(b, columns) {
		nonNull[row] = struct{}{}
	}
	hashes := rowhash.RowHash(b, columns)
	out := make([]bool, b.RowCount)
	for row := 0; row < b.RowCount; row++ {
		if _, ok := nonNull[row]; !ok {
			out[row] = false
			continue
		}
		out[row] = f.PossiblyContains(hashes[row])
	}
	return out
}

// EstimateReduction returns the fraction of b's rows, hashed over
// columns, that this filter would definitely exclude, a cost heuristic callers use to decide
// whether to discard a filter with a low payoff (spec.md §4.5).
func (f *BloomFilter) EstimateReduction(b *columnar.Batch, columns []string) float64 {
	if b.RowCount == 0 {
		return 0
	}
	results := f.PossiblyContainsBatch(b, columns)
	excluded := 0
	for _, r := range results {
		if !r {
			excluded++
		}
	}
	return float64(excluded) / float64(b.RowCount)
}

// Serialize emits the raw bit array prefixed by one byte naming the
// tier, per spec.md §6 ("not required to be persistable; if
// serialized, emit the raw bit array prefixed by one byte naming the
// tier (0..3)").
func (f *BloomFilter) Serialize() []byte {
	out := make([]byte, 1+len(f.bits)*8)
	out[0] = byte(f.tier)
	for i, w := range f.bits {
		for b := 0; b < 8; b++ {
			out[1+i*8+b] = byte(w >> (8 * b))
		}
	}
	return out
}

// DeserializeBloomFilter reconstructs a filter from Serialize's
// output.
func DeserializeBloomFilter(data []byte) (*BloomFilter, error) {
	if len(data) < 1 {
		return nil, qerr.ErrInvalidInput
	}
	tier := int(data[0])
	var sizeBits int
	switch tier {
	case 0:
		sizeBits = tierBits0
	case 1:
		sizeBits = tierBits1
	case 2:
		sizeBits = tierBits2
	case 3:
		sizeBits = tierBits3
	default:
		return nil, qerr.ErrInvalidInput
	}
	words := sizeBits / 64
	if len(data)-1 != words*8 {
		return nil, qerr.ErrInvalidInput
	}
	bitsArr := make([]uint64, words)
	for i := range bitsArr {
		var w uint64
		for b := 0; b < 8; b++ {
			w |= uint64(data[1+i*8+b]) << (8 * b)
		}
		bitsArr[i] = w
	}
	return &BloomFilter{bits: bitsArr, mask: uint64(sizeBits - 1), tier: tier}, nil
}

// HashTable is a multi-valued mapping from a 64-bit key to an
// insertion-ordered sequence of 64-bit row indices (spec.md §3/§4).
type HashTable struct {
	buckets map[uint64][]uint64
}

// NewHashTable creates an empty HashTable.
func NewHashTable() *HashTable {
	return &HashTable{buckets: make(map[uint64][]uint64)}
}

// Insert appends rowIndex to the ordered list under key.
func (t *HashTable) Insert(key uint64, rowIndex uint64) {
	t.buckets[key] = append(t.buckets[key], rowIndex)
}

// Lookup returns the insertion-ordered row indices under key.
func (t *HashTable) Lookup(key uint64) ([]uint64, bool) {
	v, ok := t.buckets[key]
	return v, ok
}

// Len returns the number of distinct keys.
func (t *HashTable) Len() int { return len(t.buckets) }

// BuildHashTable builds a HashTable keyed by the row hash of the
// null-avoidant rows of b over columns, valued by row index.
func BuildHashTable(b *columnar.Batch, columns []string) *HashTable {
	t := NewHashTable()
	hashes := rowhash.RowHash(b, columns)
	for _, row := range rowhash.NullAvoidantIndices(b, columns) {
		t.Insert(hashes[row], uint64(row))
	}
	return t
}

// HashSet is a set of 64-bit values (spec.md §3/§4).
type HashSet struct {
	members map[uint64]struct{}
}

// NewHashSet creates an empty HashSet.
func NewHashSet() *HashSet {
	return &HashSet{members: make(map[uint64]struct{})}
}

// Insert adds v and reports whether it was newly added.
func (s *HashSet) Insert(v uint64) bool {
	if _, ok := s.members[v]; ok {
		return false
	}
	s.members[v] = struct{}{}
	return true
}

// Contains reports whether v is a member.
func (s *HashSet) Contains(v uint64) bool {
	_, ok := s.members[v]
	return ok
}

// Len returns the number of members.
func (s *HashSet) Len() int { return len(s.members) }
