package hashing

import (
	"errors"
	"testing"

	"github.com/parqlite/qcore/internal/columnar"
	"github.com/parqlite/qcore/internal/qerr"
)

func intBatch(values []int64) *columnar.Batch {
	col := columnar.Column{Name: "x", Type: columnar.TypeInt64, Int64s: values}
	for i := range values {
		col.SetValid(i, true)
	}
	return &columnar.Batch{
		Schema:   columnar.Schema{Names: []string{"x"}, Types: []columnar.Type{columnar.TypeInt64}},
		Columns:  []columnar.Column{col},
		RowCount: len(values),
	}
}

func TestBloomTierSelection(t *testing.T) {
	cases := []struct {
		n        int
		wantTier int
	}{
		{1, 0},
		{1000, 0},
		{1001, 1},
		{62000, 1},
		{62001, 2},
		{1000000, 2},
		{1000001, 3},
		{16000000, 3},
	}
	for _, c := range cases {
		f, err := NewBloomFilter(c.n)
		if err != nil {
			t.Fatalf("n=%d: unexpected error %v", c.n, err)
		}
		if f.Tier() != c.wantTier {
			t.Fatalf("n=%d: expected tier %d, got %d", c.n, c.wantTier, f.Tier())
		}
	}
}

func TestBloomRejectsAboveLargestTier(t *testing.T) {
	_, err := NewBloomFilter(16000001)
	if !errors.Is(err, qerr.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
}

// TestBloomFalseNegativeFreedom builds a bloom from 1000 unique int64
// rows and asserts every row's possibly_contains_batch yields true
// (spec.md §8 scenario 3).
func TestBloomFalseNegativeFreedom(t *testing.T) {
	values := make([]int64, 1000)
	for i := range values {
		values[i] = int64(i * 7919)
	}
	b := intBatch(values)

	f, err := Create(b, []string{"x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	results := f.PossiblyContainsBatch(b, []string{"x"})
	for i, r := range results {
		if !r {
			t.Fatalf("row %d: expected possibly_contains to be true for an inserted row", i)
		}
	}
}

func TestBloomNullRowsYieldFalse(t *testing.T) {
	col := columnar.Column{Name: "x", Type: columnar.TypeInt64, Int64s: []int64{1, 2, 3}}
	col.SetValid(0, true)
	col.SetValid(1, false)
	col.SetValid(2, true)
	b := &columnar.Batch{
		Schema:   columnar.Schema{Names: []string{"x"}, Types: []columnar.Type{columnar.TypeInt64}},
		Columns:  []columnar.Column{col},
		RowCount: 3,
	}
	f, err := Create(b, []string{"x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	results := f.PossiblyContainsBatch(b, []string{"x"})
	if results[1] != false {
		t.Fatal("expected null row to yield false")
	}
}

func TestBloomSerializeRoundTrip(t *testing.T) {
	f, _ := NewBloomFilter(10)
	f.Insert(12345)
	f.Insert(67890)

	data := f.Serialize()
	got, err := DeserializeBloomFilter(data)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if !got.PossiblyContains(12345) || !got.PossiblyContains(67890) {
		t.Fatal("deserialized filter lost inserted members")
	}
	if got.Tier() != f.Tier() {
		t.Fatalf("expected tier %d, got %d", f.Tier(), got.Tier())
	}
}

func TestHashTablePreservesInsertionOrder(t *testing.T) {
	ht := NewHashTable()
	ht.Insert(1, 10)
	ht.Insert(1, 20)
	ht.Insert(1, 5)

	got, ok := ht.Lookup(1)
	if !ok {
		t.Fatal("expected key 1 present")
	}
	want := []uint64{10, 20, 5}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected insertion order %v, got %v", want, got)
		}
	}
}

func TestHashSetInsertReturnsNewlyAdded(t *testing.T) {
	s := NewHashSet()
	if !s.Insert(1) {
		t.Fatal("expected first insert to report newly added")
	}
	if s.Insert(1) {
		t.Fatal("expected second insert of same value to report false")
	}
	if !s.Contains(1) {
		t.Fatal("expected set to contain inserted value")
	}
	if s.Len() != 1 {
		t.Fatalf("expected len 1, got %d", s.Len())
	}
}

func TestBuildHashTableSkipsNullRows(t *testing.T) {
	col := columnar.Column{Name: "x", Type: columnar.TypeInt64, Int64s: []int64{1, 2, 3}}
	col.SetValid(0, true)
	col.SetValid(1, false)
	col.SetValid(2, true)
	b := &columnar.Batch{
		Schema:   columnar.Schema{Names: []string{"x"}, Types: []columnar.Type{columnar.TypeInt64}},
		Columns:  []columnar.Column{col},
		RowCount: 3,
	}
	ht := BuildHashTable(b, []string{"x"})
	if ht.Len() != 2 {
		t.Fatalf("expected 2 distinct keys (null row excluded), got %d", ht.Len())
	}
}
