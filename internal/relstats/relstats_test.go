package relstats

import (
	"testing"

	"github.com/parqlite/qcore/internal/columnar"
)

func TestBuildIntColumnBounds(t *testing.T) {
	col := columnar.Column{Name: "x", Type: columnar.TypeInt64, Int64s: []int64{5, 1, 9, 3}}
	for i := range col.Int64s {
		col.SetValid(i, true)
	}
	b := &columnar.Batch{
		Schema:   columnar.Schema{Names: []string{"x"}, Types: []columnar.Type{columnar.TypeInt64}},
		Columns:  []columnar.Column{col},
		RowCount: 4,
	}
	s := Build(b)
	cs := s.Columns["x"]
	if cs.LowerBound != 1 || cs.UpperBound != 9 {
		t.Fatalf("expected bounds [1,9], got [%d,%d]", cs.LowerBound, cs.UpperBound)
	}
	if cs.NullCount != 0 {
		t.Fatalf("expected 0 nulls, got %d", cs.NullCount)
	}
	if cs.CardinalityEstimate != 4 {
		t.Fatalf("expected cardinality 4, got %d", cs.CardinalityEstimate)
	}
}

func TestBuildExcludesNullFromBounds(t *testing.T) {
	col := columnar.Column{Name: "x", Type: columnar.TypeFloat64, Float64s: []float64{1.5, 2.5}}
	col.SetValid(0, true)
	col.SetValid(1, false) // null
	b := &columnar.Batch{
		Schema:   columnar.Schema{Names: []string{"x"}, Types: []columnar.Type{columnar.TypeFloat64}},
		Columns:  []columnar.Column{col},
		RowCount: 2,
	}
	s := Build(b)
	cs := s.Columns["x"]
	if cs.NullCount != 1 {
		t.Fatalf("expected 1 null, got %d", cs.NullCount)
	}
	if cs.LowerBound != cs.UpperBound {
		t.Fatalf("expected single-value bounds to match, got [%d,%d]", cs.LowerBound, cs.UpperBound)
	}
}

func TestEncodeBytesPreservesLexicographicOrder(t *testing.T) {
	a := EncodeBytes([]byte("apple"))
	b := EncodeBytes([]byte("banana"))
	if a >= b {
		t.Fatalf("expected apple < banana in encoded form, got %d >= %d", a, b)
	}
}

func TestMergeWidensBoundsAndSumsCounts(t *testing.T) {
	s1 := &RelationStats{
		RecordCount: 10,
		Columns: map[string]ColumnStats{
			"x": {NullCount: 1, LowerBound: 2, UpperBound: 8, CardinalityEstimate: 5},
		},
	}
	s2 := &RelationStats{
		RecordCount: 20,
		Columns: map[string]ColumnStats{
			"x": {NullCount: 2, LowerBound: 0, UpperBound: 15, CardinalityEstimate: 9},
		},
	}
	merged := Merge(s1, s2)
	if merged.RecordCount != 30 {
		t.Fatalf("expected record count 30, got %d", merged.RecordCount)
	}
	cs := merged.Columns["x"]
	if cs.LowerBound != 0 || cs.UpperBound != 15 {
		t.Fatalf("expected widened bounds [0,15], got [%d,%d]", cs.LowerBound, cs.UpperBound)
	}
	if cs.NullCount != 3 {
		t.Fatalf("expected null count 3, got %d", cs.NullCount)
	}
	if cs.CardinalityEstimate != 9 {
		t.Fatalf("expected cardinality estimate 9, got %d", cs.CardinalityEstimate)
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	col := columnar.Column{Name: "x", Type: columnar.TypeInt64, Int64s: []int64{1, 2, 3}}
	for i := range col.Int64s {
		col.SetValid(i, true)
	}
	b := &columnar.Batch{
		Schema:   columnar.Schema{Names: []string{"x"}, Types: []columnar.Type{columnar.TypeInt64}},
		Columns:  []columnar.Column{col},
		RowCount: 3,
	}
	s := Build(b)
	data := s.Serialize()

	got, err := Deserialize(data)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if got.RecordCount != s.RecordCount {
		t.Fatalf("expected record count %d, got %d", s.RecordCount, got.RecordCount)
	}
	wantCS := s.Columns["x"]
	gotCS := got.Columns["x"]
	if gotCS != wantCS {
		t.Fatalf("expected %+v, got %+v", wantCS, gotCS)
	}
}
