package jsonl

import "testing"

// TestSchemaInferenceLatticeScenario reproduces spec.md §8 scenario 7:
// three lines inferring a: Double (Int⊔Double), b: String, c: Boolean.
func TestSchemaInferenceLatticeScenario(t *testing.T) {
	data := []byte("{\"a\":1,\"b\":\"x\"}\n{\"a\":2.5}\n{\"b\":\"y\",\"c\":true}\n")
	schema := InferSchema(data, 25)

	if schema.Fields["a"].Kind != KindDouble {
		t.Fatalf("expected a: Double, got %v", schema.Fields["a"].Kind)
	}
	if schema.Fields["b"].Kind != KindString {
		t.Fatalf("expected b: String, got %v", schema.Fields["b"].Kind)
	}
	if schema.Fields["c"].Kind != KindBool {
		t.Fatalf("expected c: Boolean, got %v", schema.Fields["c"].Kind)
	}
}

func TestDecodeMatchesSchemaInferenceScenario(t *testing.T) {
	data := []byte("{\"a\":1,\"b\":\"x\"}\n{\"a\":2.5}\n{\"b\":\"y\",\"c\":true}\n")
	result := Decode(data, nil, 25)
	b := result.Batch

	if b.RowCount != 3 {
		t.Fatalf("expected 3 rows, got %d", b.RowCount)
	}

	colA, _ := b.ColumnByName("a")
	if !colA.IsValid(0) || colA.Float64s[0] != 1.0 {
		t.Fatalf("expected a[0]=1.0, got valid=%v val=%v", colA.IsValid(0), colA.Float64s[0])
	}
	if !colA.IsValid(1) || colA.Float64s[1] != 2.5 {
		t.Fatalf("expected a[1]=2.5, got valid=%v val=%v", colA.IsValid(1), colA.Float64s[1])
	}
	if colA.IsValid(2) {
		t.Fatal("expected a[2] to be null")
	}

	colB, _ := b.ColumnByName("b")
	if string(colB.Bytes(0)) != "x" {
		t.Fatalf("expected b[0]='x', got %q", colB.Bytes(0))
	}
	if colB.IsValid(1) {
		t.Fatal("expected b[1] to be null")
	}
	if string(colB.Bytes(2)) != "y" {
		t.Fatalf("expected b[2]='y', got %q", colB.Bytes(2))
	}

	colC, _ := b.ColumnByName("c")
	if colC.IsValid(0) || colC.IsValid(1) {
		t.Fatal("expected c[0] and c[1] to be null")
	}
	if !colC.IsValid(2) {
		t.Fatal("expected c[2] to be valid")
	}
}

func TestDecodeSkipsMalformedLines(t *testing.T) {
	data := []byte("{\"a\":1}\nnot json at all\n{\"a\":2}\n")
	result := Decode(data, []string{"a"}, 25)
	if !result.AnyLinesSkipped {
		t.Fatal("expected malformed line to be flagged")
	}
	if result.Batch.RowCount != 2 {
		t.Fatalf("expected 2 valid rows, got %d", result.Batch.RowCount)
	}
}

func TestDecodeProjectionPushdown(t *testing.T) {
	data := []byte("{\"a\":1,\"b\":2,\"c\":3}\n")
	result := Decode(data, []string{"b"}, 25)
	if len(result.Batch.Columns) != 1 {
		t.Fatalf("expected exactly 1 projected column, got %d", len(result.Batch.Columns))
	}
	if result.Batch.Columns[0].Name != "b" {
		t.Fatalf("expected column 'b', got %q", result.Batch.Columns[0].Name)
	}
}

func TestDecodeStringEscapes(t *testing.T) {
	data := []byte(`{"s":"line\nbreak and \"quote\""}` + "\n")
	result := Decode(data, []string{"s"}, 25)
	col, _ := result.Batch.ColumnByName("s")
	got := string(col.Bytes(0))
	want := "line\nbreak and \"quote\""
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestDecodeArrayOfInts(t *testing.T) {
	data := []byte(`{"xs":[1,2,3]}` + "\n" + `{"xs":[4,5]}` + "\n")
	result := Decode(data, []string{"xs"}, 25)
	col, _ := result.Batch.ColumnByName("xs")
	if col.Type.String() != "list" {
		t.Fatalf("expected list column, got %s", col.Type)
	}
	if col.Child == nil {
		t.Fatal("expected child column for list")
	}
	if len(col.Offsets) != 3 || col.Offsets[0] != 0 || col.Offsets[1] != 3 || col.Offsets[2] != 5 {
		t.Fatalf("unexpected offsets: %v", col.Offsets)
	}
	want := []int64{1, 2, 3, 4, 5}
	for i, w := range want {
		if col.Child.Int64s[i] != w {
			t.Fatalf("child[%d]: expected %d, got %d", i, w, col.Child.Int64s[i])
		}
	}
}
