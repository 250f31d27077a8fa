package schema

import (
	"path/filepath"
	"testing"

	"github.com/parqlite/qcore/internal/jsonl"
)

func TestLoadOnMissingSidecarReturnsEmptySchema(t *testing.T) {
	dir := t.TempDir()
	m, err := Load(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Schema.Order) != 0 {
		t.Fatalf("expected empty schema, got %+v", m.Schema)
	}
}

func TestMergeWidensSchemaAndSaveRoundTrips(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "events.jsonl")

	m, err := Load(src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m.Merge(jsonl.Schema{
		Order:  []string{"id"},
		Fields: map[string]jsonl.FieldInfo{"id": {Kind: jsonl.KindInt}},
	})
	m.Merge(jsonl.Schema{
		Order:  []string{"id", "value"},
		Fields: map[string]jsonl.FieldInfo{"id": {Kind: jsonl.KindDouble}, "value": {Kind: jsonl.KindString}},
	})

	if m.Schema.Fields["id"].Kind != jsonl.KindDouble {
		t.Fatalf("expected id widened to KindDouble, got %v", m.Schema.Fields["id"].Kind)
	}
	if len(m.Schema.Order) != 2 {
		t.Fatalf("expected 2 columns in schema order, got %d", len(m.Schema.Order))
	}

	if err := m.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(src)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Schema.Fields["value"].Kind != jsonl.KindString {
		t.Fatalf("expected reloaded value column KindString, got %v", reloaded.Schema.Fields["value"].Kind)
	}
}

func TestPinSurvivesSubsequentMerge(t *testing.T) {
	dir := t.TempDir()
	m, err := Load(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m.Pin("status", jsonl.FieldInfo{Kind: jsonl.KindString})
	m.Merge(jsonl.Schema{
		Order:  []string{"status"},
		Fields: map[string]jsonl.FieldInfo{"status": {Kind: jsonl.KindInt}},
	})
	if m.Schema.Fields["status"].Kind != jsonl.KindString {
		t.Fatalf("expected pinned kind to survive merge, got %v", m.Schema.Fields["status"].Kind)
	}
}
