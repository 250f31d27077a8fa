// Package schema persists a source's inferred JSONL schema to a
// sidecar file so repeated decodes of the same source can widen a
// previously-seen schema instead of re-inferring from scratch, and so
// a caller can pin a column's kind across decodes even if a later
// sample never observes it.
//
// Grounded on the teacher's schema.Schema (a virtual-columns sidecar
// file saved next to a CSV, loaded via Load/Save, mutated via
// AddVirtualColumn/RemoveVirtualColumn under a mutex): the sidecar
// file discipline, path derivation, and lock shape are kept; the
// virtual-column map is replaced with a persisted jsonl.Schema and
// the mutators become Merge (widen with a freshly inferred schema)
// and Pin (force one column's kind regardless of what inference sees).
package schema

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/parqlite/qcore/internal/jsonl"
)

// Manager owns one source's persisted schema and the sidecar file
// path it round-trips to.
type Manager struct {
	mu     sync.Mutex
	path   string
	Schema jsonl.Schema
	pinned map[string]jsonl.FieldInfo
}

// Load reads the sidecar schema for sourcePath if one exists, or
// returns an empty Manager ready to accumulate one via Merge.
func Load(sourcePath string) (*Manager, error) {
	m := &Manager{
		path:   sidecarPath(sourcePath),
		pinned: make(map[string]jsonl.FieldInfo),
	}

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		m.Schema = jsonl.Schema{Fields: make(map[string]jsonl.FieldInfo)}
		return m, nil
	}
	if err != nil {
		return nil, err
	}

	var onDisk onDiskSchema
	if err := json.Unmarshal(data, &onDisk); err != nil {
		return nil, err
	}
	m.Schema = onDisk.toSchema()
	m.pinned = onDisk.Pinned
	if m.pinned == nil {
		m.pinned = make(map[string]jsonl.FieldInfo)
	}
	return m, nil
}

// Save writes the current schema and pinned columns back to the
// sidecar file.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(fromSchema(m.Schema, m.pinned), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0644)
}

// Merge widens the persisted schema with a freshly inferred one
// (e.g. from jsonl.InferSchema over a new sample), then reapplies any
// pinned column kinds so a later sample can't regress a pin.
func (m *Manager) Merge(observed jsonl.Schema) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Schema = jsonl.MergeSchema(m.Schema, observed)
	for name, info := range m.pinned {
		m.Schema.Fields[name] = info
	}
}

// Pin forces column name to kind regardless of what future inference
// samples observe, until Unpin is called.
func (m *Manager) Pin(name string, info jsonl.FieldInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pinned[name] = info
	if _, seen := m.Schema.Fields[name]; !seen {
		m.Schema.Order = append(m.Schema.Order, name)
	}
	m.Schema.Fields[name] = info
}

// Unpin releases a previously pinned column, letting future Merge
// calls update its kind again.
func (m *Manager) Unpin(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pinned, name)
}

func sidecarPath(sourcePath string) string {
	dir := filepath.Dir(sourcePath)
	base := filepath.Base(sourcePath)
	return filepath.Join(dir, base+"_schema.json")
}

// onDiskSchema is the sidecar file's JSON shape: jsonl.Schema plus the
// pinned-column overlay, kept separate from jsonl.Schema itself so
// internal/jsonl stays free of persistence concerns.
type onDiskSchema struct {
	Order  []string                   `json:"order"`
	Fields map[string]jsonl.FieldInfo `json:"fields"`
	Pinned map[string]jsonl.FieldInfo `json:"pinned"`
}

func fromSchema(s jsonl.Schema, pinned map[string]jsonl.FieldInfo) onDiskSchema {
	return onDiskSchema{Order: s.Order, Fields: s.Fields, Pinned: pinned}
}

func (o onDiskSchema) toSchema() jsonl.Schema {
	fields := o.Fields
	if fields == nil {
		fields = make(map[string]jsonl.FieldInfo)
	}
	return jsonl.Schema{Order: o.Order, Fields: fields}
}
