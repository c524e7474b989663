// Package livery accumulates the mapping from airline/livery identifiers
// to material indices in the exported GLB, and writes it as the
// airline_mapping.json side artifact.
package livery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Entry is one finalized mapping record.
type Entry struct {
	ID       string
	Material int
	Texture  string // texture image filename backing the material
	Model    string // GLB filename, filled by the caller in batch runs
}

// Builder is a passive accumulator used during merge. Not safe for
// concurrent use; the merge step is the single writer.
type Builder struct {
	entries []Entry
	seen    map[string]int // id → index into entries
	warn    func(msg string)
	final   bool
}

// NewBuilder creates a builder. warn receives collision reports; may be nil.
func NewBuilder(warn func(msg string)) *Builder {
	return &Builder{seen: make(map[string]int), warn: warn}
}

// Add records id → material. The first write for an id wins; a later
// write with a different material is discarded with a warning, a repeat
// of the same material is silently idempotent. Add panics after Finalize.
func (b *Builder) Add(id string, material int, texture string) {
	if b.final {
		panic("livery: Add after Finalize")
	}
	if i, ok := b.seen[id]; ok {
		if b.entries[i].Material != material && b.warn != nil {
			b.warn(fmt.Sprintf("livery: identifier %q already mapped to material %d, ignoring material %d",
				id, b.entries[i].Material, material))
		}
		return
	}
	b.seen[id] = len(b.entries)
	b.entries = append(b.entries, Entry{ID: id, Material: material, Texture: filepath.Base(texture)})
}

// Finalize returns the accumulated entries in insertion order and marks
// the builder immutable.
func (b *Builder) Finalize() []Entry {
	b.final = true
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Encode serializes entries as a JSON object in entry order. Hand-ordered
// so repeated runs over the same inputs are byte-identical.
func Encode(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, e := range entries {
		key, err := json.Marshal(e.ID)
		if err != nil {
			return nil, fmt.Errorf("livery: encode %q: %w", e.ID, err)
		}
		buf.WriteString("  ")
		buf.Write(key)
		fmt.Fprintf(&buf, ": {\n    \"material\": %d", e.Material)
		if e.Texture != "" {
			tex, err := json.Marshal(e.Texture)
			if err != nil {
				return nil, fmt.Errorf("livery: encode texture for %q: %w", e.ID, err)
			}
			buf.WriteString(",\n    \"texture\": ")
			buf.Write(tex)
		}
		if e.Model != "" {
			model, err := json.Marshal(e.Model)
			if err != nil {
				return nil, fmt.Errorf("livery: encode model for %q: %w", e.ID, err)
			}
			buf.WriteString(",\n    \"model\": ")
			buf.Write(model)
		}
		buf.WriteString("\n  }")
		if i < len(entries)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// WriteFile writes the mapping artifact to path.
func WriteFile(path string, entries []Entry) error {
	data, err := Encode(entries)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("livery: write %s: %w", path, err)
	}
	return nil
}
