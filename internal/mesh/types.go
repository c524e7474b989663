package mesh

import "fmt"

// NormalizedMesh is one fragment after vertex deduplication: unique
// (position, UV) tuples, triangles referencing them by compact index, and
// the resolved texture image path.
type NormalizedMesh struct {
	Fragment string // source fragment name, for diagnostics
	Livery   string // livery identifier, "" if none
	Texture  string // resolved texture image path

	Positions [][3]float32
	UVs       [][2]float32
	Triangles [][3]uint32
}

// MaterialGroup is a set of merged contributions sharing one texture,
// emitted as one GLB primitive.
type MaterialGroup struct {
	Texture   string
	Positions [][3]float32
	UVs       [][2]float32
	Indices   []uint32 // flat triangle list
}

// MergedModel is the final in-memory model: one material group per unique
// texture, in first-seen order.
type MergedModel struct {
	Groups []MaterialGroup
}

// TriangleCount returns the total triangle count across all groups.
func (m *MergedModel) TriangleCount() int {
	n := 0
	for _, g := range m.Groups {
		n += len(g.Indices) / 3
	}
	return n
}

// MergeError reports an internal invariant violation during merge.
type MergeError struct {
	Msg string
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("mesh: merge: %s", e.Msg)
}
