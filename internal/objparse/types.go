package objparse

import "fmt"

// VertRef references one corner of a face: an index into the fragment's
// position array and one into its UV array. Indices are 0-based; UV is -1
// when the face carries no texture coordinate.
type VertRef struct {
	Pos int
	UV  int
}

// Face is one triangle.
type Face [3]VertRef

// RawFragment holds the parsed contents of one OBJ-dialect file.
// Immutable once returned by the parser.
//
// For the X-Plane OBJ8 grammar (VT/IDX) positions and UVs share one index
// space; for the Wavefront subset (v/vt/f) they are indexed independently.
type RawFragment struct {
	Name      string
	Positions [][3]float32
	UVs       [][2]float32
	Faces     []Face

	// Texture is the filename declared by a TEXTURE directive, "" if none.
	Texture string
	// Livery is the identifier declared by a LIVERY directive, "" if none.
	Livery string
}

// ParseError reports a malformed or unreadable geometry file.
type ParseError struct {
	Path string
	Line int // 0 when the whole file is unreadable
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("objparse: %s:%d: %s", e.Path, e.Line, e.Msg)
	}
	return fmt.Sprintf("objparse: %s: %s", e.Path, e.Msg)
}
