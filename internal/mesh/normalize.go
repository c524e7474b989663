// Package mesh normalizes parsed fragments and merges them into a single
// multi-material model ready for GLB export.
package mesh

import (
	"fmt"

	"csl2glb/internal/mathutil"
	"csl2glb/internal/objparse"
)

// vertKey identifies a unique (position, UV) tuple. Exact float equality
// is intentional: source coordinates are already quantized by the
// exporter, and epsilon matching would weld distinct seam vertices.
type vertKey struct {
	pos [3]float32
	uv  [2]float32
}

// Normalize deduplicates a fragment's vertices and remaps its triangles to
// compact indices. Degenerate triangles (repeated vertex after remap, or
// zero area) are dropped with one warning each. texPath is the resolved
// texture for the fragment; warn may be nil.
//
// Re-normalizing an already-normalized mesh yields identical counts.
func Normalize(frag *objparse.RawFragment, texPath string, warn func(msg string)) *NormalizedMesh {
	nm := &NormalizedMesh{
		Fragment: frag.Name,
		Livery:   frag.Livery,
		Texture:  texPath,
	}

	lookup := make(map[vertKey]uint32)

	remap := func(vr objparse.VertRef) uint32 {
		key := vertKey{pos: frag.Positions[vr.Pos]}
		if vr.UV >= 0 {
			key.uv = frag.UVs[vr.UV]
		}
		if idx, ok := lookup[key]; ok {
			return idx
		}
		idx := uint32(len(nm.Positions))
		lookup[key] = idx
		nm.Positions = append(nm.Positions, key.pos)
		nm.UVs = append(nm.UVs, key.uv)
		return idx
	}

	for _, face := range frag.Faces {
		a, b, c := remap(face[0]), remap(face[1]), remap(face[2])

		if a == b || b == c || a == c {
			warnf(warn, "mesh: %s: dropped degenerate triangle (%d,%d,%d): repeated vertex",
				frag.Name, a, b, c)
			continue
		}
		pa := nm.Positions[a]
		pb := nm.Positions[b]
		pc := nm.Positions[c]
		if mathutil.TriangleArea(mathutil.V3(pa[0], pa[1], pa[2]),
			mathutil.V3(pb[0], pb[1], pb[2]),
			mathutil.V3(pc[0], pc[1], pc[2])) == 0 {
			warnf(warn, "mesh: %s: dropped degenerate triangle (%d,%d,%d): zero area",
				frag.Name, a, b, c)
			continue
		}

		nm.Triangles = append(nm.Triangles, [3]uint32{a, b, c})
	}

	return nm
}

func warnf(warn func(string), format string, args ...interface{}) {
	if warn != nil {
		warn(fmt.Sprintf(format, args...))
	}
}
