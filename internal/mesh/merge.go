package mesh

import (
	"fmt"
	"math"

	"csl2glb/internal/livery"
)

// Merge combines normalized meshes into one model, grouping contributions
// by resolved texture in first-seen order. Within a group, vertex buffers
// concatenate and triangle indices are offset so they stay globally unique.
// Contributions with no surviving triangles are skipped with a warning;
// they must never produce an empty material group. Contributions carrying
// a livery identifier are recorded against their group's material index in
// lm (first write wins; collisions are the builder's to report).
func Merge(contribs []*NormalizedMesh, lm *livery.Builder, warn func(msg string)) (*MergedModel, error) {
	if len(contribs) == 0 {
		return nil, &MergeError{Msg: "no meshes to merge"}
	}

	model := &MergedModel{}
	groupByTexture := make(map[string]int)

	for _, nm := range contribs {
		if len(nm.Triangles) == 0 {
			if warn != nil {
				warn(fmt.Sprintf("mesh: %s: no triangles, skipped", nm.Fragment))
			}
			continue
		}

		gi, ok := groupByTexture[nm.Texture]
		if !ok {
			gi = len(model.Groups)
			groupByTexture[nm.Texture] = gi
			model.Groups = append(model.Groups, MaterialGroup{Texture: nm.Texture})
		}
		g := &model.Groups[gi]

		offset := uint64(len(g.Positions))
		if offset+uint64(len(nm.Positions)) > math.MaxUint32 {
			return nil, &MergeError{Msg: fmt.Sprintf(
				"group %d exceeds addressable vertex range merging %s", gi, nm.Fragment)}
		}

		g.Positions = append(g.Positions, nm.Positions...)
		g.UVs = append(g.UVs, nm.UVs...)
		for _, tri := range nm.Triangles {
			g.Indices = append(g.Indices,
				tri[0]+uint32(offset), tri[1]+uint32(offset), tri[2]+uint32(offset))
		}

		if nm.Livery != "" && lm != nil {
			lm.Add(nm.Livery, gi, nm.Texture)
		}
	}

	if len(model.Groups) == 0 {
		return nil, &MergeError{Msg: "no triangles to merge"}
	}
	return model, nil
}
