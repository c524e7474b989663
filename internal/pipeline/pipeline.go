// Package pipeline orchestrates one conversion run: parse OBJ fragments,
// resolve textures, normalize, merge and export GLB models plus the
// livery-mapping artifact.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"csl2glb/internal/config"
	"csl2glb/internal/csl"
	"csl2glb/internal/glb"
	"csl2glb/internal/livery"
	"csl2glb/internal/mesh"
	"csl2glb/internal/objparse"
	"csl2glb/internal/texture"
)

// Run holds the shared resources of one conversion run. Configuration is
// read-only after NewRun; nothing persists across runs.
type Run struct {
	Cfg      config.Config
	Index    *texture.Index
	Cache    *texture.Cache
	Warnings *Warnings

	overrides      map[string]string
	defaultTexture string
	log            *zap.Logger
}

// NewRun builds the texture index, loads the livery-override table and
// prepares a run over cfg.
func NewRun(cfg config.Config, log *zap.Logger) (*Run, error) {
	if log == nil {
		log = zap.NewNop()
	}

	index, err := texture.BuildIndex(cfg.TextureDir)
	if err != nil {
		return nil, err
	}

	r := &Run{
		Cfg:      cfg,
		Index:    index,
		Cache:    texture.NewCache(),
		Warnings: NewWarnings(log),
		log:      log,
	}

	if cfg.OverridesFile != "" {
		overrides, err := texture.LoadOverrides(cfg.OverridesFile)
		if err != nil {
			return nil, err
		}
		r.overrides = overrides
	}

	if cfg.DefaultTexture != "" {
		r.defaultTexture = cfg.DefaultTexture
		if !filepath.IsAbs(r.defaultTexture) {
			r.defaultTexture = filepath.Join(cfg.TextureDir, r.defaultTexture)
		}
	}

	log.Info("texture index built",
		zap.String("dir", cfg.TextureDir),
		zap.Int("textures", r.Index.Len()),
		zap.Int("overrides", len(r.overrides)))
	return r, nil
}

// ConvertModel converts one model definition: every OBJ fragment in def is
// parsed, textured, normalized and merged, and the result is written to
// outPath as GLB. The returned entries map livery identifiers to material
// indices in that GLB. Nothing is written if any stage fails.
//
// Fragment parsing fans out over cfg.Workers goroutines; results land in
// per-fragment slots so merge order always equals def.ObjFiles order.
func (r *Run) ConvertModel(def csl.ModelDef, objDir, outPath string) ([]livery.Entry, error) {
	if len(def.ObjFiles) == 0 {
		return nil, errors.Errorf("model %s: no OBJ fragments", def.Name)
	}

	frags, err := r.parseFragments(def, objDir)
	if err != nil {
		return nil, err
	}

	resolver := texture.NewResolver(r.Index, r.overrides, r.defaultTexture, r.Warnings.Add)

	contribs := make([]*mesh.NormalizedMesh, 0, len(frags))
	for _, frag := range frags {
		// Lights- and animation-only fragments carry no faces; they
		// contribute nothing to the GLB and often declare no texture.
		if len(frag.Faces) == 0 {
			r.Warnings.Add(fmt.Sprintf("model %s: %s: no faces, skipped", def.Name, frag.Name))
			continue
		}

		liveryID := frag.Livery
		if liveryID == "" {
			liveryID = def.AirlineCode
		}

		texPath, err := resolver.Resolve(frag.Name, liveryID, frag.Texture)
		if err != nil {
			return nil, errors.Wrapf(err, "model %s", def.Name)
		}

		nm := mesh.Normalize(frag, texPath, r.Warnings.Add)
		nm.Livery = liveryID
		contribs = append(contribs, nm)
	}

	builder := livery.NewBuilder(r.Warnings.Add)
	merged, err := mesh.Merge(contribs, builder, r.Warnings.Add)
	if err != nil {
		return nil, errors.Wrapf(err, "model %s", def.Name)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return nil, errors.Wrapf(err, "model %s", def.Name)
	}
	opts := glb.Options{Name: modelName(def, outPath), MaxTextureSize: r.Cfg.MaxTextureSize}
	if err := glb.ExportFile(outPath, merged, r.Cache, opts); err != nil {
		return nil, errors.Wrapf(err, "model %s", def.Name)
	}

	entries := builder.Finalize()
	for i := range entries {
		entries[i].Model = filepath.Base(outPath)
	}

	r.log.Info("model converted",
		zap.String("model", def.Name),
		zap.String("out", outPath),
		zap.Int("fragments", len(frags)),
		zap.Int("materials", len(merged.Groups)),
		zap.Int("triangles", merged.TriangleCount()))
	return entries, nil
}

type parseResult struct {
	frag *objparse.RawFragment
	err  error
}

func (r *Run) parseFragments(def csl.ModelDef, objDir string) ([]*objparse.RawFragment, error) {
	opts := objparse.Options{Lenient: r.Cfg.LenientParsing, Warn: r.Warnings.Add}
	results := make([]parseResult, len(def.ObjFiles))

	workers := r.Cfg.Workers
	if workers <= 1 || len(def.ObjFiles) == 1 {
		for i, name := range def.ObjFiles {
			results[i].frag, results[i].err = objparse.ParseFile(filepath.Join(objDir, name), opts)
		}
	} else {
		idxChan := make(chan int, workers)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range idxChan {
					results[i].frag, results[i].err = objparse.ParseFile(filepath.Join(objDir, def.ObjFiles[i]), opts)
				}
			}()
		}
		for i := range def.ObjFiles {
			idxChan <- i
		}
		close(idxChan)
		wg.Wait()
	}

	frags := make([]*objparse.RawFragment, len(results))
	for i, res := range results {
		if res.err != nil {
			return nil, errors.Wrapf(res.err, "model %s", def.Name)
		}
		frags[i] = res.frag
	}
	return frags, nil
}

func modelName(def csl.ModelDef, outPath string) string {
	if def.Name != "" {
		return def.Name
	}
	base := filepath.Base(outPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// MappingFileName is the livery-mapping artifact written next to each GLB.
const MappingFileName = "airline_mapping.json"

// WriteMapping writes the livery-mapping artifact for entries into dir.
func WriteMapping(dir string, entries []livery.Entry) error {
	return livery.WriteFile(filepath.Join(dir, MappingFileName), entries)
}
