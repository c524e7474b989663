package pipeline

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"

	"csl2glb/internal/config"
	"csl2glb/internal/csl"
	"csl2glb/internal/texture"
)

const fuselageOBJ = `I
800
OBJ

TEXTURE livery_A.png
VT 0 0 0 0 0 1 0 0
VT 1 0 0 0 0 1 1 0
VT 1 1 0 0 0 1 1 1
VT 0 1 0 0 0 1 0 1
IDX 0 1 2
IDX 0 2 3
`

const wingOBJ = `TEXTURE livery_B.png
VT 0 0 1 0 0 1 0 0
VT 1 0 1 0 0 1 1 0
VT 1 1 1 0 0 1 1 1
VT 0 1 1 0 0 1 0 1
IDX 0 1 2
IDX 0 2 3
`

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// aircraftDir lays out a minimal CSL pack: two OBJ8 fragments with their
// livery textures.
func aircraftDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	write(t, filepath.Join(dir, "fuselage.obj"), fuselageOBJ)
	write(t, filepath.Join(dir, "wing.obj"), wingOBJ)
	writePNG(t, filepath.Join(dir, "livery_A.png"))
	writePNG(t, filepath.Join(dir, "livery_B.png"))
	return dir
}

func modelDef() csl.ModelDef {
	return csl.ModelDef{
		Name:        "B738_AAL",
		AirlineCode: "AAL",
		ObjFiles:    []string{"fuselage.obj", "wing.obj"},
	}
}

func TestConvertModel(t *testing.T) {
	dir := aircraftDir(t)
	cfg := config.Config{TextureDir: dir, Workers: 2}

	run, err := NewRun(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	outPath := filepath.Join(t.TempDir(), "AAL.glb")
	entries, err := run.ConvertModel(modelDef(), dir, outPath)
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	var doc gltf.Document
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		t.Fatalf("GLB does not decode: %v", err)
	}

	// Two fragments with distinct textures: two primitives, two
	// materials, 8 vertices and 4 triangles in total.
	if len(doc.Meshes) != 1 || len(doc.Meshes[0].Primitives) != 2 {
		t.Fatalf("expected 2 primitives, got %+v", doc.Meshes)
	}
	if len(doc.Materials) != 2 || len(doc.Images) != 2 {
		t.Errorf("expected 2 materials and 2 images, got %d/%d", len(doc.Materials), len(doc.Images))
	}
	var verts, tris uint32
	for _, prim := range doc.Meshes[0].Primitives {
		verts += doc.Accessors[prim.Attributes[gltf.POSITION]].Count
		tris += doc.Accessors[*prim.Indices].Count / 3
	}
	if verts != 8 || tris != 4 {
		t.Errorf("expected 8 vertices and 4 triangles, got %d/%d", verts, tris)
	}

	// Both fragments carry the AAL code; the first one claims it.
	if len(entries) != 1 || entries[0].ID != "AAL" || entries[0].Material != 0 {
		t.Errorf("unexpected mapping entries: %+v", entries)
	}
	if run.Warnings.Count() == 0 {
		t.Error("expected a livery collision warning from the second fragment")
	}
}

func TestConvertModelSkipsFacelessFragment(t *testing.T) {
	dir := aircraftDir(t)
	// Lights-only OBJ8 object: vertex table but no IDX lines, and no
	// texture declared. It must be skipped, not break the conversion.
	write(t, filepath.Join(dir, "lights.obj"),
		"VT 0 0 0 0 0 1 0 0\nVT 1 0 0 0 0 1 1 0\nLIGHT_NAMED taxi_light 0 0 0\n")

	run, err := NewRun(config.Config{TextureDir: dir, Workers: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}

	def := modelDef()
	def.ObjFiles = append(def.ObjFiles, "lights.obj")

	outPath := filepath.Join(t.TempDir(), "AAL.glb")
	if _, err := run.ConvertModel(def, dir, outPath); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	var doc gltf.Document
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		t.Fatalf("GLB does not decode: %v", err)
	}
	if len(doc.Meshes[0].Primitives) != 2 {
		t.Fatalf("faceless fragment should not add a primitive, got %d", len(doc.Meshes[0].Primitives))
	}
	for _, acc := range doc.Accessors {
		if acc.Count == 0 {
			t.Error("exported an accessor with count 0")
		}
	}
	if run.Warnings.Count() == 0 {
		t.Error("expected a skip warning for the faceless fragment")
	}
}

func TestConvertModelDeterministicMapping(t *testing.T) {
	dir := aircraftDir(t)
	cfg := config.Config{TextureDir: dir, Workers: 4}

	artifact := func(t *testing.T) []byte {
		run, err := NewRun(cfg, nil)
		if err != nil {
			t.Fatal(err)
		}
		out := t.TempDir()
		entries, err := run.ConvertModel(modelDef(), dir, filepath.Join(out, "AAL.glb"))
		if err != nil {
			t.Fatal(err)
		}
		if err := WriteMapping(out, entries); err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(filepath.Join(out, MappingFileName))
		if err != nil {
			t.Fatal(err)
		}
		return data
	}

	if !bytes.Equal(artifact(t), artifact(t)) {
		t.Error("identical inputs must produce byte-identical mapping artifacts")
	}
}

func TestConvertModelAbortsCleanly(t *testing.T) {
	dir := aircraftDir(t)
	cfg := config.Config{TextureDir: dir, Workers: 1}

	run, err := NewRun(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	def := modelDef()
	def.ObjFiles = append(def.ObjFiles, "missing.obj")

	outPath := filepath.Join(t.TempDir(), "AAL.glb")
	if _, err := run.ConvertModel(def, dir, outPath); err == nil {
		t.Fatal("expected failure for a missing fragment")
	}
	if _, err := os.Stat(outPath); !os.IsNotExist(err) {
		t.Error("no partial GLB may be written on failure")
	}
}

func TestConvertModelDefaultTexture(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "bare.obj"),
		"VT 0 0 0 0 0 1 0 0\nVT 1 0 0 0 0 1 1 0\nVT 1 1 0 0 0 1 1 1\nIDX 0 1 2\n")
	writePNG(t, filepath.Join(dir, "default.png"))

	def := csl.ModelDef{Name: "bare", AirlineCode: "AAL", ObjFiles: []string{"bare.obj"}}

	// No declared texture, no override, no default: the run fails with
	// the resolver's not-found error.
	run, err := NewRun(config.Config{TextureDir: dir, Workers: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = run.ConvertModel(def, dir, filepath.Join(t.TempDir(), "bare.glb"))
	var nfe *texture.NotFoundError
	if !errors.As(err, &nfe) {
		t.Fatalf("expected *texture.NotFoundError, got %v", err)
	}

	// With a default configured the conversion succeeds.
	run, err = NewRun(config.Config{TextureDir: dir, Workers: 1, DefaultTexture: "default.png"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	outPath := filepath.Join(t.TempDir(), "bare.glb")
	if _, err := run.ConvertModel(def, dir, outPath); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("GLB not written: %v", err)
	}
}

func TestRunBatch(t *testing.T) {
	inputDir := t.TempDir()
	packDir := filepath.Join(inputDir, "B738")
	if err := os.Mkdir(packDir, 0755); err != nil {
		t.Fatal(err)
	}
	write(t, filepath.Join(packDir, "fuselage.obj"), fuselageOBJ)
	write(t, filepath.Join(packDir, "wing.obj"), wingOBJ)
	writePNG(t, filepath.Join(packDir, "livery_A.png"))
	writePNG(t, filepath.Join(packDir, "livery_B.png"))
	write(t, filepath.Join(packDir, PackageFileName), `OBJ8_AIRCRAFT B738_AAL
OBJ8 SOLID YES fuselage.obj
OBJ8 SOLID YES wing.obj
AIRLINE B738 AAL
`)

	outputDir := t.TempDir()
	cfg := config.Config{InputDir: inputDir, OutputDir: outputDir, Workers: 2}

	results, warnings, err := RunBatch(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Err != nil {
		t.Fatalf("model failed: %v", results[0].Err)
	}
	if warnings == nil {
		t.Fatal("expected a warnings collector")
	}

	if _, err := os.Stat(filepath.Join(outputDir, "B738", "AAL.glb")); err != nil {
		t.Errorf("GLB not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outputDir, "B738", MappingFileName)); err != nil {
		t.Errorf("mapping artifact not written: %v", err)
	}
}

func TestRunBatchConfiguredTextureDir(t *testing.T) {
	inputDir := t.TempDir()
	packDir := filepath.Join(inputDir, "B738")
	if err := os.Mkdir(packDir, 0755); err != nil {
		t.Fatal(err)
	}
	write(t, filepath.Join(packDir, "fuselage.obj"), fuselageOBJ)
	write(t, filepath.Join(packDir, "wing.obj"), wingOBJ)
	write(t, filepath.Join(packDir, PackageFileName), `OBJ8_AIRCRAFT B738_AAL
OBJ8 SOLID YES fuselage.obj
OBJ8 SOLID YES wing.obj
AIRLINE B738 AAL
`)

	// Textures live outside the aircraft dir; an explicit texture_dir
	// must not be overridden by the per-pack default.
	texDir := t.TempDir()
	writePNG(t, filepath.Join(texDir, "livery_A.png"))
	writePNG(t, filepath.Join(texDir, "livery_B.png"))

	cfg := config.Config{
		InputDir:   inputDir,
		OutputDir:  t.TempDir(),
		TextureDir: texDir,
		Workers:    1,
	}

	results, _, err := RunBatch(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("model failed with configured texture dir: %+v", results)
	}
	if _, err := os.Stat(results[0].Out); err != nil {
		t.Errorf("GLB not written: %v", err)
	}
}
