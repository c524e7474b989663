// Package glb serializes a merged model into a glTF 2.0 binary container.
// Buffer layout, accessor alignment and chunk padding are the gltf
// library's concern; this package only assembles the document.
package glb

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"golang.org/x/image/draw"

	"csl2glb/internal/mesh"
	"csl2glb/internal/texture"
)

// ExportError reports an output serialization failure.
type ExportError struct {
	Msg string
	Err error
}

func (e *ExportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("glb: %s: %v", e.Msg, e.Err)
	}
	return "glb: " + e.Msg
}

func (e *ExportError) Unwrap() error { return e.Err }

// Options controls the exporter.
type Options struct {
	// Name labels the mesh and root node. Defaults to "model".
	Name string
	// MaxTextureSize caps embedded texture dimensions; larger images are
	// downscaled. 0 disables the cap.
	MaxTextureSize int
}

type exporter struct {
	doc   *gltf.Document
	cache *texture.Cache
	opts  Options

	texByPath map[string]uint32 // image path → gltf texture index
}

// Export serializes model into GLB bytes. Each unique texture image is
// embedded exactly once even when several material groups share it.
func Export(model *mesh.MergedModel, cache *texture.Cache, opts Options) ([]byte, error) {
	if model == nil || len(model.Groups) == 0 {
		return nil, &ExportError{Msg: "empty model"}
	}
	if opts.Name == "" {
		opts.Name = "model"
	}
	if cache == nil {
		cache = texture.NewCache()
	}

	e := &exporter{
		doc:       gltf.NewDocument(),
		cache:     cache,
		opts:      opts,
		texByPath: make(map[string]uint32),
	}
	e.doc.Asset.Generator = "csl2glb"
	e.doc.Samplers = []*gltf.Sampler{{WrapS: gltf.WrapRepeat, WrapT: gltf.WrapRepeat}}

	gltfMesh := &gltf.Mesh{Name: opts.Name}
	for gi := range model.Groups {
		prim, err := e.primitive(&model.Groups[gi], gi)
		if err != nil {
			return nil, err
		}
		gltfMesh.Primitives = append(gltfMesh.Primitives, prim)
	}

	e.doc.Meshes = []*gltf.Mesh{gltfMesh}
	e.doc.Nodes = []*gltf.Node{{Name: opts.Name, Mesh: gltf.Index(0)}}
	e.doc.Scenes[0].Nodes = append(e.doc.Scenes[0].Nodes, 0)

	var buf bytes.Buffer
	if err := gltf.NewEncoder(&buf).Encode(e.doc); err != nil {
		return nil, &ExportError{Msg: "encode", Err: err}
	}
	return buf.Bytes(), nil
}

// ExportFile writes the GLB to path. The file is only created once the
// whole container has been serialized.
func ExportFile(path string, model *mesh.MergedModel, cache *texture.Cache, opts Options) error {
	data, err := Export(model, cache, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &ExportError{Msg: "write " + path, Err: err}
	}
	return nil
}

func (e *exporter) primitive(g *mesh.MaterialGroup, gi int) (*gltf.Primitive, error) {
	// Accessors with count 0 are not valid glTF; the merge step must not
	// hand over an empty group.
	if len(g.Positions) == 0 || len(g.Indices) == 0 {
		return nil, &ExportError{Msg: fmt.Sprintf("material group %d has no geometry", gi)}
	}

	pos := uint32(modeler.WritePosition(e.doc, g.Positions))
	uv := uint32(modeler.WriteTextureCoord(e.doc, g.UVs))
	idx := uint32(modeler.WriteIndices(e.doc, g.Indices))

	mat := &gltf.Material{
		Name: fmt.Sprintf("material_%d", gi),
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{1, 1, 1, 1},
			MetallicFactor:  gltf.Float(0),
			RoughnessFactor: gltf.Float(1),
		},
		DoubleSided: true,
	}
	if g.Texture != "" {
		texIdx, err := e.addTexture(g.Texture)
		if err != nil {
			return nil, err
		}
		mat.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: texIdx}
	}
	e.doc.Materials = append(e.doc.Materials, mat)

	return &gltf.Primitive{
		Attributes: map[string]uint32{
			gltf.POSITION:   pos,
			gltf.TEXCOORD_0: uv,
		},
		Indices:  gltf.Index(idx),
		Material: gltf.Index(uint32(len(e.doc.Materials) - 1)),
	}, nil
}

// addTexture embeds the image at path once and returns its texture index.
// PNG/JPEG within the size cap pass through unmodified; everything else is
// re-encoded to PNG (GLB admits only image/png and image/jpeg payloads).
func (e *exporter) addTexture(path string) (uint32, error) {
	if idx, ok := e.texByPath[path]; ok {
		return idx, nil
	}

	img, err := e.cache.Get(path)
	if err != nil {
		return 0, &ExportError{Msg: "texture " + path, Err: err}
	}

	ext := strings.ToLower(filepath.Ext(path))
	passthrough := ext == ".png" || ext == ".jpg" || ext == ".jpeg"
	mimeType := "image/png"
	if ext == ".jpg" || ext == ".jpeg" {
		mimeType = "image/jpeg"
	}

	scaled := e.downscale(img)
	if scaled != img {
		img = scaled
		passthrough = false
		mimeType = "image/png"
	}

	var payload []byte
	if passthrough {
		payload, err = os.ReadFile(path)
		if err != nil {
			return 0, &ExportError{Msg: "texture " + path, Err: err}
		}
	} else {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return 0, &ExportError{Msg: "encode texture " + path, Err: err}
		}
		payload = buf.Bytes()
	}

	imgIdx, err := modeler.WriteImage(e.doc, filepath.Base(path), mimeType, bytes.NewReader(payload))
	if err != nil {
		return 0, &ExportError{Msg: "embed texture " + path, Err: err}
	}
	// Keep buffer length in sync after image writes.
	e.doc.Buffers[0].ByteLength = uint32(len(e.doc.Buffers[0].Data))

	e.doc.Textures = append(e.doc.Textures,
		&gltf.Texture{Sampler: gltf.Index(0), Source: gltf.Index(imgIdx)})

	idx := uint32(len(e.doc.Textures) - 1)
	e.texByPath[path] = idx
	return idx, nil
}

// downscale returns img scaled to fit MaxTextureSize, or img unchanged.
func (e *exporter) downscale(img image.Image) image.Image {
	limit := e.opts.MaxTextureSize
	if limit <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= limit {
		return img
	}

	scale := float64(limit) / float64(longest)
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
