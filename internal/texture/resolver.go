package texture

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// NotFoundError reports a fragment whose texture could not be resolved and
// for which no default texture is configured.
type NotFoundError struct {
	Fragment string
	Livery   string
	Texture  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("texture: no texture for fragment %q (livery=%q, declared=%q) and no default configured",
		e.Fragment, e.Livery, e.Texture)
}

// Resolver maps a fragment's texture/livery declaration to an image path.
// Resolution is deterministic for a fixed index and override table.
type Resolver struct {
	index       *Index
	overrides   map[string]string // livery id → texture filename
	defaultPath string            // "" when no default is configured
	warn        func(msg string)
}

// NewResolver builds a resolver. overrides and defaultPath may be empty.
func NewResolver(index *Index, overrides map[string]string, defaultPath string, warn func(msg string)) *Resolver {
	return &Resolver{index: index, overrides: overrides, defaultPath: defaultPath, warn: warn}
}

// Resolve returns the image path for a fragment. Order: livery override,
// declared texture name, configured default. An override naming a texture
// absent from the index falls through with a warning.
func (r *Resolver) Resolve(fragment, livery, declared string) (string, error) {
	if livery != "" {
		if name, ok := r.overrides[livery]; ok {
			if path, ok := r.index.ResolvePath(name); ok {
				return path, nil
			}
			if r.warn != nil {
				r.warn(fmt.Sprintf("texture: override for livery %q names %q which is not in the texture dir", livery, name))
			}
		}
	}

	if declared != "" {
		if path, ok := r.index.ResolvePath(declared); ok {
			return path, nil
		}
	}

	if r.defaultPath != "" {
		return r.defaultPath, nil
	}

	return "", &NotFoundError{Fragment: fragment, Livery: livery, Texture: declared}
}

// LoadOverrides reads a livery-override table (livery id → texture
// filename) from a JSON or YAML file, chosen by extension.
func LoadOverrides(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("texture: read overrides %s: %w", path, err)
	}

	overrides := make(map[string]string)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &overrides)
	default:
		err = json.Unmarshal(data, &overrides)
	}
	if err != nil {
		return nil, fmt.Errorf("texture: parse overrides %s: %w", path, err)
	}
	return overrides, nil
}
