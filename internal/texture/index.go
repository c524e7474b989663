package texture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Index maps lowercase texture stems to filesystem paths.
// PNG files take priority over other formats for the same stem (alpha
// channel, embeds into GLB without re-encoding).
type Index struct {
	entries map[string]string // stem.lower() → full path
}

var indexedExts = map[string]int{
	// lower value wins on a stem collision
	".png":  0,
	".jpg":  1,
	".jpeg": 1,
	".tga":  2,
	".bmp":  3,
	".dds":  4, // indexed last-resort; rejected at load time
}

// BuildIndex scans texDir and its immediate subdirectories for texture
// files. CSL packs nest livery textures one level down. An unreadable
// directory is an error, not an empty index.
func BuildIndex(texDir string) (*Index, error) {
	idx := &Index{entries: make(map[string]string)}

	searchDirs := []string{texDir}
	entries, err := os.ReadDir(texDir)
	if err != nil {
		return nil, fmt.Errorf("texture: read dir %s: %w", texDir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			searchDirs = append(searchDirs, filepath.Join(texDir, e.Name()))
		}
	}

	for _, dir := range searchDirs {
		files, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("texture: read dir %s: %w", dir, err)
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(f.Name()))
			prio, ok := indexedExts[ext]
			if !ok {
				continue
			}
			stem := strings.ToLower(strings.TrimSuffix(f.Name(), filepath.Ext(f.Name())))
			path := filepath.Join(dir, f.Name())

			existing, exists := idx.entries[stem]
			if !exists || prio < indexedExts[strings.ToLower(filepath.Ext(existing))] {
				idx.entries[stem] = path
			}
		}
	}

	return idx, nil
}

// ResolvePath returns the filesystem path for a texture name, or ("", false).
// The name may carry CSL path prefixes; only the stem is matched.
func (idx *Index) ResolvePath(texName string) (string, bool) {
	texName = strings.ReplaceAll(texName, "\\", "/")
	base := filepath.Base(texName)
	stem := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))

	path, ok := idx.entries[stem]
	return path, ok
}

// Len returns the number of indexed textures.
func (idx *Index) Len() int {
	return len(idx.entries)
}
