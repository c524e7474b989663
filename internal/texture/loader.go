package texture

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/ftrvxmtrx/tga"
	_ "golang.org/x/image/bmp"
)

// Load reads and decodes a texture image. PNG, JPEG, TGA and BMP are
// supported. DDS files are indexed but cannot be decoded; CSL packs ship
// PNG copies alongside them.
func Load(path string) (image.Image, error) {
	if strings.ToLower(filepath.Ext(path)) == ".dds" {
		return nil, fmt.Errorf("texture: %s: DDS is not decodable, provide a PNG copy", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("texture: read %s: %w", path, err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("texture: decode %s: %w", path, err)
	}
	return img, nil
}
