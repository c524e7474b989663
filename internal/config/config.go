package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configurable paths and conversion settings.
type Config struct {
	// Paths
	InputDir       string `json:"input_dir" yaml:"input_dir"`
	OutputDir      string `json:"output_dir" yaml:"output_dir"`
	TextureDir     string `json:"texture_dir" yaml:"texture_dir"`
	DefaultTexture string `json:"default_texture" yaml:"default_texture"`
	OverridesFile  string `json:"livery_overrides" yaml:"livery_overrides"`

	// Conversion settings
	LenientParsing bool `json:"lenient_parsing" yaml:"lenient_parsing"`
	MaxTextureSize int  `json:"max_texture_size" yaml:"max_texture_size"`
	Workers        int  `json:"workers" yaml:"workers"`

	// Logging
	LogLevel string `json:"log_level" yaml:"log_level"`
	LogFile  string `json:"log_file" yaml:"log_file"`
}

// Load reads a JSON or YAML config file, chosen by extension.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	InputDir       string
	OutputDir      string
	TextureDir     string
	DefaultTexture string
	OverridesFile  string
	Lenient        bool
	MaxTextureSize int
	Workers        int
	LogLevel       string
	LogFile        string
}

// Resolve fills in any empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	if flags.InputDir != "" {
		c.InputDir = flags.InputDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.TextureDir != "" {
		c.TextureDir = flags.TextureDir
	}
	if flags.DefaultTexture != "" {
		c.DefaultTexture = flags.DefaultTexture
	}
	if flags.OverridesFile != "" {
		c.OverridesFile = flags.OverridesFile
	}
	if flags.Lenient {
		c.LenientParsing = true
	}
	if flags.MaxTextureSize > 0 {
		c.MaxTextureSize = flags.MaxTextureSize
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}
	if flags.LogFile != "" {
		c.LogFile = flags.LogFile
	}

	// Texture dir defaults to the input dir: CSL packs keep textures
	// next to the OBJ files.
	if c.TextureDir == "" {
		c.TextureDir = c.InputDir
	}
	if c.OutputDir == "" && c.InputDir != "" {
		c.OutputDir = filepath.Join(c.InputDir, "glb")
	}

	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
