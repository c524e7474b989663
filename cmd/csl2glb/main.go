package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"csl2glb/internal/config"
	"csl2glb/internal/csl"
	"csl2glb/internal/logger"
	"csl2glb/internal/pipeline"
)

func usage() {
	fmt.Fprintf(os.Stderr, `csl2glb - X-Plane CSL to GLB converter

Usage:
  csl2glb [flags]                     batch mode: convert every aircraft
                                      package under the input directory
  csl2glb [flags] INPUT TEXDIR OUT    convert one model: INPUT is an .obj
                                      fragment or an xsb_aircraft.txt,
                                      TEXDIR the texture directory, OUT the
                                      GLB path

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	configFile := flag.String("config", "", "path to config file (.json or .yaml)")
	inputDir := flag.String("input", "", "input directory of CSL aircraft packages (batch mode)")
	outputDir := flag.String("output", "", "output directory (batch mode)")
	textureDir := flag.String("textures", "", "texture directory (batch mode default: each aircraft directory)")
	defaultTexture := flag.String("default-texture", "", "fallback texture when a fragment resolves nothing")
	overridesFile := flag.String("overrides", "", "livery override table (.json or .yaml: livery id -> texture)")
	lenient := flag.Bool("lenient", false, "skip malformed OBJ lines with a warning instead of failing")
	maxTexSize := flag.Int("max-texture-size", 0, "downscale embedded textures above this dimension (0 = off)")
	workers := flag.Int("workers", 0, "parser goroutines per model (default: NumCPU)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	logFile := flag.String("log-file", "", "also log to this file (rotated)")

	flag.Usage = usage
	flag.Parse()

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Resolve(config.Flags{
		InputDir:       *inputDir,
		OutputDir:      *outputDir,
		TextureDir:     *textureDir,
		DefaultTexture: *defaultTexture,
		OverridesFile:  *overridesFile,
		Lenient:        *lenient,
		MaxTextureSize: *maxTexSize,
		Workers:        *workers,
		LogLevel:       *logLevel,
		LogFile:        *logFile,
	})

	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Log

	switch flag.NArg() {
	case 0:
		runBatch(cfg, log)
	case 3:
		runSingle(cfg, log, flag.Arg(0), flag.Arg(1), flag.Arg(2))
	default:
		usage()
		os.Exit(2)
	}
}

func runBatch(cfg config.Config, log *zap.Logger) {
	if cfg.InputDir == "" {
		fmt.Fprintln(os.Stderr, "Error: batch mode needs -input or input_dir in the config file")
		os.Exit(2)
	}

	results, warnings, err := pipeline.RunBatch(cfg, log)
	if err != nil {
		log.Error("batch failed", zap.Error(err))
		os.Exit(1)
	}

	success, failed := 0, 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			log.Error("model failed",
				zap.String("aircraft", r.Aircraft), zap.String("model", r.Model), zap.Error(r.Err))
		} else {
			success++
		}
	}
	log.Info("batch done",
		zap.Int("converted", success), zap.Int("failed", failed),
		zap.Int("warnings", warnings.Count()))

	if failed > 0 {
		os.Exit(1)
	}
}

func runSingle(cfg config.Config, log *zap.Logger, input, texDir, out string) {
	cfg.TextureDir = texDir

	run, err := pipeline.NewRun(cfg, log)
	if err != nil {
		log.Error("setup failed", zap.Error(err))
		os.Exit(1)
	}

	objDir := filepath.Dir(input)
	var def csl.ModelDef
	if strings.EqualFold(filepath.Ext(input), ".obj") {
		base := filepath.Base(input)
		def = csl.ModelDef{
			Name:     strings.TrimSuffix(base, filepath.Ext(base)),
			ObjFiles: []string{base},
		}
	} else {
		models, err := csl.ParsePackage(input, run.Warnings.Add)
		if err != nil {
			log.Error("package parse failed", zap.Error(err))
			os.Exit(1)
		}
		if len(models) == 0 {
			log.Error("no usable model blocks in package", zap.String("input", input))
			os.Exit(1)
		}
		def = models[0]
		if len(models) > 1 {
			log.Info("multiple models in package, converting the first",
				zap.String("model", def.Name))
		}
	}

	entries, err := run.ConvertModel(def, objDir, out)
	if err != nil {
		log.Error("conversion failed", zap.Error(err))
		os.Exit(1)
	}

	if err := pipeline.WriteMapping(filepath.Dir(out), entries); err != nil {
		log.Error("mapping write failed", zap.Error(err))
		os.Exit(1)
	}

	log.Info("done",
		zap.String("glb", out),
		zap.Int("liveries", len(entries)),
		zap.Int("warnings", run.Warnings.Count()))
}
