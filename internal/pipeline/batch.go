package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"csl2glb/internal/config"
	"csl2glb/internal/csl"
	"csl2glb/internal/livery"
)

// PackageFileName is the CSL catalog expected in each aircraft directory.
const PackageFileName = "xsb_aircraft.txt"

// BatchResult holds the outcome of converting one model in batch mode.
type BatchResult struct {
	Aircraft string
	Model    string
	Out      string
	Err      error
}

// RunBatch walks cfg.InputDir for aircraft directories containing an
// xsb_aircraft.txt, converts every model it finds to
// cfg.OutputDir/<aircraft>/<code>.glb and writes one livery-mapping
// artifact per aircraft directory. Textures resolve from each aircraft
// directory unless cfg.TextureDir names a different directory explicitly.
// Per-model failures are reported in the results, not fatal to the batch;
// an unreadable input dir is.
func RunBatch(cfg config.Config, log *zap.Logger) ([]BatchResult, *Warnings, error) {
	if log == nil {
		log = zap.NewNop()
	}

	dirs, err := aircraftDirs(cfg.InputDir)
	if err != nil {
		return nil, nil, err
	}

	warnings := NewWarnings(log)

	type task struct {
		aircraft string
		dir      string
		def      csl.ModelDef
	}
	var tasks []task
	for _, dir := range dirs {
		models, err := csl.ParsePackage(filepath.Join(dir, PackageFileName), warnings.Add)
		if err != nil {
			return nil, nil, err
		}
		for _, def := range models {
			tasks = append(tasks, task{aircraft: filepath.Base(dir), dir: dir, def: def})
		}
	}
	log.Info("batch scan complete",
		zap.Int("aircraft_dirs", len(dirs)), zap.Int("models", len(tasks)))

	var processed atomic.Int64
	start := time.Now()
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					rate := float64(p) / time.Since(start).Seconds()
					log.Info("progress",
						zap.Int64("done", p), zap.Int("total", len(tasks)),
						zap.Float64("models_per_sec", rate))
				}
			}
		}
	}()
	defer close(done)

	results := make([]BatchResult, 0, len(tasks))
	mappings := make(map[string][]livery.Entry) // aircraft dir name → entries
	var aircraftOrder []string
	runs := make(map[string]*Run) // aircraft dir → run (shared texture index)

	// Models convert in catalog order so mapping accumulation stays
	// deterministic; parse-level parallelism lives inside ConvertModel.
	for _, t := range tasks {
		run, ok := runs[t.dir]
		var err error
		if !ok {
			acfg := cfg
			// CSL packs keep textures beside the OBJ files, so each
			// aircraft dir is its own texture dir unless one was
			// configured explicitly.
			if cfg.TextureDir == "" || cfg.TextureDir == cfg.InputDir {
				acfg.TextureDir = t.dir
			}
			run, err = NewRun(acfg, log)
			if err == nil {
				run.Warnings = warnings // one collector for the whole batch
				runs[t.dir] = run
			}
		}

		res := BatchResult{Aircraft: t.aircraft, Model: modelKey(t.def)}
		if err == nil {
			outDir := filepath.Join(cfg.OutputDir, t.aircraft)
			res.Out = filepath.Join(outDir, modelKey(t.def)+".glb")
			var entries []livery.Entry
			entries, err = run.ConvertModel(t.def, t.dir, res.Out)
			if err == nil {
				if _, seen := mappings[t.aircraft]; !seen {
					aircraftOrder = append(aircraftOrder, t.aircraft)
				}
				mappings[t.aircraft] = append(mappings[t.aircraft], entries...)
			}
		}
		res.Err = err
		results = append(results, res)
		processed.Add(1)
	}

	for _, aircraft := range aircraftOrder {
		dir := filepath.Join(cfg.OutputDir, aircraft)
		if err := WriteMapping(dir, mappings[aircraft]); err != nil {
			return results, warnings, err
		}
	}

	return results, warnings, nil
}

// modelKey names the output GLB: the airline code, falling back to the
// block name.
func modelKey(def csl.ModelDef) string {
	if def.AirlineCode != "" {
		return def.AirlineCode
	}
	return def.Name
}

func aircraftDirs(inputDir string) ([]string, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, err
	}

	var dirs []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(inputDir, e.Name())
		if _, err := os.Stat(filepath.Join(dir, PackageFileName)); err == nil {
			dirs = append(dirs, dir)
		}
	}
	return dirs, nil
}
