// Package csl reads xsb_aircraft.txt package files, the CSL catalog that
// ties OBJ8 mesh fragments to airline/livery codes.
package csl

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ModelDef describes one aircraft model block: the OBJ fragments to merge
// and the airline/livery code the result is published under.
type ModelDef struct {
	Name        string   // block name from OBJ8_AIRCRAFT, may be ""
	AirlineCode string   // final token of the AIRLINE/LIVERY line
	ObjFiles    []string // OBJ filenames relative to the aircraft dir
}

// ParsePackage reads an xsb_aircraft.txt file. Blocks are separated by
// blank lines; blocks missing either an airline code or an OBJ reference
// are skipped via warn.
func ParsePackage(path string, warn func(msg string)) ([]ModelDef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csl: read %s: %w", path, err)
	}
	defer f.Close()

	var (
		models []ModelDef
		cur    ModelDef
	)

	flush := func() {
		defer func() { cur = ModelDef{} }()
		if cur.Name == "" && cur.AirlineCode == "" && len(cur.ObjFiles) == 0 {
			return
		}
		if cur.AirlineCode == "" || len(cur.ObjFiles) == 0 {
			if warn != nil {
				warn(fmt.Sprintf("csl: %s: skipping block %q (code=%q, %d obj files)",
					path, cur.Name, cur.AirlineCode, len(cur.ObjFiles)))
			}
			return
		}
		models = append(models, cur)
	}

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			flush()
			continue
		}

		fields := strings.Fields(line)
		switch {
		case strings.HasPrefix(line, "OBJ8_AIRCRAFT"):
			flush()
			if len(fields) >= 2 {
				cur.Name = fields[len(fields)-1]
			}
		case strings.HasPrefix(line, "OBJ8 SOLID YES"):
			if len(fields) >= 4 {
				cur.ObjFiles = append(cur.ObjFiles, lastPathSegment(fields[len(fields)-1]))
			}
		case strings.HasPrefix(line, "AIRLINE"), strings.HasPrefix(line, "LIVERY"):
			if len(fields) >= 2 {
				cur.AirlineCode = fields[len(fields)-1]
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("csl: read %s: %w", path, err)
	}
	flush()

	return models, nil
}

// lastPathSegment strips CSL package-path prefixes. References look like
// "BB_Boeing:B738:B738.obj" or "objects\B738.obj"; only the final segment
// names the file on disk.
func lastPathSegment(s string) string {
	s = strings.ReplaceAll(s, "\\", "/")
	s = strings.ReplaceAll(s, ":", "/")
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}
