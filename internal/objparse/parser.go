// Package objparse reads the X-Plane OBJ8 mesh dialect plus the subset of
// standard Wavefront OBJ that CSL exporters emit.
package objparse

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Options controls parser behavior.
type Options struct {
	// Lenient skips malformed lines and out-of-range faces with a warning
	// instead of failing on the first defect.
	Lenient bool
	// Warn receives one message per skipped line or dropped face. May be nil.
	Warn func(msg string)
}

func (o Options) warnf(format string, args ...interface{}) {
	if o.Warn != nil {
		o.Warn(fmt.Sprintf(format, args...))
	}
}

// ParseFile reads one OBJ-dialect file and returns its fragment.
func ParseFile(path string, opts Options) (*RawFragment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Msg: err.Error()}
	}
	defer f.Close()

	return parse(bufio.NewScanner(f), path, filepath.Base(path), opts)
}

// ParseString parses OBJ-dialect text held in memory. name is used in
// errors and as the fragment name.
func ParseString(src, name string, opts Options) (*RawFragment, error) {
	return parse(bufio.NewScanner(strings.NewReader(src)), name, name, opts)
}

type parser struct {
	path string
	opts Options
	frag *RawFragment

	// Index stream accumulated from IDX/IDX10 directives; grouped into
	// triangles once the whole file is read.
	idxStream []int
	idxLines  []int // line number per streamed index, for diagnostics
}

func parse(sc *bufio.Scanner, path, name string, opts Options) (*RawFragment, error) {
	p := &parser{
		path: path,
		opts: opts,
		frag: &RawFragment{Name: name},
	}

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := p.parseLine(line, lineNo); err != nil {
			if !opts.Lenient {
				return nil, err
			}
			opts.warnf("%s: skipped: %v", name, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &ParseError{Path: path, Msg: err.Error()}
	}

	if err := p.finish(); err != nil {
		return nil, err
	}
	return p.frag, nil
}

func (p *parser) errf(line int, format string, args ...interface{}) error {
	return &ParseError{Path: p.path, Line: line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseLine(line string, n int) error {
	if strings.HasPrefix(line, "#") {
		// Some exporters hide TEXTURE/LIVERY directives behind comments.
		fields := strings.Fields(strings.TrimLeft(line, "# "))
		if len(fields) >= 2 && (fields[0] == "TEXTURE" || fields[0] == "LIVERY") {
			return p.directive(fields, n)
		}
		return nil
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	return p.directive(fields, n)
}

func (p *parser) directive(fields []string, n int) error {
	frag := p.frag
	switch fields[0] {
	case "VT":
		// OBJ8 vertex table row: x y z nx ny nz s t, or the short
		// x y z s t form some tools write. One row adds one position
		// and one UV sharing the same index.
		vals, err := parseFloats(fields[1:])
		if err != nil {
			return p.errf(n, "VT: %v", err)
		}
		switch len(vals) {
		case 8:
			frag.Positions = append(frag.Positions, [3]float32{vals[0], vals[1], vals[2]})
			frag.UVs = append(frag.UVs, [2]float32{vals[6], vals[7]})
		case 5:
			frag.Positions = append(frag.Positions, [3]float32{vals[0], vals[1], vals[2]})
			frag.UVs = append(frag.UVs, [2]float32{vals[3], vals[4]})
		default:
			return p.errf(n, "VT: expected 5 or 8 values, got %d", len(vals))
		}

	case "IDX10":
		if len(fields) != 11 {
			return p.errf(n, "IDX10: expected 10 indices, got %d", len(fields)-1)
		}
		return p.streamIndices(fields[1:], n)

	case "IDX":
		if len(fields) < 2 {
			return p.errf(n, "IDX: expected at least 1 index")
		}
		return p.streamIndices(fields[1:], n)

	case "TEXTURE":
		if len(fields) != 2 {
			return p.errf(n, "TEXTURE: expected 1 argument, got %d", len(fields)-1)
		}
		frag.Texture = normalizePath(fields[1])

	case "TEXTURE_LIT", "TEXTURE_NORMAL", "TEXTURE_DRAPED":
		// Lighting/normal maps are not carried into the GLB.

	case "LIVERY":
		if len(fields) < 2 {
			return p.errf(n, "LIVERY: expected an identifier")
		}
		frag.Livery = fields[len(fields)-1]

	case "v":
		if len(fields) != 4 {
			return p.errf(n, "v: expected 3 coordinates, got %d", len(fields)-1)
		}
		vals, err := parseFloats(fields[1:])
		if err != nil {
			return p.errf(n, "v: %v", err)
		}
		frag.Positions = append(frag.Positions, [3]float32{vals[0], vals[1], vals[2]})

	case "vt":
		if len(fields) < 3 {
			return p.errf(n, "vt: expected 2 coordinates, got %d", len(fields)-1)
		}
		vals, err := parseFloats(fields[1:3])
		if err != nil {
			return p.errf(n, "vt: %v", err)
		}
		frag.UVs = append(frag.UVs, [2]float32{vals[0], vals[1]})

	case "f":
		return p.face(fields[1:], n)

	default:
		// ANIM_*, ATTR_*, POINT_COUNTS, header lines and anything else
		// the converter does not consume.
	}
	return nil
}

func (p *parser) streamIndices(tokens []string, n int) error {
	for _, tok := range tokens {
		v, err := strconv.Atoi(tok)
		if err != nil || v < 0 {
			return p.errf(n, "invalid index %q", tok)
		}
		p.idxStream = append(p.idxStream, v)
		p.idxLines = append(p.idxLines, n)
	}
	return nil
}

// face handles a Wavefront f directive with 3 (triangle) or 4 (quad)
// vertex references. Quads split on the first-third diagonal.
func (p *parser) face(refs []string, n int) error {
	if len(refs) != 3 && len(refs) != 4 {
		return p.errf(n, "f: expected 3 or 4 vertex references, got %d", len(refs))
	}

	parsed := make([]VertRef, len(refs))
	for i, ref := range refs {
		vr, err := parseVertRef(ref)
		if err != nil {
			return p.errf(n, "f: %v", err)
		}
		if err := p.checkRange(vr, n); err != nil {
			return err
		}
		parsed[i] = vr
	}

	p.frag.Faces = append(p.frag.Faces, Face{parsed[0], parsed[1], parsed[2]})
	if len(parsed) == 4 {
		p.frag.Faces = append(p.frag.Faces, Face{parsed[0], parsed[2], parsed[3]})
	}
	return nil
}

func (p *parser) checkRange(vr VertRef, n int) error {
	if vr.Pos < 0 || vr.Pos >= len(p.frag.Positions) {
		return p.errf(n, "vertex index %d out of range (have %d vertices)", vr.Pos+1, len(p.frag.Positions))
	}
	if vr.UV >= len(p.frag.UVs) {
		return p.errf(n, "UV index %d out of range (have %d UVs)", vr.UV+1, len(p.frag.UVs))
	}
	return nil
}

// finish groups the OBJ8 index stream into triangles and validates them.
func (p *parser) finish() error {
	nv := len(p.frag.Positions)

	for i := 0; i+2 < len(p.idxStream); i += 3 {
		face := Face{}
		bad := false
		for k := 0; k < 3; k++ {
			idx := p.idxStream[i+k]
			if idx >= nv {
				err := p.errf(p.idxLines[i+k], "index %d out of range (have %d vertices)", idx, nv)
				if !p.opts.Lenient {
					return err
				}
				p.opts.warnf("%s: dropped face: %v", p.frag.Name, err)
				bad = true
				break
			}
			face[k] = VertRef{Pos: idx, UV: idx}
		}
		if !bad {
			p.frag.Faces = append(p.frag.Faces, face)
		}
	}

	if rem := len(p.idxStream) % 3; rem != 0 {
		err := p.errf(p.idxLines[len(p.idxLines)-1], "index stream length %d is not a multiple of 3", len(p.idxStream))
		if !p.opts.Lenient {
			return err
		}
		p.opts.warnf("%s: %d trailing indices ignored: %v", p.frag.Name, rem, err)
	}
	return nil
}

// parseVertRef parses v, v/vt, v//vn or v/vt/vn (1-based) into 0-based
// indices. Normal references are discarded.
func parseVertRef(s string) (VertRef, error) {
	parts := strings.Split(s, "/")
	vr := VertRef{UV: -1}

	v, err := strconv.Atoi(parts[0])
	if err != nil || v < 1 {
		return vr, fmt.Errorf("invalid vertex reference %q", s)
	}
	vr.Pos = v - 1

	if len(parts) > 1 && parts[1] != "" {
		vt, err := strconv.Atoi(parts[1])
		if err != nil || vt < 1 {
			return vr, fmt.Errorf("invalid UV reference %q", s)
		}
		vr.UV = vt - 1
	}
	if len(parts) > 3 {
		return vr, fmt.Errorf("invalid vertex reference %q", s)
	}
	return vr, nil
}

func parseFloats(tokens []string) ([]float32, error) {
	out := make([]float32, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", tok)
		}
		out[i] = float32(v)
	}
	return out, nil
}

// normalizePath strips CSL-style backslash and colon path separators,
// keeping only the final segment.
func normalizePath(s string) string {
	s = strings.ReplaceAll(s, "\\", "/")
	s = strings.ReplaceAll(s, ":", "/")
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}
