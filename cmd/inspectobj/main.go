// inspectobj dumps the parsed contents of one OBJ-dialect file.
package main

import (
	"flag"
	"fmt"
	"os"

	"csl2glb/internal/objparse"
)

func main() {
	n := flag.Int("n", 8, "number of vertices and faces to print")
	lenient := flag.Bool("lenient", false, "skip malformed lines")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: inspectobj [-n N] [-lenient] FILE.obj")
		os.Exit(2)
	}
	path := flag.Arg(0)

	opts := objparse.Options{
		Lenient: *lenient,
		Warn:    func(msg string) { fmt.Fprintln(os.Stderr, "warning:", msg) },
	}
	frag, err := objparse.ParseFile(path, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", frag.Name)
	fmt.Printf("  vertices: %d\n", len(frag.Positions))
	fmt.Printf("  uvs:      %d\n", len(frag.UVs))
	fmt.Printf("  faces:    %d\n", len(frag.Faces))
	fmt.Printf("  texture:  %q\n", frag.Texture)
	fmt.Printf("  livery:   %q\n", frag.Livery)

	limit := *n
	if limit > len(frag.Positions) {
		limit = len(frag.Positions)
	}
	for i := 0; i < limit; i++ {
		p := frag.Positions[i]
		fmt.Printf("  v[%d] = (%g, %g, %g)", i, p[0], p[1], p[2])
		if i < len(frag.UVs) {
			uv := frag.UVs[i]
			fmt.Printf("  uv = (%g, %g)", uv[0], uv[1])
		}
		fmt.Println()
	}

	limit = *n
	if limit > len(frag.Faces) {
		limit = len(frag.Faces)
	}
	for i := 0; i < limit; i++ {
		f := frag.Faces[i]
		fmt.Printf("  f[%d] = %d/%d %d/%d %d/%d\n", i,
			f[0].Pos, f[0].UV, f[1].Pos, f[1].UV, f[2].Pos, f[2].UV)
	}
}
