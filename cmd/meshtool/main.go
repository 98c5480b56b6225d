// meshtool is a CLI utility for inspecting and rewriting OBJ mesh files.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/meshview/pkg/formats"
	"github.com/Faultbox/meshview/pkg/mesh"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "index":
		cmdIndex(args)
	case "validate", "check":
		cmdValidate(args)
	case "simplify":
		cmdSimplify(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshtool - OBJ mesh utility

Usage:
  meshtool <command> [options]

Commands:
  info [-epsilon e] [-triangulate] <file.obj>          Show mesh statistics
  index [-epsilon e] [-triangulate] <file.obj> [out]   Write the deduplicated mesh
  validate [-triangulate] <file.obj>...                Check files for errors
  simplify [-factor f] [-epsilon e] <file.obj> [out]   Decimate the mesh

Examples:
  meshtool info models/knot.obj
  meshtool index -epsilon 0.0001 scan.obj scan-indexed.obj
  meshtool validate models/*.obj
  meshtool simplify -factor 0.25 models/knot.obj knot-low.obj`)
}

// meshFlags are the parse and merge options shared by most commands.
type meshFlags struct {
	epsilon     *float64
	triangulate *bool
}

func addMeshFlags(fs *flag.FlagSet) meshFlags {
	return meshFlags{
		epsilon:     fs.Float64("epsilon", 0, "Merge positions closer than this (0 = exact match)"),
		triangulate: fs.Bool("triangulate", false, "Fan polygon faces into triangles"),
	}
}

func (m meshFlags) load(path string) (*formats.OBJ, *mesh.Indexed, error) {
	obj, err := formats.ParseOBJFile(path, formats.OBJOptions{Triangulate: *m.triangulate})
	if err != nil {
		return nil, nil, err
	}
	indexed, err := mesh.Index(obj, m.options())
	if err != nil {
		return nil, nil, err
	}
	return obj, indexed, nil
}

func (m meshFlags) options() mesh.Options {
	return mesh.Options{MergeEpsilon: float32(*m.epsilon)}
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	mf := addMeshFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshtool info [-epsilon e] [-triangulate] <file.obj>")
		os.Exit(1)
	}

	obj, indexed, err := mf.load(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	lo, hi := indexed.Bounds()
	flatBytes := len(indexed.Indices) * mesh.VertexStride
	indexedBytes := len(indexed.Vertices)*mesh.VertexStride + len(indexed.Indices)*4

	fmt.Printf("File:       %s\n", fs.Arg(0))
	fmt.Printf("Positions:  %d\n", len(obj.Positions))
	fmt.Printf("Triangles:  %d\n", indexed.TriangleCount())
	fmt.Printf("Unique:     %d\n", len(indexed.Vertices))
	fmt.Printf("Bounds:     (%g, %g, %g) - (%g, %g, %g)\n", lo.X, lo.Y, lo.Z, hi.X, hi.Y, hi.Z)
	fmt.Printf("Diagonal:   %g\n", hi.Sub(lo).Length())
	fmt.Println()
	fmt.Println("GPU upload size:")
	fmt.Printf("  flat      %d bytes\n", flatBytes)
	fmt.Printf("  indexed   %d bytes\n", indexedBytes)
}

func cmdIndex(args []string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	mf := addMeshFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshtool index [-epsilon e] [-triangulate] <file.obj> [output]")
		os.Exit(1)
	}

	obj, indexed, err := mf.load(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := writeMesh(fs.Arg(1), indexed); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing mesh: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "%d positions -> %d unique vertices\n", len(obj.Positions), len(indexed.Vertices))
}

func cmdValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	mf := addMeshFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshtool validate [-triangulate] <file.obj>...")
		os.Exit(1)
	}

	failed := 0
	for _, path := range fs.Args() {
		_, indexed, err := mf.load(path)
		switch {
		case err == nil:
			fmt.Printf("ok       %s (%d triangles)\n", path, indexed.TriangleCount())
		case errors.Is(err, formats.ErrIO):
			fmt.Printf("missing  %s: %v\n", path, err)
			failed++
		default:
			fmt.Printf("invalid  %s: %v\n", path, err)
			failed++
		}
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "\n%d of %d files failed\n", failed, fs.NArg())
		os.Exit(1)
	}
}

func cmdSimplify(args []string) {
	fs := flag.NewFlagSet("simplify", flag.ExitOnError)
	mf := addMeshFlags(fs)
	factor := fs.Float64("factor", 0.5, "Target fraction of triangles to keep")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshtool simplify [-factor f] [-epsilon e] <file.obj> [output]")
		os.Exit(1)
	}
	if *factor <= 0 || *factor > 1 {
		fmt.Fprintf(os.Stderr, "Error: factor must be in (0, 1], got %g\n", *factor)
		os.Exit(1)
	}

	_, indexed, err := mf.load(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	reduced := mesh.Simplify(indexed, *factor, mf.options())
	if err := writeMesh(fs.Arg(1), reduced); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing mesh: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "%d -> %d triangles\n", indexed.TriangleCount(), reduced.TriangleCount())
}

// writeMesh writes m as OBJ to path, or to stdout when path is empty.
func writeMesh(path string, m *mesh.Indexed) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return formats.WriteOBJ(w, m.OBJ())
}
