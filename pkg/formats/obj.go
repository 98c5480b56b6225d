package formats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/meshview/pkg/math"
)

// OBJ format errors.
var (
	ErrIO             = errors.New("mesh source unreadable")
	ErrMalformedInput = errors.New("malformed mesh input")
)

// OBJ line tags and markers.
const (
	objCommentMarker = "#"
	objVertexTag     = "v"
	objFaceTag       = "f"
	objFieldSep      = "/"
)

// maxOBJLineBytes bounds a single line; long face lines on dense meshes exceed bufio's 64 KiB default.
const maxOBJLineBytes = 1 << 20

// OBJError reports a malformed line. It unwraps to ErrMalformedInput.
type OBJError struct {
	Line int // 1-based physical line number, comments and blanks included
	Msg  string
}

func (e *OBJError) Error() string {
	return fmt.Sprintf("%v: line %d: %s", ErrMalformedInput, e.Line, e.Msg)
}

// Unwrap lets errors.Is match ErrMalformedInput.
func (e *OBJError) Unwrap() error {
	return ErrMalformedInput
}

// Face is one face as read from the source: 0-based position references in source order.
type Face []uint32

// OBJ holds the positional data and faces of a parsed mesh description.
// Texture coordinates, normals and grouping statements are skipped.
type OBJ struct {
	Positions []math.Vec3
	Faces     []Face
}

// TriangleCount returns the number of faces, all of which are triangles after a successful parse.
func (o *OBJ) TriangleCount() int {
	return len(o.Faces)
}

// OBJOptions controls parsing policy.
type OBJOptions struct {
	// Triangulate fans polygon faces into triangles instead of rejecting them.
	Triangulate bool
}

// ParseOBJ parses a mesh description from r.
//
// Only "v" and "f" statements are interpreted. A face referencing a position that has not
// been defined yet, a face that is not a triangle (unless opts.Triangulate), or a numeric
// token that does not parse fails with an *OBJError. Read failures wrap ErrIO.
func ParseOBJ(r io.Reader, opts OBJOptions) (*OBJ, error) {
	obj := &OBJ{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxOBJLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, objCommentMarker) {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case objVertexTag:
			pos, err := parseOBJVertex(fields[1:])
			if err != nil {
				return nil, &OBJError{Line: lineNo, Msg: err.Error()}
			}
			obj.Positions = append(obj.Positions, pos)

		case objFaceTag:
			refs, err := parseOBJFace(fields[1:], len(obj.Positions))
			if err != nil {
				return nil, &OBJError{Line: lineNo, Msg: err.Error()}
			}
			switch {
			case len(refs) == 3:
				obj.Faces = append(obj.Faces, Face(refs))
			case len(refs) > 3 && opts.Triangulate:
				obj.Faces = append(obj.Faces, fanTriangulate(refs)...)
			default:
				return nil, &OBJError{Line: lineNo, Msg: fmt.Sprintf("face has %d references, only triangles are supported", len(refs))}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}

	return obj, nil
}

// ParseOBJFile parses a mesh description from disk.
func ParseOBJFile(path string, opts OBJOptions) (*OBJ, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	defer f.Close()

	obj, err := ParseOBJ(f, opts)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return obj, nil
}

// parseOBJVertex reads the first three numeric tokens of a "v" line. A trailing w is ignored.
func parseOBJVertex(tokens []string) (math.Vec3, error) {
	if len(tokens) < 3 {
		return math.Vec3{}, fmt.Errorf("vertex needs 3 coordinates, got %d", len(tokens))
	}

	var c [3]float32
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(tokens[i], 32)
		if err != nil {
			return math.Vec3{}, fmt.Errorf("invalid coordinate %q", tokens[i])
		}
		c[i] = float32(f)
	}
	return math.Vec3{X: c[0], Y: c[1], Z: c[2]}, nil
}

// parseOBJFace resolves the position field of each face token to a 0-based reference.
// Texture and normal fields after "/" are validated for shape only and discarded.
func parseOBJFace(tokens []string, loaded int) ([]uint32, error) {
	if len(tokens) == 0 {
		return nil, errors.New("face has no references")
	}

	refs := make([]uint32, 0, len(tokens))
	for _, tok := range tokens {
		field, _, _ := strings.Cut(tok, objFieldSep)
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid face reference %q", tok)
		}

		// Negative references count back from the most recent position.
		idx := n - 1
		if n < 0 {
			idx = loaded + n
		}
		if n == 0 || idx < 0 || idx >= loaded {
			return nil, fmt.Errorf("face reference %d out of range (%d positions loaded)", n, loaded)
		}
		refs = append(refs, uint32(idx))
	}
	return refs, nil
}

// fanTriangulate splits a convex polygon around its first corner.
func fanTriangulate(refs []uint32) []Face {
	faces := make([]Face, 0, len(refs)-2)
	for i := 1; i < len(refs)-1; i++ {
		faces = append(faces, Face{refs[0], refs[i], refs[i+1]})
	}
	return faces
}

// WriteOBJ writes positions and faces back out as a mesh description with 1-based references.
func WriteOBJ(w io.Writer, obj *OBJ) error {
	bw := bufio.NewWriter(w)

	for _, p := range obj.Positions {
		if _, err := fmt.Fprintf(bw, "%s %s %s %s\n", objVertexTag,
			formatOBJFloat(p.X), formatOBJFloat(p.Y), formatOBJFloat(p.Z)); err != nil {
			return err
		}
	}
	for _, f := range obj.Faces {
		bw.WriteString(objFaceTag)
		for _, ref := range f {
			bw.WriteByte(' ')
			bw.WriteString(strconv.FormatUint(uint64(ref)+1, 10))
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// formatOBJFloat prints the shortest text that parses back to the same float32.
func formatOBJFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}
