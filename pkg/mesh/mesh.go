// Package mesh turns parsed mesh descriptions into deduplicated, drawable geometry.
//
// The canonical form is Indexed: unique positions in first-seen order plus one index per
// triangle corner. The flat (one record per corner) and colored-unique views are both
// derived from it on demand.
package mesh

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Faultbox/meshview/pkg/formats"
	"github.com/Faultbox/meshview/pkg/math"
)

// Color is an RGB color in [0,1].
type Color [3]float32

// Vertex is one GPU vertex record: position then color, tightly packed.
type Vertex struct {
	Position math.Vec3
	Color    Color
}

// Vertex record layout in bytes.
const (
	VertexStride   = 6 * 4
	PositionOffset = 0
	ColorOffset    = 3 * 4
)

// Options controls vertex merging.
type Options struct {
	// MergeEpsilon snaps positions to a grid of this size before lookup.
	// Zero merges only exactly equal positions.
	MergeEpsilon float32
}

// Indexed is a mesh as unique vertices plus a triangle index list.
type Indexed struct {
	Vertices []math.Vec3
	Indices  []uint32
}

// Index resolves every face of src against its position list and deduplicates the
// resulting corners. A face that is not a triangle or references a missing position
// fails with formats.ErrMalformedInput; no partial mesh is returned.
func Index(src *formats.OBJ, opts Options) (*Indexed, error) {
	corners := make([]math.Vec3, 0, len(src.Faces)*3)
	for i, face := range src.Faces {
		if len(face) != 3 {
			return nil, fmt.Errorf("%w: face %d has %d references", formats.ErrMalformedInput, i, len(face))
		}
		for _, ref := range face {
			if int(ref) >= len(src.Positions) {
				return nil, fmt.Errorf("%w: face %d references position %d of %d",
					formats.ErrMalformedInput, i, ref, len(src.Positions))
			}
			corners = append(corners, src.Positions[ref])
		}
	}
	return IndexCorners(corners, opts), nil
}

// IndexCorners deduplicates a flat corner list (three per triangle). The first occurrence
// of a position fixes its index; later equal positions reuse it.
func IndexCorners(corners []math.Vec3, opts Options) *Indexed {
	m := &Indexed{
		Indices: make([]uint32, 0, len(corners)),
	}

	if opts.MergeEpsilon > 0 {
		seen := make(map[[3]int64]uint32)
		for _, p := range corners {
			addIndexed(m, seen, snapKey(p, opts.MergeEpsilon), p)
		}
		return m
	}

	seen := make(map[math.Vec3]uint32)
	for _, p := range corners {
		addIndexed(m, seen, p, p)
	}
	return m
}

func addIndexed[K comparable](m *Indexed, seen map[K]uint32, key K, p math.Vec3) {
	if idx, ok := seen[key]; ok {
		m.Indices = append(m.Indices, idx)
		return
	}
	idx := uint32(len(m.Vertices))
	seen[key] = idx
	m.Vertices = append(m.Vertices, p)
	m.Indices = append(m.Indices, idx)
}

// snapKey quantizes a position to the epsilon grid.
func snapKey(p math.Vec3, eps float32) [3]int64 {
	return [3]int64{
		int64(math32.Round(p.X / eps)),
		int64(math32.Round(p.Y / eps)),
		int64(math32.Round(p.Z / eps)),
	}
}

// TriangleCount returns the number of triangles.
func (m *Indexed) TriangleCount() int {
	return len(m.Indices) / 3
}

// Corners expands the index list back to one position per triangle corner.
func (m *Indexed) Corners() []math.Vec3 {
	out := make([]math.Vec3, len(m.Indices))
	for i, idx := range m.Indices {
		out[i] = m.Vertices[idx]
	}
	return out
}

// Flatten returns one colored vertex per triangle corner, ready for unindexed drawing.
func (m *Indexed) Flatten(color ColorFunc) []Vertex {
	out := make([]Vertex, len(m.Indices))
	for i, idx := range m.Indices {
		p := m.Vertices[idx]
		out[i] = Vertex{Position: p, Color: color(p)}
	}
	return out
}

// Colored returns the unique vertices with colors applied, for drawing with Indices.
func (m *Indexed) Colored(color ColorFunc) []Vertex {
	out := make([]Vertex, len(m.Vertices))
	for i, p := range m.Vertices {
		out[i] = Vertex{Position: p, Color: color(p)}
	}
	return out
}

// Bounds returns the axis-aligned bounding box. An empty mesh returns zero vectors.
func (m *Indexed) Bounds() (min, max math.Vec3) {
	if len(m.Vertices) == 0 {
		return math.Vec3{}, math.Vec3{}
	}
	min, max = m.Vertices[0], m.Vertices[0]
	for _, p := range m.Vertices[1:] {
		min = min.Min(p)
		max = max.Max(p)
	}
	return min, max
}

// OBJ converts the mesh back to a mesh description with one face per triangle.
func (m *Indexed) OBJ() *formats.OBJ {
	obj := &formats.OBJ{
		Positions: append([]math.Vec3(nil), m.Vertices...),
		Faces:     make([]formats.Face, 0, m.TriangleCount()),
	}
	for i := 0; i+2 < len(m.Indices); i += 3 {
		obj.Faces = append(obj.Faces, formats.Face{m.Indices[i], m.Indices[i+1], m.Indices[i+2]})
	}
	return obj
}
