package mesh

import (
	"github.com/fogleman/simplify"

	"github.com/Faultbox/meshview/pkg/math"
)

// Simplify decimates the mesh to roughly factor of its triangles using quadric error
// collapse, then re-indexes the result with opts.
func Simplify(m *Indexed, factor float64, opts Options) *Indexed {
	triangles := make([]*simplify.Triangle, 0, m.TriangleCount())
	for i := 0; i+2 < len(m.Indices); i += 3 {
		triangles = append(triangles, simplify.NewTriangle(
			toSimplify(m.Vertices[m.Indices[i]]),
			toSimplify(m.Vertices[m.Indices[i+1]]),
			toSimplify(m.Vertices[m.Indices[i+2]]),
		))
	}

	reduced := simplify.NewMesh(triangles).Simplify(factor)

	corners := make([]math.Vec3, 0, len(reduced.Triangles)*3)
	for _, t := range reduced.Triangles {
		corners = append(corners, fromSimplify(t.V1), fromSimplify(t.V2), fromSimplify(t.V3))
	}
	return IndexCorners(corners, opts)
}

func toSimplify(p math.Vec3) simplify.Vector {
	return simplify.Vector{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)}
}

func fromSimplify(v simplify.Vector) math.Vec3 {
	return math.Vec3{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}
