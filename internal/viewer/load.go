package viewer

import (
	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/pkg/formats"
	"github.com/Faultbox/meshview/pkg/math"
	"github.com/Faultbox/meshview/pkg/mesh"
)

// LoadMesh reads and indexes the mesh named by source, either a builtin name or an OBJ
// file path. Builtin meshes also return their corner palette.
func LoadMesh(source string, cfg config.MeshConfig) (*mesh.Indexed, map[math.Vec3]mesh.Color, error) {
	opts := mesh.Options{MergeEpsilon: cfg.MergeEpsilon}

	if mesh.IsBuiltin(source) {
		b, err := mesh.LoadBuiltin(source)
		if err != nil {
			return nil, nil, err
		}
		m, err := mesh.Index(b.OBJ, opts)
		if err != nil {
			return nil, nil, err
		}
		return m, b.Palette, nil
	}

	obj, err := formats.ParseOBJFile(source, formats.OBJOptions{Triangulate: cfg.Triangulate})
	if err != nil {
		return nil, nil, err
	}
	m, err := mesh.Index(obj, opts)
	if err != nil {
		return nil, nil, err
	}
	return m, nil, nil
}
