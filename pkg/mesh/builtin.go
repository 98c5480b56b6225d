package mesh

import (
	"fmt"
	"strings"

	"github.com/Faultbox/meshview/pkg/formats"
	"github.com/Faultbox/meshview/pkg/math"
)

// BuiltinPrefix marks a mesh source that is generated instead of read from disk.
const BuiltinPrefix = "builtin:"

// Builtin is a generated mesh with its own corner palette.
type Builtin struct {
	OBJ     *formats.OBJ
	Palette map[math.Vec3]Color
}

var builtins = map[string]func() Builtin{
	"pyramid": Pyramid,
}

// IsBuiltin reports whether source names a generated mesh.
func IsBuiltin(source string) bool {
	return strings.HasPrefix(source, BuiltinPrefix)
}

// LoadBuiltin returns the generated mesh named by source ("builtin:<name>").
func LoadBuiltin(source string) (Builtin, error) {
	name := strings.TrimPrefix(source, BuiltinPrefix)
	gen, ok := builtins[name]
	if !ok {
		return Builtin{}, fmt.Errorf("unknown builtin mesh %q", name)
	}
	return gen(), nil
}

// Pyramid returns a square-based pyramid with its apex pointing down -Z.
func Pyramid() Builtin {
	var (
		a = math.Vec3{X: -1, Y: 1, Z: 1}
		b = math.Vec3{X: 1, Y: 1, Z: 1}
		c = math.Vec3{X: 0, Y: 0, Z: -1}
		d = math.Vec3{X: 1, Y: -1, Z: 1}
		e = math.Vec3{X: -1, Y: -1, Z: 1}
	)

	return Builtin{
		OBJ: &formats.OBJ{
			Positions: []math.Vec3{a, b, c, d, e},
			Faces: []formats.Face{
				{0, 4, 3}, {1, 0, 3}, // base
				{3, 2, 1}, {1, 2, 0}, {0, 2, 4}, {4, 2, 3},
			},
		},
		Palette: map[math.Vec3]Color{
			a: {1, 0, 0},
			b: {0, 1, 0},
			c: {1, 0, 1},
			d: {1, 1, 0},
			e: {0, 0, 1},
		},
	}
}
