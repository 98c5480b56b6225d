package mesh

import (
	"fmt"

	"github.com/Faultbox/meshview/pkg/math"
)

// ColorFunc derives a vertex color from its position. Colors are not stored on the
// indexed mesh; they are applied when a drawable view is built.
type ColorFunc func(p math.Vec3) Color

// AbsColor colors a vertex by the absolute value of its coordinates.
func AbsColor(p math.Vec3) Color {
	a := p.Abs()
	return Color{a.X, a.Y, a.Z}
}

// SolidColor colors every vertex the same.
func SolidColor(c Color) ColorFunc {
	return func(math.Vec3) Color {
		return c
	}
}

// PaletteColor looks colors up by exact position and falls back for unknown positions.
func PaletteColor(palette map[math.Vec3]Color, fallback ColorFunc) ColorFunc {
	return func(p math.Vec3) Color {
		if c, ok := palette[p]; ok {
			return c
		}
		return fallback(p)
	}
}

// Color policy names accepted by ColorByName.
const (
	ColorAbs     = "abs"
	ColorSolid   = "solid"
	ColorPalette = "palette"
)

// ColorByName resolves a color policy name. The palette policy uses palette when
// non-nil and falls back to AbsColor for positions it does not cover.
func ColorByName(name string, solid Color, palette map[math.Vec3]Color) (ColorFunc, error) {
	switch name {
	case "", ColorAbs:
		return AbsColor, nil
	case ColorSolid:
		return SolidColor(solid), nil
	case ColorPalette:
		return PaletteColor(palette, AbsColor), nil
	default:
		return nil, fmt.Errorf("unknown color policy %q", name)
	}
}
