package transform

import "github.com/Faultbox/meshview/pkg/math"

// Projection is a perspective projection whose aspect ratio follows the viewport.
type Projection struct {
	FovY   float32 // degrees
	Aspect float32
	Near   float32
	Far    float32
}

// NewProjection creates a projection for a width x height viewport.
func NewProjection(fovY, near, far float32, width, height int) Projection {
	p := Projection{FovY: fovY, Aspect: 1, Near: near, Far: far}
	p.Resize(width, height)
	return p
}

// Resize updates the aspect ratio. A zero or negative size keeps the previous aspect,
// which is what a minimized window reports.
func (p *Projection) Resize(width, height int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	aspect := float32(width) / float32(height)
	if aspect == p.Aspect {
		return false
	}
	p.Aspect = aspect
	return true
}

// Matrix returns the projection matrix.
func (p Projection) Matrix() math.Mat4 {
	return math.Perspective(math.Radians(p.FovY), p.Aspect, p.Near, p.Far)
}
