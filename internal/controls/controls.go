// Package controls models the viewer's rotation dials and scale slider. It keeps the
// widget values and pushes absolute rotation and scale to a Target on every change.
package controls

// Target receives absolute transform values.
type Target interface {
	SetRotation(x, y, z int)
	SetScale(factor float32)
}

// Axis selects a rotation dial.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Action is a discrete user command, independent of the input device.
type Action int

const (
	ActionNone Action = iota
	ActionRotateXPos
	ActionRotateXNeg
	ActionRotateYPos
	ActionRotateYNeg
	ActionRotateZPos
	ActionRotateZNeg
	ActionScaleUp
	ActionScaleDown
	ActionResetRotation
	ActionResetScale
	ActionCapture
	ActionQuit
)

// Slider range and step sizes.
const (
	DefaultScalePercent = 100
	MinScalePercent     = 1
	MaxScalePercent     = 500
	RotateStep          = 5
	ScaleStep           = 10
)

// Controls holds the dial and slider values.
type Controls struct {
	target Target
	angles [3]int
	scale  int
}

// New creates controls at zero rotation and 100% scale.
func New(target Target) *Controls {
	return &Controls{target: target, scale: DefaultScalePercent}
}

// Angles returns the dial values in degrees, each in [0, 360).
func (c *Controls) Angles() (x, y, z int) {
	return c.angles[0], c.angles[1], c.angles[2]
}

// ScalePercent returns the slider value.
func (c *Controls) ScalePercent() int {
	return c.scale
}

// SetAngle moves one dial. Values wrap into [0, 360).
func (c *Controls) SetAngle(axis Axis, deg int) {
	c.angles[axis] = wrap(deg)
	c.pushRotation()
}

// Rotate turns one dial by delta degrees.
func (c *Controls) Rotate(axis Axis, delta int) {
	c.SetAngle(axis, c.angles[axis]+delta)
}

// Drag rotates from a pointer drag: horizontal motion turns Y, vertical motion turns X.
func (c *Controls) Drag(dx, dy int) {
	if dx == 0 && dy == 0 {
		return
	}
	c.angles[AxisY] = wrap(c.angles[AxisY] + dx)
	c.angles[AxisX] = wrap(c.angles[AxisX] + dy)
	c.pushRotation()
}

// ResetRotation sets every dial to zero.
func (c *Controls) ResetRotation() {
	c.angles = [3]int{}
	c.pushRotation()
}

// SetScalePercent moves the slider, clamped to its range.
func (c *Controls) SetScalePercent(p int) {
	c.scale = min(max(p, MinScalePercent), MaxScalePercent)
	c.target.SetScale(float32(c.scale) / 100)
}

// ResetScale returns the slider to 100%.
func (c *Controls) ResetScale() {
	c.SetScalePercent(DefaultScalePercent)
}

// Apply performs a rotation or scale action and reports whether it was one.
func (c *Controls) Apply(a Action) bool {
	switch a {
	case ActionRotateXPos:
		c.Rotate(AxisX, RotateStep)
	case ActionRotateXNeg:
		c.Rotate(AxisX, -RotateStep)
	case ActionRotateYPos:
		c.Rotate(AxisY, RotateStep)
	case ActionRotateYNeg:
		c.Rotate(AxisY, -RotateStep)
	case ActionRotateZPos:
		c.Rotate(AxisZ, RotateStep)
	case ActionRotateZNeg:
		c.Rotate(AxisZ, -RotateStep)
	case ActionScaleUp:
		c.SetScalePercent(c.scale + ScaleStep)
	case ActionScaleDown:
		c.SetScalePercent(c.scale - ScaleStep)
	case ActionResetRotation:
		c.ResetRotation()
	case ActionResetScale:
		c.ResetScale()
	default:
		return false
	}
	return true
}

func (c *Controls) pushRotation() {
	c.target.SetRotation(c.angles[0], c.angles[1], c.angles[2])
}

func wrap(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}
