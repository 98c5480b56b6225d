// Package transform holds the user-controlled rotation and scale of a group of mesh
// instances and derives their model matrices.
package transform

import (
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/pkg/math"
)

// State is the user-controlled part of a model transform. Angles are in degrees.
type State struct {
	X, Y, Z int
	Scale   float32
}

// DefaultState is no rotation at unit scale.
func DefaultState() State {
	return State{Scale: 1}
}

// ModelMatrix composes T(translation) * Rx * Ry * Rz * S(scale). Points are scaled
// first, then rotated about Z, Y and X, then moved into place.
func ModelMatrix(translation math.Vec3, s State) math.Mat4 {
	return math.Translate(translation.X, translation.Y, translation.Z).
		Mul(math.RotateXDegrees(float32(s.X))).
		Mul(math.RotateYDegrees(float32(s.Y))).
		Mul(math.RotateZDegrees(float32(s.Z))).
		Mul(math.Scale(s.Scale, s.Scale, s.Scale))
}

// Group applies one State to several instances, each with its own base translation.
// Matrices are always recomputed from the base translation, never accumulated.
type Group struct {
	name    string
	state   State
	offsets []math.Vec3
	models  []math.Mat4
	version uint64
}

// NewGroup creates an empty group in the default state.
func NewGroup(name string) *Group {
	return &Group{name: name, state: DefaultState()}
}

// Name returns the group name.
func (g *Group) Name() string { return g.name }

// AddInstance registers an instance at translation and returns its slot.
func (g *Group) AddInstance(translation math.Vec3) int {
	g.offsets = append(g.offsets, translation)
	g.models = append(g.models, ModelMatrix(translation, g.state))
	return len(g.offsets) - 1
}

// Len returns the number of instances.
func (g *Group) Len() int { return len(g.offsets) }

// State returns the current state.
func (g *Group) State() State { return g.state }

// SetRotation sets the absolute rotation of every instance. Repeating a call is a no-op.
func (g *Group) SetRotation(x, y, z int) {
	s := g.state
	s.X, s.Y, s.Z = x, y, z
	g.apply(s)
}

// SetScale sets the absolute uniform scale of every instance. Non-positive scales are
// applied as given and logged, since they collapse or mirror the mesh.
func (g *Group) SetScale(scale float32) {
	if scale <= 0 {
		logger.Warn("non-positive scale applied",
			zap.String("group", g.name),
			zap.Float32("scale", scale),
		)
	}
	s := g.state
	s.Scale = scale
	g.apply(s)
}

// Reset returns to the default state.
func (g *Group) Reset() {
	g.apply(DefaultState())
}

// Model returns the model matrix of instance i.
func (g *Group) Model(i int) math.Mat4 {
	return g.models[i]
}

// Version increases on every state change.
func (g *Group) Version() uint64 { return g.version }

func (g *Group) apply(s State) {
	if s == g.state {
		return
	}
	g.state = s
	for i, t := range g.offsets {
		g.models[i] = ModelMatrix(t, s)
	}
	g.version++
}
