// Package shaders provides embedded GLSL shader sources.
package shaders

import _ "embed"

// MeshVertexShader transforms positions by the model and projection matrices and passes
// the vertex color through.
//
//go:embed mesh.vert
var MeshVertexShader string

// MeshFragmentShader writes the interpolated vertex color.
//
//go:embed mesh.frag
var MeshFragmentShader string

// Uniform names used by the mesh program.
const (
	ModelTransform      = "modelTransform"
	ProjectionTransform = "projectionTransform"
)
