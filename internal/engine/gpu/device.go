// Package gpu defines the narrow set of GPU operations the viewer needs.
// All calls must happen on the thread that owns the GL context.
package gpu

import (
	"errors"
	"fmt"

	"github.com/Faultbox/meshview/pkg/math"
	"github.com/Faultbox/meshview/pkg/mesh"
)

// GPU errors. ErrDisposed is an ErrInvalidState.
var (
	ErrGPUResource  = errors.New("gpu resource error")
	ErrInvalidState = errors.New("invalid state")
	ErrDisposed     = fmt.Errorf("%w: used after dispose", ErrInvalidState)
)

// MeshObjects are the GL names backing one mesh slot. EBO is zero for unindexed meshes.
type MeshObjects struct {
	VAO uint32
	VBO uint32
	EBO uint32
}

// Program is a linked shader program with uniform locations resolved at link time.
type Program struct {
	ID       uint32
	Uniforms map[string]int32
}

// Uniform returns the location resolved at link time, or -1.
func (p *Program) Uniform(name string) int32 {
	if loc, ok := p.Uniforms[name]; ok {
		return loc
	}
	return -1
}

// RenderTarget is an offscreen color+depth surface.
type RenderTarget interface {
	// Bind makes the target current and returns a func restoring the previous binding.
	Bind() (restore func())
	// ReadPixels returns RGBA rows bottom-up.
	ReadPixels() []byte
	Size() (width, height int)
	Destroy()
}

// Device is the GPU surface used by the buffer manager and the render pipeline.
type Device interface {
	CreateMeshObjects(indexed bool) (MeshObjects, error)
	// UploadMesh replaces the buffer contents of obj and (re)declares the vertex layout.
	// indices is ignored when obj has no EBO.
	UploadMesh(obj MeshObjects, vertices []mesh.Vertex, indices []uint32)
	DeleteMeshObjects(obj MeshObjects)

	CreateProgram(vertexSrc, fragmentSrc string, uniforms ...string) (*Program, error)
	DeleteProgram(p *Program)
	UseProgram(p *Program)
	SetUniformMat4(loc int32, m *math.Mat4)

	Clear()
	SetViewport(width, height int)
	DrawArrays(obj MeshObjects, count int32)
	DrawElements(obj MeshObjects, count int32)

	CreateRenderTarget(width, height int) (RenderTarget, error)

	// Err reports a pending device error (lost context, out of memory), or nil.
	Err() error
}
