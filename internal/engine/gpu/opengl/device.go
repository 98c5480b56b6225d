// Package opengl implements gpu.Device on an OpenGL 4.1 core context.
package opengl

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/engine/framebuffer"
	"github.com/Faultbox/meshview/internal/engine/gpu"
	"github.com/Faultbox/meshview/internal/engine/shader"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/pkg/math"
	"github.com/Faultbox/meshview/pkg/mesh"
)

// Config holds fixed pipeline state applied at initialization.
type Config struct {
	ClearColor [4]float32
	CullFaces  bool
}

// Device issues GL calls on the current context.
type Device struct {
	config Config
}

var _ gpu.Device = (*Device)(nil)

// New loads GL entry points and sets up depth testing, culling and the clear color.
// IMPORTANT: Must be called AFTER the OpenGL context is created and made current!
func New(cfg Config) (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("%w: initializing OpenGL: %v", gpu.ErrGPUResource, err)
	}

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	if cfg.CullFaces {
		gl.Enable(gl.CULL_FACE)
	}
	c := cfg.ClearColor
	gl.ClearColor(c[0], c[1], c[2], c[3])

	return &Device{config: cfg}, nil
}

// CreateMeshObjects generates a VAO and VBO, plus an EBO when indexed.
func (d *Device) CreateMeshObjects(indexed bool) (gpu.MeshObjects, error) {
	var obj gpu.MeshObjects
	gl.GenVertexArrays(1, &obj.VAO)
	gl.GenBuffers(1, &obj.VBO)
	if indexed {
		gl.GenBuffers(1, &obj.EBO)
	}

	if obj.VAO == 0 || obj.VBO == 0 || (indexed && obj.EBO == 0) {
		d.DeleteMeshObjects(obj)
		return gpu.MeshObjects{}, fmt.Errorf("%w: generating vertex array/buffer objects", gpu.ErrGPUResource)
	}
	return obj, nil
}

// UploadMesh fills the buffers of obj and declares attribute 0 (position) and 1 (color).
func (d *Device) UploadMesh(obj gpu.MeshObjects, vertices []mesh.Vertex, indices []uint32) {
	gl.BindVertexArray(obj.VAO)

	gl.BindBuffer(gl.ARRAY_BUFFER, obj.VBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*mesh.VertexStride, slicePtr(vertices), gl.STATIC_DRAW)

	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, mesh.VertexStride, gl.PtrOffset(mesh.PositionOffset))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, mesh.VertexStride, gl.PtrOffset(mesh.ColorOffset))
	gl.EnableVertexAttribArray(1)

	if obj.EBO != 0 {
		// The element buffer binding is VAO state, so it stays bound until the VAO is unbound.
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, obj.EBO)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, slicePtr(indices), gl.STATIC_DRAW)
	}

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

// DeleteMeshObjects releases every non-zero name in obj.
func (d *Device) DeleteMeshObjects(obj gpu.MeshObjects) {
	if obj.VAO != 0 {
		gl.DeleteVertexArrays(1, &obj.VAO)
	}
	if obj.VBO != 0 {
		gl.DeleteBuffers(1, &obj.VBO)
	}
	if obj.EBO != 0 {
		gl.DeleteBuffers(1, &obj.EBO)
	}
}

// CreateProgram compiles and links a program and resolves the named uniforms.
func (d *Device) CreateProgram(vertexSrc, fragmentSrc string, uniforms ...string) (*gpu.Program, error) {
	id, locations, err := shader.Link(vertexSrc, fragmentSrc, uniforms...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gpu.ErrGPUResource, err)
	}
	logger.Debug("shader program created", zap.Uint32("program", id))
	return &gpu.Program{ID: id, Uniforms: locations}, nil
}

// DeleteProgram releases p.
func (d *Device) DeleteProgram(p *gpu.Program) {
	if p != nil && p.ID != 0 {
		gl.DeleteProgram(p.ID)
	}
}

// UseProgram binds p, or unbinds when p is nil.
func (d *Device) UseProgram(p *gpu.Program) {
	if p == nil {
		gl.UseProgram(0)
		return
	}
	gl.UseProgram(p.ID)
}

// SetUniformMat4 uploads m to loc of the bound program.
func (d *Device) SetUniformMat4(loc int32, m *math.Mat4) {
	gl.UniformMatrix4fv(loc, 1, false, m.Ptr())
}

// Clear clears the color and depth buffers.
func (d *Device) Clear() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// SetViewport sets the viewport to the full drawable.
func (d *Device) SetViewport(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

// DrawArrays draws count unindexed vertices of obj as triangles.
func (d *Device) DrawArrays(obj gpu.MeshObjects, count int32) {
	gl.BindVertexArray(obj.VAO)
	gl.DrawArrays(gl.TRIANGLES, 0, count)
	gl.BindVertexArray(0)
}

// DrawElements draws count indices of obj as triangles.
func (d *Device) DrawElements(obj gpu.MeshObjects, count int32) {
	gl.BindVertexArray(obj.VAO)
	gl.DrawElements(gl.TRIANGLES, count, gl.UNSIGNED_INT, gl.PtrOffset(0))
	gl.BindVertexArray(0)
}

// CreateRenderTarget allocates an offscreen framebuffer.
func (d *Device) CreateRenderTarget(width, height int) (gpu.RenderTarget, error) {
	fb, err := framebuffer.New(width, height)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gpu.ErrGPUResource, err)
	}
	return fb, nil
}

// Err drains the GL error queue and reports the first error, if any.
func (d *Device) Err() error {
	first := gl.GetError()
	if first == gl.NO_ERROR {
		return nil
	}
	// A lost context keeps reporting errors, so the drain is bounded.
	for i := 0; i < 16; i++ {
		e := gl.GetError()
		if e == gl.NO_ERROR {
			break
		}
		logger.Debug("additional GL error", zap.Uint32("code", e))
	}
	return fmt.Errorf("%w: GL error 0x%x", gpu.ErrGPUResource, first)
}

func slicePtr[T any](s []T) unsafe.Pointer {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Pointer(&s[0])
}
