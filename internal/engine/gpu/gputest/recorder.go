// Package gputest provides a recording gpu.Device for tests that run without a GL context.
package gputest

import (
	"fmt"

	"github.com/Faultbox/meshview/internal/engine/gpu"
	"github.com/Faultbox/meshview/pkg/math"
	"github.com/Faultbox/meshview/pkg/mesh"
)

// Upload is one recorded UploadMesh call.
type Upload struct {
	Objects  gpu.MeshObjects
	Vertices []mesh.Vertex
	Indices  []uint32
}

// Draw is one recorded draw call with the uniforms that were bound at the time.
type Draw struct {
	Objects  gpu.MeshObjects
	Count    int32
	Indexed  bool
	Program  uint32
	Uniforms map[int32]math.Mat4
}

// Recorder implements gpu.Device in memory. Fail* fields inject errors.
type Recorder struct {
	FailMeshObjects  bool
	FailProgram      bool
	FailRenderTarget bool
	PendingErr       error

	// Pixel is the RGBA value every render target reads back.
	Pixel [4]byte

	Uploads   []Upload
	Draws     []Draw
	Clears    int
	Viewports [][2]int

	nextName uint32
	live     map[uint32]bool
	program  *gpu.Program
	uniforms map[int32]math.Mat4
}

var _ gpu.Device = (*Recorder)(nil)

// New returns an empty recorder.
func New() *Recorder {
	return &Recorder{
		live:     make(map[uint32]bool),
		uniforms: make(map[int32]math.Mat4),
	}
}

func (r *Recorder) name() uint32 {
	r.nextName++
	r.live[r.nextName] = true
	return r.nextName
}

// CreateMeshObjects allocates fresh names.
func (r *Recorder) CreateMeshObjects(indexed bool) (gpu.MeshObjects, error) {
	if r.FailMeshObjects {
		return gpu.MeshObjects{}, fmt.Errorf("%w: injected failure", gpu.ErrGPUResource)
	}
	obj := gpu.MeshObjects{VAO: r.name(), VBO: r.name()}
	if indexed {
		obj.EBO = r.name()
	}
	return obj, nil
}

// UploadMesh records a copy of the uploaded data.
func (r *Recorder) UploadMesh(obj gpu.MeshObjects, vertices []mesh.Vertex, indices []uint32) {
	u := Upload{
		Objects:  obj,
		Vertices: append([]mesh.Vertex(nil), vertices...),
	}
	if obj.EBO != 0 {
		u.Indices = append([]uint32(nil), indices...)
	}
	r.Uploads = append(r.Uploads, u)
}

// DeleteMeshObjects frees the names in obj.
func (r *Recorder) DeleteMeshObjects(obj gpu.MeshObjects) {
	for _, n := range []uint32{obj.VAO, obj.VBO, obj.EBO} {
		delete(r.live, n)
	}
}

// CreateProgram returns a program with sequential uniform locations.
func (r *Recorder) CreateProgram(_, _ string, uniforms ...string) (*gpu.Program, error) {
	if r.FailProgram {
		return nil, fmt.Errorf("%w: injected link failure", gpu.ErrGPUResource)
	}
	p := &gpu.Program{ID: r.name(), Uniforms: make(map[string]int32, len(uniforms))}
	for i, u := range uniforms {
		p.Uniforms[u] = int32(i)
	}
	return p, nil
}

// DeleteProgram frees p.
func (r *Recorder) DeleteProgram(p *gpu.Program) {
	if p != nil {
		delete(r.live, p.ID)
	}
}

// UseProgram records the bound program.
func (r *Recorder) UseProgram(p *gpu.Program) {
	r.program = p
}

// SetUniformMat4 records the uniform value.
func (r *Recorder) SetUniformMat4(loc int32, m *math.Mat4) {
	r.uniforms[loc] = *m
}

// Clear counts clears.
func (r *Recorder) Clear() {
	r.Clears++
}

// SetViewport records the viewport.
func (r *Recorder) SetViewport(width, height int) {
	r.Viewports = append(r.Viewports, [2]int{width, height})
}

// DrawArrays records an unindexed draw.
func (r *Recorder) DrawArrays(obj gpu.MeshObjects, count int32) {
	r.draw(obj, count, false)
}

// DrawElements records an indexed draw.
func (r *Recorder) DrawElements(obj gpu.MeshObjects, count int32) {
	r.draw(obj, count, true)
}

func (r *Recorder) draw(obj gpu.MeshObjects, count int32, indexed bool) {
	d := Draw{Objects: obj, Count: count, Indexed: indexed, Uniforms: make(map[int32]math.Mat4, len(r.uniforms))}
	if r.program != nil {
		d.Program = r.program.ID
	}
	for k, v := range r.uniforms {
		d.Uniforms[k] = v
	}
	r.Draws = append(r.Draws, d)
}

// CreateRenderTarget returns an in-memory target filled with Pixel.
func (r *Recorder) CreateRenderTarget(width, height int) (gpu.RenderTarget, error) {
	if r.FailRenderTarget {
		return nil, fmt.Errorf("%w: injected framebuffer failure", gpu.ErrGPUResource)
	}
	return &Target{rec: r, name: r.name(), width: width, height: height}, nil
}

// Err returns and clears PendingErr.
func (r *Recorder) Err() error {
	err := r.PendingErr
	r.PendingErr = nil
	return err
}

// Live reports how many GL names are currently allocated.
func (r *Recorder) Live() int {
	return len(r.live)
}

// IsLive reports whether a name is allocated.
func (r *Recorder) IsLive(name uint32) bool {
	return r.live[name]
}

// Reset forgets recorded calls but keeps allocations.
func (r *Recorder) Reset() {
	r.Uploads = nil
	r.Draws = nil
	r.Clears = 0
	r.Viewports = nil
}

// Target is the in-memory render target.
type Target struct {
	rec           *Recorder
	name          uint32
	width, height int
	Bound         bool
}

// Bind marks the target bound.
func (t *Target) Bind() func() {
	t.Bound = true
	return func() { t.Bound = false }
}

// ReadPixels returns width*height copies of the recorder's Pixel.
func (t *Target) ReadPixels() []byte {
	out := make([]byte, 0, t.width*t.height*4)
	for i := 0; i < t.width*t.height; i++ {
		out = append(out, t.rec.Pixel[:]...)
	}
	return out
}

// Size returns the target size.
func (t *Target) Size() (int, int) {
	return t.width, t.height
}

// Destroy frees the target.
func (t *Target) Destroy() {
	delete(t.rec.live, t.name)
}
