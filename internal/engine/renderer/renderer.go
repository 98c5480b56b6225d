// Package renderer draws mesh instances through a single shader program.
package renderer

import (
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/capture"
	"github.com/Faultbox/meshview/internal/engine/buffers"
	"github.com/Faultbox/meshview/internal/engine/gpu"
	"github.com/Faultbox/meshview/internal/engine/renderer/shaders"
	"github.com/Faultbox/meshview/internal/engine/transform"
	"github.com/Faultbox/meshview/internal/logger"
)

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
	FovY   float32 // degrees
	Near   float32
	Far    float32
}

// State is the renderer lifecycle stage.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateRendering
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateRendering:
		return "rendering"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Instance is one drawn copy of a mesh. Its model matrix is slot Slot of Group.
type Instance struct {
	Name  string
	Mesh  *buffers.Handle
	Group *transform.Group
	Slot  int
}

// Renderer owns the shader program and the projection and draws registered instances.
type Renderer struct {
	config  Config
	dev     gpu.Device
	buffers *buffers.Manager
	state   State

	program   *gpu.Program
	modelLoc  int32
	projLoc   int32
	proj      transform.Projection
	instances []*Instance
}

// New creates an uninitialized renderer that draws meshes owned by mgr.
func New(dev gpu.Device, mgr *buffers.Manager, cfg Config) *Renderer {
	return &Renderer{
		config:  cfg,
		dev:     dev,
		buffers: mgr,
		proj:    transform.NewProjection(cfg.FovY, cfg.Near, cfg.Far, cfg.Width, cfg.Height),
	}
}

// Init links the shader program and sets the viewport.
// IMPORTANT: Must be called AFTER the OpenGL context is created!
func (r *Renderer) Init() error {
	if r.state != StateUninitialized {
		return fmt.Errorf("%w: init in state %s", gpu.ErrInvalidState, r.state)
	}

	program, err := r.dev.CreateProgram(shaders.MeshVertexShader, shaders.MeshFragmentShader,
		shaders.ModelTransform, shaders.ProjectionTransform)
	if err != nil {
		return fmt.Errorf("creating mesh program: %w", err)
	}
	r.program = program
	r.modelLoc = program.Uniform(shaders.ModelTransform)
	r.projLoc = program.Uniform(shaders.ProjectionTransform)

	if r.config.Width > 0 && r.config.Height > 0 {
		r.dev.SetViewport(r.config.Width, r.config.Height)
	}
	r.state = StateInitialized

	logger.Debug("renderer initialized",
		zap.Uint32("program", program.ID),
		zap.Int("width", r.config.Width),
		zap.Int("height", r.config.Height),
	)
	return nil
}

// State returns the lifecycle stage.
func (r *Renderer) State() State { return r.state }

// AddInstance registers an instance to draw every frame. Instances draw in
// registration order.
func (r *Renderer) AddInstance(inst *Instance) error {
	if r.state == StateDisposed {
		return fmt.Errorf("%w: add instance %q", gpu.ErrDisposed, inst.Name)
	}
	r.instances = append(r.instances, inst)
	return nil
}

// RemoveInstance stops drawing the named instance.
func (r *Renderer) RemoveInstance(name string) bool {
	for i, inst := range r.instances {
		if inst.Name == name {
			r.instances = append(r.instances[:i], r.instances[i+1:]...)
			return true
		}
	}
	return false
}

// Instances returns the registered instances.
func (r *Renderer) Instances() []*Instance {
	return r.instances
}

// Resize updates the viewport and the projection aspect ratio. Mesh buffers are not
// touched. A zero-sized viewport (minimized window) is ignored.
func (r *Renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		logger.Debug("ignoring empty viewport", zap.Int("width", width), zap.Int("height", height))
		return
	}
	r.config.Width = width
	r.config.Height = height
	r.proj.Resize(width, height)
	if r.state == StateInitialized || r.state == StateRendering {
		r.dev.SetViewport(width, height)
	}
	logger.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Float32("aspect", r.proj.Aspect),
	)
}

// Size returns the viewport size.
func (r *Renderer) Size() (int, int) {
	return r.config.Width, r.config.Height
}

// Projection returns the current projection.
func (r *Renderer) Projection() transform.Projection {
	return r.proj
}

// Paint renders one frame into the bound framebuffer. A device error reported after
// the draws is returned and the frame should be treated as skipped.
func (r *Renderer) Paint() error {
	switch r.state {
	case StateInitialized, StateRendering:
	case StateDisposed:
		return fmt.Errorf("%w: paint", gpu.ErrDisposed)
	default:
		return fmt.Errorf("%w: paint in state %s", gpu.ErrInvalidState, r.state)
	}
	r.state = StateRendering

	r.dev.Clear()
	r.dev.UseProgram(r.program)
	projection := r.proj.Matrix()

	for _, inst := range r.instances {
		if inst.Mesh.Released() {
			continue
		}
		model := inst.Group.Model(inst.Slot)
		r.dev.SetUniformMat4(r.modelLoc, &model)
		r.dev.SetUniformMat4(r.projLoc, &projection)
		if err := r.buffers.Draw(inst.Mesh); err != nil {
			r.dev.UseProgram(nil)
			return fmt.Errorf("drawing %s: %w", inst.Name, err)
		}
	}
	r.dev.UseProgram(nil)

	if err := r.dev.Err(); err != nil {
		return fmt.Errorf("frame skipped: %w", err)
	}
	return nil
}

// Capture renders the current frame offscreen at viewport size and reads it back.
func (r *Renderer) Capture() (*image.RGBA, error) {
	if r.state == StateDisposed {
		return nil, fmt.Errorf("%w: capture", gpu.ErrDisposed)
	}

	target, err := r.dev.CreateRenderTarget(r.config.Width, r.config.Height)
	if err != nil {
		return nil, fmt.Errorf("creating capture target: %w", err)
	}
	defer target.Destroy()

	restore := target.Bind()
	err = r.Paint()
	pixels := target.ReadPixels()
	restore()
	if err != nil {
		return nil, err
	}

	w, h := target.Size()
	return capture.FromPixels(pixels, w, h)
}

// Close releases the program and every mesh buffer. The renderer cannot be used again.
func (r *Renderer) Close() {
	if r.state == StateDisposed {
		return
	}
	logger.Info("closing renderer")
	if r.program != nil {
		r.dev.DeleteProgram(r.program)
		r.program = nil
	}
	r.buffers.Teardown()
	r.instances = nil
	r.state = StateDisposed
}
