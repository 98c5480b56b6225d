// Package viewer is the entry point for UI collaborators: it builds the scene from
// config and exposes rotation, scale, resize and frame capture.
//
// A View must only be used from the thread that owns the GPU context.
package viewer

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/capture"
	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/engine/buffers"
	"github.com/Faultbox/meshview/internal/engine/gpu"
	"github.com/Faultbox/meshview/internal/engine/renderer"
	"github.com/Faultbox/meshview/internal/engine/transform"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/pkg/math"
	"github.com/Faultbox/meshview/pkg/mesh"
)

type instance struct {
	cfg      config.InstanceConfig
	mode     buffers.DrawMode
	handle   *buffers.Handle
	attached bool
}

// View owns the render pipeline, the transform groups and the mesh instances.
type View struct {
	cfg      *config.Config
	buffers  *buffers.Manager
	renderer *renderer.Renderer
	writer   *capture.Writer
	watcher  *Watcher

	state     transform.State
	groups    map[string]*transform.Group
	instances []*instance
	failed    map[string]error
	dirty     bool
}

// New links the pipeline and loads every configured instance. Mesh errors only drop the
// affected instance; GPU errors are fatal.
func New(dev gpu.Device, cfg *config.Config) (*View, error) {
	mgr := buffers.NewManager(dev)
	r := renderer.New(dev, mgr, renderer.Config{
		Width:  cfg.Window.Width,
		Height: cfg.Window.Height,
		FovY:   cfg.View.FovY,
		Near:   cfg.View.Near,
		Far:    cfg.View.Far,
	})
	if err := r.Init(); err != nil {
		return nil, err
	}

	v := &View{
		cfg:      cfg,
		buffers:  mgr,
		renderer: r,
		writer:   capture.NewWriter(capture.Config{Path: cfg.Capture.Path, Scale: cfg.Capture.Scale}),
		groups:   make(map[string]*transform.Group),
		failed:   make(map[string]error),
		state:    transform.DefaultState(),
		dirty:    true,
	}

	for _, ic := range cfg.Instances {
		mode, err := buffers.ParseDrawMode(cfg.DrawModeFor(ic))
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("instance %s: %w", ic.Name, err)
		}
		inst := &instance{cfg: ic, mode: mode}
		v.instances = append(v.instances, inst)

		if err := v.load(inst); err != nil {
			if isGPUError(err) {
				r.Close()
				return nil, err
			}
			v.failed[ic.Name] = err
			logger.Error("mesh not loaded",
				zap.String("mesh", ic.Name),
				zap.String("source", ic.Source),
				zap.Error(err),
			)
		}
	}

	if cfg.Reload.Watch {
		if err := v.watch(); err != nil {
			logger.Warn("hot reload disabled", zap.Error(err))
		}
	}
	return v, nil
}

// load reads, indexes and uploads inst, attaching it to its group and the renderer the
// first time it succeeds. On failure the instance keeps whatever it had before.
func (v *View) load(inst *instance) error {
	ic := inst.cfg
	m, palette, err := LoadMesh(ic.Source, v.cfg.Mesh)
	if err != nil {
		return err
	}
	color, err := mesh.ColorByName(ic.Color, mesh.Color(ic.SolidColor), palette)
	if err != nil {
		return err
	}

	h, err := v.buffers.Upload(ic.Name, m, inst.mode, color)
	if err != nil {
		return err
	}
	inst.handle = h

	if !inst.attached {
		g := v.group(ic.Group)
		t := ic.Translation
		slot := g.AddInstance(math.Vec3{X: t[0], Y: t[1], Z: t[2]})
		if err := v.renderer.AddInstance(&renderer.Instance{Name: ic.Name, Mesh: h, Group: g, Slot: slot}); err != nil {
			return err
		}
		inst.attached = true
	}

	logger.Info("mesh loaded",
		zap.String("mesh", ic.Name),
		zap.String("source", ic.Source),
		zap.Int("vertices", len(m.Vertices)),
		zap.Int("triangles", m.TriangleCount()),
		zap.Stringer("mode", inst.mode),
	)
	v.dirty = true
	return nil
}

func (v *View) group(name string) *transform.Group {
	g, ok := v.groups[name]
	if !ok {
		// Groups created by a late reload start from the current controls.
		g = transform.NewGroup(name)
		g.SetRotation(v.state.X, v.state.Y, v.state.Z)
		if v.state.Scale != g.State().Scale {
			g.SetScale(v.state.Scale)
		}
		v.groups[name] = g
	}
	return g
}

// Group returns the named instance group, or nil.
func (v *View) Group(name string) *transform.Group {
	return v.groups[name]
}

// Groups returns the group names in sorted order.
func (v *View) Groups() []string {
	names := make([]string, 0, len(v.groups))
	for name := range v.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// State returns the rotation and scale last set through the view.
func (v *View) State() transform.State {
	return v.state
}

// SetRotation replaces the rotation angles (degrees) of every group and requests a redraw.
func (v *View) SetRotation(x, y, z int) {
	v.state.X, v.state.Y, v.state.Z = x, y, z
	for _, g := range v.groups {
		g.SetRotation(x, y, z)
	}
	v.dirty = true
}

// SetScale replaces the uniform scale of every group and requests a redraw.
func (v *View) SetScale(factor float32) {
	v.state.Scale = factor
	for _, g := range v.groups {
		g.SetScale(factor)
	}
	v.dirty = true
}

// Reset restores the default rotation and scale of every group.
func (v *View) Reset() {
	v.state = transform.DefaultState()
	for _, g := range v.groups {
		g.Reset()
	}
	v.dirty = true
}

// OnViewportResize recomputes the projection for the new drawable size.
func (v *View) OnViewportResize(width, height int) {
	v.renderer.Resize(width, height)
	v.dirty = true
}

// NeedsRedraw reports whether anything changed since the last Paint.
func (v *View) NeedsRedraw() bool {
	return v.dirty
}

// RequestRedraw marks the view dirty, e.g. after the window was exposed.
func (v *View) RequestRedraw() {
	v.dirty = true
}

// Paint renders one frame into the window framebuffer. An error means the frame was
// skipped; the next change requests another attempt.
func (v *View) Paint() error {
	v.dirty = false
	return v.renderer.Paint()
}

// CaptureFrame renders the current state offscreen and returns it encoded in the
// configured capture format.
func (v *View) CaptureFrame() ([]byte, error) {
	img, err := v.renderer.Capture()
	if err != nil {
		return nil, fmt.Errorf("capturing frame: %w", err)
	}
	return v.writer.Bytes(img)
}

// SaveFrame renders the current state offscreen and writes it to the capture file.
func (v *View) SaveFrame() (string, error) {
	img, err := v.renderer.Capture()
	if err != nil {
		return "", fmt.Errorf("capturing frame: %w", err)
	}
	path, err := v.writer.Save(img)
	if err != nil {
		return "", err
	}
	logger.Info("frame saved", zap.String("path", path))
	return path, nil
}

// Failed returns the instances that could not be loaded and why.
func (v *View) Failed() map[string]error {
	out := make(map[string]error, len(v.failed))
	for k, err := range v.failed {
		out[k] = err
	}
	return out
}

// Renderer returns the render pipeline.
func (v *View) Renderer() *renderer.Renderer {
	return v.renderer
}

// Reload re-reads the named instance from its source and replaces its buffers in place.
// If loading fails the previous geometry stays on screen.
func (v *View) Reload(name string) error {
	for _, inst := range v.instances {
		if inst.cfg.Name != name {
			continue
		}
		if err := v.load(inst); err != nil {
			logger.Warn("mesh reload failed, keeping previous geometry",
				zap.String("mesh", name),
				zap.Error(err),
			)
			if !inst.attached {
				v.failed[name] = err
			}
			return err
		}
		delete(v.failed, name)
		return nil
	}
	return fmt.Errorf("unknown mesh %q", name)
}

func (v *View) watch() error {
	var paths []string
	for _, inst := range v.instances {
		if !mesh.IsBuiltin(inst.cfg.Source) {
			paths = append(paths, inst.cfg.Source)
		}
	}
	if len(paths) == 0 {
		return nil
	}
	w, err := NewWatcher(paths)
	if err != nil {
		return err
	}
	v.watcher = w
	logger.Info("watching mesh files", zap.Strings("paths", paths))
	return nil
}

// ProcessReloads reloads every instance whose source changed since the last call.
// It never blocks and must run on the render thread, between frames.
func (v *View) ProcessReloads() {
	if v.watcher == nil {
		return
	}
	changed := make(map[string]bool)
drain:
	for {
		select {
		case path, ok := <-v.watcher.Changes():
			if !ok {
				v.watcher = nil
				break drain
			}
			changed[path] = true
		default:
			break drain
		}
	}
	v.reloadPaths(changed)
}

func (v *View) reloadPaths(changed map[string]bool) {
	if len(changed) == 0 {
		return
	}
	for _, inst := range v.instances {
		if mesh.IsBuiltin(inst.cfg.Source) {
			continue
		}
		abs, err := filepath.Abs(inst.cfg.Source)
		if err != nil || !changed[abs] {
			continue
		}
		if err := v.Reload(inst.cfg.Name); err == nil {
			logger.Info("mesh reloaded", zap.String("mesh", inst.cfg.Name))
		}
	}
}

// Close stops watching files and releases the pipeline and every mesh buffer.
func (v *View) Close() {
	if v.watcher != nil {
		if err := v.watcher.Close(); err != nil {
			logger.Debug("closing file watcher", zap.Error(err))
		}
		v.watcher = nil
	}
	v.renderer.Close()
}

func isGPUError(err error) bool {
	return errors.Is(err, gpu.ErrGPUResource) || errors.Is(err, gpu.ErrInvalidState)
}
