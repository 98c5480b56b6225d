// Package buffers owns the GPU buffers of every uploaded mesh.
//
// Each named slot has its own vertex array and vertex buffer (plus an element buffer in
// indexed mode), so instances with different model matrices never share GPU state.
package buffers

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/engine/gpu"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/pkg/mesh"
)

// DrawMode selects how a mesh is laid out on the GPU.
type DrawMode int

const (
	// DrawFlat uploads one vertex per triangle corner and draws with DrawArrays.
	DrawFlat DrawMode = iota
	// DrawIndexed uploads unique vertices plus an index buffer and draws with DrawElements.
	DrawIndexed
)

// String returns the config name of the mode.
func (m DrawMode) String() string {
	switch m {
	case DrawFlat:
		return "flat"
	case DrawIndexed:
		return "indexed"
	default:
		return fmt.Sprintf("DrawMode(%d)", int(m))
	}
}

// ParseDrawMode parses a config name. The empty string is flat.
func ParseDrawMode(s string) (DrawMode, error) {
	switch s {
	case "", "flat":
		return DrawFlat, nil
	case "indexed":
		return DrawIndexed, nil
	default:
		return 0, fmt.Errorf("unknown draw mode %q", s)
	}
}

// Handle identifies one uploaded mesh. Handles stay valid across re-uploads of the same slot.
type Handle struct {
	name     string
	objects  gpu.MeshObjects
	mode     DrawMode
	count    int32
	released bool
}

// Name returns the slot name.
func (h *Handle) Name() string { return h.name }

// Mode returns the draw mode of the current contents.
func (h *Handle) Mode() DrawMode { return h.mode }

// Count returns the number of vertices (flat) or indices (indexed) to draw.
func (h *Handle) Count() int32 { return h.count }

// Triangles returns the triangle count.
func (h *Handle) Triangles() int { return int(h.count) / 3 }

// Released reports whether the slot's GPU objects are gone.
func (h *Handle) Released() bool { return h.released }

// Manager tracks every slot it created so teardown is exhaustive.
type Manager struct {
	dev      gpu.Device
	slots    map[string]*Handle
	disposed bool
}

// NewManager creates a manager on dev.
func NewManager(dev gpu.Device) *Manager {
	return &Manager{
		dev:   dev,
		slots: make(map[string]*Handle),
	}
}

// Upload lays out m for mode, colors it with color, and stores it in the named slot.
// A new slot allocates GPU objects; an existing slot is refilled in place and keeps its
// Handle. Switching an existing slot between modes reallocates its objects.
func (mgr *Manager) Upload(name string, m *mesh.Indexed, mode DrawMode, color mesh.ColorFunc) (*Handle, error) {
	if mgr.disposed {
		return nil, fmt.Errorf("%w: upload %q after teardown", gpu.ErrDisposed, name)
	}

	var (
		vertices []mesh.Vertex
		indices  []uint32
		count    int
	)
	switch mode {
	case DrawFlat:
		vertices = m.Flatten(color)
		count = len(vertices)
	case DrawIndexed:
		vertices = m.Colored(color)
		indices = m.Indices
		count = len(indices)
	default:
		return nil, fmt.Errorf("upload %q: %v", name, mode)
	}

	h, exists := mgr.slots[name]
	if exists && h.mode != mode {
		mgr.dev.DeleteMeshObjects(h.objects)
		exists = false
	}
	if !exists {
		obj, err := mgr.dev.CreateMeshObjects(mode == DrawIndexed)
		if err != nil {
			if h != nil {
				// The old objects are gone; keep the handle but mark it unusable.
				h.released = true
				delete(mgr.slots, name)
			}
			return nil, fmt.Errorf("upload %q: %w", name, err)
		}
		if h == nil {
			h = &Handle{name: name}
			mgr.slots[name] = h
		}
		h.objects = obj
	}

	mgr.dev.UploadMesh(h.objects, vertices, indices)
	h.mode = mode
	h.count = int32(count)
	h.released = false

	logger.Debug("mesh uploaded",
		zap.String("mesh", name),
		zap.Stringer("mode", mode),
		zap.Int("vertices", len(vertices)),
		zap.Int("triangles", h.Triangles()),
		zap.Bool("reupload", exists),
	)
	return h, nil
}

// Handle returns the handle of a live slot.
func (mgr *Manager) Handle(name string) (*Handle, bool) {
	h, ok := mgr.slots[name]
	return h, ok
}

// Slots returns the live slot names in sorted order.
func (mgr *Manager) Slots() []string {
	names := make([]string, 0, len(mgr.slots))
	for name := range mgr.slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Draw binds h and issues one draw call for its full contents.
func (mgr *Manager) Draw(h *Handle) error {
	if mgr.disposed || h.released {
		return fmt.Errorf("%w: draw %q", gpu.ErrDisposed, h.name)
	}
	if h.count == 0 {
		return nil
	}
	if h.mode == DrawIndexed {
		mgr.dev.DrawElements(h.objects, h.count)
	} else {
		mgr.dev.DrawArrays(h.objects, h.count)
	}
	return nil
}

// Release frees one slot.
func (mgr *Manager) Release(name string) {
	h, ok := mgr.slots[name]
	if !ok {
		return
	}
	mgr.dev.DeleteMeshObjects(h.objects)
	h.released = true
	delete(mgr.slots, name)
}

// Teardown frees every slot. Later uploads and draws fail with gpu.ErrDisposed.
func (mgr *Manager) Teardown() {
	if mgr.disposed {
		return
	}
	for _, name := range mgr.Slots() {
		mgr.Release(name)
	}
	mgr.disposed = true
	logger.Debug("mesh buffers released")
}
