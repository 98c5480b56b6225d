package viewer

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/engine/gpu"
	"github.com/Faultbox/meshview/internal/engine/gpu/gputest"
	"github.com/Faultbox/meshview/internal/engine/transform"
	"github.com/Faultbox/meshview/pkg/formats"
	"github.com/Faultbox/meshview/pkg/math"
)

const (
	triOBJ  = "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"
	quadOBJ = "# quad\nv 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 1 2 3\nf 1 3 4\n"
	badOBJ  = "v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 1 2 99\n"
)

func writeOBJ(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func pyramid() config.InstanceConfig {
	return config.InstanceConfig{
		Name:        "pyramid",
		Source:      config.BuiltinPyramid,
		Translation: [3]float32{-2, 0, -6},
		Group:       "main",
		Color:       "palette",
	}
}

func fileInstance(name, path string) config.InstanceConfig {
	return config.InstanceConfig{
		Name:        name,
		Source:      path,
		Translation: [3]float32{2, 0, -6},
		Group:       "main",
		Color:       "abs",
	}
}

func testConfig(t *testing.T, instances ...config.InstanceConfig) *config.Config {
	cfg := config.Default()
	cfg.Window.Width = 64
	cfg.Window.Height = 48
	cfg.Capture.Path = filepath.Join(t.TempDir(), "frame.png")
	cfg.Instances = instances
	return cfg
}

func newView(t *testing.T, rec *gputest.Recorder, cfg *config.Config) *View {
	t.Helper()
	v, err := New(rec, cfg)
	require.NoError(t, err)
	t.Cleanup(v.Close)
	return v
}

func TestNewLoadsEveryInstance(t *testing.T) {
	dir := t.TempDir()
	rec := gputest.New()
	v := newView(t, rec, testConfig(t, pyramid(), fileInstance("quad", writeOBJ(t, dir, "quad.obj", quadOBJ))))

	assert.Empty(t, v.Failed())
	assert.Equal(t, []string{"main"}, v.Groups())
	require.Len(t, v.Renderer().Instances(), 2)
	assert.Equal(t, 6, v.Renderer().Instances()[0].Mesh.Triangles())
	assert.Equal(t, 2, v.Renderer().Instances()[1].Mesh.Triangles())

	assert.True(t, v.NeedsRedraw())
	require.NoError(t, v.Paint())
	assert.False(t, v.NeedsRedraw())
	assert.Len(t, rec.Draws, 2)
}

func TestMalformedMeshIsNotRegistered(t *testing.T) {
	dir := t.TempDir()
	rec := gputest.New()
	v := newView(t, rec, testConfig(t, pyramid(), fileInstance("bad", writeOBJ(t, dir, "bad.obj", badOBJ))))

	failed := v.Failed()
	require.Contains(t, failed, "bad")
	assert.ErrorIs(t, failed["bad"], formats.ErrMalformedInput)

	// No partial upload for the broken mesh.
	assert.Len(t, rec.Uploads, 1)
	require.Len(t, v.Renderer().Instances(), 1)

	require.NoError(t, v.Paint())
	require.Len(t, rec.Draws, 1)
	assert.EqualValues(t, 18, rec.Draws[0].Count)
}

func TestMissingMeshIsIOError(t *testing.T) {
	rec := gputest.New()
	v := newView(t, rec, testConfig(t, pyramid(), fileInstance("gone", filepath.Join(t.TempDir(), "gone.obj"))))

	assert.ErrorIs(t, v.Failed()["gone"], formats.ErrIO)
	require.NoError(t, v.Paint())
	assert.Len(t, rec.Draws, 1)
}

func TestGPUFailuresAreFatal(t *testing.T) {
	t.Run("program", func(t *testing.T) {
		rec := gputest.New()
		rec.FailProgram = true
		_, err := New(rec, testConfig(t, pyramid()))
		assert.ErrorIs(t, err, gpu.ErrGPUResource)
	})
	t.Run("buffers", func(t *testing.T) {
		rec := gputest.New()
		rec.FailMeshObjects = true
		_, err := New(rec, testConfig(t, pyramid()))
		assert.ErrorIs(t, err, gpu.ErrGPUResource)
		assert.Zero(t, rec.Live(), "program is released on failure")
	})
}

func TestSetRotationAndScale(t *testing.T) {
	rec := gputest.New()
	v := newView(t, rec, testConfig(t, pyramid()))
	require.NoError(t, v.Paint())
	rec.Reset()

	v.SetRotation(30, 0, 0)
	v.SetScale(0.5)
	v.SetScale(2)
	assert.True(t, v.NeedsRedraw())
	require.NoError(t, v.Paint())

	want := transform.ModelMatrix(math.Vec3{X: -2, Z: -6}, transform.State{X: 30, Scale: 2})
	require.Len(t, rec.Draws, 1)
	assert.Equal(t, want, rec.Draws[0].Uniforms[0])
	assert.Equal(t, transform.State{X: 30, Scale: 2}, v.State())

	v.Reset()
	assert.Equal(t, transform.DefaultState(), v.Group("main").State())
}

func TestGroupsAreIndependent(t *testing.T) {
	dir := t.TempDir()
	other := fileInstance("tri", writeOBJ(t, dir, "tri.obj", triOBJ))
	other.Group = "side"
	rec := gputest.New()
	v := newView(t, rec, testConfig(t, pyramid(), other))

	v.Group("side").SetRotation(0, 90, 0)
	assert.Equal(t, transform.DefaultState(), v.Group("main").State())

	v.SetRotation(10, 20, 30)
	assert.Equal(t, 10, v.Group("main").State().X)
	assert.Equal(t, 10, v.Group("side").State().X)
}

func TestOnViewportResize(t *testing.T) {
	rec := gputest.New()
	v := newView(t, rec, testConfig(t, pyramid()))
	require.NoError(t, v.Paint())
	before := v.Renderer().Projection().Matrix()
	uploads := len(rec.Uploads)

	v.OnViewportResize(32, 24)
	assert.True(t, v.NeedsRedraw())
	assert.Equal(t, before, v.Renderer().Projection().Matrix(), "same aspect ratio")

	v.OnViewportResize(48, 48)
	assert.NotEqual(t, before, v.Renderer().Projection().Matrix())
	assert.Len(t, rec.Uploads, uploads, "resize does not rebuild buffers")
}

func TestCaptureFrame(t *testing.T) {
	rec := gputest.New()
	rec.Pixel = [4]byte{94, 107, 115, 255}
	v := newView(t, rec, testConfig(t, pyramid()))
	v.SetRotation(0, 45, 0)

	data, err := v.CaptureFrame()
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())

	// The capture reflects the committed rotation.
	want := transform.ModelMatrix(math.Vec3{X: -2, Z: -6}, transform.State{Y: 45, Scale: 1})
	require.NotEmpty(t, rec.Draws)
	assert.Equal(t, want, rec.Draws[len(rec.Draws)-1].Uniforms[0])
}

func TestSaveFrame(t *testing.T) {
	rec := gputest.New()
	cfg := testConfig(t, pyramid())
	v := newView(t, rec, cfg)

	path, err := v.SaveFrame()
	require.NoError(t, err)
	assert.Equal(t, cfg.Capture.Path, path)
	assert.FileExists(t, path)
}

func TestReloadReplacesInPlace(t *testing.T) {
	dir := t.TempDir()
	path := writeOBJ(t, dir, "mesh.obj", triOBJ)
	rec := gputest.New()
	v := newView(t, rec, testConfig(t, fileInstance("mesh", path)))
	h := v.Renderer().Instances()[0].Mesh
	require.Equal(t, 1, h.Triangles())

	writeOBJ(t, dir, "mesh.obj", quadOBJ)
	require.NoError(t, v.Reload("mesh"))
	assert.Same(t, h, v.Renderer().Instances()[0].Mesh)
	assert.Equal(t, 2, h.Triangles())
	assert.Len(t, v.Renderer().Instances(), 1)

	// A broken edit keeps the last good geometry.
	writeOBJ(t, dir, "mesh.obj", badOBJ)
	assert.ErrorIs(t, v.Reload("mesh"), formats.ErrMalformedInput)
	assert.Equal(t, 2, h.Triangles())
	assert.Empty(t, v.Failed())

	assert.Error(t, v.Reload("missing"))
}

func TestReloadRecoversFailedMesh(t *testing.T) {
	dir := t.TempDir()
	path := writeOBJ(t, dir, "mesh.obj", badOBJ)
	rec := gputest.New()
	v := newView(t, rec, testConfig(t, pyramid(), fileInstance("mesh", path)))
	require.Contains(t, v.Failed(), "mesh")
	v.SetRotation(0, 90, 0)

	writeOBJ(t, dir, "mesh.obj", triOBJ)
	require.NoError(t, v.Reload("mesh"))
	assert.Empty(t, v.Failed())
	require.Len(t, v.Renderer().Instances(), 2)
	assert.Equal(t, 90, v.Group("main").State().Y)
}

func TestLateGroupStartsFromCurrentControls(t *testing.T) {
	dir := t.TempDir()
	path := writeOBJ(t, dir, "mesh.obj", badOBJ)
	inst := fileInstance("mesh", path)
	inst.Group = "late"
	rec := gputest.New()
	v := newView(t, rec, testConfig(t, pyramid(), inst))

	v.SetRotation(0, 0, 45)
	v.SetScale(3)
	writeOBJ(t, dir, "mesh.obj", triOBJ)
	require.NoError(t, v.Reload("mesh"))

	assert.Equal(t, transform.State{Z: 45, Scale: 3}, v.Group("late").State())
}

func TestHotReload(t *testing.T) {
	dir := t.TempDir()
	path := writeOBJ(t, dir, "mesh.obj", triOBJ)
	cfg := testConfig(t, pyramid(), fileInstance("mesh", path))
	cfg.Reload.Watch = true

	rec := gputest.New()
	v := newView(t, rec, cfg)
	require.NotNil(t, v.watcher)
	h := v.Renderer().Instances()[1].Mesh

	writeOBJ(t, dir, "mesh.obj", quadOBJ)
	assert.Eventually(t, func() bool {
		v.ProcessReloads()
		return h.Triangles() == 2
	}, 5*time.Second, 20*time.Millisecond)
	assert.True(t, v.NeedsRedraw())
}

func TestClose(t *testing.T) {
	rec := gputest.New()
	v, err := New(rec, testConfig(t, pyramid()))
	require.NoError(t, err)

	v.Close()
	assert.Zero(t, rec.Live())
	assert.ErrorIs(t, v.Paint(), gpu.ErrDisposed)
	_, err = v.CaptureFrame()
	assert.ErrorIs(t, err, gpu.ErrDisposed)
}

func TestLoadMesh(t *testing.T) {
	m, palette, err := LoadMesh(config.BuiltinPyramid, config.MeshConfig{})
	require.NoError(t, err)
	assert.Len(t, m.Vertices, 5)
	assert.Equal(t, 6, m.TriangleCount())
	assert.NotEmpty(t, palette)

	_, _, err = LoadMesh("builtin:teapot", config.MeshConfig{})
	assert.Error(t, err)

	dir := t.TempDir()
	quadFace := writeOBJ(t, dir, "poly.obj", "v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 1 2 3 4\n")
	_, _, err = LoadMesh(quadFace, config.MeshConfig{})
	assert.ErrorIs(t, err, formats.ErrMalformedInput)

	m, _, err = LoadMesh(quadFace, config.MeshConfig{Triangulate: true})
	require.NoError(t, err)
	assert.Equal(t, 2, m.TriangleCount())
	assert.Len(t, m.Vertices, 4)
}
