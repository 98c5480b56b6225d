package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Window.Width != 800 || cfg.Window.Height != 600 {
		t.Errorf("expected 800x600, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Window.Fullscreen {
		t.Error("expected fullscreen to be false by default")
	}

	if cfg.View.FovY != 60 || cfg.View.Near != 0.2 || cfg.View.Far != 20 {
		t.Errorf("unexpected projection defaults %+v", cfg.View)
	}
	if !cfg.View.CullFaces {
		t.Error("expected face culling by default")
	}

	if cfg.Mesh.DrawMode != "flat" {
		t.Errorf("expected flat draw mode, got %s", cfg.Mesh.DrawMode)
	}
	if cfg.Mesh.MergeEpsilon != 0 {
		t.Errorf("expected exact-match merging, got epsilon %v", cfg.Mesh.MergeEpsilon)
	}
	if cfg.Mesh.Triangulate {
		t.Error("expected non-triangular faces to be rejected by default")
	}

	if len(cfg.Instances) != 2 {
		t.Fatalf("expected 2 default instances, got %d", len(cfg.Instances))
	}
	if cfg.Instances[0].Source != BuiltinPyramid {
		t.Errorf("expected first instance to be the pyramid, got %s", cfg.Instances[0].Source)
	}
	if cfg.Instances[0].Translation != [3]float32{-2, 0, -6} || cfg.Instances[1].Translation != [3]float32{2, 0, -6} {
		t.Error("unexpected default translations")
	}
	if cfg.Instances[0].Group != cfg.Instances[1].Group {
		t.Error("expected default instances to share one group")
	}

	if cfg.Capture.Path != "frame.png" {
		t.Errorf("expected capture path frame.png, got %s", cfg.Capture.Path)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "meshview.yaml")

	yamlContent := `
window:
  width: 1024
  height: 768
  fullscreen: true

view:
  fov_y: 45
  clear_color: [0, 0, 0, 1]

mesh:
  draw_mode: indexed
  merge_epsilon: 0.001
  triangulate: true

instances:
  - name: teapot
    source: models/teapot.obj
    translation: [0, 0, -5]
    group: main
    color: solid
    solid_color: [1, 0.5, 0]

capture:
  path: out/frame.tif
  scale: 0.5

reload:
  watch: true

logging:
  level: "debug"
  log_file: "meshview.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Window.Width != 1024 || !cfg.Window.Fullscreen {
		t.Errorf("window not loaded: %+v", cfg.Window)
	}
	if cfg.Window.Title != "Mesh Viewer" {
		t.Errorf("expected default title to survive, got %q", cfg.Window.Title)
	}
	if cfg.View.FovY != 45 || cfg.View.Near != 0.2 {
		t.Errorf("view not merged: %+v", cfg.View)
	}
	if cfg.View.ClearColor != [4]float32{0, 0, 0, 1} {
		t.Errorf("unexpected clear color %v", cfg.View.ClearColor)
	}
	if cfg.Mesh.DrawMode != "indexed" || cfg.Mesh.MergeEpsilon != 0.001 || !cfg.Mesh.Triangulate {
		t.Errorf("mesh not loaded: %+v", cfg.Mesh)
	}
	if len(cfg.Instances) != 1 {
		t.Fatalf("expected instances from file to replace the defaults, got %d", len(cfg.Instances))
	}
	if inst := cfg.Instances[0]; inst.Name != "teapot" || inst.SolidColor != [3]float32{1, 0.5, 0} {
		t.Errorf("unexpected instance %+v", inst)
	}
	if cfg.Capture.Path != "out/frame.tif" || cfg.Capture.Scale != 0.5 {
		t.Errorf("capture not loaded: %+v", cfg.Capture)
	}
	if !cfg.Reload.Watch {
		t.Error("expected reload.watch to be true")
	}
	if cfg.Logging.LogFile != "meshview.log" {
		t.Errorf("expected log file 'meshview.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
window:
  width: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/meshview.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile("meshview.yaml", []byte("window:\n  width: 640\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	if path := findConfigFile(); path == "" {
		t.Error("expected to find meshview.yaml in current directory")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero size", func(c *Config) { c.Window.Height = 0 }, "window size"},
		{"fov", func(c *Config) { c.View.FovY = 180 }, "fov_y"},
		{"near far", func(c *Config) { c.View.Far = c.View.Near }, "near/far"},
		{"draw mode", func(c *Config) { c.Mesh.DrawMode = "strips" }, "mesh.draw_mode"},
		{"epsilon", func(c *Config) { c.Mesh.MergeEpsilon = -1 }, "merge_epsilon"},
		{"no instances", func(c *Config) { c.Instances = nil }, "no instances"},
		{"duplicate name", func(c *Config) { c.Instances[1].Name = c.Instances[0].Name }, "duplicate name"},
		{"missing source", func(c *Config) { c.Instances[0].Source = "" }, "missing source"},
		{"color", func(c *Config) { c.Instances[0].Color = "rainbow" }, "color"},
		{"instance draw mode", func(c *Config) { c.Instances[0].DrawMode = "points" }, "draw_mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in %v", tt.want, err)
			}
		})
	}
}

func TestDrawModeFor(t *testing.T) {
	cfg := Default()
	cfg.Mesh.DrawMode = "indexed"

	if got := cfg.DrawModeFor(cfg.Instances[0]); got != "indexed" {
		t.Errorf("expected mesh default, got %s", got)
	}
	cfg.Instances[0].DrawMode = "flat"
	if got := cfg.DrawModeFor(cfg.Instances[0]); got != "flat" {
		t.Errorf("expected instance override, got %s", got)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		verify func(*testing.T, *Config)
	}{
		{
			name: "debug flag",
			args: []string{"-debug"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
		},
		{
			name: "fullscreen flag",
			args: []string{"-fullscreen"},
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Window.Fullscreen {
					t.Error("expected fullscreen to be true with fullscreen flag")
				}
			},
		},
		{
			name: "width and height flags",
			args: []string{"-width", "1920", "-height", "1080"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Window.Width != 1920 || cfg.Window.Height != 1080 {
					t.Errorf("expected 1920x1080, got %dx%d", cfg.Window.Width, cfg.Window.Height)
				}
			},
		},
		{
			name: "mesh flag replaces file sources only",
			args: []string{"-mesh", "bunny.obj"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Instances[0].Source != BuiltinPyramid {
					t.Errorf("builtin source replaced: %s", cfg.Instances[0].Source)
				}
				if cfg.Instances[1].Source != "bunny.obj" {
					t.Errorf("expected bunny.obj, got %s", cfg.Instances[1].Source)
				}
			},
		},
		{
			name: "draw mode flag clears overrides",
			args: []string{"-draw-mode", "indexed"},
			verify: func(t *testing.T, cfg *Config) {
				for _, inst := range cfg.Instances {
					if got := cfg.DrawModeFor(inst); got != "indexed" {
						t.Errorf("instance %s: expected indexed, got %s", inst.Name, got)
					}
				}
			},
		},
		{
			name: "capture and watch flags",
			args: []string{"-capture", "shot.bmp", "-watch"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Capture.Path != "shot.bmp" {
					t.Errorf("expected shot.bmp, got %s", cfg.Capture.Path)
				}
				if !cfg.Reload.Watch {
					t.Error("expected watch to be enabled")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("meshview", flag.ContinueOnError)
			f := RegisterFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("parsing flags: %v", err)
			}

			cfg := Default()
			cfg.Instances[0].DrawMode = "flat"
			f.Apply(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "meshview.yaml")

	yamlContent := `
window:
  width: 1600
  height: 900
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(&Flags{Config: configPath, Width: 1920})
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Width should be from flag (1920), not file (1600)
	if cfg.Window.Width != 1920 {
		t.Errorf("expected width 1920 from flag, got %d", cfg.Window.Width)
	}
	// Height should be from file (900) since no flag override
	if cfg.Window.Height != 900 {
		t.Errorf("expected height 900 from file, got %d", cfg.Window.Height)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "meshview.yaml")
	if err := os.WriteFile(configPath, []byte("view:\n  near: 5\n  far: 1\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := Load(&Flags{Config: configPath}); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "meshview.yaml")

	cfg := Default()
	cfg.Mesh.MergeEpsilon = 0.01
	cfg.Instances[1].Source = "models/bunny.obj"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded := &Config{}
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("reloading saved config: %v", err)
	}
	if loaded.Mesh.MergeEpsilon != 0.01 {
		t.Errorf("expected epsilon 0.01, got %v", loaded.Mesh.MergeEpsilon)
	}
	if len(loaded.Instances) != 2 || loaded.Instances[1].Source != "models/bunny.obj" {
		t.Errorf("instances not saved: %+v", loaded.Instances)
	}
	if loaded.View.ClearColor != cfg.View.ClearColor {
		t.Errorf("clear color not saved: %v", loaded.View.ClearColor)
	}
}
