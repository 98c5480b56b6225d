// Package config handles viewer configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/meshview/pkg/mesh"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid config")

// BuiltinPyramid is the source name of the built-in pyramid mesh.
const BuiltinPyramid = mesh.BuiltinPrefix + "pyramid"

// Config holds all viewer settings.
type Config struct {
	Window    WindowConfig     `yaml:"window"`
	View      ViewConfig       `yaml:"view"`
	Mesh      MeshConfig       `yaml:"mesh"`
	Instances []InstanceConfig `yaml:"instances"`
	Capture   CaptureConfig    `yaml:"capture"`
	Reload    ReloadConfig     `yaml:"reload"`
	Logging   LoggingConfig    `yaml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
}

// ViewConfig holds projection and fixed pipeline settings.
type ViewConfig struct {
	FovY       float32    `yaml:"fov_y"` // degrees
	Near       float32    `yaml:"near"`
	Far        float32    `yaml:"far"`
	ClearColor [4]float32 `yaml:"clear_color,flow"`
	CullFaces  bool       `yaml:"cull_faces"`
}

// MeshConfig holds mesh loading settings shared by every instance.
type MeshConfig struct {
	DrawMode     string  `yaml:"draw_mode"`     // flat or indexed
	MergeEpsilon float32 `yaml:"merge_epsilon"` // 0 merges exact matches only
	Triangulate  bool    `yaml:"triangulate"`
}

// InstanceConfig describes one drawn mesh.
type InstanceConfig struct {
	Name        string     `yaml:"name"`
	Source      string     `yaml:"source"` // file path or builtin:pyramid
	Translation [3]float32 `yaml:"translation,flow"`
	Group       string     `yaml:"group"`
	Color       string     `yaml:"color"` // abs, palette or solid
	SolidColor  [3]float32 `yaml:"solid_color,flow"`
	DrawMode    string     `yaml:"draw_mode,omitempty"`
}

// CaptureConfig holds frame capture settings.
type CaptureConfig struct {
	Path  string  `yaml:"path"`
	Scale float64 `yaml:"scale"`
}

// ReloadConfig holds mesh hot reload settings.
type ReloadConfig struct {
	Watch bool `yaml:"watch"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "Mesh Viewer",
			Width:  800,
			Height: 600,
			VSync:  true,
		},
		View: ViewConfig{
			FovY:       60,
			Near:       0.2,
			Far:        20,
			ClearColor: [4]float32{0.37, 0.42, 0.45, 0},
			CullFaces:  true,
		},
		Mesh: MeshConfig{
			DrawMode: "flat",
		},
		Instances: []InstanceConfig{
			{
				Name:        "pyramid",
				Source:      BuiltinPyramid,
				Translation: [3]float32{-2, 0, -6},
				Group:       "main",
				Color:       "palette",
			},
			{
				Name:        "knot",
				Source:      "models/knot.obj",
				Translation: [3]float32{2, 0, -6},
				Group:       "main",
				Color:       "abs",
			},
		},
		Capture: CaptureConfig{
			Path:  "frame.png",
			Scale: 1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DrawModeFor returns the draw mode of inst, falling back to the mesh default.
func (c *Config) DrawModeFor(inst InstanceConfig) string {
	if inst.DrawMode != "" {
		return inst.DrawMode
	}
	return c.Mesh.DrawMode
}

// Validate reports every setting the viewer cannot start with.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		add("window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.View.FovY <= 0 || c.View.FovY >= 180 {
		add("view.fov_y %v not in (0, 180)", c.View.FovY)
	}
	if c.View.Near <= 0 || c.View.Far <= c.View.Near {
		add("view near/far %v/%v", c.View.Near, c.View.Far)
	}
	if !validDrawMode(c.Mesh.DrawMode) {
		add("mesh.draw_mode %q", c.Mesh.DrawMode)
	}
	if c.Mesh.MergeEpsilon < 0 {
		add("mesh.merge_epsilon %v is negative", c.Mesh.MergeEpsilon)
	}
	if len(c.Instances) == 0 {
		add("no instances")
	}

	seen := make(map[string]bool, len(c.Instances))
	for i, inst := range c.Instances {
		if inst.Name == "" {
			add("instances[%d]: missing name", i)
		} else if seen[inst.Name] {
			add("instances[%d]: duplicate name %q", i, inst.Name)
		}
		seen[inst.Name] = true
		if inst.Source == "" {
			add("instance %q: missing source", inst.Name)
		}
		switch inst.Color {
		case "", mesh.ColorAbs, mesh.ColorPalette, mesh.ColorSolid:
		default:
			add("instance %q: color %q", inst.Name, inst.Color)
		}
		if inst.DrawMode != "" && !validDrawMode(inst.DrawMode) {
			add("instance %q: draw_mode %q", inst.Name, inst.DrawMode)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func validDrawMode(s string) bool {
	return s == "" || s == "flat" || s == "indexed"
}
