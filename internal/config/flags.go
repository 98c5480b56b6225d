package config

import (
	"flag"

	"github.com/Faultbox/meshview/pkg/mesh"
)

// Flags are the command-line overrides. Zero values leave the config untouched.
type Flags struct {
	Config      string
	Debug       bool
	Windowed    bool
	Fullscreen  bool
	Width       int
	Height      int
	Mesh        string
	DrawMode    string
	Capture     string
	Watch       bool
	WriteConfig string
}

// RegisterFlags declares the viewer flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&f.Windowed, "windowed", false, "Run in windowed mode")
	fs.BoolVar(&f.Fullscreen, "fullscreen", false, "Run in fullscreen mode")
	fs.IntVar(&f.Width, "width", 0, "Window width")
	fs.IntVar(&f.Height, "height", 0, "Window height")
	fs.StringVar(&f.Mesh, "mesh", "", "Mesh file shown by every file-backed instance")
	fs.StringVar(&f.DrawMode, "draw-mode", "", "Draw mode for all meshes (flat or indexed)")
	fs.StringVar(&f.Capture, "capture", "", "Captured frame file (.png, .bmp, .tif)")
	fs.BoolVar(&f.Watch, "watch", false, "Reload mesh files when they change")
	fs.StringVar(&f.WriteConfig, "write-config", "", "Write the effective config to this path and exit")
	return f
}

var commandLine = RegisterFlags(flag.CommandLine)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() *Flags {
	flag.Parse()
	return commandLine
}

// Apply applies flag overrides to cfg.
func (f *Flags) Apply(cfg *Config) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Windowed {
		cfg.Window.Fullscreen = false
	}
	if f.Fullscreen {
		cfg.Window.Fullscreen = true
	}
	if f.Width > 0 {
		cfg.Window.Width = f.Width
	}
	if f.Height > 0 {
		cfg.Window.Height = f.Height
	}
	if f.Mesh != "" {
		for i := range cfg.Instances {
			if !mesh.IsBuiltin(cfg.Instances[i].Source) {
				cfg.Instances[i].Source = f.Mesh
			}
		}
	}
	if f.DrawMode != "" {
		cfg.Mesh.DrawMode = f.DrawMode
		for i := range cfg.Instances {
			cfg.Instances[i].DrawMode = ""
		}
	}
	if f.Capture != "" {
		cfg.Capture.Path = f.Capture
	}
	if f.Watch {
		cfg.Reload.Watch = true
	}
}
