package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags. A nil f applies no
// overrides and searches the standard locations.
func Load(f *Flags) (*Config, error) {
	cfg := Default()
	if f == nil {
		f = &Flags{}
	}

	// Explicit path takes priority
	configPath := f.Config
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	f.Apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./meshview.yaml",
		filepath.Join(ConfigDir(), "meshview.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "MeshView")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "MeshView")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "meshview")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "meshview")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
// A list in the file (instances) replaces the default list.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
