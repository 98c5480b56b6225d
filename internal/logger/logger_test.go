package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNopBeforeInit(t *testing.T) {
	Log = zap.NewNop()
	Sugar = Log.Sugar()

	// Must not panic.
	Debug("debug message")
	Info("info message", zap.Int("n", 1))
	Named("buffers").Warn("named")
	Sync()
}

func TestConsoleLevels(t *testing.T) {
	tests := []struct {
		level    string
		expected []string
		excluded []string
	}{
		{level: "error", expected: []string{"ERROR"}, excluded: []string{"WARN", "INFO", "DEBUG"}},
		{level: "warn", expected: []string{"ERROR", "WARN"}, excluded: []string{"INFO", "DEBUG"}},
		{level: "info", expected: []string{"ERROR", "WARN", "INFO"}, excluded: []string{"DEBUG"}},
		{level: "debug", expected: []string{"ERROR", "WARN", "INFO", "DEBUG"}},
		{level: "bogus", expected: []string{"INFO"}, excluded: []string{"DEBUG"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			InitWithOptions(Options{Level: tt.level, Console: true, Stdout: &buf})

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")
			Sync()

			out := buf.String()
			for _, exp := range tt.expected {
				if !strings.Contains(out, exp) {
					t.Errorf("expected %s in log output", exp)
				}
			}
			for _, exc := range tt.excluded {
				if strings.Contains(out, exc) {
					t.Errorf("unexpected %s in log output for level %s", exc, tt.level)
				}
			}
		})
	}
}

func TestFileOutputIsJSON(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "meshview.log")

	InitWithOptions(Options{
		Level: "debug",
		File: FileConfig{
			Path:       logFile,
			MaxSizeMB:  1,
			MaxBackups: 1,
			MaxAgeDays: 1,
		},
	})
	Info("mesh uploaded", zap.String("mesh", "pyramid"), zap.Int("triangles", 6))
	Sync()

	f, err := os.Open(logFile)
	if err != nil {
		t.Fatalf("failed to open log file: %v", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		t.Fatal("log file is empty")
	}
	var entry map[string]any
	if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "mesh uploaded" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
	if entry["mesh"] != "pyramid" {
		t.Errorf("mesh = %v", entry["mesh"])
	}
	if caller, _ := entry["caller"].(string); !strings.HasPrefix(caller, "logger/logger_test.go") {
		t.Errorf("caller = %q, want the test file", caller)
	}
}

func TestNoOutputsIsNop(t *testing.T) {
	InitWithOptions(Options{Level: "debug"})
	if Log.Core().Enabled(zap.ErrorLevel) {
		t.Error("expected a no-op logger when no outputs are configured")
	}
}

func TestDefaultFileConfig(t *testing.T) {
	cfg := DefaultFileConfig("/tmp/test.log")

	if cfg.Path != "/tmp/test.log" {
		t.Errorf("expected path /tmp/test.log, got %s", cfg.Path)
	}
	if cfg.MaxSizeMB != 10 {
		t.Errorf("expected MaxSizeMB 10, got %d", cfg.MaxSizeMB)
	}
	if cfg.MaxBackups != 3 {
		t.Errorf("expected MaxBackups 3, got %d", cfg.MaxBackups)
	}
	if !cfg.Compress {
		t.Error("expected Compress to be true")
	}
}
