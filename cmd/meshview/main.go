// Package main is the entry point for the mesh viewer.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/app"
	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/logger"
)

func main() {
	// Parse CLI flags first
	flags := config.ParseFlags()

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if flags.WriteConfig != "" {
		if err := cfg.SaveTo(flags.WriteConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Writing config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config written to %s\n", flags.WriteConfig)
		return
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.LogFile)
	defer logger.Sync()

	logger.Info("=== Mesh Viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	a, err := app.New(cfg)
	if err != nil {
		logger.Error("failed to start viewer", zap.Error(err))
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Run(); err != nil {
		logger.Error("viewer error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("viewer closed normally")
}
