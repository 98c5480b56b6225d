// Package app runs the interactive viewer: window, input, redraw on demand.
package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/controls"
	"github.com/Faultbox/meshview/internal/engine/gpu/opengl"
	"github.com/Faultbox/meshview/internal/engine/input"
	"github.com/Faultbox/meshview/internal/engine/window"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/internal/viewer"
)

// idleDelay is how long the loop sleeps when nothing needs redrawing.
const idleDelay = 10 * time.Millisecond

// App is the main viewer instance.
type App struct {
	config   *config.Config
	running  bool
	window   *window.Window
	view     *viewer.View
	input    *input.Input
	controls *controls.Controls
}

// New creates the window, the GL device and the view.
func New(cfg *config.Config) (*App, error) {
	logger.Info("initializing viewer",
		zap.String("title", cfg.Window.Title),
		zap.Int("width", cfg.Window.Width),
		zap.Int("height", cfg.Window.Height),
	)

	a := &App{config: cfg}

	// Create window (this also creates OpenGL context)
	var err error
	a.window, err = window.New(window.Config{
		Title:      cfg.Window.Title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// GL device and view AFTER window, since the OpenGL context must exist
	dev, err := opengl.New(opengl.Config{
		ClearColor: cfg.View.ClearColor,
		CullFaces:  cfg.View.CullFaces,
	})
	if err != nil {
		a.window.Close()
		return nil, fmt.Errorf("failed to initialize GPU: %w", err)
	}

	a.view, err = viewer.New(dev, cfg)
	if err != nil {
		a.window.Close()
		return nil, fmt.Errorf("failed to create view: %w", err)
	}
	a.view.OnViewportResize(a.window.DrawableSize())

	for name, err := range a.view.Failed() {
		logger.Warn("instance unavailable", zap.String("mesh", name), zap.Error(err))
	}

	a.input = input.New()
	a.controls = controls.New(a.view)

	logger.Info("viewer initialized successfully")
	return a, nil
}

// Run starts the main loop. Frames are only rendered when something changed.
func (a *App) Run() error {
	a.running = true
	logger.Info("starting main loop")

	frames := 0
	statsTimer := time.Now()

	for a.running {
		if a.input.Update() {
			a.running = false
			break
		}

		for _, event := range input.Dispatch(a.input.Events(), a.controls) {
			a.handle(event)
		}

		a.view.ProcessReloads()

		if !a.view.NeedsRedraw() {
			time.Sleep(idleDelay)
			continue
		}

		if err := a.view.Paint(); err != nil {
			logger.Error("frame skipped", zap.Error(err))
			continue
		}
		a.window.SwapBuffers()
		a.updateTitle()

		frames++
		if time.Since(statsTimer) >= time.Second {
			logger.Debug("frames rendered", zap.Int("count", frames))
			frames = 0
			statsTimer = time.Now()
		}
	}

	return nil
}

func (a *App) handle(event input.Event) {
	switch event.Type {
	case input.EventQuit:
		a.running = false
	case input.EventWindowResize:
		a.view.OnViewportResize(a.window.DrawableSize())
	case input.EventWindowExposed:
		a.view.RequestRedraw()
	case input.EventAction:
		switch event.Action {
		case controls.ActionQuit:
			a.running = false
		case controls.ActionCapture:
			if _, err := a.view.SaveFrame(); err != nil {
				logger.Error("capture failed", zap.Error(err))
			}
		}
	}
}

func (a *App) updateTitle() {
	x, y, z := a.controls.Angles()
	a.window.SetTitle(fmt.Sprintf("%s (x %d, y %d, z %d, %d%%)",
		a.config.Window.Title, x, y, z, a.controls.ScalePercent()))
}

// Close cleans up viewer resources.
func (a *App) Close() {
	logger.Info("closing viewer")

	if a.view != nil {
		a.view.Close()
	}
	if a.window != nil {
		a.window.Close()
	}
}
