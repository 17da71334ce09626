package compositor

import (
	"fmt"
	"log/slog"
)

// Stats counts the work done by an Engine.
type Stats struct {
	Passes       uint64
	Painted      uint64
	FullRepaints uint64
	Skipped      uint64
}

// Engine paints damaged windows onto the overlay surface.
type Engine struct {
	server     Server
	registry   *Registry
	logger     *slog.Logger
	background Color

	overlay     Handle
	fullRepaint bool
	stats       Stats
}

// NewEngine creates an engine that paints the windows in registry. The first
// pass fills the overlay with background before painting.
func NewEngine(server Server, registry *Registry, background Color, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		server:      server,
		registry:    registry,
		logger:      logger,
		background:  background,
		fullRepaint: true,
	}
}

// Invalidate schedules a background fill and a repaint of every paintable
// window on the next pass.
func (e *Engine) Invalidate() {
	e.fullRepaint = true
}

// Stats returns the counters accumulated so far.
func (e *Engine) Stats() Stats {
	return e.stats
}

// CompositeAll runs one paint pass and returns how many windows were
// blended. Windows are painted in registry order so later ones occlude
// earlier ones. A window that fails to blend is skipped and keeps its
// damage. The only error is failure to create the overlay surface.
func (e *Engine) CompositeAll() (int, error) {
	if err := e.ensureOverlay(); err != nil {
		return 0, err
	}

	full := e.fullRepaint
	e.fullRepaint = false
	e.stats.Passes++

	if full {
		e.stats.FullRepaints++
		if err := e.server.Fill(e.overlay, e.server.ScreenBounds(), e.background); err != nil {
			e.logger.Warn("background fill failed", "error", err)
			e.fullRepaint = true
		}
	}

	painted := 0
	for _, w := range e.registry.Windows() {
		if !w.Paintable() {
			continue
		}
		if !w.NeedsRedraw && !full {
			continue
		}
		if err := e.server.Blend(w.picture, e.overlay, w.Geometry.Contents()); err != nil {
			e.logger.Warn("window skipped for this pass", "window", w.ID, "error", err)
			e.stats.Skipped++
			continue
		}
		w.NeedsRedraw = false
		painted++
	}

	if painted > 0 || full {
		e.server.Flush()
	}
	e.stats.Painted += uint64(painted)
	if painted > 0 {
		e.logger.Debug("composite pass", "painted", painted, "full", full)
	}
	return painted, nil
}

// Close releases the overlay surface.
func (e *Engine) Close() {
	if e.overlay == NoHandle {
		return
	}
	e.server.ReleasePicture(e.overlay)
	e.overlay = NoHandle
}

func (e *Engine) ensureOverlay() error {
	if e.overlay != NoHandle {
		return nil
	}
	h, err := e.server.CreateOverlayPicture()
	if err != nil {
		return fmt.Errorf("failed to create overlay surface: %w", err)
	}
	e.overlay = h
	return nil
}
