package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/1broseidon/sxcom/internal/compositor"
	"github.com/1broseidon/sxcom/internal/config"
	"github.com/1broseidon/sxcom/internal/x11"
)

// Display is a redirected screen the compositor can drive.
type Display interface {
	compositor.Server

	RootWindow() compositor.WindowID
	OverlayWindow() compositor.WindowID
	TopLevelWindows() ([]compositor.WindowID, error)
	WindowName(id compositor.WindowID) string

	// Events streams classified events until the display closes or ctx
	// is done.
	Events(ctx context.Context) <-chan compositor.Event

	ReleaseOverlay()
	Close()
}

// Run connects to the configured display and composites until SIGINT,
// SIGTERM or ctx cancellation. Startup failures and registry consistency
// violations are returned; a clean stop returns nil.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	stop := NewStopFlag()
	cancelSignals := stop.RaiseOnSignal(os.Interrupt, syscall.SIGTERM)
	defer cancelSignals()

	conn, err := x11.Connect(cfg.Display, logger)
	if err != nil {
		return err
	}
	if err := conn.Redirect(); err != nil {
		conn.ReleaseOverlay()
		conn.Close()
		return err
	}

	return Serve(ctx, conn, cfg, stop, logger)
}

// Serve runs the compositor on an already redirected display and tears
// everything down in order: window resources, the overlay surface, the
// overlay window and finally the connection.
func Serve(ctx context.Context, display Display, cfg *config.Config, stop *StopFlag, logger *slog.Logger) (err error) {
	started := time.Now()

	registry := compositor.NewRegistry(display, logger)
	engine := compositor.NewEngine(display, registry, backgroundColor(cfg), logger)
	dispatcher := compositor.NewDispatcher(compositor.DispatcherConfig{
		Root:               display.RootWindow(),
		Overlay:            display.OverlayWindow(),
		RevalidateInterval: time.Duration(cfg.RevalidateInterval),
		Logger:             logger,
	}, registry, engine)

	defer display.Close()
	defer display.ReleaseOverlay()
	defer engine.Close()
	defer registry.Close()

	// Subscribe before enumerating so no creation is missed in between.
	pumpCtx, cancelPump := context.WithCancel(ctx)
	defer cancelPump()
	events := display.Events(pumpCtx)

	go func() {
		select {
		case <-pumpCtx.Done():
			stop.Raise()
		case <-stop.Done():
		}
	}()

	ids, err := display.TopLevelWindows()
	if err != nil {
		return err
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		for _, id := range ids {
			logger.Debug("existing window", "window", id, "name", display.WindowName(id))
		}
	}
	dispatcher.Enumerate(ids)

	logger.Info("compositor running", "windows", registry.Len(), "revalidate", time.Duration(cfg.RevalidateInterval))
	err = dispatcher.Run(events, stop)
	logSummary(logger, engine.Stats(), dispatcher.Handled(), time.Since(started), err)

	if errors.Is(err, compositor.ErrUntracked) {
		return fmt.Errorf("aborting: %w", err)
	}
	return err
}

func backgroundColor(cfg *config.Config) compositor.Color {
	r, g, b := cfg.BackgroundRGB()
	return compositor.Color{
		Red:   uint16(r) * 0x101,
		Green: uint16(g) * 0x101,
		Blue:  uint16(b) * 0x101,
		Alpha: 0xffff,
	}
}

func logSummary(logger *slog.Logger, st compositor.Stats, events uint64, uptime time.Duration, err error) {
	attrs := []any{
		"uptime", uptime.Round(time.Second).String(),
		"events", humanize.Comma(int64(events)),
		"passes", humanize.Comma(int64(st.Passes)),
		"painted", humanize.Comma(int64(st.Painted)),
		"full_repaints", humanize.Comma(int64(st.FullRepaints)),
	}
	if err != nil {
		logger.Error("compositor stopped", append(attrs, "error", err)...)
		return
	}
	logger.Info("compositor stopped", attrs...)
}
