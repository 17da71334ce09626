package x11

import (
	"fmt"
	"log/slog"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"

	"github.com/1broseidon/sxcom/internal/compositor"
)

// Connection manages the X11 connection and the resources the compositor
// holds on the server: the redirected root and the composite overlay window.
type Connection struct {
	XUtil   *xgbutil.XUtil
	Root    xproto.Window
	Overlay xproto.Window

	screen  *xproto.ScreenInfo
	formats map[xproto.Visualid]render.Pictformat
	logger  *slog.Logger
}

var _ compositor.Server = (*Connection)(nil)

// Connect opens display (empty means $DISPLAY), negotiates the Composite,
// Damage, XFixes and Render extensions and loads the picture formats.
func Connect(display string, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = slog.Default()
	}

	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("failed to open display %q: %w", display, err)
	}

	c := &Connection{
		XUtil:  xu,
		Root:   xu.RootWin(),
		screen: xu.Screen(),
		logger: logger,
	}

	if err := negotiate(xu.Conn(), logger); err != nil {
		xu.Conn().Close()
		return nil, err
	}
	if err := c.loadPictFormats(); err != nil {
		xu.Conn().Close()
		return nil, err
	}
	return c, nil
}

// Redirect takes over rendering of every top-level window, acquires the
// overlay window and subscribes to the events the compositor consumes.
// It fails when another compositor already owns the screen.
func (c *Connection) Redirect() error {
	conn := c.conn()

	err := composite.RedirectSubwindowsChecked(conn, c.Root, composite.RedirectManual).Check()
	if err != nil {
		return fmt.Errorf("failed to redirect subwindows (is another compositor running?): %w", err)
	}

	reply, err := composite.GetOverlayWindow(conn, c.Root).Reply()
	if err != nil {
		return fmt.Errorf("failed to get overlay window: %w", err)
	}
	c.Overlay = reply.OverlayWin

	if err := c.passThroughInput(c.Overlay); err != nil {
		return err
	}

	err = xproto.ChangeWindowAttributesChecked(conn, c.Overlay,
		xproto.CwEventMask, []uint32{xproto.EventMaskExposure}).Check()
	if err != nil {
		return fmt.Errorf("failed to select overlay events: %w", err)
	}
	err = xproto.ChangeWindowAttributesChecked(conn, c.Root,
		xproto.CwEventMask, []uint32{xproto.EventMaskSubstructureNotify}).Check()
	if err != nil {
		return fmt.Errorf("failed to select root events: %w", err)
	}

	c.logger.Info("screen redirected",
		"root", compositor.WindowID(c.Root),
		"overlay", compositor.WindowID(c.Overlay),
		"width", c.screen.WidthInPixels,
		"height", c.screen.HeightInPixels)
	return nil
}

// passThroughInput gives win an empty input shape so pointer events reach
// the windows underneath.
func (c *Connection) passThroughInput(win xproto.Window) error {
	conn := c.conn()
	region, err := xfixes.NewRegionId(conn)
	if err != nil {
		return fmt.Errorf("failed to allocate region: %w", err)
	}
	if err := xfixes.CreateRegionChecked(conn, region, nil).Check(); err != nil {
		return fmt.Errorf("failed to create empty region: %w", err)
	}
	defer xfixes.DestroyRegion(conn, region)

	err = xfixes.SetWindowShapeRegionChecked(conn, win, shape.SkInput, 0, 0, region).Check()
	if err != nil {
		return fmt.Errorf("failed to make overlay input-transparent: %w", err)
	}
	return nil
}

// ReleaseOverlay hands the overlay window back to the server.
func (c *Connection) ReleaseOverlay() {
	if c.Overlay == 0 {
		return
	}
	composite.ReleaseOverlayWindow(c.conn(), c.Root)
	c.Overlay = 0
}

// RootWindow returns the root window of the default screen.
func (c *Connection) RootWindow() compositor.WindowID {
	return compositor.WindowID(c.Root)
}

// OverlayWindow returns the composite overlay window, or 0 before Redirect.
func (c *Connection) OverlayWindow() compositor.WindowID {
	return compositor.WindowID(c.Overlay)
}

// TopLevelWindows returns the children of the root window, bottom first.
func (c *Connection) TopLevelWindows() ([]compositor.WindowID, error) {
	tree, err := xproto.QueryTree(c.conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query window tree: %w", err)
	}
	ids := make([]compositor.WindowID, 0, len(tree.Children))
	for _, child := range tree.Children {
		ids = append(ids, compositor.WindowID(child))
	}
	return ids, nil
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}

func (c *Connection) conn() *xgb.Conn {
	return c.XUtil.Conn()
}
