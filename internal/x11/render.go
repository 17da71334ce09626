package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/sxcom/internal/compositor"
)

// loadPictFormats maps every visual on the screen to its picture format.
func (c *Connection) loadPictFormats() error {
	reply, err := render.QueryPictFormats(c.conn()).Reply()
	if err != nil {
		return fmt.Errorf("failed to query picture formats: %w", err)
	}
	c.formats = visualFormats(reply)
	if _, ok := c.formats[c.screen.RootVisual]; !ok {
		return fmt.Errorf("no picture format for root visual %#x", uint32(c.screen.RootVisual))
	}
	return nil
}

func visualFormats(reply *render.QueryPictFormatsReply) map[xproto.Visualid]render.Pictformat {
	formats := make(map[xproto.Visualid]render.Pictformat)
	for _, screen := range reply.Screens {
		for _, depth := range screen.Depths {
			for _, v := range depth.Visuals {
				formats[v.Visual] = v.Format
			}
		}
	}
	return formats
}

// QueryWindow fetches the attributes and geometry of a window.
func (c *Connection) QueryWindow(id compositor.WindowID) (compositor.Attributes, error) {
	win := xproto.Window(id)
	attrCookie := xproto.GetWindowAttributes(c.conn(), win)
	geomCookie := xproto.GetGeometry(c.conn(), xproto.Drawable(win))

	attrs, err := attrCookie.Reply()
	if err != nil {
		return compositor.Attributes{}, fmt.Errorf("get window attributes: %w", err)
	}
	geom, err := geomCookie.Reply()
	if err != nil {
		return compositor.Attributes{}, fmt.Errorf("get window geometry: %w", err)
	}

	vis := compositor.NotViewable
	if attrs.MapState == xproto.MapStateViewable {
		vis = compositor.Viewable
	}
	return compositor.Attributes{
		Geometry: compositor.Geometry{
			X:           geom.X,
			Y:           geom.Y,
			Width:       geom.Width,
			Height:      geom.Height,
			BorderWidth: geom.BorderWidth,
			Depth:       geom.Depth,
		},
		Visibility: vis,
		InputOnly:  attrs.Class == xproto.WindowClassInputOnly,
		Visual:     uint32(attrs.Visual),
	}, nil
}

// CreateWindowPicture creates a picture of the window's redirected contents,
// including its subwindows.
func (c *Connection) CreateWindowPicture(id compositor.WindowID, attrs compositor.Attributes) (compositor.Handle, error) {
	format, ok := c.formats[xproto.Visualid(attrs.Visual)]
	if !ok {
		return compositor.NoHandle, fmt.Errorf("no picture format for visual %#x", attrs.Visual)
	}
	return c.createPicture(xproto.Drawable(id), format)
}

// CreateOverlayPicture creates the destination picture on the overlay window.
func (c *Connection) CreateOverlayPicture() (compositor.Handle, error) {
	if c.Overlay == 0 {
		return compositor.NoHandle, errors.New("overlay window not acquired")
	}
	return c.createPicture(xproto.Drawable(c.Overlay), c.formats[c.screen.RootVisual])
}

func (c *Connection) createPicture(d xproto.Drawable, format render.Pictformat) (compositor.Handle, error) {
	pid, err := render.NewPictureId(c.conn())
	if err != nil {
		return compositor.NoHandle, fmt.Errorf("allocate picture id: %w", err)
	}
	err = render.CreatePictureChecked(c.conn(), pid, d, format,
		render.CpSubwindowMode, []uint32{xproto.SubwindowModeIncludeInferiors}).Check()
	if err != nil {
		return compositor.NoHandle, fmt.Errorf("create picture: %w", err)
	}
	return compositor.Handle(pid), nil
}

// ReleasePicture frees a picture created by this connection.
func (c *Connection) ReleasePicture(h compositor.Handle) {
	render.FreePicture(c.conn(), render.Picture(h))
}

// WatchDamage creates a damage object that reports once per burst of
// changes until acknowledged.
func (c *Connection) WatchDamage(id compositor.WindowID) (compositor.Handle, error) {
	dmg, err := damage.NewDamageId(c.conn())
	if err != nil {
		return compositor.NoHandle, fmt.Errorf("allocate damage id: %w", err)
	}
	err = damage.CreateChecked(c.conn(), dmg, xproto.Drawable(id), damage.ReportLevelNonEmpty).Check()
	if err != nil {
		return compositor.NoHandle, fmt.Errorf("create damage: %w", err)
	}
	return compositor.Handle(dmg), nil
}

// UnwatchDamage destroys a damage object. The server destroys it along with
// its window, so a failure here is expected after DestroyNotify.
func (c *Connection) UnwatchDamage(h compositor.Handle) {
	if err := damage.DestroyChecked(c.conn(), damage.Damage(h)).Check(); err != nil {
		c.logger.Debug("damage already gone", "damage", uint32(h), "error", err)
	}
}

// AcknowledgeDamage empties the damage region so the next change reports.
func (c *Connection) AcknowledgeDamage(h compositor.Handle) {
	damage.Subtract(c.conn(), damage.Damage(h), 0, 0)
}

// ScreenBounds returns the size of the root window.
func (c *Connection) ScreenBounds() compositor.Rect {
	return compositor.Rect{
		Width:  c.screen.WidthInPixels,
		Height: c.screen.HeightInPixels,
	}
}

// Blend composites src over dst. Errors from the server arrive
// asynchronously through the event stream.
func (c *Connection) Blend(src, dst compositor.Handle, at compositor.Rect) error {
	if src == compositor.NoHandle || dst == compositor.NoHandle {
		return errors.New("blend with missing picture")
	}
	render.Composite(c.conn(), render.PictOpOver,
		render.Picture(src), 0, render.Picture(dst),
		0, 0, 0, 0,
		at.X, at.Y, at.Width, at.Height)
	return nil
}

// Fill paints area of dst with a solid colour.
func (c *Connection) Fill(dst compositor.Handle, area compositor.Rect, col compositor.Color) error {
	if dst == compositor.NoHandle {
		return errors.New("fill with missing picture")
	}
	render.FillRectangles(c.conn(), render.PictOpSrc, render.Picture(dst),
		render.Color{Red: col.Red, Green: col.Green, Blue: col.Blue, Alpha: col.Alpha},
		[]xproto.Rectangle{{X: area.X, Y: area.Y, Width: area.Width, Height: area.Height}})
	return nil
}

// Flush is a no-op: xgb writes every request as it is issued.
func (c *Connection) Flush() {}
