package compositor

import "fmt"

// WindowID is the identifier the X server assigns to a window.
type WindowID uint32

func (id WindowID) String() string {
	return fmt.Sprintf("%#x", uint32(id))
}

// Handle names a server-side resource such as a picture or damage object.
type Handle uint32

// NoHandle is the zero Handle; it never names a live resource.
const NoHandle Handle = 0

// Visibility mirrors the map state reported by the server.
type Visibility int

const (
	NotViewable Visibility = iota
	Viewable
)

func (v Visibility) String() string {
	if v == Viewable {
		return "viewable"
	}
	return "not-viewable"
}

// Rect is an area in root window coordinates.
type Rect struct {
	X, Y          int16
	Width, Height uint16
}

// Geometry is a window's position, size and depth as last reported.
type Geometry struct {
	X, Y          int16
	Width, Height uint16
	BorderWidth   uint16
	Depth         uint8
}

// Contents returns the area inside the window's border. X and Y name the
// outer corner, so the contents start one border width in.
func (g Geometry) Contents() Rect {
	return Rect{
		X:      g.X + int16(g.BorderWidth),
		Y:      g.Y + int16(g.BorderWidth),
		Width:  g.Width,
		Height: g.Height,
	}
}

// Attributes is what the server reports about a window when it is first seen.
type Attributes struct {
	Geometry   Geometry
	Visibility Visibility
	InputOnly  bool
	Visual     uint32
}

// Color is a premultiplied 16-bit-per-channel RGBA value.
type Color struct {
	Red, Green, Blue, Alpha uint16
}

// Window is the registry's record of one redirected top-level window.
type Window struct {
	ID          WindowID
	Geometry    Geometry
	Visibility  Visibility
	InputOnly   bool
	Visual      uint32
	NeedsRedraw bool

	picture Handle
	damage  Handle
}

// Picture returns the window's render handle, or NoHandle.
func (w *Window) Picture() Handle {
	return w.picture
}

// Paintable reports whether the window can be blended onto the overlay.
func (w *Window) Paintable() bool {
	return w.picture != NoHandle
}

func (w *Window) attributes() Attributes {
	return Attributes{
		Geometry:   w.Geometry,
		Visibility: w.Visibility,
		InputOnly:  w.InputOnly,
		Visual:     w.Visual,
	}
}
