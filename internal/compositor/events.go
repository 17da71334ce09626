package compositor

// Event is a server notification after classification.
type Event interface {
	event()
}

// WindowCreated reports a new top-level window.
type WindowCreated struct {
	Window WindowID
}

// WindowDestroyed reports that a top-level window is gone.
type WindowDestroyed struct {
	Window WindowID
}

// WindowReparented reports that a live window moved under another parent,
// typically a window manager frame, and is no longer top-level.
type WindowReparented struct {
	Window WindowID
	Parent WindowID
}

// GeometryChanged carries the new geometry of a window.
type GeometryChanged struct {
	Window   WindowID
	Geometry Geometry
}

// VisibilityChanged reports a map or unmap.
type VisibilityChanged struct {
	Window     WindowID
	Visibility Visibility
}

// DamageReported names a window whose contents changed.
type DamageReported struct {
	Window WindowID
}

// Exposed names a window with an area that must be repainted.
type Exposed struct {
	Window WindowID
	Area   Rect
}

// ProtocolError is an asynchronous error delivered by the server.
type ProtocolError struct {
	Err error
}

// Unrecognized is any event the compositor does not act on.
type Unrecognized struct {
	Name string
}

func (WindowCreated) event()     {}
func (WindowDestroyed) event()   {}
func (WindowReparented) event()  {}
func (GeometryChanged) event()   {}
func (VisibilityChanged) event() {}
func (DamageReported) event()    {}
func (Exposed) event()           {}
func (ProtocolError) event()     {}
func (Unrecognized) event()      {}
