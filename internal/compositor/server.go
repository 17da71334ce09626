package compositor

// Server is the set of windowing-server commands the compositor issues.
// internal/x11 implements it on a live X connection; tests use a fake.
type Server interface {
	// QueryWindow returns the current attributes of a window.
	QueryWindow(id WindowID) (Attributes, error)

	// CreateWindowPicture binds a render handle to a viewable window.
	CreateWindowPicture(id WindowID, attrs Attributes) (Handle, error)
	ReleasePicture(h Handle)

	// WatchDamage subscribes to content changes of a window.
	WatchDamage(id WindowID) (Handle, error)
	UnwatchDamage(h Handle)
	// AcknowledgeDamage re-arms a damage subscription after a report.
	AcknowledgeDamage(h Handle)

	// CreateOverlayPicture creates the shared destination surface.
	CreateOverlayPicture() (Handle, error)

	// ScreenBounds is the full area of the overlay surface.
	ScreenBounds() Rect

	// Blend composites src over dst at the given area.
	Blend(src, dst Handle, at Rect) error
	// Fill replaces an area of dst with a solid colour.
	Fill(dst Handle, area Rect, c Color) error

	// Flush pushes buffered requests to the server.
	Flush()
}
