package compositor

import (
	"log/slog"
	"slices"
)

// Registry owns every Window record and the server resources bound to them.
// It is not safe for concurrent use; the dispatcher is its only caller.
type Registry struct {
	server  Server
	logger  *slog.Logger
	windows map[WindowID]*Window
	order   []WindowID // creation order, bottom to top
}

// NewRegistry creates an empty registry issuing commands to server.
func NewRegistry(server Server, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		server:  server,
		logger:  logger,
		windows: make(map[WindowID]*Window),
	}
}

// Len returns the number of tracked windows.
func (r *Registry) Len() int {
	return len(r.order)
}

// Find returns the record for id.
func (r *Registry) Find(id WindowID) (*Window, bool) {
	w, ok := r.windows[id]
	return w, ok
}

// Windows returns the tracked records in paint order.
func (r *Registry) Windows() []*Window {
	out := make([]*Window, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.windows[id])
	}
	return out
}

// Add starts tracking id. Adding a tracked window is a no-op. If the server
// cannot describe the window it is not tracked and Add returns nil.
func (r *Registry) Add(id WindowID) *Window {
	if w, ok := r.windows[id]; ok {
		return w
	}

	attrs, err := r.server.QueryWindow(id)
	if err != nil {
		r.logger.Warn("window not tracked: attribute query failed", "window", id, "error", err)
		return nil
	}

	w := &Window{
		ID:          id,
		Geometry:    attrs.Geometry,
		Visibility:  attrs.Visibility,
		InputOnly:   attrs.InputOnly,
		Visual:      attrs.Visual,
		NeedsRedraw: true,
	}

	if !w.InputOnly {
		dmg, err := r.server.WatchDamage(id)
		if err != nil {
			r.logger.Warn("damage tracking unavailable", "window", id, "error", err)
		} else {
			w.damage = dmg
		}
	}
	if w.Visibility == Viewable {
		r.acquirePicture(w)
	}

	r.windows[id] = w
	r.order = append(r.order, id)
	r.logger.Debug("window tracked", "window", id, "viewable", w.Visibility == Viewable, "paintable", w.Paintable())
	return w
}

// Remove stops tracking id and releases its resources. Removing an untracked
// window is a no-op. It reports whether a record was removed.
func (r *Registry) Remove(id WindowID) bool {
	w, ok := r.windows[id]
	if !ok {
		return false
	}

	r.releasePicture(w)
	if w.damage != NoHandle {
		r.server.UnwatchDamage(w.damage)
		w.damage = NoHandle
	}

	delete(r.windows, id)
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	r.logger.Debug("window untracked", "window", id)
	return true
}

// MarkDamaged flags a tracked window for repaint.
func (r *Registry) MarkDamaged(id WindowID) error {
	w, ok := r.windows[id]
	if !ok {
		return &InvariantError{Op: "damage", Window: id}
	}
	w.NeedsRedraw = true
	return nil
}

// ReportDamage marks the window damaged and re-arms its damage subscription.
func (r *Registry) ReportDamage(id WindowID) error {
	if err := r.MarkDamaged(id); err != nil {
		return err
	}
	if w := r.windows[id]; w.damage != NoHandle {
		r.server.AcknowledgeDamage(w.damage)
	}
	return nil
}

// MarkAllDamaged flags every tracked window for repaint.
func (r *Registry) MarkAllDamaged() {
	for _, w := range r.windows {
		w.NeedsRedraw = true
	}
}

// SetGeometry records a window's new geometry. It does not imply a repaint.
func (r *Registry) SetGeometry(id WindowID, g Geometry) error {
	w, ok := r.windows[id]
	if !ok {
		return &InvariantError{Op: "configure", Window: id}
	}
	// ConfigureNotify carries no depth.
	if g.Depth == 0 {
		g.Depth = w.Geometry.Depth
	}
	w.Geometry = g
	return nil
}

// SetVisibility applies a map or unmap. A window becoming viewable gets a
// fresh picture and is marked damaged; one becoming hidden loses its picture.
// It reports false when id is not tracked.
func (r *Registry) SetVisibility(id WindowID, v Visibility) bool {
	w, ok := r.windows[id]
	if !ok {
		return false
	}

	w.Visibility = v
	switch v {
	case Viewable:
		r.acquirePicture(w)
		w.NeedsRedraw = true
	case NotViewable:
		r.releasePicture(w)
	}
	return true
}

// Revalidate retries picture creation for viewable windows that have none.
// Recovered windows are marked damaged. It returns how many recovered.
func (r *Registry) Revalidate() int {
	recovered := 0
	for _, id := range r.order {
		w := r.windows[id]
		if w.Visibility != Viewable || w.Paintable() || w.InputOnly {
			continue
		}
		if r.acquirePicture(w) {
			w.NeedsRedraw = true
			recovered++
		}
	}
	return recovered
}

// Close releases every resource and empties the registry.
func (r *Registry) Close() {
	for _, id := range slices.Clone(r.order) {
		r.Remove(id)
	}
}

func (r *Registry) acquirePicture(w *Window) bool {
	if w.picture != NoHandle {
		return true
	}
	if w.InputOnly {
		return false
	}
	pic, err := r.server.CreateWindowPicture(w.ID, w.attributes())
	if err != nil {
		r.logger.Warn("window not paintable: picture creation failed", "window", w.ID, "error", err)
		return false
	}
	w.picture = pic
	return true
}

func (r *Registry) releasePicture(w *Window) {
	if w.picture == NoHandle {
		return
	}
	r.server.ReleasePicture(w.picture)
	w.picture = NoHandle
}
