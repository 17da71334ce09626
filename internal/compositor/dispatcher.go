package compositor

import (
	"log/slog"
	"time"
)

// State is the dispatcher's run state.
type State int

const (
	Running State = iota
	Quitting
)

func (s State) String() string {
	if s == Quitting {
		return "quitting"
	}
	return "running"
}

// Stopper is an externally raised stop request.
type Stopper interface {
	Raised() bool
	Done() <-chan struct{}
}

// DispatcherConfig holds configuration for the dispatcher.
type DispatcherConfig struct {
	// Root and Overlay identify the screen-wide windows. Events naming the
	// overlay are ignored; exposes of either repaint the whole screen.
	Root    WindowID
	Overlay WindowID

	// RevalidateInterval enables periodic picture re-creation for viewable
	// windows that have none. Zero disables it.
	RevalidateInterval time.Duration

	Logger *slog.Logger
}

// Dispatcher applies classified events to the registry and drives the
// engine. It is the only goroutine touching either.
type Dispatcher struct {
	registry   *Registry
	engine     *Engine
	logger     *slog.Logger
	root       WindowID
	overlay    WindowID
	revalidate time.Duration
	state      State
	handled    uint64

	// vanished holds live or just-destroyed windows that are not tracked
	// although the server may still report on them: those whose attribute
	// query failed on creation and those reparented away from the root.
	// Their queued events are dropped until a creation or destroy notice
	// names them again.
	vanished map[WindowID]struct{}
}

// NewDispatcher creates a dispatcher in the Running state.
func NewDispatcher(cfg DispatcherConfig, registry *Registry, engine *Engine) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry:   registry,
		engine:     engine,
		logger:     logger,
		root:       cfg.Root,
		overlay:    cfg.Overlay,
		revalidate: cfg.RevalidateInterval,
		state:      Running,
		vanished:   make(map[WindowID]struct{}),
	}
}

// State returns the current run state.
func (d *Dispatcher) State() State {
	return d.state
}

// Handled returns the number of events processed.
func (d *Dispatcher) Handled() uint64 {
	return d.handled
}

// Enumerate adds pre-existing windows in the given order, bottom first.
func (d *Dispatcher) Enumerate(ids []WindowID) {
	for _, id := range ids {
		if id == d.overlay {
			continue
		}
		d.add(id)
	}
	d.logger.Info("initial windows enumerated", "found", len(ids), "tracked", d.registry.Len())
}

// Handle applies one event. The returned error is fatal.
func (d *Dispatcher) Handle(ev Event) error {
	d.handled++

	switch ev := ev.(type) {
	case WindowCreated:
		if ev.Window == d.overlay {
			return nil
		}
		d.add(ev.Window)

	case WindowDestroyed:
		delete(d.vanished, ev.Window)
		if w, ok := d.registry.Find(ev.Window); ok && w.Paintable() {
			d.engine.Invalidate()
		}
		d.registry.Remove(ev.Window)

	case WindowReparented:
		if ev.Window == d.overlay {
			return nil
		}
		if w, ok := d.registry.Find(ev.Window); ok && w.Paintable() {
			d.engine.Invalidate()
		}
		d.registry.Remove(ev.Window)
		d.vanished[ev.Window] = struct{}{}

	case GeometryChanged:
		if ev.Window == d.overlay || d.isVanished(ev.Window) {
			return nil
		}
		return d.registry.SetGeometry(ev.Window, ev.Geometry)

	case VisibilityChanged:
		if ev.Window == d.overlay {
			return nil
		}
		w, ok := d.registry.Find(ev.Window)
		if !ok {
			if d.isVanished(ev.Window) {
				return nil
			}
			d.logger.Warn("visibility change for untracked window ignored", "window", ev.Window, "visibility", ev.Visibility)
			return nil
		}
		wasPaintable := w.Paintable()
		d.registry.SetVisibility(ev.Window, ev.Visibility)
		if ev.Visibility == NotViewable && wasPaintable {
			d.engine.Invalidate()
		}

	case DamageReported:
		if d.isVanished(ev.Window) {
			return nil
		}
		return d.registry.ReportDamage(ev.Window)

	case Exposed:
		if ev.Window == d.overlay || ev.Window == d.root {
			d.registry.MarkAllDamaged()
			d.engine.Invalidate()
			return nil
		}
		if _, ok := d.registry.Find(ev.Window); !ok {
			d.logger.Debug("expose for untracked window ignored", "window", ev.Window)
			return nil
		}
		return d.registry.MarkDamaged(ev.Window)

	case ProtocolError:
		d.logger.Warn("X protocol error", "error", ev.Err)

	case Unrecognized:
		d.logger.Debug("event ignored", "event", ev.Name)

	default:
		d.logger.Debug("event ignored", "event", ev)
	}
	return nil
}

func (d *Dispatcher) add(id WindowID) {
	if d.registry.Add(id) == nil {
		d.vanished[id] = struct{}{}
		return
	}
	delete(d.vanished, id)
}

func (d *Dispatcher) isVanished(id WindowID) bool {
	_, ok := d.vanished[id]
	return ok
}

// Run composites, then waits for events until stop is raised or a fatal
// error occurs. Every batch of pending events is followed by exactly one
// composite pass. Run returns nil once the dispatcher is Quitting.
func (d *Dispatcher) Run(events <-chan Event, stop Stopper) error {
	var tick <-chan time.Time
	if d.revalidate > 0 {
		ticker := time.NewTicker(d.revalidate)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if _, err := d.engine.CompositeAll(); err != nil {
			return err
		}
		if stop.Raised() {
			d.state = Quitting
			return nil
		}

		select {
		case <-stop.Done():
			d.state = Quitting
			return nil

		case <-tick:
			if n := d.registry.Revalidate(); n > 0 {
				d.logger.Info("recovered unpaintable windows", "count", n)
			}

		case ev, ok := <-events:
			if !ok {
				return ErrConnectionClosed
			}
			if err := d.handleBatch(ev, events); err != nil {
				return err
			}
		}
	}
}

// handleBatch applies first and then every event already queued.
func (d *Dispatcher) handleBatch(first Event, events <-chan Event) error {
	if err := d.Handle(first); err != nil {
		return err
	}
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return ErrConnectionClosed
			}
			if err := d.Handle(ev); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}
