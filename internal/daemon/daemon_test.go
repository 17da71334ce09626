package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/sxcom/internal/compositor"
	"github.com/1broseidon/sxcom/internal/config"
)

// fakeDisplay records the commands a Serve call issues.
type fakeDisplay struct {
	mu      sync.Mutex
	windows map[compositor.WindowID]compositor.Attributes
	order   []compositor.WindowID
	events  chan compositor.Event
	next    compositor.Handle
	live    map[compositor.Handle]bool
	blends  int
	fills   []compositor.Color
	calls   []string
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{
		windows: make(map[compositor.WindowID]compositor.Attributes),
		events:  make(chan compositor.Event, 16),
		live:    make(map[compositor.Handle]bool),
	}
}

func (d *fakeDisplay) addWindow(id compositor.WindowID, v compositor.Visibility) {
	d.windows[id] = compositor.Attributes{
		Geometry:   compositor.Geometry{Width: 100, Height: 100, Depth: 24},
		Visibility: v,
	}
	d.order = append(d.order, id)
}

func (d *fakeDisplay) record(call string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
}

func (d *fakeDisplay) alloc() compositor.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.live[d.next] = true
	return d.next
}

func (d *fakeDisplay) free(h compositor.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.live, h)
}

func (d *fakeDisplay) QueryWindow(id compositor.WindowID) (compositor.Attributes, error) {
	attrs, ok := d.windows[id]
	if !ok {
		return compositor.Attributes{}, errors.New("BadWindow")
	}
	return attrs, nil
}

func (d *fakeDisplay) CreateWindowPicture(compositor.WindowID, compositor.Attributes) (compositor.Handle, error) {
	return d.alloc(), nil
}

func (d *fakeDisplay) ReleasePicture(h compositor.Handle) {
	d.free(h)
}

func (d *fakeDisplay) WatchDamage(compositor.WindowID) (compositor.Handle, error) {
	return d.alloc(), nil
}

func (d *fakeDisplay) UnwatchDamage(h compositor.Handle) {
	d.free(h)
}

func (d *fakeDisplay) AcknowledgeDamage(compositor.Handle) {}

func (d *fakeDisplay) CreateOverlayPicture() (compositor.Handle, error) {
	return d.alloc(), nil
}

func (d *fakeDisplay) ScreenBounds() compositor.Rect {
	return compositor.Rect{Width: 800, Height: 600}
}

func (d *fakeDisplay) Blend(src, dst compositor.Handle, at compositor.Rect) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.blends++
	return nil
}

func (d *fakeDisplay) Fill(dst compositor.Handle, area compositor.Rect, c compositor.Color) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fills = append(d.fills, c)
	return nil
}

func (d *fakeDisplay) Flush() {}

func (d *fakeDisplay) RootWindow() compositor.WindowID    { return 0x100 }
func (d *fakeDisplay) OverlayWindow() compositor.WindowID { return 0x200 }

func (d *fakeDisplay) TopLevelWindows() ([]compositor.WindowID, error) {
	return d.order, nil
}

func (d *fakeDisplay) WindowName(compositor.WindowID) string { return "xterm" }

func (d *fakeDisplay) Events(ctx context.Context) <-chan compositor.Event {
	return d.events
}

func (d *fakeDisplay) ReleaseOverlay() {
	d.mu.Lock()
	live := len(d.live)
	d.mu.Unlock()
	if live != 0 {
		d.record("release-overlay-with-live-resources")
		return
	}
	d.record("release-overlay")
}

func (d *fakeDisplay) Close() {
	d.record("close")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServe_StopsCleanlyAndReleasesInOrder(t *testing.T) {
	disp := newFakeDisplay()
	disp.addWindow(0xA, compositor.Viewable)
	disp.addWindow(0xB, compositor.NotViewable)

	cfg := config.DefaultConfig()
	cfg.Background = "#102030"
	stop := NewStopFlag()

	done := make(chan error, 1)
	go func() { done <- Serve(context.Background(), disp, cfg, stop, quietLogger()) }()

	disp.events <- compositor.VisibilityChanged{Window: 0xB, Visibility: compositor.Viewable}
	time.Sleep(20 * time.Millisecond)
	stop.Raise()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Serve did not return after stop")
	}

	if len(disp.calls) != 2 || disp.calls[0] != "release-overlay" || disp.calls[1] != "close" {
		t.Fatalf("expected resources freed before overlay release and close, got %v", disp.calls)
	}
	if len(disp.fills) == 0 {
		t.Fatalf("expected a background fill")
	}
	want := compositor.Color{Red: 0x1010, Green: 0x2020, Blue: 0x3030, Alpha: 0xffff}
	if disp.fills[0] != want {
		t.Fatalf("expected background %+v, got %+v", want, disp.fills[0])
	}
	if disp.blends < 2 {
		t.Fatalf("expected both windows painted, got %d blends", disp.blends)
	}
}

func TestServe_DamageForUnknownWindowAborts(t *testing.T) {
	disp := newFakeDisplay()
	disp.events <- compositor.DamageReported{Window: 0xdead}

	err := Serve(context.Background(), disp, config.DefaultConfig(), NewStopFlag(), quietLogger())
	if !errors.Is(err, compositor.ErrUntracked) {
		t.Fatalf("expected abort on untracked damage, got %v", err)
	}
	if len(disp.calls) != 2 || disp.calls[1] != "close" {
		t.Fatalf("expected cleanup even on abort, got %v", disp.calls)
	}
}

func TestServe_ContextCancelStops(t *testing.T) {
	disp := newFakeDisplay()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Serve(ctx, disp, config.DefaultConfig(), NewStopFlag(), quietLogger()); err != nil {
		t.Fatalf("expected clean stop on cancelled context, got %v", err)
	}
}

func TestServe_ClosedEventStreamIsError(t *testing.T) {
	disp := newFakeDisplay()
	close(disp.events)

	err := Serve(context.Background(), disp, config.DefaultConfig(), NewStopFlag(), quietLogger())
	if !errors.Is(err, compositor.ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
}
