package x11

import (
	"context"
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/sxcom/internal/compositor"
)

const eventBuffer = 256

// Events starts a goroutine that reads the X event stream and forwards
// classified events. The channel is closed when the connection closes or
// ctx is done. The goroutine never touches compositor state.
func (c *Connection) Events(ctx context.Context) <-chan compositor.Event {
	out := make(chan compositor.Event, eventBuffer)
	conn := c.conn()
	root := c.Root

	go func() {
		defer close(out)
		for {
			ev, xerr := conn.WaitForEvent()
			if ev == nil && xerr == nil {
				return
			}

			var cev compositor.Event
			if xerr != nil {
				cev = compositor.ProtocolError{Err: xerr}
			} else {
				cev = classify(root, ev)
			}

			select {
			case out <- cev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// classify maps a raw X event onto the compositor's event vocabulary.
func classify(root xproto.Window, ev xgb.Event) compositor.Event {
	switch e := ev.(type) {
	case xproto.CreateNotifyEvent:
		return compositor.WindowCreated{Window: compositor.WindowID(e.Window)}

	case xproto.DestroyNotifyEvent:
		return compositor.WindowDestroyed{Window: compositor.WindowID(e.Window)}

	case xproto.ReparentNotifyEvent:
		if e.Parent == root {
			return compositor.WindowCreated{Window: compositor.WindowID(e.Window)}
		}
		return compositor.WindowReparented{
			Window: compositor.WindowID(e.Window),
			Parent: compositor.WindowID(e.Parent),
		}

	case xproto.ConfigureNotifyEvent:
		return compositor.GeometryChanged{
			Window: compositor.WindowID(e.Window),
			Geometry: compositor.Geometry{
				X:           e.X,
				Y:           e.Y,
				Width:       e.Width,
				Height:      e.Height,
				BorderWidth: e.BorderWidth,
			},
		}

	case xproto.MapNotifyEvent:
		return compositor.VisibilityChanged{Window: compositor.WindowID(e.Window), Visibility: compositor.Viewable}

	case xproto.UnmapNotifyEvent:
		return compositor.VisibilityChanged{Window: compositor.WindowID(e.Window), Visibility: compositor.NotViewable}

	case damage.NotifyEvent:
		return compositor.DamageReported{Window: compositor.WindowID(e.Drawable)}

	case xproto.ExposeEvent:
		return compositor.Exposed{
			Window: compositor.WindowID(e.Window),
			Area:   compositor.Rect{X: int16(e.X), Y: int16(e.Y), Width: e.Width, Height: e.Height},
		}
	}
	return compositor.Unrecognized{Name: fmt.Sprintf("%T", ev)}
}
