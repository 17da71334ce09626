package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"

	"github.com/1broseidon/sxcom/internal/compositor"
)

// WindowName returns a window's title for logging, or "" if it has none.
func (c *Connection) WindowName(id compositor.WindowID) string {
	win := xproto.Window(id)
	if name, err := ewmh.WmNameGet(c.XUtil, win); err == nil && name != "" {
		return name
	}
	if name, err := icccm.WmNameGet(c.XUtil, win); err == nil {
		return name
	}
	return ""
}
