package x11

import (
	"fmt"
	"log/slog"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xfixes"
)

type extension struct {
	name         string
	init         func(*xgb.Conn) error
	queryVersion func(*xgb.Conn) (major, minor uint32, err error)
	minMajor     uint32
	minMinor     uint32
}

// Composite 0.2 introduced the overlay window; XFixes 2.0 introduced regions.
var requiredExtensions = []extension{
	{
		name: "Composite",
		init: composite.Init,
		queryVersion: func(c *xgb.Conn) (uint32, uint32, error) {
			r, err := composite.QueryVersion(c, 0, 4).Reply()
			if err != nil {
				return 0, 0, err
			}
			return r.MajorVersion, r.MinorVersion, nil
		},
		minMajor: 0, minMinor: 2,
	},
	{
		name: "XFixes",
		init: xfixes.Init,
		queryVersion: func(c *xgb.Conn) (uint32, uint32, error) {
			r, err := xfixes.QueryVersion(c, 5, 0).Reply()
			if err != nil {
				return 0, 0, err
			}
			return r.MajorVersion, r.MinorVersion, nil
		},
		minMajor: 2, minMinor: 0,
	},
	{
		name: "DAMAGE",
		init: damage.Init,
		queryVersion: func(c *xgb.Conn) (uint32, uint32, error) {
			r, err := damage.QueryVersion(c, 1, 1).Reply()
			if err != nil {
				return 0, 0, err
			}
			return r.MajorVersion, r.MinorVersion, nil
		},
		minMajor: 1, minMinor: 0,
	},
	{
		name: "RENDER",
		init: render.Init,
		queryVersion: func(c *xgb.Conn) (uint32, uint32, error) {
			r, err := render.QueryVersion(c, 0, 11).Reply()
			if err != nil {
				return 0, 0, err
			}
			return r.MajorVersion, r.MinorVersion, nil
		},
		minMajor: 0, minMinor: 0,
	},
}

// negotiate initialises every required extension and checks its version.
// The server must learn the client versions of XFixes and Damage before
// any other request of those extensions.
func negotiate(conn *xgb.Conn, logger *slog.Logger) error {
	for _, ext := range requiredExtensions {
		if err := ext.init(conn); err != nil {
			return fmt.Errorf("X server lacks the %s extension: %w", ext.name, err)
		}
		major, minor, err := ext.queryVersion(conn)
		if err != nil {
			return fmt.Errorf("failed to query %s version: %w", ext.name, err)
		}
		if !versionAtLeast(major, minor, ext.minMajor, ext.minMinor) {
			return fmt.Errorf("%s %d.%d is too old, need %d.%d",
				ext.name, major, minor, ext.minMajor, ext.minMinor)
		}
		logger.Debug("extension ready", "name", ext.name, "version", fmt.Sprintf("%d.%d", major, minor))
	}
	return nil
}

func versionAtLeast(major, minor, wantMajor, wantMinor uint32) bool {
	if major != wantMajor {
		return major > wantMajor
	}
	return minor >= wantMinor
}
