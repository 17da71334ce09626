package compositor

import (
	"errors"
	"fmt"
)

// ErrUntracked is the root cause of every registry consistency violation.
var ErrUntracked = errors.New("window is not tracked")

// ErrConnectionClosed is returned by Run when the event stream ends.
var ErrConnectionClosed = errors.New("connection to X server closed")

// InvariantError reports an event that names a window the registry does not
// track. It is fatal: the registry no longer mirrors the server.
type InvariantError struct {
	Op     string
	Window WindowID
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("registry out of sync: %s for untracked window %s", e.Op, e.Window)
}

func (e *InvariantError) Unwrap() error {
	return ErrUntracked
}
