package compositor

import (
	"errors"
	"fmt"
)

var (
	// ErrStylizationUnavailable means the stylizer failed or returned no usable image
	ErrStylizationUnavailable = errors.New("stylization unavailable")
	// ErrEmptyImage is returned for a request without pixels
	ErrEmptyImage = errors.New("empty image")
	// ErrUnknownMode is returned for a mode outside blur, emoji and style
	ErrUnknownMode = errors.New("unknown mode")
)

// Error carries the context a compositing failure happened in
type Error struct {
	Mode   Mode
	Width  int
	Height int
	Target int // index into the request targets, -1 when not target specific
	Err    error
}

func (e *Error) Error() string {
	if e.Target >= 0 {
		return fmt.Sprintf("composite %s on %dx%d image, target %d: %v", e.Mode, e.Width, e.Height, e.Target, e.Err)
	}
	return fmt.Sprintf("composite %s on %dx%d image: %v", e.Mode, e.Width, e.Height, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
