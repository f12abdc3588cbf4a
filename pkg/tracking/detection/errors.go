package detection

import "errors"

var (
	// ErrUnknownColor is returned when a color name has no HSV model.
	ErrUnknownColor = errors.New("unknown color")

	// ErrEmptyFrame is returned when a frame has no pixels.
	ErrEmptyFrame = errors.New("empty frame")
)
