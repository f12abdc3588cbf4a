package actuator

import (
	"context"
	"errors"
	"io"
	"math/bits"
	"sync"
)

// maxButtonValue is the largest byte a 5-button device reports.
const maxButtonValue = 1<<NumButtons - 1

// ButtonTracker decodes the device's button byte stream.
//
// Each byte is a bitmask of held buttons. Only values naming zero or one
// button are trusted; anything else is line noise and is ignored.
type ButtonTracker struct {
	mu      sync.RWMutex
	last    byte
	pressed [NumButtons]bool
}

// NewButtonTracker returns a tracker with every button released.
func NewButtonTracker() *ButtonTracker {
	return &ButtonTracker{}
}

// Update feeds one raw value and reports whether it was accepted.
func (t *ButtonTracker) Update(v byte) bool {
	if v > maxButtonValue || bits.OnesCount8(v) > 1 {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	pressed := (v ^ t.last) & v
	released := (v ^ t.last) & t.last
	for i := 0; i < NumButtons; i++ {
		bit := byte(1) << i
		switch {
		case pressed == bit:
			t.pressed[i] = true
		case released == bit:
			t.pressed[i] = false
		}
	}
	t.last = v
	return true
}

// IsPressed reports whether button is held. Out-of-range buttons are never held.
func (t *ButtonTracker) IsPressed(button int) bool {
	if button < 0 || button >= NumButtons {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pressed[button]
}

// Snapshot returns the held state of every button.
func (t *ButtonTracker) Snapshot() [NumButtons]bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pressed
}

// Listen feeds every byte read from r until r is exhausted or ctx is done.
// io.EOF ends the stream cleanly.
func (t *ButtonTracker) Listen(ctx context.Context, r io.Reader) error {
	buf := make([]byte, 64)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			t.Update(b)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
