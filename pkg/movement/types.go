// Package movement turns target offsets into timed cursor motion.
// It provides:
// - WindMouse, a random-force path generator (wind + gravity + drag)
// - SmoothAimer, which layers reaction delay, fatigue and easing on top
// - Manager, which plays queued steps against an actuator on its own goroutine
package movement

import (
	"math"
	"time"
)

// Step is one relative cursor motion followed by a wait.
type Step struct {
	DX, DY int           // Relative motion in counts
	Delay  time.Duration // Wait after applying the motion
}

// IsZero reports whether the step moves nothing.
func (s Step) IsZero() bool {
	return s.DX == 0 && s.DY == 0
}

// Path is an ordered, finite sequence of steps. Paths are consumed once.
type Path []Step

// Sum returns the net displacement of the path.
func (p Path) Sum() (dx, dy int) {
	for _, s := range p {
		dx += s.DX
		dy += s.DY
	}
	return dx, dy
}

// Duration returns the total wait time of the path.
func (p Path) Duration() time.Duration {
	var d time.Duration
	for _, s := range p {
		d += s.Delay
	}
	return d
}

// Point is a position in the motion plane.
type Point struct {
	X, Y float64
}

// Dist returns the Euclidean distance between two points.
func (p Point) Dist(o Point) float64 {
	return math.Hypot(o.X-p.X, o.Y-p.Y)
}

// clamp restricts v to the range [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
