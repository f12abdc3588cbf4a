package tracking

import (
	"image"
	"math"
)

// Target is a candidate aim point for the current frame.
type Target struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Distance float64 `json:"distance"` // To screen center
}

// Offset returns the vector from center to the target.
func (t Target) Offset(center Point) (dx, dy float64) {
	return t.X - center.X, t.Y - center.Y
}

// Point is a sub-pixel position.
type Point struct {
	X, Y float64
}

// FrameCenter returns the center of a w×h frame.
func FrameCenter(w, h int) Point {
	return Point{X: float64(w) / 2, Y: float64(h) / 2}
}

// Image rounds the point to a pixel.
func (p Point) Image() image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

// NewTarget builds a Target at (x, y) measured from center.
func NewTarget(x, y float64, center Point) Target {
	return Target{X: x, Y: y, Distance: math.Hypot(x-center.X, y-center.Y)}
}

// SelectNearest returns the target closest to screen center. The first of
// equally distant targets wins.
func SelectNearest(targets []Target) (Target, bool) {
	if len(targets) == 0 {
		return Target{}, false
	}
	best := targets[0]
	for _, t := range targets[1:] {
		if t.Distance < best.Distance {
			best = t
		}
	}
	return best, true
}
