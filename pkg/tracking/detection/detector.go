// Package detection finds colored targets in video frames
package detection

import (
	"image"
)

// PlayerClass is the class label attached to every color detection
const PlayerClass = "player"

// Rect is an axis-aligned pixel box
type Rect struct {
	X, Y int // Top-left corner
	W, H int // Width and height
}

// RectFromImage converts an image.Rectangle to a Rect
func RectFromImage(r image.Rectangle) Rect {
	return Rect{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Image returns the rectangle in image.Rectangle form
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// Center returns the integer center of the box
func (r Rect) Center() image.Point {
	return image.Pt(r.X+r.W/2, r.Y+r.H/2)
}

// Overlaps reports whether two boxes share any area
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.W && r.X+r.W > o.X &&
		r.Y < o.Y+o.H && r.Y+r.H > o.Y
}

// Union returns the smallest box covering both r and o
func (r Rect) Union(o Rect) Rect {
	x1, y1 := min(r.X, o.X), min(r.Y, o.Y)
	x2, y2 := max(r.X+r.W, o.X+o.W), max(r.Y+r.H, o.Y+o.H)
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// Translate shifts the box by (dx, dy)
func (r Rect) Translate(dx, dy int) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// Detection represents a detected target in pixel coordinates
type Detection struct {
	Class      string
	Rect                // Bounding box in pixels
	Confidence float64  // Detection confidence (0-1)
}

// Area returns the area of the bounding box
func (d Detection) Area() int {
	return d.W * d.H
}

// Config holds detector configuration
type Config struct {
	KernelWidth       int `mapstructure:"kernel_width" json:"kernel_width"`               // Structuring element columns
	KernelHeight      int `mapstructure:"kernel_height" json:"kernel_height"`             // Structuring element rows
	MaxCenterDistance int `mapstructure:"max_center_distance" json:"max_center_distance"` // 0 disables center gating in MergeRects
}

// DefaultConfig returns the tuned morphology used for character silhouettes.
// The tall kernel bridges the gap between a torso and its limbs.
func DefaultConfig() Config {
	return Config{
		KernelWidth:  15,
		KernelHeight: 30,
	}
}
