// Package debug renders annotated frames for the dashboard.
package debug

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/teslashibe/colortrack/pkg/tracking/detection"
)

// Overlay colors (RGBA; gocv converts to BGR).
var (
	BodyColor       = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	HeadColor       = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	HeadWindowColor = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	SubHitColor     = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	FOVColor        = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	SmoothFOVColor  = color.RGBA{R: 255, G: 255, B: 51, A: 255}
)

// Body is one detected body with its head estimates.
type Body struct {
	Box        detection.Rect
	Confidence float64
	Window     image.Rectangle  // Head search window
	Heads      []image.Point    // Estimated head points
	HeadBoxes  []detection.Rect // Sub-detections inside the window
}

// Overlay describes everything drawn on a debug frame.
type Overlay struct {
	Bodies []Body
	Center image.Point

	FOV        int // Aim FOV radius, 0 hides it
	SmoothFOV  int
	TriggerFOV int
}

// Draw annotates img in place.
func Draw(img *gocv.Mat, o Overlay) {
	for _, b := range o.Bodies {
		gocv.Rectangle(img, b.Box.Image(), BodyColor, 2)
		gocv.PutText(img, fmt.Sprintf("Body %.2f", b.Confidence),
			image.Pt(b.Box.X, b.Box.Y-6), gocv.FontHersheySimplex, 0.6, BodyColor, 2)

		if !b.Window.Empty() {
			gocv.Rectangle(img, b.Window, HeadWindowColor, 2)
		}
		for _, hb := range b.HeadBoxes {
			gocv.Rectangle(img, hb.Image(), SubHitColor, 2)
		}
		for _, h := range b.Heads {
			gocv.Circle(img, h, 2, HeadColor, -1)
		}
	}

	if o.FOV > 0 {
		gocv.Circle(img, o.Center, o.FOV, FOVColor, 2)
	}
	if o.SmoothFOV > 0 {
		gocv.Circle(img, o.Center, o.SmoothFOV, SmoothFOVColor, 2)
	}
	if o.TriggerFOV > 0 {
		gocv.Circle(img, o.Center, o.TriggerFOV, FOVColor, 2)
	}
}

// EncodeJPEG encodes img and returns a Go-owned copy of the bytes.
func EncodeJPEG(img gocv.Mat) ([]byte, error) {
	if img.Empty() {
		return nil, detection.ErrEmptyFrame
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
