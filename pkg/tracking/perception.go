package tracking

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/teslashibe/colortrack/pkg/tracking/detection"
)

// Detector is the color segmentation step the perception layer relies on.
type Detector interface {
	Detect(model *detection.ColorModel, img gocv.Mat) ([]detection.Detection, gocv.Mat, error)
}

// HeadPoint is an estimated head position inside a body box.
type HeadPoint struct {
	X, Y   float64
	Region detection.Rect // Image coordinates of the box the point came from
}

// Perception converts body detections into head aim points.
type Perception struct {
	detector Detector
}

// NewPerception creates a perception layer over detector.
func NewPerception(detector Detector) *Perception {
	return &Perception{detector: detector}
}

// headGeometry is the cropped body box and the offset applied to every head point.
type headGeometry struct {
	base           Point
	shiftX, shiftY float64
}

func (Perception) geometry(body detection.Rect, cfg Config) headGeometry {
	w, h := float64(body.W), float64(body.H)
	x1, y1 := float64(body.X), float64(body.Y)

	effY1 := y1 + h*cfg.TopCrop
	effH := h * (1 - cfg.TopCrop)
	effX1 := x1 + w*cfg.SideCrop
	effX2 := x1 + w - w*cfg.SideCrop
	effW := effX2 - effX1

	shiftX := effW * cfg.OffsetX / 100
	shiftY := effH * cfg.OffsetY / 100
	return headGeometry{
		base:   Point{X: (effX1+effX2)/2 + shiftX, Y: effY1 + shiftY},
		shiftX: shiftX,
		shiftY: shiftY,
	}
}

// HeadWindow returns the search window around base, cut to a cols×rows image.
// A base point far enough outside the image yields an empty window.
func HeadWindow(base Point, marginX, marginY, cols, rows int) image.Rectangle {
	mx, my := float64(marginX), float64(marginY)
	win := image.Rectangle{
		Min: image.Pt(int(math.Floor(base.X-mx)), int(math.Floor(base.Y-my))),
		Max: image.Pt(int(math.Floor(base.X+mx)), int(math.Floor(base.Y+my))),
	}
	if win.Empty() {
		return image.Rectangle{}
	}
	return win.Intersect(image.Rect(0, 0, cols, rows))
}

// EstimateHeads refines a head point for one body box.
//
// A small window around the offset-based guess is searched again with the
// same color model. Without a hit the guess itself is returned; otherwise
// there is one point per sub-detection, shifted by the same offsets.
func (p *Perception) EstimateHeads(model *detection.ColorModel, body detection.Rect, img gocv.Mat, cfg Config) ([]HeadPoint, error) {
	geo := p.geometry(body, cfg)
	window := HeadWindow(geo.base, cfg.HeadMarginX, cfg.HeadMarginY, img.Cols(), img.Rows())
	fallback := []HeadPoint{{X: geo.base.X, Y: geo.base.Y, Region: detection.RectFromImage(window)}}

	if window.Empty() {
		return fallback, nil
	}

	roi := img.Region(window)
	defer roi.Close()

	dets, mask, err := p.detector.Detect(model, roi)
	mask.Close()
	if err != nil {
		return fallback, fmt.Errorf("head window %v: %w", window, err)
	}
	if len(dets) == 0 {
		return fallback, nil
	}

	heads := make([]HeadPoint, 0, len(dets))
	for _, d := range dets {
		local := d.Rect.Translate(window.Min.X, window.Min.Y)
		heads = append(heads, HeadPoint{
			X:      float64(local.X) + float64(local.W)/2 + geo.shiftX,
			Y:      float64(local.Y) + float64(local.H)/2 + geo.shiftY,
			Region: local,
		})
	}
	return heads, nil
}
