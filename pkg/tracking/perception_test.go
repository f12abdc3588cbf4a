package tracking

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/teslashibe/colortrack/pkg/tracking/detection"
)

var purpleBGR = color.RGBA{R: 230, G: 60, B: 230, A: 255}

func blackFrame(t *testing.T, rows, cols int) gocv.Mat {
	t.Helper()
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { img.Close() })
	return img
}

func purpleModel(t *testing.T) *detection.ColorModel {
	t.Helper()
	m, err := detection.ModelFor("purple")
	require.NoError(t, err)
	return &m
}

// stubDetector returns canned detections in window coordinates.
type stubDetector struct {
	dets []detection.Detection
	err  error
}

func (s stubDetector) Detect(*detection.ColorModel, gocv.Mat) ([]detection.Detection, gocv.Mat, error) {
	return s.dets, gocv.NewMat(), s.err
}

func TestPerception_FallbackToBasePoint(t *testing.T) {
	det := detection.NewColorDetector(detection.DefaultConfig(), nil)
	defer det.Close()
	p := NewPerception(det)

	img := blackFrame(t, 480, 640)
	body := detection.Rect{X: 100, Y: 100, W: 100, H: 200}

	heads, err := p.EstimateHeads(purpleModel(t), body, img, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, heads, 1)

	// Crop 10%: x 110..190, top 120, height 180; OffsetY 10% → 18px down
	assert.InDelta(t, 150, heads[0].X, 1e-9)
	assert.InDelta(t, 138, heads[0].Y, 1e-9)
	assert.Equal(t, detection.Rect{X: 110, Y: 128, W: 80, H: 20}, heads[0].Region)
}

func TestPerception_RefinesOnColorInWindow(t *testing.T) {
	det := detection.NewColorDetector(detection.DefaultConfig(), nil)
	defer det.Close()
	p := NewPerception(det)

	img := blackFrame(t, 480, 640)
	gocv.Rectangle(&img, image.Rect(140, 130, 160, 146), purpleBGR, -1)
	body := detection.Rect{X: 100, Y: 100, W: 100, H: 200}

	heads, err := p.EstimateHeads(purpleModel(t), body, img, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, heads, 1)

	h := heads[0]
	window := image.Rect(110, 128, 190, 148)
	assert.True(t, h.Region.Image().In(window), "region %v inside window %v", h.Region, window)
	assert.InDelta(t, 150, h.X, 3)
	assert.InDelta(t, float64(h.Region.Y)+float64(h.Region.H)/2+18, h.Y, 1e-9)
}

func TestPerception_MultipleSubDetections(t *testing.T) {
	p := NewPerception(stubDetector{dets: []detection.Detection{
		{Class: detection.PlayerClass, Rect: detection.Rect{X: 0, Y: 0, W: 10, H: 10}, Confidence: 1},
		{Class: detection.PlayerClass, Rect: detection.Rect{X: 60, Y: 4, W: 10, H: 10}, Confidence: 1},
	}})
	img := blackFrame(t, 480, 640)
	cfg := DefaultConfig()
	cfg.OffsetX = 10 // 8px right on an 80px cropped width

	heads, err := p.EstimateHeads(purpleModel(t), detection.Rect{X: 100, Y: 100, W: 100, H: 200}, img, cfg)
	require.NoError(t, err)
	require.Len(t, heads, 2)

	// Window starts at (118, 128) once the base point shifts 8px right
	assert.Equal(t, detection.Rect{X: 118, Y: 128, W: 10, H: 10}, heads[0].Region)
	assert.InDelta(t, 118+5+8, heads[0].X, 1e-9)
	assert.InDelta(t, 128+5+18, heads[0].Y, 1e-9)
	assert.Equal(t, detection.Rect{X: 178, Y: 132, W: 10, H: 10}, heads[1].Region)
}

func TestPerception_DetectorErrorFallsBack(t *testing.T) {
	boom := errors.New("boom")
	p := NewPerception(stubDetector{err: boom})
	img := blackFrame(t, 480, 640)

	heads, err := p.EstimateHeads(purpleModel(t), detection.Rect{X: 100, Y: 100, W: 100, H: 200}, img, DefaultConfig())
	assert.ErrorIs(t, err, boom)
	require.Len(t, heads, 1)
	assert.InDelta(t, 138, heads[0].Y, 1e-9)
}

func TestHeadWindow_ClampsToImage(t *testing.T) {
	assert.Equal(t, image.Rect(0, 0, 30, 15), HeadWindow(Point{X: 5, Y: 5}, 40, 10, 30, 15))
}

func TestHeadWindow_BaseOutsideImage(t *testing.T) {
	tests := []struct {
		name string
		base Point
		mx   int
		my   int
		want image.Rectangle
	}{
		{"right of frame", Point{X: 700, Y: 100}, 40, 10, image.Rectangle{}},
		{"below frame", Point{X: 100, Y: 520}, 40, 10, image.Rectangle{}},
		{"left of frame", Point{X: -60, Y: 100}, 40, 10, image.Rectangle{}},
		{"straddles right edge", Point{X: 630, Y: 100}, 40, 10, image.Rect(590, 90, 640, 110)},
		{"negative margin", Point{X: 100, Y: 100}, -5, 10, image.Rectangle{}},
	}
	frame := image.Rect(0, 0, 640, 480)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HeadWindow(tt.base, tt.mx, tt.my, 640, 480)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.In(frame), "window %v must lie inside the frame", got)
		})
	}
}

func TestPerception_BaseOffImageFallsBack(t *testing.T) {
	// Any call into the detector would turn into extra head points
	p := NewPerception(stubDetector{dets: []detection.Detection{
		{Class: detection.PlayerClass, Rect: detection.Rect{W: 10, H: 10}, Confidence: 1},
		{Class: detection.PlayerClass, Rect: detection.Rect{X: 20, W: 10, H: 10}, Confidence: 1},
	}})
	img := blackFrame(t, 480, 640)
	cfg := DefaultConfig()
	cfg.OffsetX = 100

	// Cropped x 460..620, so the base lands at 540 + 160 = 700
	heads, err := p.EstimateHeads(purpleModel(t), detection.Rect{X: 440, Y: 100, W: 200, H: 200}, img, cfg)
	require.NoError(t, err)
	require.Len(t, heads, 1)
	assert.InDelta(t, 700, heads[0].X, 1e-9)
	assert.Equal(t, detection.Rect{}, heads[0].Region)
}
