package detection

import (
	"image"
	"sync"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// ColorDetector segments a BGR frame by HSV range and returns merged boxes
type ColorDetector struct {
	config Config
	kernel gocv.Mat
	logger *zap.Logger
	mu     sync.Mutex // Protects kernel
}

// NewColorDetector creates a detector with its structuring element allocated
func NewColorDetector(cfg Config, logger *zap.Logger) *ColorDetector {
	if cfg.KernelWidth <= 0 || cfg.KernelHeight <= 0 {
		def := DefaultConfig()
		cfg.KernelWidth, cfg.KernelHeight = def.KernelWidth, def.KernelHeight
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ColorDetector{
		config: cfg,
		kernel: gocv.GetStructuringElement(gocv.MorphRect, image.Pt(cfg.KernelWidth, cfg.KernelHeight)),
		logger: logger.Named("detector"),
	}
}

// Detect finds colored silhouettes in img.
//
// The returned mask is owned by the caller and must be closed. A nil model
// yields no detections and an empty mask, matching the degraded state after a
// failed model load.
func (d *ColorDetector) Detect(model *ColorModel, img gocv.Mat) ([]Detection, gocv.Mat, error) {
	if model == nil {
		return nil, gocv.NewMat(), nil
	}
	if img.Empty() || img.Rows() == 0 || img.Cols() == 0 {
		return nil, gocv.NewMat(), ErrEmptyFrame
	}

	mask := d.Mask(*model, img)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	rects := make([]Rect, 0, contours.Size())
	centers := make([]image.Point, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		r := RectFromImage(gocv.BoundingRect(contours.At(i)))
		c := image.Pt(r.X+r.W/2, r.Y+r.H/2)

		// Thin horizontal speckles have no colored pixel on their center column
		if !HasVerticalLine(mask, c.X, r.Y, r.Y+r.H) {
			continue
		}
		rects = append(rects, r)
		centers = append(centers, c)
	}

	regions := MergeRects(rects, centers, MergeOptions{MaxCenterDistance: d.config.MaxCenterDistance})

	detections := make([]Detection, 0, len(regions))
	for _, r := range regions {
		detections = append(detections, Detection{
			Class:      PlayerClass,
			Rect:       r.Rect,
			Confidence: 1.0,
		})
	}

	if len(detections) > 0 {
		d.logger.Debug("color detections",
			zap.String("color", model.Name),
			zap.Int("contours", contours.Size()),
			zap.Int("merged", len(detections)))
	}

	return detections, mask, nil
}

// Mask thresholds img against the model and closes then dilates the result
// so that a character's torso and limbs form a single blob.
func (d *ColorDetector) Mask(model ColorModel, img gocv.Mat) gocv.Mat {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(img, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	gocv.InRangeWithScalar(hsv, model.Lower.Scalar(), model.Upper.Scalar(), &mask)

	d.mu.Lock()
	defer d.mu.Unlock()
	gocv.MorphologyEx(mask, &mask, gocv.MorphClose, d.kernel)
	gocv.Dilate(mask, &mask, d.kernel)

	return mask
}

// HasVerticalLine reports whether column x of mask has a non-zero pixel in rows [y1, y2)
func HasVerticalLine(mask gocv.Mat, x, y1, y2 int) bool {
	if x < 0 || x >= mask.Cols() {
		return false
	}
	y1 = max(y1, 0)
	y2 = min(y2, mask.Rows())
	for y := y1; y < y2; y++ {
		if mask.GetUCharAt(y, x) > 0 {
			return true
		}
	}
	return false
}

// Close releases the structuring element
func (d *ColorDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.kernel.Close()
}
