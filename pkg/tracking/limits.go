package tracking

import (
	"math"
	"time"
)

// Conversion constants for turning a pixel offset into device counts.
const (
	// CmPerRevBase is the mouse travel for a full turn at sensitivity 1.
	CmPerRevBase = 54.54

	// CmPerInch converts DPI to counts per centimeter.
	CmPerInch = 2.54

	// minSensitivity keeps the conversion finite for a zero sensitivity.
	minSensitivity = 0.01

	// minSmoothing keeps the inner-FOV divisor finite.
	minSmoothing = 0.01
)

// NormalStepDelay is the wait after each Normal-mode step.
const NormalStepDelay = 5 * time.Millisecond

// DegPerCount returns the view rotation produced by one device count.
func DegPerCount(sens, dpi float64) float64 {
	cmPerRev := CmPerRevBase / math.Max(sens, minSensitivity)
	countsPerCm := dpi / CmPerInch
	return 360.0 / (cmPerRev * countsPerCm)
}

// Convert scales a pixel offset by DegPerCount.
func Convert(dx, dy, sens, dpi float64) (float64, float64) {
	k := DegPerCount(sens, dpi)
	return dx * k, dy * k
}
