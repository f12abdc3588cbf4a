package tracking

import (
	"math"

	"github.com/teslashibe/colortrack/pkg/movement"
)

// NormalMove turns a pixel offset into one proportional step.
//
// Inside SmoothFOV the speed is divided by Smoothing so the cursor settles
// gently on the target; outside it moves at full speed. Both axes are
// clipped to ±MaxSpeed.
func NormalMove(dx, dy, dist float64, cfg Config) movement.Step {
	ndx, ndy := Convert(dx, dy, cfg.InGameSens, cfg.MouseDPI)

	xs, ys := cfg.XSpeed, cfg.YSpeed
	if dist < cfg.SmoothFOV {
		s := math.Max(cfg.Smoothing, minSmoothing)
		xs, ys = xs/s, ys/s
	}
	ndx, ndy = clip(ndx*xs, cfg.MaxSpeed), clip(ndy*ys, cfg.MaxSpeed)

	return movement.Step{
		DX:    int(math.Round(ndx)),
		DY:    int(math.Round(ndy)),
		Delay: NormalStepDelay,
	}
}

// SilentFlick returns the flick vector for Silent mode. The pixel offset is
// truncated before scaling.
func SilentFlick(dx, dy float64, cfg Config) (int, int) {
	fx := float64(int(dx)) * cfg.XSpeed
	fy := float64(int(dy)) * cfg.YSpeed
	return int(math.Round(fx)), int(math.Round(fy))
}

// clip restricts v to ±limit.
func clip(v, limit float64) float64 {
	limit = math.Abs(limit)
	return clamp(v, -limit, limit)
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
