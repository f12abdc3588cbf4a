package movement

import "time"

const (
	easeInEnd        = 0.3
	easeOutStart     = 0.7
	microCorrectProb = 0.1
	delayJitter      = 0.2
)

func easeIn(t float64) float64  { return t * t }
func easeOut(t float64) float64 { return 1 - (1-t)*(1-t) }

// EaseMultiplier returns the speed scale at progress p in [0, 1).
func EaseMultiplier(p float64, cfg SmoothConfig) float64 {
	switch {
	case p < easeInEnd:
		return easeIn(p/easeInEnd) * cfg.Acceleration
	case p > easeOutStart:
		return easeOut((p-easeOutStart)/(1-easeOutStart)) * cfg.Deceleration
	}
	return 1
}

// PostProcess eases a raw path in and out, sprinkles micro-corrections,
// jitters delays by ±20% and drops steps that no longer move. Paths shorter
// than two steps are only filtered.
func PostProcess(raw []Step, cfg SmoothConfig, rng Rand) []Step {
	if len(raw) < 2 {
		return dropStill(raw)
	}

	n := float64(len(raw))
	out := make([]Step, 0, len(raw))
	for i, s := range raw {
		mult := EaseMultiplier(float64(i)/n, cfg)

		dx, dy := s.DX, s.DY
		if m := cfg.MicroCorrections; m > 0 && rng.Float64() < microCorrectProb {
			dx += uniformInt(rng, -m, m)
			dy += uniformInt(rng, -m, m)
		}

		step := Step{
			DX:    int(float64(dx) * mult),
			DY:    int(float64(dy) * mult),
			Delay: time.Duration(float64(s.Delay) * uniform(rng, 1-delayJitter, 1+delayJitter)),
		}
		if step.IsZero() {
			continue
		}
		out = append(out, step)
	}
	return out
}

func dropStill(path []Step) []Step {
	var out []Step
	for _, s := range path {
		if !s.IsZero() {
			out = append(out, s)
		}
	}
	return out
}
