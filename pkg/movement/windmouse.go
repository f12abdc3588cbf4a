package movement

import (
	"math"
	"time"
)

// MaxWindMouseSteps bounds every generated path.
const MaxWindMouseSteps = 200

const (
	windDecay     = 1.7320508075688772 // sqrt(3)
	drag          = 0.99
	tremorRadius  = 50.0 // Distance under which the hand shakes by ±1 px
	gravityMinDst = 1.0
)

// WindParams tunes a single WindMouse path.
type WindParams struct {
	Gravity    float64       // Pull toward the destination per step
	Wind       float64       // Random force magnitude
	MinWait    time.Duration // Per-step delay lower bound
	MaxWait    time.Duration // Per-step delay upper bound
	MaxStep    float64       // Velocity magnitude cap
	TargetArea float64       // Stop once closer than this
}

// DefaultWindParams returns the parameters used for a plain 100 px move.
func DefaultWindParams() WindParams {
	return WindParams{
		Gravity:    9,
		Wind:       3,
		MinWait:    time.Millisecond,
		MaxWait:    8 * time.Millisecond,
		MaxStep:    15,
		TargetArea: 2,
	}
}

// WindMouse simulates a point pushed by wind and pulled by gravity toward a
// destination. It holds no state between paths.
type WindMouse struct {
	rng Rand
}

// NewWindMouse creates a generator drawing from rng. A nil rng gets a
// clock-seeded source.
func NewWindMouse(rng Rand) *WindMouse {
	if rng == nil {
		rng = NewRand(0)
	}
	return &WindMouse{rng: rng}
}

// Generate returns the steps that move from start to dest. Deltas are taken
// between rounded consecutive positions so the path sums to the rounded net
// displacement. The path never exceeds MaxWindMouseSteps.
func (w *WindMouse) Generate(start, dest Point, p WindParams) []Step {
	var (
		cur          = start
		vx, vy       float64
		windX, windY float64
		path         []Step
	)

	for len(path) < MaxWindMouseSteps {
		dist := cur.Dist(dest)
		if dist < p.TargetArea {
			break
		}

		windX = windX/windDecay + uniform(w.rng, -1, 1)*p.Wind
		windY = windY/windDecay + uniform(w.rng, -1, 1)*p.Wind

		var gx, gy float64
		if dist > gravityMinDst {
			gx = p.Gravity * (dest.X - cur.X) / dist
			gy = p.Gravity * (dest.Y - cur.Y) / dist
		}

		vx = (vx + windX + gx) * drag
		vy = (vy + windY + gy) * drag

		if speed := math.Hypot(vx, vy); speed > p.MaxStep && speed > 0 {
			vx = vx / speed * p.MaxStep
			vy = vy / speed * p.MaxStep
		}

		next := Point{X: cur.X + vx, Y: cur.Y + vy}
		if dist < tremorRadius {
			next.X += uniform(w.rng, -1, 1)
			next.Y += uniform(w.rng, -1, 1)
		}

		path = append(path, Step{
			DX:    int(math.Round(next.X) - math.Round(cur.X)),
			DY:    int(math.Round(next.Y) - math.Round(cur.Y)),
			Delay: uniformDuration(w.rng, p.MinWait, p.MaxWait),
		})
		cur = next
	}

	return path
}
