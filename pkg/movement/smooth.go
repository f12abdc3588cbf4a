package movement

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	minAimDistance   = 2.0
	newTargetShift   = 10.0
	reactionSlice    = 50 * time.Millisecond
	fatigueStep      = 0.01
	fatigueDecayStep = 0.1
)

// SmoothConfig holds the humanization tunables.
type SmoothConfig struct {
	Gravity         float64       `mapstructure:"gravity" json:"gravity"`
	Wind            float64       `mapstructure:"wind" json:"wind"`
	MinDelay        time.Duration `mapstructure:"min_delay" json:"min_delay"`
	MaxDelay        time.Duration `mapstructure:"max_delay" json:"max_delay"`
	MaxStep         float64       `mapstructure:"max_step" json:"max_step"`
	MinStep         float64       `mapstructure:"min_step" json:"min_step"`
	MaxStepRatio    float64       `mapstructure:"max_step_ratio" json:"max_step_ratio"`
	TargetAreaRatio float64       `mapstructure:"target_area_ratio" json:"target_area_ratio"`

	ReactionMin time.Duration `mapstructure:"reaction_min" json:"reaction_min"`
	ReactionMax time.Duration `mapstructure:"reaction_max" json:"reaction_max"`

	CloseRange float64 `mapstructure:"close_range" json:"close_range"` // px
	FarRange   float64 `mapstructure:"far_range" json:"far_range"`     // px
	CloseSpeed float64 `mapstructure:"close_speed" json:"close_speed"`
	FarSpeed   float64 `mapstructure:"far_speed" json:"far_speed"`

	Acceleration     float64 `mapstructure:"acceleration" json:"acceleration"`
	Deceleration     float64 `mapstructure:"deceleration" json:"deceleration"`
	FatigueEffect    float64 `mapstructure:"fatigue_effect" json:"fatigue_effect"`
	MicroCorrections int     `mapstructure:"micro_corrections" json:"micro_corrections"`
}

// DefaultSmoothConfig returns tunables that feel like a relaxed human hand.
func DefaultSmoothConfig() SmoothConfig {
	return SmoothConfig{
		Gravity:         9,
		Wind:            3,
		MinDelay:        time.Millisecond,
		MaxDelay:        8 * time.Millisecond,
		MaxStep:         15,
		MinStep:         1,
		MaxStepRatio:    0.1,
		TargetAreaRatio: 0.02,

		ReactionMin: 50 * time.Millisecond,
		ReactionMax: 150 * time.Millisecond,

		CloseRange: 30,
		FarRange:   150,
		CloseSpeed: 0.3,
		FarSpeed:   0.8,

		Acceleration:     0.4,
		Deceleration:     0.6,
		FatigueEffect:    2,
		MicroCorrections: 1,
	}
}

// SpeedFor returns the speed multiplier for a target at dist pixels.
func (c SmoothConfig) SpeedFor(dist float64) float64 {
	switch {
	case dist < c.CloseRange:
		return c.CloseSpeed
	case dist > c.FarRange:
		return c.FarSpeed
	case c.FarRange <= c.CloseRange:
		return c.CloseSpeed
	}
	ratio := (dist - c.CloseRange) / (c.FarRange - c.CloseRange)
	return c.CloseSpeed + ratio*(c.FarSpeed-c.CloseSpeed)
}

// HumanizationState persists across ComputePath calls.
type HumanizationState struct {
	LastTarget    *[2]float64
	Fatigue       float64 // [0, 1]
	ReactionDelay time.Duration
	LastReaction  time.Time
}

// SmoothAimer produces humanized paths toward a pixel offset. One instance
// belongs to one aim session.
type SmoothAimer struct {
	mu     sync.Mutex
	state  HumanizationState
	wind   *WindMouse
	rng    Rand
	now    func() time.Time
	logger *zap.Logger
}

// SmoothOption customizes a SmoothAimer.
type SmoothOption func(*SmoothAimer)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) SmoothOption {
	return func(a *SmoothAimer) { a.now = now }
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) SmoothOption {
	return func(a *SmoothAimer) { a.logger = logger }
}

// NewSmoothAimer creates an aimer drawing all randomness from rng.
func NewSmoothAimer(rng Rand, opts ...SmoothOption) *SmoothAimer {
	if rng == nil {
		rng = NewRand(0)
	}
	a := &SmoothAimer{
		wind:   NewWindMouse(rng),
		rng:    rng,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.Named("smooth")
	return a
}

// ComputePath returns the humanized steps toward (dx, dy).
//
// Offsets under 2 px return nothing. A new target (first call, or a shift of
// more than 10 px) starts a reaction delay; until it elapses the path is a
// single motionless step that waits at most 50ms.
func (a *SmoothAimer) ComputePath(dx, dy float64, cfg SmoothConfig) []Step {
	dist := math.Hypot(dx, dy)
	if dist < minAimDistance {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if a.targetChanged(dx, dy) {
		a.state.ReactionDelay = uniformDuration(a.rng, cfg.ReactionMin, cfg.ReactionMax)
		a.state.LastTarget = &[2]float64{dx, dy}
		a.state.LastReaction = now
		a.logger.Debug("new target",
			zap.Float64("dx", dx), zap.Float64("dy", dy),
			zap.Duration("reaction", a.state.ReactionDelay))
	}

	if elapsed := now.Sub(a.state.LastReaction); elapsed < a.state.ReactionDelay {
		return []Step{{Delay: min(a.state.ReactionDelay-elapsed, reactionSlice)}}
	}

	speed := cfg.SpeedFor(dist)
	a.state.Fatigue = math.Min(a.state.Fatigue+fatigueStep, 1)

	params := WindParams{
		Gravity:    cfg.Gravity + uniform(a.rng, -1, 1),
		Wind:       cfg.Wind + a.state.Fatigue*cfg.FatigueEffect + uniform(a.rng, -0.5, 0.5),
		MinWait:    cfg.MinDelay,
		MaxWait:    cfg.MaxDelay,
		MaxStep:    clamp(dist*speed*cfg.MaxStepRatio, cfg.MinStep, cfg.MaxStep),
		TargetArea: math.Max(2, dist*cfg.TargetAreaRatio),
	}

	raw := a.wind.Generate(Point{}, Point{X: dx, Y: dy}, params)
	path := PostProcess(raw, cfg, a.rng)

	a.logger.Debug("path",
		zap.Float64("distance", dist),
		zap.Float64("speed", speed),
		zap.Float64("fatigue", a.state.Fatigue),
		zap.Int("raw", len(raw)),
		zap.Int("steps", len(path)))
	return path
}

func (a *SmoothAimer) targetChanged(dx, dy float64) bool {
	last := a.state.LastTarget
	if last == nil {
		return true
	}
	return math.Hypot(dx-last[0], dy-last[1]) > newTargetShift
}

// DecayFatigue lowers fatigue by 0.1. Call it while aiming is idle.
func (a *SmoothAimer) DecayFatigue() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Fatigue = math.Max(0, a.state.Fatigue-fatigueDecayStep)
}

// ResetFatigue clears fatigue entirely.
func (a *SmoothAimer) ResetFatigue() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Fatigue = 0
}

// State returns a copy of the humanization state.
func (a *SmoothAimer) State() HumanizationState {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.state
	if s.LastTarget != nil {
		t := *s.LastTarget
		s.LastTarget = &t
	}
	return s
}
