package movement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is advanced by hand.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestAimer(seed int64) (*SmoothAimer, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	return NewSmoothAimer(NewRand(seed), WithClock(clock.Now)), clock
}

func TestSmoothAimer_TinyOffsetIsEmpty(t *testing.T) {
	a, _ := newTestAimer(1)
	cfg := DefaultSmoothConfig()

	for _, off := range [][2]float64{{0, 0}, {1, 1}, {-1.9, 0}, {0, 1.99}} {
		assert.Empty(t, a.ComputePath(off[0], off[1], cfg), "offset %v", off)
	}
	assert.Nil(t, a.State().LastTarget, "tiny offsets leave state alone")
}

func TestSmoothAimer_ReactionDelay(t *testing.T) {
	a, clock := newTestAimer(3)
	cfg := DefaultSmoothConfig()

	first := a.ComputePath(50, 0, cfg)
	require.Len(t, first, 1)
	assert.True(t, first[0].IsZero())
	assert.LessOrEqual(t, first[0].Delay, 50*time.Millisecond)
	assert.Greater(t, first[0].Delay, time.Duration(0))

	st := a.State()
	require.NotNil(t, st.LastTarget)
	assert.GreaterOrEqual(t, st.ReactionDelay, cfg.ReactionMin)
	assert.LessOrEqual(t, st.ReactionDelay, cfg.ReactionMax)
	assert.Zero(t, st.Fatigue, "waiting does not tire")

	// Same target within 10px: no new delay is drawn
	clock.Advance(10 * time.Millisecond)
	second := a.ComputePath(55, 3, cfg)
	require.Len(t, second, 1)
	after := a.State()
	assert.Equal(t, st.ReactionDelay, after.ReactionDelay)
	assert.Equal(t, st.LastReaction, after.LastReaction)
	assert.Equal(t, [2]float64{50, 0}, *after.LastTarget)
}

func TestSmoothAimer_NewTargetRedrawsDelay(t *testing.T) {
	a, clock := newTestAimer(5)
	cfg := DefaultSmoothConfig()

	a.ComputePath(50, 0, cfg)
	before := a.State()

	clock.Advance(5 * time.Millisecond)
	a.ComputePath(80, 0, cfg)
	after := a.State()

	assert.Equal(t, [2]float64{80, 0}, *after.LastTarget)
	assert.True(t, after.LastReaction.After(before.LastReaction))
}

func TestSmoothAimer_PathAfterReaction(t *testing.T) {
	a, clock := newTestAimer(11)
	cfg := DefaultSmoothConfig()

	a.ComputePath(120, 40, cfg)
	clock.Advance(cfg.ReactionMax + time.Millisecond)

	path := a.ComputePath(120, 40, cfg)
	require.NotEmpty(t, path)
	for i, s := range path {
		assert.False(t, s.IsZero(), "step %d must move", i)
	}
	assert.InDelta(t, 0.01, a.State().Fatigue, 1e-9)
}

func TestSmoothAimer_Fatigue(t *testing.T) {
	a, clock := newTestAimer(13)
	cfg := DefaultSmoothConfig()

	a.ComputePath(100, 0, cfg)
	clock.Advance(time.Second)
	for i := 0; i < 150; i++ {
		a.ComputePath(100, 0, cfg)
	}
	assert.Equal(t, 1.0, a.State().Fatigue, "fatigue is capped")

	a.DecayFatigue()
	assert.InDelta(t, 0.9, a.State().Fatigue, 1e-9)

	a.ResetFatigue()
	a.DecayFatigue()
	assert.Zero(t, a.State().Fatigue, "decay floors at zero")
}

func TestSmoothConfig_SpeedFor(t *testing.T) {
	cfg := DefaultSmoothConfig()
	tests := []struct {
		dist float64
		want float64
	}{
		{10, 0.3},
		{30, 0.3},
		{90, 0.55},
		{150, 0.8},
		{400, 0.8},
	}
	for _, tc := range tests {
		assert.InDelta(t, tc.want, cfg.SpeedFor(tc.dist), 1e-9, "dist %v", tc.dist)
	}
}
