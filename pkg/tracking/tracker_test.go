package tracking

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gocv.io/x/gocv"

	"github.com/teslashibe/colortrack/pkg/actuator"
	"github.com/teslashibe/colortrack/pkg/movement"
	"github.com/teslashibe/colortrack/pkg/tracking/detection"
)

// frameSource serves copies of one frame.
type frameSource struct {
	img gocv.Mat
	err error
}

func (s *frameSource) ReadFrame(dst *gocv.Mat) error {
	if s.err != nil {
		return s.err
	}
	s.img.CopyTo(dst)
	return nil
}

// recordingQueue keeps every enqueued step.
type recordingQueue struct {
	mu    sync.Mutex
	steps []movement.Step
	busy  bool
}

func (q *recordingQueue) Enqueue(steps ...movement.Step) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.steps = append(q.steps, steps...)
	return len(steps)
}

func (q *recordingQueue) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.busy
}

func (q *recordingQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.steps)
}

func (q *recordingQueue) Steps() []movement.Step {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]movement.Step(nil), q.steps...)
}

// frameRecorder is a FrameSink.
type frameRecorder struct {
	mu     sync.Mutex
	frames map[string]int
}

func (r *frameRecorder) PublishFrame(name string, jpeg []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frames == nil {
		r.frames = map[string]int{}
	}
	if len(jpeg) > 0 {
		r.frames[name]++
	}
}

// sceneWithBodyAtCenter draws a 40x100 purple body just under screen center.
func sceneWithBodyAtCenter(t *testing.T) gocv.Mat {
	img := blackFrame(t, 480, 640)
	gocv.Rectangle(&img, image.Rect(300, 200, 340, 300), purpleBGR, -1)
	return img
}

type harness struct {
	tracker *Tracker
	device  *actuator.LogActuator
	queue   *recordingQueue
	sink    *frameRecorder
	source  *frameSource
}

func newHarness(t *testing.T, cfg Config, img gocv.Mat) *harness {
	t.Helper()
	det := detection.NewColorDetector(cfg.Detection, nil)
	t.Cleanup(func() { det.Close() })

	h := &harness{
		device: actuator.NewLogActuator(nil, nil, true),
		queue:  &recordingQueue{},
		sink:   &frameRecorder{},
		source: &frameSource{img: img},
	}
	h.tracker = New(cfg, det, h.source, h.device, h.queue,
		WithFrameSink(h.sink),
		WithRand(movement.NewRand(1)))
	return h
}

func TestTracker_NormalModeEnqueuesOneStep(t *testing.T) {
	cfg := DefaultConfig()
	h := newHarness(t, cfg, sceneWithBodyAtCenter(t))

	require.NoError(t, h.tracker.TrackOnce(context.Background()))

	steps := h.queue.Steps()
	require.Len(t, steps, 1)
	assert.Equal(t, NormalStepDelay, steps[0].Delay)

	st := h.tracker.Status()
	assert.Equal(t, uint64(1), st.Frames)
	assert.Equal(t, 1, st.Detections)
	require.NotNil(t, st.Target)
	assert.InDelta(t, 320, st.Target.X, 5)
	assert.Less(t, st.Target.Distance, cfg.FOVSize)
	assert.Equal(t, uint64(1), st.Aims)
	assert.NotEmpty(t, st.SessionID)

	assert.Equal(t, 1, h.sink.frames["frame"])
	assert.Equal(t, 1, h.sink.frames["mask"])
}

func TestTracker_NoButtonNoAim(t *testing.T) {
	cfg := DefaultConfig()
	h := newHarness(t, cfg, sceneWithBodyAtCenter(t))
	h.tracker.device = actuator.NewLogActuator(nil, actuator.NewButtonTracker(), false)

	require.NoError(t, h.tracker.TrackOnce(context.Background()))
	assert.Empty(t, h.queue.Steps())
	assert.Zero(t, h.tracker.Status().Aims)
}

func TestTracker_TargetOutsideFOVIsIgnored(t *testing.T) {
	img := blackFrame(t, 480, 640)
	gocv.Rectangle(&img, image.Rect(20, 20, 60, 120), purpleBGR, -1)

	h := newHarness(t, DefaultConfig(), img)
	require.NoError(t, h.tracker.TrackOnce(context.Background()))

	st := h.tracker.Status()
	assert.Equal(t, 1, st.Targets)
	assert.Nil(t, st.Target)
	assert.Empty(t, h.queue.Steps())
}

func TestTracker_SmoothModeStartsWithReaction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeSmooth
	h := newHarness(t, cfg, sceneWithBodyAtCenter(t))

	require.NoError(t, h.tracker.TrackOnce(context.Background()))
	steps := h.queue.Steps()
	require.Len(t, steps, 1)
	assert.True(t, steps[0].IsZero())
	assert.LessOrEqual(t, steps[0].Delay, 50*time.Millisecond)

	// A busy queue is left to finish its path
	h.queue.busy = true
	require.NoError(t, h.tracker.TrackOnce(context.Background()))
	assert.Len(t, h.queue.Steps(), 1)
}

func TestTracker_SilentModeFlicksAndReturns(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := DefaultConfig()
	cfg.Mode = ModeSilent
	h := newHarness(t, cfg, sceneWithBodyAtCenter(t))

	require.NoError(t, h.tracker.TrackOnce(context.Background()))
	require.NoError(t, h.tracker.TrackOnce(context.Background())) // within cooldown
	h.tracker.flicks.Wait()

	dx, dy, clicks := h.device.Totals()
	assert.Zero(t, dx)
	assert.Zero(t, dy)
	assert.Equal(t, 1, clicks)
	assert.Empty(t, h.queue.Steps(), "silent mode bypasses the step queue")
}

func TestTracker_TriggerClicksOnce(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableAim = false
	cfg.EnableTrigger = true
	h := newHarness(t, cfg, sceneWithBodyAtCenter(t))

	require.NoError(t, h.tracker.TrackOnce(context.Background()))
	require.NoError(t, h.tracker.TrackOnce(context.Background()))

	_, _, clicks := h.device.Totals()
	assert.Equal(t, 1, clicks, "second frame is inside the trigger delay")
	assert.Equal(t, uint64(1), h.tracker.Status().Clicks)
}

func TestTracker_SkipsEmptyFrames(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()

	h := newHarness(t, DefaultConfig(), empty)
	require.NoError(t, h.tracker.TrackOnce(context.Background()))

	h.source.err = errors.New("no signal")
	assert.Error(t, h.tracker.TrackOnce(context.Background()))

	st := h.tracker.Status()
	assert.Equal(t, uint64(2), st.Skipped)
	assert.Zero(t, st.Frames)
}

func TestTracker_UnknownColorDegrades(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Color = "green"
	h := newHarness(t, cfg, sceneWithBodyAtCenter(t))

	require.NoError(t, h.tracker.TrackOnce(context.Background()))
	st := h.tracker.Status()
	assert.Zero(t, st.Detections)
	assert.Contains(t, st.ModelError, "unknown color")

	// Fixing the color reloads the model
	cfg.Color = "purple"
	require.NoError(t, h.tracker.UpdateConfig(cfg))
	require.NoError(t, h.tracker.TrackOnce(context.Background()))
	assert.Equal(t, 1, h.tracker.Status().Detections)
	assert.Empty(t, h.tracker.Status().ModelError)
}

func TestTracker_UpdateConfigRejectsInvalid(t *testing.T) {
	h := newHarness(t, DefaultConfig(), sceneWithBodyAtCenter(t))

	bad := DefaultConfig()
	bad.TargetFPS = -1
	assert.Error(t, h.tracker.UpdateConfig(bad))
	assert.Equal(t, 80.0, h.tracker.Config().TargetFPS)
}

func TestTracker_UpdateConfigRejectsDetectionChange(t *testing.T) {
	h := newHarness(t, DefaultConfig(), sceneWithBodyAtCenter(t))

	cfg := DefaultConfig()
	cfg.Mode = ModeSmooth
	cfg.Detection.KernelWidth = 9
	err := h.tracker.UpdateConfig(cfg)
	require.ErrorIs(t, err, ErrDetectionFixed)
	assert.Equal(t, DefaultConfig(), h.tracker.Config(), "nothing from the rejected update applies")

	cfg.Detection = DefaultConfig().Detection
	require.NoError(t, h.tracker.UpdateConfig(cfg))
	assert.Equal(t, ModeSmooth, h.tracker.Config().Mode)
}

func TestTracker_FatigueDecaysWhenIdle(t *testing.T) {
	now := time.Unix(1700000000, 0)
	cfg := DefaultConfig()
	cfg.Mode = ModeSmooth

	img := blackFrame(t, 480, 640)
	det := detection.NewColorDetector(cfg.Detection, nil)
	defer det.Close()
	tr := New(cfg, det, &frameSource{img: img}, actuator.NewLogActuator(nil, nil, true), &recordingQueue{},
		WithClock(func() time.Time { return now }))

	// Build up fatigue directly, then idle frames wear it off
	aimer := tr.Aimer()
	aimer.ComputePath(100, 0, cfg.Smooth)
	time.Sleep(cfg.Smooth.ReactionMax + 10*time.Millisecond)
	for i := 0; i < 5; i++ {
		aimer.ComputePath(100, 0, cfg.Smooth)
	}
	require.InDelta(t, 0.05, aimer.State().Fatigue, 1e-9)

	require.NoError(t, tr.TrackOnce(context.Background()))
	assert.InDelta(t, 0.0, aimer.State().Fatigue, 1e-9)

	tr.ResetFatigue()
	assert.Zero(t, aimer.State().Fatigue)
}

func TestTracker_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := DefaultConfig()
	cfg.TargetFPS = 200
	h := newHarness(t, cfg, sceneWithBodyAtCenter(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.tracker.Run(ctx) }()

	require.Eventually(t, func() bool { return h.tracker.Status().Frames >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, h.tracker.Status().Running)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	assert.False(t, h.tracker.Status().Running)
}

// panicDetector blows up on every frame.
type panicDetector struct{}

func (panicDetector) Detect(*detection.ColorModel, gocv.Mat) ([]detection.Detection, gocv.Mat, error) {
	panic("index out of range")
}

func TestTracker_RunSurvivesFramePanic(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := DefaultConfig()
	cfg.TargetFPS = 200
	source := &frameSource{img: sceneWithBodyAtCenter(t)}
	tr := New(cfg, panicDetector{}, source, actuator.NewLogActuator(nil, nil, true), &recordingQueue{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	require.Eventually(t, func() bool { return tr.Status().Errors >= 3 }, 2*time.Second, 5*time.Millisecond)
	s := tr.Status()
	assert.True(t, s.Running)
	assert.Contains(t, s.LastError, "frame panic")
	assert.Zero(t, s.Frames)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}
