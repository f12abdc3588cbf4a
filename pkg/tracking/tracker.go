package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
	"golang.org/x/time/rate"

	"github.com/teslashibe/colortrack/pkg/actuator"
	"github.com/teslashibe/colortrack/pkg/debug"
	"github.com/teslashibe/colortrack/pkg/movement"
	"github.com/teslashibe/colortrack/pkg/tracking/detection"
)

// ErrDetectionFixed reports an attempt to change detection settings on a
// running tracker.
var ErrDetectionFixed = errors.New("detection settings cannot change while running")

// silentSettle is the pause between the flick, the click and the flick back.
const silentSettle = time.Millisecond

// VideoSource supplies BGR frames.
type VideoSource interface {
	ReadFrame(dst *gocv.Mat) error
}

// StepQueue plays motion steps asynchronously.
type StepQueue interface {
	Enqueue(steps ...movement.Step) int
	Idle() bool
	Pending() int
}

// FrameSink receives JPEG debug frames ("frame" and "mask").
type FrameSink interface {
	PublishFrame(name string, jpeg []byte)
}

// Status is a snapshot of the tracker for the dashboard.
type Status struct {
	SessionID  string    `json:"session_id"`
	Running    bool      `json:"running"`
	StartedAt  time.Time `json:"started_at"`
	Mode       Mode      `json:"mode"`
	Color      string    `json:"color"`
	ModelError string    `json:"model_error,omitempty"`

	Frames     uint64  `json:"frames"`
	Skipped    uint64  `json:"skipped"`
	Errors     uint64  `json:"errors"`
	FPS        float64 `json:"fps"`
	Detections int     `json:"detections"`
	Targets    int     `json:"targets"`
	Target     *Target `json:"target,omitempty"`

	Aims      uint64  `json:"aims"`
	Clicks    uint64  `json:"clicks"`
	Fatigue   float64 `json:"fatigue"`
	Pending   int     `json:"pending"`
	LastError string  `json:"last_error,omitempty"`
}

// Tracker runs the per-frame aim loop: detect, estimate heads, pick the
// nearest target and hand motion to the step queue or the device.
type Tracker struct {
	mu     sync.RWMutex
	config Config

	source VideoSource
	device actuator.Actuator
	queue  StepQueue
	sink   FrameSink

	detector   Detector
	models     *detection.State
	perception *Perception
	aimer      *movement.SmoothAimer
	trigger    *Cooldown
	silent     *Cooldown
	debugLimit *rate.Limiter

	logger *zap.Logger
	rng    movement.Rand
	now    func() time.Time

	statusMu  sync.Mutex
	status    Status
	lastFrame time.Time
	lastAim   time.Time
	lastDecay time.Time

	flicks sync.WaitGroup
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithFrameSink publishes annotated frames and masks to sink.
func WithFrameSink(sink FrameSink) Option {
	return func(t *Tracker) { t.sink = sink }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

// WithRand sets the randomness source used for humanized paths.
func WithRand(rng movement.Rand) Option {
	return func(t *Tracker) { t.rng = rng }
}

// WithClock replaces time.Now for cooldowns and fatigue.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New creates a tracker. An unknown color leaves the tracker running
// without a model; detection then yields nothing and Status reports the error.
func New(cfg Config, detector Detector, source VideoSource, device actuator.Actuator, queue StepQueue, opts ...Option) *Tracker {
	t := &Tracker{
		config:   cfg,
		source:   source,
		device:   device,
		queue:    queue,
		detector: detector,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.Named("tracker")
	if t.rng == nil {
		t.rng = movement.NewRand(0)
	}

	models, err := detection.NewState(cfg.Color)
	if err != nil {
		t.logger.Error("color model not loaded, detection disabled", zap.Error(err))
	}
	t.models = models
	t.perception = NewPerception(detector)
	t.aimer = movement.NewSmoothAimer(t.rng, movement.WithLogger(t.logger))
	t.trigger = NewCooldown(cfg.TriggerDelay)
	t.silent = NewCooldown(cfg.SilentCooldown)
	t.debugLimit = rate.NewLimiter(debugLimit(cfg.DebugFPS), 1)

	t.status = Status{
		SessionID: uuid.NewString(),
		Mode:      cfg.Mode,
		Color:     cfg.Color,
	}
	t.logger = t.logger.With(zap.String("session", t.status.SessionID))
	return t
}

func debugLimit(fps float64) rate.Limit {
	if fps <= 0 {
		return 0
	}
	return rate.Limit(fps)
}

func framePeriod(fps float64) time.Duration {
	return time.Duration(float64(time.Second) / fps)
}

// Run ticks at TargetFPS until ctx is done. Per-frame failures are logged
// and never stop the loop.
func (t *Tracker) Run(ctx context.Context) error {
	period := framePeriod(t.Config().TargetFPS)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	defer t.flicks.Wait()

	t.statusMu.Lock()
	t.status.Running = true
	t.status.StartedAt = t.now()
	t.statusMu.Unlock()
	defer func() {
		t.statusMu.Lock()
		t.status.Running = false
		t.statusMu.Unlock()
	}()

	cfg := t.Config()
	t.logger.Info("tracker started",
		zap.String("mode", string(cfg.Mode)),
		zap.String("color", cfg.Color),
		zap.Float64("fps", cfg.TargetFPS))
	defer t.logger.Info("tracker stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := t.trackRecover(ctx); err != nil {
				n := t.recordError(err)
				if n%100 == 1 {
					t.logger.Warn("frame failed", zap.Error(err), zap.Uint64("errors", n))
				}
			}
			if p := framePeriod(t.Config().TargetFPS); p != period {
				period = p
				ticker.Reset(period)
			}
		}
	}
}

// trackRecover runs TrackOnce and turns a panic into that frame's error.
func (t *Tracker) trackRecover(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("frame panic: %v", r)
		}
	}()
	return t.TrackOnce(ctx)
}

// TrackOnce processes a single frame.
func (t *Tracker) TrackOnce(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return nil
	}
	cfg := t.Config()

	frame := gocv.NewMat()
	defer frame.Close()
	if err := t.source.ReadFrame(&frame); err != nil {
		t.skip()
		return fmt.Errorf("read frame: %w", err)
	}
	if frame.Empty() || frame.Rows() == 0 || frame.Cols() == 0 {
		t.skip()
		return nil
	}

	model := t.models.Model()
	dets, mask, err := t.detector.Detect(model, frame)
	defer mask.Close()
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}

	center := FrameCenter(frame.Cols(), frame.Rows())
	targets, bodies := t.collectTargets(model, dets, frame, center, cfg)

	var target *Target
	if best, ok := SelectNearest(targets); ok && best.Distance <= cfg.FOVSize {
		target = &best
	}

	now := t.now()
	aimed := target != nil && t.aim(cfg, *target, center)
	clicked := t.runTrigger(cfg, model, frame, target, now)
	t.tickFatigue(cfg, aimed, now)

	t.publish(cfg, frame, mask, bodies, center)
	t.record(now, len(dets), len(targets), target, aimed, clicked)
	return nil
}

// collectTargets estimates heads for every body box.
func (t *Tracker) collectTargets(model *detection.ColorModel, dets []detection.Detection, frame gocv.Mat, center Point, cfg Config) ([]Target, []debug.Body) {
	var (
		targets []Target
		bodies  []debug.Body
	)
	for _, d := range dets {
		body := ScaleTop(d.Rect, cfg.BodyTopScale)
		heads, err := t.perception.EstimateHeads(model, body, frame, cfg)
		if err != nil {
			t.logger.Debug("head estimate fell back", zap.Error(err))
		}

		db := debug.Body{Box: body, Confidence: d.Confidence}
		if len(heads) > 0 {
			geo := t.perception.geometry(body, cfg)
			db.Window = HeadWindow(geo.base, cfg.HeadMarginX, cfg.HeadMarginY, frame.Cols(), frame.Rows())
		}
		for _, h := range heads {
			targets = append(targets, NewTarget(h.X, h.Y, center))
			db.Heads = append(db.Heads, Point{X: h.X, Y: h.Y}.Image())
			if h.Region.Image() != db.Window {
				db.HeadBoxes = append(db.HeadBoxes, h.Region)
			}
		}
		bodies = append(bodies, db)
	}
	return targets, bodies
}

// ScaleTop pushes the top edge of a box down by scaling its y coordinate.
// The bottom edge stays put.
func ScaleTop(r detection.Rect, scale float64) detection.Rect {
	if scale <= 0 {
		return r
	}
	bottom := r.Y + r.H
	top := int(float64(r.Y) * scale)
	if top > bottom {
		top = bottom
	}
	return detection.Rect{X: r.X, Y: top, W: r.W, H: bottom - top}
}

// aim reports whether an aim action was taken for target.
func (t *Tracker) aim(cfg Config, target Target, center Point) bool {
	if !cfg.EnableAim || !t.device.IsPressed(cfg.AimButton) {
		return false
	}
	dx, dy := target.Offset(center)

	switch cfg.Mode {
	case ModeSilent:
		if !t.silent.AllowAt(t.now()) {
			return false
		}
		fx, fy := SilentFlick(dx, dy, cfg)
		t.flick(fx, fy)

	case ModeSmooth:
		// A path is still playing; let it finish before planning the next one
		if !t.queue.Idle() {
			return true
		}
		path := t.aimer.ComputePath(dx, dy, cfg.Smooth)
		if len(path) == 0 {
			return false
		}
		t.queue.Enqueue(path...)

	default:
		t.queue.Enqueue(NormalMove(dx, dy, target.Distance, cfg))
	}
	return true
}

// flick moves to the target, clicks and moves back on its own goroutine.
func (t *Tracker) flick(dx, dy int) {
	t.flicks.Add(1)
	go func() {
		defer t.flicks.Done()
		if err := t.device.Move(dx, dy); err != nil {
			t.logger.Warn("silent flick failed", zap.Error(err))
			return
		}
		time.Sleep(silentSettle)
		if err := t.device.Click(); err != nil {
			t.logger.Warn("silent click failed", zap.Error(err))
		}
		time.Sleep(silentSettle)
		if err := t.device.Move(-dx, -dy); err != nil {
			t.logger.Warn("silent flick back failed", zap.Error(err))
		}
	}()
}

// runTrigger clicks when the trigger button is held and something sits in
// the trigger window. It reports whether a click was sent.
func (t *Tracker) runTrigger(cfg Config, model *detection.ColorModel, frame gocv.Mat, target *Target, now time.Time) bool {
	if !cfg.EnableTrigger || !t.device.IsPressed(cfg.TriggerButton) {
		return false
	}

	hits := 0
	window := TriggerWindow(frame.Cols(), frame.Rows(), int(cfg.TriggerFOV))
	if !window.Empty() {
		roi := frame.Region(window)
		dets, mask, err := t.detector.Detect(model, roi)
		mask.Close()
		roi.Close()
		if err != nil {
			t.logger.Debug("trigger window detect failed", zap.Error(err))
		}
		hits = len(dets)
	}

	if !ShouldTrigger(hits, target, cfg) || !t.trigger.AllowAt(now) {
		return false
	}
	if err := t.device.Click(); err != nil {
		t.logger.Warn("trigger click failed", zap.Error(err))
		return false
	}
	t.logger.Debug("trigger", zap.Int("hits", hits))
	return true
}

// tickFatigue decays fatigue once per interval while aiming is idle.
func (t *Tracker) tickFatigue(cfg Config, aimed bool, now time.Time) {
	if aimed {
		t.lastAim = now
		return
	}
	if cfg.FatigueDecayInterval <= 0 {
		return
	}
	if now.Sub(t.lastAim) >= cfg.FatigueDecayInterval && now.Sub(t.lastDecay) >= cfg.FatigueDecayInterval {
		t.aimer.DecayFatigue()
		t.lastDecay = now
	}
}

// publish sends the annotated frame and the mask to the sink, rate limited.
func (t *Tracker) publish(cfg Config, frame, mask gocv.Mat, bodies []debug.Body, center Point) {
	if t.sink == nil || cfg.DebugFPS <= 0 || !t.debugLimit.Allow() {
		return
	}

	view := frame.Clone()
	defer view.Close()

	o := debug.Overlay{Bodies: bodies, Center: center.Image()}
	if cfg.EnableAim {
		o.FOV, o.SmoothFOV = int(cfg.FOVSize), int(cfg.SmoothFOV)
	}
	if cfg.EnableTrigger {
		o.TriggerFOV = int(cfg.TriggerFOV)
	}
	debug.Draw(&view, o)

	if jpeg, err := debug.EncodeJPEG(view); err == nil {
		t.sink.PublishFrame("frame", jpeg)
	}
	if !mask.Empty() {
		if jpeg, err := debug.EncodeJPEG(mask); err == nil {
			t.sink.PublishFrame("mask", jpeg)
		}
	}
}

func (t *Tracker) skip() {
	t.statusMu.Lock()
	t.status.Skipped++
	t.statusMu.Unlock()
}

func (t *Tracker) recordError(err error) uint64 {
	t.statusMu.Lock()
	defer t.statusMu.Unlock()
	t.status.Errors++
	t.status.LastError = err.Error()
	return t.status.Errors
}

func (t *Tracker) record(now time.Time, dets, targets int, target *Target, aimed, clicked bool) {
	t.statusMu.Lock()
	defer t.statusMu.Unlock()

	s := &t.status
	s.Frames++
	s.Detections = dets
	s.Targets = targets
	s.Target = target
	if aimed {
		s.Aims++
	}
	if clicked {
		s.Clicks++
	}
	if !t.lastFrame.IsZero() {
		if dt := now.Sub(t.lastFrame).Seconds(); dt > 0 {
			s.FPS = 0.9*s.FPS + 0.1/dt
		}
	}
	t.lastFrame = now
}

// Status returns a snapshot for the dashboard.
func (t *Tracker) Status() Status {
	cfg := t.Config()

	t.statusMu.Lock()
	s := t.status
	t.statusMu.Unlock()

	s.Mode = cfg.Mode
	s.Color = cfg.Color
	if err := t.models.LoadError(); err != nil {
		s.ModelError = err.Error()
	}
	s.Fatigue = t.aimer.State().Fatigue
	s.Pending = t.queue.Pending()
	return s
}

// Config returns the active configuration.
func (t *Tracker) Config() Config {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.config
}

// UpdateConfig validates and applies cfg at runtime. A new color reloads the
// HSV model. Detection settings are fixed at construction and any change to
// them is rejected with ErrDetectionFixed.
func (t *Tracker) UpdateConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	t.mu.Lock()
	old := t.config
	if cfg.Detection != old.Detection {
		t.mu.Unlock()
		return fmt.Errorf("%w: have %+v, got %+v", ErrDetectionFixed, old.Detection, cfg.Detection)
	}
	t.config = cfg
	t.mu.Unlock()

	if cfg.Color != old.Color || t.models.Model() == nil {
		if err := t.models.Load(cfg.Color); err != nil {
			return err
		}
	}
	t.trigger.SetInterval(cfg.TriggerDelay)
	t.silent.SetInterval(cfg.SilentCooldown)
	t.debugLimit.SetLimit(debugLimit(cfg.DebugFPS))

	t.logger.Info("config updated",
		zap.String("mode", string(cfg.Mode)),
		zap.String("color", cfg.Color))
	return nil
}

// ResetFatigue clears accumulated aim fatigue.
func (t *Tracker) ResetFatigue() {
	t.aimer.ResetFatigue()
}

// Aimer exposes the humanization controller.
func (t *Tracker) Aimer() *movement.SmoothAimer {
	return t.aimer
}
