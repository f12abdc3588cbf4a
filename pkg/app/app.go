// Package app wires a colortrack profile into a running pipeline: frame
// source, color detector, tracker, step queue, actuator and dashboard.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/colortrack/internal/config"
	clog "github.com/teslashibe/colortrack/internal/log"
	"github.com/teslashibe/colortrack/pkg/actuator"
	"github.com/teslashibe/colortrack/pkg/movement"
	"github.com/teslashibe/colortrack/pkg/tracking"
	"github.com/teslashibe/colortrack/pkg/tracking/detection"
	"github.com/teslashibe/colortrack/pkg/video"
	"github.com/teslashibe/colortrack/pkg/web"
)

// bridgeRetry is the pause between bridge reconnect attempts.
const bridgeRetry = 2 * time.Second

// App is a configured pipeline.
type App struct {
	config      config.Config
	profilePath string
	logger      *zap.Logger

	source   tracking.VideoSource
	buttons  *actuator.ButtonTracker
	device   actuator.Actuator
	bridge   *actuator.Bridge
	detector *detection.ColorDetector
	queue    *movement.Manager
	tracker  *tracking.Tracker
	server   *web.Server

	closers []io.Closer
	once    sync.Once
}

// Option customizes an App.
type Option func(*App)

// WithSource replaces the configured frame source.
func WithSource(src tracking.VideoSource) Option {
	return func(a *App) { a.source = src }
}

// WithProfilePath sets where the dashboard saves the profile.
func WithProfilePath(path string) Option {
	return func(a *App) { a.profilePath = path }
}

// New validates cfg and creates an App. Call Init before Run.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		config:      cfg,
		logger:      logger,
		profilePath: "colortrack.yaml",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Init opens the source and actuator and builds the pipeline.
func (a *App) Init(ctx context.Context) error {
	if err := a.initSource(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := a.initActuator(ctx); err != nil {
		return fmt.Errorf("actuator: %w", err)
	}

	a.detector = detection.NewColorDetector(a.config.Tracking.Detection, a.logger)
	a.closers = append(a.closers, a.detector)
	a.queue = movement.NewManager(a.device, a.config.Queue.Size, a.logger)

	opts := []tracking.Option{tracking.WithLogger(a.logger)}
	if a.config.Web.Enabled {
		a.server = web.NewServer(a.config.Web.Options, nil, clog.Logs(), a.logger)
		opts = append(opts, tracking.WithFrameSink(a.server.Frames()))
	}
	a.tracker = tracking.New(a.config.Tracking, a.detector, a.source, a.device, a.queue, opts...)
	if a.server != nil {
		a.server.SetController(a.tracker)
		a.server.OnSaveConfig = a.saveProfile
	}

	a.logger.Info("pipeline ready",
		zap.String("source", a.config.Source.Kind),
		zap.String("actuator", a.config.Actuator.Kind),
		zap.String("mode", string(a.config.Tracking.Mode)),
		zap.Bool("dashboard", a.server != nil))
	return nil
}

func (a *App) initSource() error {
	if a.source != nil {
		return nil
	}
	src := a.config.Source
	switch src.Kind {
	case config.SourceSnapshot:
		a.source = video.NewSnapshot(src.URL, nil, a.logger)
	default:
		c, err := video.OpenCapture(src.Device, src.Capture, a.logger)
		if err != nil {
			return err
		}
		a.source = c
		a.closers = append(a.closers, c)
	}
	return nil
}

func (a *App) initActuator(ctx context.Context) error {
	a.buttons = actuator.NewButtonTracker()
	cfg := a.config.Actuator

	switch cfg.Kind {
	case config.ActuatorBridge:
		a.bridge = actuator.NewBridge(cfg.URL, a.buttons, a.logger)
		if err := a.bridge.Connect(ctx); err != nil {
			return err
		}
		a.device = a.bridge
		a.closers = append(a.closers, a.bridge)
	default:
		a.device = actuator.NewLogActuator(a.logger, a.buttons, cfg.Hold)
	}
	return nil
}

// Run starts every component and blocks until ctx is done or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a.tracker == nil {
		return errors.New("app not initialized")
	}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.queue.Run(ctx) })
	g.Go(func() error { return a.tracker.Run(ctx) })
	if a.server != nil {
		g.Go(func() error { return a.server.Run(ctx) })
	}
	if a.bridge != nil {
		g.Go(func() error { return a.runBridge(ctx) })
	}
	if a.config.Actuator.Buttons != "" {
		g.Go(func() error { return a.listenButtons(ctx, a.config.Actuator.Buttons) })
	}

	a.logger.Info("running")
	return g.Wait()
}

// runBridge keeps the bridge connected until ctx is done.
func (a *App) runBridge(ctx context.Context) error {
	for {
		err := a.bridge.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		a.logger.Warn("bridge disconnected", zap.Error(err))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(bridgeRetry):
		}
		if err := a.bridge.Connect(ctx); err != nil {
			a.logger.Warn("bridge reconnect failed", zap.Error(err))
		}
	}
}

// listenButtons feeds raw button bytes from a device or file.
func (a *App) listenButtons(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open buttons %s: %w", path, err)
	}
	stop := context.AfterFunc(ctx, func() { f.Close() })
	defer stop()
	defer f.Close()

	a.logger.Info("listening for buttons", zap.String("path", path))
	if err := a.buttons.Listen(ctx, f); err != nil && ctx.Err() == nil {
		return fmt.Errorf("buttons: %w", err)
	}
	return nil
}

// saveProfile writes the current profile with the live tracking settings.
func (a *App) saveProfile(tc tracking.Config) (string, error) {
	cfg := a.config
	cfg.Tracking = tc
	if err := config.Save(a.profilePath, cfg); err != nil {
		return "", err
	}
	a.logger.Info("profile saved", zap.String("path", a.profilePath))
	return a.profilePath, nil
}

// Tracker returns the tracker, nil before Init.
func (a *App) Tracker() *tracking.Tracker { return a.tracker }

// Queue returns the step queue, nil before Init.
func (a *App) Queue() *movement.Manager { return a.queue }

// Shutdown releases devices. It is safe to call more than once.
func (a *App) Shutdown() {
	a.once.Do(func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i].Close(); err != nil {
				a.logger.Warn("close failed", zap.Error(err))
			}
		}
		a.logger.Info("shutdown complete")
	})
}
