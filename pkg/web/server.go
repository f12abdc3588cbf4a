// Package web serves the tracking dashboard: status, logs, live config and
// the annotated frame and mask streams.
package web

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	clog "github.com/teslashibe/colortrack/internal/log"
	"github.com/teslashibe/colortrack/pkg/hub"
	"github.com/teslashibe/colortrack/pkg/tracking"
)

// DefaultStatusInterval is how often status is pushed to /ws/status
const DefaultStatusInterval = 250 * time.Millisecond

// Controller is the tracker surface the dashboard drives
type Controller interface {
	Status() tracking.Status
	Config() tracking.Config
	UpdateConfig(cfg tracking.Config) error
	ResetFatigue()
}

// LogSource serves recent log entries and streams new ones
type LogSource interface {
	Recent(n int) []clog.Entry
	Subscribe(fn func(clog.Entry)) func()
}

// Options configures the server
type Options struct {
	Addr           string        `mapstructure:"addr" json:"addr"`
	StaticDir      string        `mapstructure:"static_dir" json:"static_dir"` // Optional dashboard assets
	StatusInterval time.Duration `mapstructure:"status_interval" json:"status_interval"`
}

// Server is the web dashboard server
type Server struct {
	app    *fiber.App
	opts   Options
	ctrl   Controller
	logs   LogSource
	logger *zap.Logger

	statusHub *hub.Hub
	logHub    *hub.Hub
	frames    *hub.Frames

	// OnSaveConfig persists the active config and returns where it went
	OnSaveConfig func(cfg tracking.Config) (string, error)
}

// NewServer creates the dashboard. logs may be nil; ctrl may be attached
// later with SetController, before Run.
func NewServer(opts Options, ctrl Controller, logs LogSource, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = DefaultStatusInterval
	}

	s := &Server{
		opts:      opts,
		ctrl:      ctrl,
		logs:      logs,
		logger:    logger.Named("web"),
		statusHub: hub.New("status", logger),
		// The log stream must never log, or a full queue would feed itself
		logHub: hub.New("logs", zap.NewNop()),
		frames: hub.NewFrames(hub.New("frame", logger), hub.New("mask", logger)),
	}

	app := fiber.New(fiber.Config{
		AppName:               "colortrack",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(cors.New())

	if opts.StaticDir != "" {
		app.Static("/", opts.StaticDir)
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/logs", s.handleGetLogs)
	api.Get("/colors", s.handleColors)
	api.Get("/config", s.handleGetConfig)
	api.Put("/config", s.handlePutConfig)
	api.Post("/config/save", s.handleSaveConfig)
	api.Post("/fatigue/reset", s.handleResetFatigue)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))
	app.Get("/ws/frames/:name", s.checkStream, websocket.New(s.handleFramesWS))

	s.app = app
	return s
}

// SetController attaches the tracker once it exists
func (s *Server) SetController(ctrl Controller) {
	s.ctrl = ctrl
}

// Handler returns the fiber app, mainly for tests
func (s *Server) Handler() *fiber.App {
	return s.app
}

// Frames returns the sink the tracker publishes debug frames to
func (s *Server) Frames() *hub.Frames {
	return s.frames
}

// Run serves until ctx is done
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hubs := []*hub.Hub{s.statusHub, s.logHub}
	for _, name := range []string{"frame", "mask"} {
		h, _ := s.frames.Hub(name)
		hubs = append(hubs, h)
	}
	for _, h := range hubs {
		go h.Run(ctx)
	}
	defer func() {
		for _, h := range hubs {
			<-h.Done()
		}
	}()

	if s.logs != nil {
		unsubscribe := s.logs.Subscribe(func(e clog.Entry) {
			if s.logHub.ClientCount() > 0 {
				_ = s.logHub.BroadcastJSON(e)
			}
		})
		defer unsubscribe()
	}

	pushed := make(chan struct{})
	go func() {
		defer close(pushed)
		s.pushStatus(ctx)
	}()
	defer func() { <-pushed }()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", zap.String("addr", s.opts.Addr))
		errCh <- s.app.Listen(s.opts.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
		s.logger.Warn("dashboard shutdown", zap.Error(err))
	}
	if err := <-errCh; err != nil {
		return err
	}
	return nil
}

// pushStatus broadcasts status while anyone is watching
func (s *Server) pushStatus(ctx context.Context) {
	ticker := time.NewTicker(s.opts.StatusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.statusHub.ClientCount() == 0 {
				continue
			}
			if err := s.statusHub.BroadcastJSON(s.ctrl.Status()); err != nil {
				s.logger.Warn("status encode failed", zap.Error(err))
			}
		}
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
