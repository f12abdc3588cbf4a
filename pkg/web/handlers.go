package web

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/teslashibe/colortrack/pkg/hub"
	"github.com/teslashibe/colortrack/pkg/tracking/detection"
)

const defaultLogCount = 200

// handleStatus returns the tracker status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Status())
}

// handleGetLogs returns recent log entries; ?n= limits the count
func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	if s.logs == nil {
		return c.JSON([]any{})
	}
	n := c.QueryInt("n", defaultLogCount)
	return c.JSON(s.logs.Recent(n))
}

func (s *Server) handleColors(c *fiber.Ctx) error {
	return c.JSON(detection.Colors())
}

// handleGetConfig returns the active tracking config
func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Config())
}

// handlePutConfig merges the request body over the active config and applies it.
// Fields left out of the body keep their current values.
func (s *Server) handlePutConfig(c *fiber.Ctx) error {
	cfg := s.ctrl.Config()
	if err := json.Unmarshal(c.Body(), &cfg); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid config: "+err.Error())
	}
	if err := s.ctrl.UpdateConfig(cfg); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	s.logger.Info("config changed from dashboard",
		zap.String("mode", string(cfg.Mode)),
		zap.String("color", cfg.Color))
	return c.JSON(s.ctrl.Config())
}

// handleSaveConfig persists the active config through OnSaveConfig
func (s *Server) handleSaveConfig(c *fiber.Ctx) error {
	if s.OnSaveConfig == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "config saving not configured")
	}
	path, err := s.OnSaveConfig(s.ctrl.Config())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"path": path})
}

func (s *Server) handleResetFatigue(c *fiber.Ctx) error {
	s.ctrl.ResetFatigue()
	return c.JSON(fiber.Map{"fatigue": s.ctrl.Status().Fatigue})
}

// checkStream rejects unknown frame stream names before the upgrade
func (s *Server) checkStream(c *fiber.Ctx) error {
	if _, ok := s.frames.Hub(c.Params("name")); !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown stream "+c.Params("name"))
	}
	return c.Next()
}

// handleStatusWS sends the current status, then live updates
func (s *Server) handleStatusWS(c *websocket.Conn) {
	if err := c.WriteJSON(s.ctrl.Status()); err != nil {
		return
	}
	hub.Serve(s.statusHub, c)
}

// handleLogsWS replays recent logs, then streams new ones
func (s *Server) handleLogsWS(c *websocket.Conn) {
	if s.logs != nil {
		for _, entry := range s.logs.Recent(defaultLogCount) {
			if err := c.WriteJSON(entry); err != nil {
				return
			}
		}
	}
	hub.Serve(s.logHub, c)
}

// handleFramesWS streams JPEG frames for one stream
func (s *Server) handleFramesWS(c *websocket.Conn) {
	h, _ := s.frames.Hub(c.Params("name"))
	hub.Serve(h, c)
}
