package web

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-plates/pkg/camera"
)

// handleStatus returns capture loop stats plus dashboard counters
func (s *Server) handleStatus(c *fiber.Ctx) error {
	resp := fiber.Map{
		"session":       s.session,
		"frame_clients": s.frameHub.ClientCount(),
		"plate_clients": s.plateHub.ClientCount(),
		"feeds": fiber.Map{
			"frames": fiber.Map{"running": s.frameHub.IsRunning(), "dropped": s.frameHub.Dropped()},
			"plates": fiber.Map{"running": s.plateHub.IsRunning(), "dropped": s.plateHub.Dropped()},
		},
	}
	if s.Status != nil {
		resp["runner"] = s.Status()
	}
	return c.JSON(resp)
}

// handleGetPlates returns recent plate events (?limit=N)
func (s *Server) handleGetPlates(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	return c.JSON(fiber.Map{
		"events": s.Events(limit),
	})
}

// handleSnapshot returns the latest annotated frame as JPEG
func (s *Server) handleSnapshot(c *fiber.Ctx) error {
	data := s.encoder.Latest()
	if data == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no frame yet",
		})
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(data)
}

func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.Camera == nil {
		return unavailable(c, "camera control not configured")
	}
	return c.JSON(s.Camera.GetConfigJSON())
}

// handleUpdateCamera applies a partial camera update, e.g. {"preset":"720p","framerate":15}
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	if s.Camera == nil {
		return unavailable(c, "camera control not configured")
	}

	var params map[string]interface{}
	if err := json.Unmarshal(c.Body(), &params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON: " + err.Error(),
		})
	}

	if err := s.Camera.UpdateConfig(params); err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, camera.ErrBusy) {
			status = fiber.StatusConflict
		}
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	cfg := s.Camera.GetConfig()
	s.SetQuality(cfg.Quality)
	return c.JSON(s.Camera.GetConfigJSON())
}

func (s *Server) handleCameraPresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"presets": camera.PresetNames(),
	})
}

func (s *Server) handleGetDetector(c *fiber.Ctx) error {
	if s.Detector == nil {
		return unavailable(c, "detector tuning not configured")
	}
	return c.JSON(s.Detector.Config())
}

// handleUpdateDetector merges the JSON body onto the current detector config
func (s *Server) handleUpdateDetector(c *fiber.Ctx) error {
	if s.Detector == nil {
		return unavailable(c, "detector tuning not configured")
	}

	cfg := s.Detector.Config()
	if err := json.Unmarshal(c.Body(), &cfg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON: " + err.Error(),
		})
	}

	if err := s.Detector.SetConfig(cfg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(s.Detector.Config())
}

func unavailable(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": msg,
	})
}
