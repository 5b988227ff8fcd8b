// Package web provides the live plate detection dashboard: REST endpoints for
// status, recent plates and runtime tuning, plus websocket feeds of annotated
// frames and plate events.
package web

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-plates/internal/log"
	"github.com/teslashibe/go-plates/pkg/camera"
	"github.com/teslashibe/go-plates/pkg/hub"
	"github.com/teslashibe/go-plates/pkg/plate"
	"github.com/teslashibe/go-plates/pkg/video"
)

// Config holds dashboard settings.
type Config struct {
	Port    string  // Listen port, e.g. "8080"
	MaxFPS  float64 // Upper bound on frames pushed to /ws/frames
	Quality int     // JPEG quality
	History int     // Plate events kept for /api/plates
}

// DefaultConfig returns dashboard defaults.
func DefaultConfig() Config {
	return Config{
		Port:    "8080",
		MaxFPS:  10,
		Quality: camera.DefaultQuality,
		History: 500,
	}
}

// Tuner exposes the detector configuration for runtime tuning.
type Tuner interface {
	Config() plate.Config
	SetConfig(plate.Config) error
}

// Event is one frame's worth of decoded plates.
type Event struct {
	ID         string            `json:"id"`
	Session    string            `json:"session"`
	Time       time.Time         `json:"time"`
	Frame      uint64            `json:"frame"`
	Plates     []string          `json:"plates"`
	Detections []plate.Detection `json:"detections"`
}

// Server is the web dashboard server
type Server struct {
	app     *fiber.App
	cfg     Config
	session string
	logger  *slog.Logger

	encoder *video.Encoder

	events   []Event
	eventsMu sync.RWMutex

	frameHub *hub.Hub
	plateHub *hub.Hub

	// Status returns the capture loop's stats for /api/status.
	Status func() interface{}

	// Optional runtime controls; routes answer 503 when unset.
	Camera   *camera.Manager
	Detector Tuner
}

// NewServer creates a dashboard server. session tags every event.
func NewServer(cfg Config, session string) *Server {
	if session == "" {
		session = uuid.New().String()
	}
	if cfg.History <= 0 {
		cfg.History = DefaultConfig().History
	}

	s := &Server{
		cfg:      cfg,
		session:  session,
		logger:   log.With("component", "web"),
		encoder:  video.NewEncoder(cfg.Quality, cfg.MaxFPS),
		events:   make([]Event, 0, cfg.History),
		frameHub: hub.New("frames"),
		plateHub: hub.New("plates"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Plate Dashboard",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/plates", s.handleGetPlates)
	api.Get("/snapshot", s.handleSnapshot)
	api.Get("/camera", s.handleGetCamera)
	api.Post("/camera", s.handleUpdateCamera)
	api.Get("/camera/presets", s.handleCameraPresets)
	api.Get("/detector", s.handleGetDetector)
	api.Post("/detector", s.handleUpdateDetector)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/frames", websocket.New(func(c *websocket.Conn) { hub.Serve(s.frameHub, c) }))
	app.Get("/ws/plates", websocket.New(func(c *websocket.Conn) { hub.Serve(s.plateHub, c) }))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Session returns the session id attached to events.
func (s *Server) Session() string { return s.session }

// Start starts the hubs and blocks serving HTTP.
func (s *Server) Start() error {
	s.logger.Info("dashboard listening", "url", "http://localhost:"+s.cfg.Port)

	go s.frameHub.Run()
	go s.plateHub.Run()

	return s.app.Listen(":" + s.cfg.Port)
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("web server stopped", "error", err)
		}
	}()
}

// Shutdown stops the hubs and the HTTP server.
func (s *Server) Shutdown() error {
	s.frameHub.Stop()
	s.plateHub.Stop()
	return s.app.Shutdown()
}

// PublishFrame pushes an annotated frame and its plates to the dashboard.
// It never blocks the capture loop: frames are rate limited and hubs drop
// messages when full.
func (s *Server) PublishFrame(seq uint64, frame gocv.Mat, result plate.Result) {
	if data, ok, err := s.encoder.Encode(frame); err != nil {
		s.logger.Warn("frame encode failed", "error", err)
	} else if ok && s.frameHub.ClientCount() > 0 {
		s.frameHub.BroadcastBinary(data)
	}

	if len(result.Plates) == 0 {
		return
	}

	ev := Event{
		ID:         uuid.New().String(),
		Session:    s.session,
		Time:       time.Now(),
		Frame:      seq,
		Plates:     append([]string(nil), result.Plates...),
		Detections: append([]plate.Detection(nil), result.Detections...),
	}
	s.addEvent(ev)

	if err := s.plateHub.BroadcastJSON(ev); err != nil {
		s.logger.Warn("event encode failed", "error", err)
	}
}

func (s *Server) addEvent(ev Event) {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()

	s.events = append(s.events, ev)
	if over := len(s.events) - s.cfg.History; over > 0 {
		s.events = s.events[over:]
	}
}

// Events returns the most recent events, newest last. limit <= 0 returns all.
func (s *Server) Events(limit int) []Event {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()

	start := 0
	if limit > 0 && limit < len(s.events) {
		start = len(s.events) - limit
	}
	out := make([]Event, len(s.events)-start)
	copy(out, s.events[start:])
	return out
}

// SetQuality changes the JPEG quality of the live feed.
func (s *Server) SetQuality(quality int) {
	s.encoder.SetQuality(quality)
}
