package npd

import (
	"fmt"
	"strings"
	"time"

	"github.com/teslashibe/go-plates/internal/config"
	"github.com/teslashibe/go-plates/pkg/camera"
	"github.com/teslashibe/go-plates/pkg/plate"
	"github.com/teslashibe/go-plates/pkg/web"
)

// KeyWait is how long the loop polls the keyboard after each frame.
const KeyWait = time.Millisecond

// Config holds all configuration for the detector.
// Flag parsing is done in cmd/npd/main.go; this struct is data only.
type Config struct {
	// Debug enables verbose debug logging.
	Debug bool

	// DebugDetect traces every contour the detector looks at.
	DebugDetect bool

	// Camera and detection settings.
	Camera   camera.Config
	Detector plate.Config
	Decoder  string // "zxing", "opencv", "chain"

	// Image replays a still image instead of opening Camera.Device.
	Image string

	// Headless disables the preview window; stop with SIGINT.
	Headless bool

	// Web dashboard. An empty WebPort disables it.
	WebPort string
	Web     web.Config

	// MaxFrames stops the loop after this many frames (0 = unlimited).
	MaxFrames uint64
}

// DefaultConfig returns the stock detector setup: camera 0 at 640x480,
// a two second warmup and the preview window.
func DefaultConfig() Config {
	return Config{
		Camera:   camera.DefaultConfig(),
		Detector: plate.DefaultConfig(),
		Decoder:  plate.DecoderZXing,
		Web:      web.DefaultConfig(),
	}
}

// LoadEnvConfig applies environment settings on top of c.
// Call this before applying explicit flags so the flags win.
func (c *Config) LoadEnvConfig() {
	c.Camera.Device = config.Device(c.Camera.Device)
	c.Camera.Warmup = config.Duration(config.EnvWarmup, c.Camera.Warmup)
	c.Decoder = config.String(config.EnvDecoder, c.Decoder)
	c.WebPort = config.WebPort(c.WebPort)
	if n := config.Int(config.EnvMaxFrames, int(c.MaxFrames)); n >= 0 {
		c.MaxFrames = uint64(n)
	}
}

// Validate checks the combined configuration.
func (c *Config) Validate() error {
	if c.Image == "" {
		if errs := c.Camera.Validate(); len(errs) > 0 {
			return &ConfigError{Field: "camera", Message: strings.Join(errs, "; ")}
		}
	}
	if errs := c.Detector.Validate(); len(errs) > 0 {
		return &ConfigError{Field: "detector", Message: strings.Join(errs, "; ")}
	}

	known := c.Decoder == ""
	for _, name := range plate.DecoderNames() {
		if c.Decoder == name {
			known = true
			break
		}
	}
	if !known {
		return &ConfigError{
			Field:   "decoder",
			Message: fmt.Sprintf("unknown decoder %q (want one of %s)", c.Decoder, strings.Join(plate.DecoderNames(), ", ")),
		}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
