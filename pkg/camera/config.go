// Package camera provides frame acquisition and runtime-configurable capture settings.
package camera

import (
	"strconv"
	"time"
)

// Config holds all camera configuration parameters.
// These can be modified via the camera API at runtime.
type Config struct {
	// Device is a camera index ("0") or a file path / stream URL.
	Device string `json:"device"`

	// === Resolution ===
	Width     int `json:"width"`     // Frame width in pixels
	Height    int `json:"height"`    // Frame height in pixels
	Framerate int `json:"framerate"` // Requested FPS
	Quality   int `json:"quality"`   // Dashboard JPEG quality 1-100

	// === Timing ===
	// Warmup lets auto exposure and white balance settle before the first frame is used.
	Warmup time.Duration `json:"warmup"`

	// ReadTimeout bounds a single frame acquisition. Zero waits forever.
	ReadTimeout time.Duration `json:"read_timeout"`
}

// Capture limits
const (
	MinWidth       = 160
	MaxWidth       = 3840
	MinHeight      = 120
	MaxHeight      = 2160
	MaxFramerate   = 120
	MaxWarmup      = 30 * time.Second
	DefaultDevice  = "0"
	DefaultQuality = 80
)

// DefaultConfig returns the classic 640x480 configuration with a 2 second warmup.
func DefaultConfig() Config {
	return Config{
		Device:    DefaultDevice,
		Width:     640,
		Height:    480,
		Framerate: 30,
		Quality:   DefaultQuality,

		Warmup:      2 * time.Second,
		ReadTimeout: 5 * time.Second,
	}
}

// DeviceID returns the device as an int when it is a camera index,
// otherwise the raw string (file path or URL).
func (c Config) DeviceID() interface{} {
	if id, err := strconv.Atoi(c.Device); err == nil {
		return id
	}
	return c.Device
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device == "" {
		errors = append(errors, "device is required")
	}

	// Resolution
	if c.Width < MinWidth || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 120")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}

	// Timing
	if c.Warmup < 0 || c.Warmup > MaxWarmup {
		errors = append(errors, "warmup must be between 0 and 30s")
	}
	if c.ReadTimeout < 0 {
		errors = append(errors, "read_timeout must be >= 0")
	}

	return errors
}
