package camera

import "time"

// Preset names for common configurations
const (
	PresetDefault  = "default"
	PresetVGA      = "vga"
	Preset720p     = "720p"
	Preset1080p    = "1080p"
	PresetLowLight = "low-light"
	PresetFast     = "fast"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault:  DefaultConfig(),
		PresetVGA:      DefaultConfig(),
		Preset720p:     HD720Config(),
		Preset1080p:    HD1080Config(),
		PresetLowLight: LowLightConfig(),
		PresetFast:     FastConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetVGA,
		Preset720p,
		Preset1080p,
		PresetLowLight,
		PresetFast,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// HD720Config returns 720p HD configuration.
// Larger plates in frame, more contours to filter.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// HD1080Config returns 1080p Full HD configuration.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	cfg.Framerate = 15
	return cfg
}

// LowLightConfig trades frame rate for a longer sensor settle time.
func LowLightConfig() Config {
	cfg := DefaultConfig()
	cfg.Framerate = 15
	cfg.Warmup = 4 * time.Second
	cfg.ReadTimeout = 10 * time.Second
	return cfg
}

// FastConfig skips warmup and lowers resolution for quick bench tests.
func FastConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 320
	cfg.Height = 240
	cfg.Warmup = 0
	return cfg
}
