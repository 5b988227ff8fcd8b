package camera

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Manager holds the current camera configuration and handles updates.
type Manager struct {
	config Config
	mu     sync.RWMutex

	// Callback when config changes (for applying to the open capture)
	OnConfigChange func(cfg Config) error
}

// NewManager creates a new camera manager with the given config.
func NewManager(cfg Config) *Manager {
	return &Manager{
		config: cfg,
	}
}

// GetConfig returns the current camera configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// SetConfig updates the camera configuration.
func (m *Manager) SetConfig(cfg Config) error {
	if errors := cfg.Validate(); len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	m.mu.Lock()
	prev := m.config
	m.config = cfg
	callback := m.OnConfigChange
	m.mu.Unlock()

	if callback != nil {
		if err := callback(cfg); err != nil {
			// The device kept its old settings.
			m.mu.Lock()
			m.config = prev
			m.mu.Unlock()
			return fmt.Errorf("failed to apply config: %w", err)
		}
	}

	return nil
}

// UpdateConfig updates specific fields of the configuration.
// Accepts a map of field names to values, as decoded from JSON.
// The device cannot be changed while running.
func (m *Manager) UpdateConfig(params map[string]interface{}) error {
	cfg := m.GetConfig()
	device := cfg.Device

	if presetName, ok := params["preset"].(string); ok {
		preset := GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("unknown preset: %s", presetName)
		}
		cfg = *preset
		cfg.Device = device
	}

	for key, value := range params {
		switch key {
		case "width":
			if v, ok := toInt(value); ok {
				cfg.Width = v
			}
		case "height":
			if v, ok := toInt(value); ok {
				cfg.Height = v
			}
		case "framerate":
			if v, ok := toInt(value); ok {
				cfg.Framerate = v
			}
		case "quality":
			if v, ok := toInt(value); ok {
				cfg.Quality = v
			}
		case "read_timeout":
			if v, ok := toDuration(value); ok {
				cfg.ReadTimeout = v
			}
		case "preset":
		default:
			return fmt.Errorf("unsupported field: %s", key)
		}
	}

	return m.SetConfig(cfg)
}

// GetConfigJSON returns the current config as a map for JSON serialization.
func (m *Manager) GetConfigJSON() map[string]interface{} {
	cfg := m.GetConfig()

	data, _ := json.Marshal(cfg)
	var result map[string]interface{}
	json.Unmarshal(data, &result)

	return result
}

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}

// toDuration accepts a Go duration string ("3s") or a number of milliseconds.
func toDuration(v interface{}) (time.Duration, bool) {
	if s, ok := v.(string); ok {
		d, err := time.ParseDuration(s)
		return d, err == nil
	}
	if ms, ok := toInt(v); ok {
		return time.Duration(ms) * time.Millisecond, true
	}
	return 0, false
}
