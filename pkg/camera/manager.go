package camera

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Manager holds the current camera configuration and handles updates.
type Manager struct {
	config Config
	mu     sync.RWMutex

	// Callback when config changes (for applying to an open camera)
	OnConfigChange func(cfg Config) error
}

// NewManager creates a new camera manager with default config.
func NewManager() *Manager {
	return NewManagerWith(DefaultConfig())
}

// NewManagerWith creates a manager starting from cfg.
func NewManagerWith(cfg Config) *Manager {
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
	m.config = cfg
	callback := m.OnConfigChange
	m.mu.Unlock()

	if callback != nil {
		if err := callback(cfg); err != nil {
			return fmt.Errorf("failed to apply config: %w", err)
		}
	}

	return nil
}

// UpdateConfig updates specific fields of the configuration.
// Accepts a map of field names to values, plus an optional "preset".
// A preset replaces the capture settings but keeps the current device and
// backend unless the same update sets them.
func (m *Manager) UpdateConfig(params map[string]interface{}) error {
	cfg := m.GetConfig()

	// Check for preset first
	if v, ok := params["preset"]; ok {
		presetName, ok := v.(string)
		if !ok {
			return fmt.Errorf("invalid value for preset")
		}
		preset := GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("unknown preset: %s", presetName)
		}
		next := *preset
		next.Device, next.Backend = cfg.Device, cfg.Backend
		cfg = next
	}

	for key, value := range params {
		var ok bool
		switch key {
		case "preset":
			ok = true
		case "device":
			cfg.Device, ok = toInt(value)
		case "backend":
			cfg.Backend, ok = value.(string)
		case "width":
			cfg.Width, ok = toInt(value)
		case "height":
			cfg.Height, ok = toInt(value)
		case "framerate":
			cfg.Framerate, ok = toInt(value)
		case "still_quality":
			cfg.StillQuality, ok = toInt(value)
		case "live_quality":
			cfg.LiveQuality, ok = toInt(value)
		case "mirror":
			cfg.Mirror, ok = value.(bool)
		default:
			return fmt.Errorf("unknown camera setting: %s", key)
		}
		if !ok {
			return fmt.Errorf("invalid value for %s", key)
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

// Helper functions for type conversion

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
