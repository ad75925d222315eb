// Package camera provides webcam configuration and the capture interfaces
// used by the photo session.
package camera

import "fmt"

// Config holds all camera configuration parameters.
// These can be modified via the camera API and apply on the next Start.
type Config struct {
	// === Device ===
	// Device is the capture index. 0 is the built-in, user-facing camera.
	Device int `json:"device" yaml:"device"`

	// Backend selects the capture API.
	// Values: "auto", "v4l2", "avfoundation", "dshow", "msmf", "gstreamer", "ffmpeg"
	Backend string `json:"backend" yaml:"backend"`

	// === Resolution ===
	// Preferred frame size. Drivers may pick the nearest supported mode.
	Width     int `json:"width" yaml:"width"`
	Height    int `json:"height" yaml:"height"`
	Framerate int `json:"framerate" yaml:"framerate"` // Preview FPS

	// === Encoding ===
	StillQuality int  `json:"still_quality" yaml:"still_quality"` // JPEG quality 1-100 for captured photos
	LiveQuality  int  `json:"live_quality" yaml:"live_quality"`   // JPEG quality 1-100 for live frames
	Mirror       bool `json:"mirror" yaml:"mirror"`               // Flip horizontally to match a mirrored preview
}

// Limits
const (
	MaxWidth     = 3840
	MaxHeight    = 2160
	MaxFramerate = 60
)

// Backends lists the accepted Backend values.
var Backends = []string{"auto", "v4l2", "avfoundation", "dshow", "msmf", "gstreamer", "ffmpeg"}

// DefaultConfig returns the recommended configuration: 720p, still photos at
// quality 95 and live frames at 85, mirrored like a selfie preview.
func DefaultConfig() Config {
	return Config{
		Device:  0,
		Backend: "auto",

		Width:     1280,
		Height:    720,
		Framerate: 15,

		StillQuality: 95,
		LiveQuality:  85,
		Mirror:       true,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device < 0 {
		errors = append(errors, "device must not be negative")
	}

	validBackend := false
	for _, b := range Backends {
		if c.Backend == b {
			validBackend = true
			break
		}
	}
	if c.Backend != "" && !validBackend {
		errors = append(errors, fmt.Sprintf("backend must be one of %v", Backends))
	}

	// Resolution
	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 60")
	}

	// Quality
	if c.StillQuality < 1 || c.StillQuality > 100 {
		errors = append(errors, "still_quality must be between 1 and 100")
	}
	if c.LiveQuality < 1 || c.LiveQuality > 100 {
		errors = append(errors, "live_quality must be between 1 and 100")
	}

	return errors
}

// Still returns the encode options for a captured photo.
func (c Config) Still() EncodeOptions {
	return EncodeOptions{Quality: c.StillQuality, Mirror: c.Mirror}
}

// Live returns the encode options for a live analysis frame.
func (c Config) Live() EncodeOptions {
	return EncodeOptions{Quality: c.LiveQuality, Mirror: c.Mirror}
}
