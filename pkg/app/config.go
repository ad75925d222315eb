// Package app wires the capture session, classifier and dashboard into the
// photocheck service and runs it in one of three modes.
package app

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/teslashibe/photocheck/internal/config"
	"github.com/teslashibe/photocheck/pkg/camera"
	"github.com/teslashibe/photocheck/pkg/classify"
	"gopkg.in/yaml.v3"
)

// Mode selects how the app runs.
type Mode string

const (
	// ModeServe runs the web dashboard until interrupted.
	ModeServe Mode = "serve"
	// ModeOnce starts the camera, captures, submits, prints and exits.
	ModeOnce Mode = "once"
	// ModeLive prints every live analysis report until interrupted.
	ModeLive Mode = "live"
)

// Config holds all configuration for the app.
// Flag parsing is done in cmd/photocheck; this struct is data only.
type Config struct {
	// Debug enables debug logging and the HTTP access log.
	Debug bool `yaml:"debug"`

	// Mode is serve, once or live.
	Mode Mode `yaml:"mode"`

	// ListenAddr is the dashboard address (serve mode).
	ListenAddr string `yaml:"listen"`

	// Endpoint is the classification service base URL.
	Endpoint string `yaml:"endpoint"`

	// InsecureTLS skips certificate checks for self-signed endpoints.
	InsecureTLS bool `yaml:"insecure_tls"`

	// Timeout bounds each classification request.
	Timeout time.Duration `yaml:"timeout"`

	// LiveInterval is the live analysis period.
	LiveInterval time.Duration `yaml:"live_interval"`

	// Camera is the initial camera configuration.
	Camera camera.Config `yaml:"camera"`
}

// DefaultConfig returns the defaults used when neither flags nor
// environment say otherwise.
func DefaultConfig() Config {
	return Config{
		Mode:         ModeServe,
		ListenAddr:   config.DefaultListenAddr,
		Endpoint:     classify.DefaultBaseURL,
		Timeout:      classify.DefaultTimeout,
		LiveInterval: config.DefaultLiveInterval,
		Camera:       camera.DefaultConfig(),
	}
}

// LoadFile merges a YAML config file into c. Keys missing from the file
// keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.Endpoint = strings.TrimSuffix(c.Endpoint, "/")
	return nil
}

// LoadEnvConfig applies environment overrides. Call it before flag parsing
// so flags win.
func (c *Config) LoadEnvConfig() {
	c.Endpoint = strings.TrimSuffix(config.String(config.EnvEndpoint, c.Endpoint), "/")
	c.ListenAddr = config.String(config.EnvListenAddr, c.ListenAddr)
	c.InsecureTLS = config.Bool(config.EnvInsecureTLS, c.InsecureTLS)
	c.Timeout = config.Duration(config.EnvTimeout, c.Timeout)
	c.LiveInterval = config.Duration(config.EnvLiveInterval, c.LiveInterval)
	c.Camera.Device = config.Int(config.EnvDevice, c.Camera.Device)
	c.Camera.Backend = config.String(config.EnvBackend, c.Camera.Backend)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeServe, ModeOnce, ModeLive:
	default:
		return &ConfigError{Field: "Mode", Message: fmt.Sprintf("unknown mode %q (want serve, once or live)", c.Mode)}
	}

	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &ConfigError{Field: "Endpoint", Message: fmt.Sprintf("endpoint %q must be an http(s) URL", c.Endpoint)}
	}
	if c.Mode == ModeServe && c.ListenAddr == "" {
		return &ConfigError{Field: "ListenAddr", Message: "listen address is required in serve mode"}
	}
	if c.LiveInterval <= 0 {
		return &ConfigError{Field: "LiveInterval", Message: "live interval must be positive"}
	}
	if c.Timeout <= 0 {
		return &ConfigError{Field: "Timeout", Message: "timeout must be positive"}
	}
	if errs := c.Camera.Validate(); len(errs) > 0 {
		return &ConfigError{Field: "Camera", Message: "camera: " + strings.Join(errs, "; ")}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
