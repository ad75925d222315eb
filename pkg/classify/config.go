package classify

import (
	"log/slog"
	"net/http"
	"time"
)

// Defaults for the classification service.
const (
	DefaultBaseURL  = "https://192.168.0.237:8000"
	ClassifyPath    = "/api/classify"
	HealthPath      = "/"
	FormField       = "file"
	DefaultTimeout  = 30 * time.Second
	DefaultFilename = "photo.jpg"
)

// Config holds client configuration.
type Config struct {
	// BaseURL is the scheme and host of the service, without a trailing slash.
	BaseURL string

	// Timeout bounds each request.
	Timeout time.Duration

	// InsecureTLS skips certificate verification (self-signed LAN servers).
	InsecureTLS bool

	// HTTPClient overrides the client built from Timeout and InsecureTLS.
	HTTPClient *http.Client

	// Logger is the structured logger.
	Logger *slog.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// WithBaseURL sets the service base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithInsecureTLS disables certificate verification.
func WithInsecureTLS(insecure bool) Option {
	return func(c *Config) { c.InsecureTLS = insecure }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) { c.HTTPClient = hc }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns the defaults used by the original deployment.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
		Logger:  slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}
	if c.Timeout < 0 {
		return &ConfigError{Field: "Timeout", Message: "timeout must not be negative"}
	}
	return nil
}
