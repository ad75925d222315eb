package classify

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common conditions.
var (
	// ErrNoBaseURL is returned when the service URL is missing.
	ErrNoBaseURL = errors.New("classify: base URL required")

	// ErrEmptyImage is returned when a request carries no image bytes.
	ErrEmptyImage = errors.New("classify: empty image")

	// ErrInvalidDocument is returned when the response is not a JSON object.
	ErrInvalidDocument = errors.New("classify: response is not a JSON object")
)

// TransportHint is shown when the service cannot be reached at all. Browsers
// report the same failure when the service omits CORS headers, so the hint
// covers both.
const TransportHint = `Could not reach the classification service.
Check that the server is running and reachable from this machine.
If it uses a self-signed certificate, trust it or enable insecure TLS.
Browser clients also need these headers on the API response:
Access-Control-Allow-Origin: *
Access-Control-Allow-Methods: POST
Access-Control-Allow-Headers: accept, Content-Type
Or if using FastAPI, add CORS middleware.`

// TransportError is a network-level failure: DNS, connect, TLS, timeout.
type TransportError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("classify: request to %s failed: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Hint returns user-facing remediation text.
func (e *TransportError) Hint() string {
	return TransportHint
}

// APIError is a non-2xx response from the service.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Body is the raw response body.
	Body string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("classify: HTTP error! status: %d", e.StatusCode)
	}
	return fmt.Sprintf("classify: HTTP error! status: %d, message: %s", e.StatusCode, body)
}

// IsClientError returns true for 4xx responses (bad upload, wrong format).
func (e *APIError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsServerError returns true for 5xx responses.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("classify: invalid %s: %s", e.Field, e.Message)
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// AsAPIError extracts an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
