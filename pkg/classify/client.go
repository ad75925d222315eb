package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/photocheck/internal/httpc"
	"github.com/teslashibe/photocheck/pkg/verdict"
)

// maxErrorBody caps how much of a failed response body is kept.
const maxErrorBody = 64 * 1024

// Client is the HTTP classification client.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a new classification client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = httpc.New(httpc.Options{
			Timeout:            cfg.Timeout,
			InsecureSkipVerify: cfg.InsecureTLS,
		})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http:    hc,
		logger:  logger.With("component", "classify.client"),
	}, nil
}

// BaseURL returns the configured service URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Classify uploads req.Image and decodes the verdict document.
// It never retries; each failure is final for that attempt.
func (c *Client) Classify(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || len(req.Image) == 0 {
		return nil, ErrEmptyImage
	}
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	filename := req.Filename
	if filename == "" {
		filename = DefaultFilename
	}

	body, contentType, err := encodeForm(filename, req.Image)
	if err != nil {
		return nil, fmt.Errorf("classify: encode form: %w", err)
	}

	url := c.baseURL + ClassifyPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("classify: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)

	logger := c.logger.With("request_id", requestID, "filename", filename)
	logger.Debug("submitting image", "bytes", len(req.Image))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logger.Warn("classification rejected", "status", resp.StatusCode)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	doc, err := decodeDocument(resp.Body)
	if err != nil {
		return nil, err
	}

	latency := time.Since(start).Milliseconds()
	logger.Debug("classification received", "status", resp.StatusCode, "latency_ms", latency)

	return &Response{
		Document:   doc,
		RequestID:  requestID,
		StatusCode: resp.StatusCode,
		LatencyMs:  latency,
	}, nil
}

// Health checks the service root endpoint.
func (c *Client) Health(ctx context.Context) error {
	url := c.baseURL + HealthPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("classify: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// encodeForm builds a multipart body with a single JPEG file part.
func encodeForm(filename string, image []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FormField, filename))
	h.Set("Content-Type", "image/jpeg")

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// decodeDocument reads a JSON object, keeping numbers as float64.
func decodeDocument(r io.Reader) (verdict.Document, error) {
	var raw any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("classify: decode response: %w", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrInvalidDocument
	}
	return verdict.Document(obj), nil
}
