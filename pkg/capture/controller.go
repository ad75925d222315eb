// Package capture runs one photo session: it owns the camera, the still
// photo buffer and the live analysis poller, and publishes every change to a
// Display.
//
// Session states:
//
//	idle ──Start──▶ previewing ──Capture──▶ captured
//	  ▲                 ▲  ◀──Retake──────────┘
//	  └────Stop─────────┴─────────────────────┘
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/photocheck/pkg/camera"
	"github.com/teslashibe/photocheck/pkg/classify"
	"github.com/teslashibe/photocheck/pkg/live"
	"github.com/teslashibe/photocheck/pkg/verdict"
)

// State is the session state.
type State string

const (
	StateIdle       State = "idle"
	StatePreviewing State = "previewing"
	StateCaptured   State = "captured"
)

// Upload filenames.
const (
	PhotoFilename = "photo.jpg"
	FrameFilename = "frame.jpg"
)

// Status is a read-only view of the session.
type Status struct {
	State        State           `json:"state"`
	Live         bool            `json:"live"`
	Submitting   bool            `json:"submitting"`
	HasPhoto     bool            `json:"has_photo"`
	PhotoBytes   int             `json:"photo_bytes"`
	LastReport   *verdict.Report `json:"last_report,omitempty"`
	ReportOrigin Origin          `json:"report_origin,omitempty"`
	ReportAt     time.Time       `json:"report_at,omitempty"`
	LastError    string          `json:"last_error,omitempty"`
	Guidance     string          `json:"guidance,omitempty"`
	LiveStats    live.Stats      `json:"live_stats"`
	Camera       camera.Config   `json:"camera"`
}

// Controller is the capture session. All methods are safe for concurrent use.
// The lock is never held across camera reads or classification requests.
type Controller struct {
	opener     camera.Opener
	classifier classify.Classifier
	cameras    *camera.Manager
	display    Display
	logger     *slog.Logger
	poller     *live.Poller

	previewInterval time.Duration
	onPreviewFrame  func([]byte)

	mu           sync.Mutex
	state        State
	starting     bool
	source       camera.Source
	photo        []byte
	submitting   int
	lastReport   *verdict.Report
	reportOrigin Origin
	reportAt     time.Time
	lastErr      error

	previewCancel context.CancelFunc
	previewDone   chan struct{}
}

// Option configures a Controller.
type Option func(*options)

type options struct {
	display         Display
	logger          *slog.Logger
	liveInterval    time.Duration
	previewInterval time.Duration
	onPreviewFrame  func([]byte)
}

// WithDisplay sets where state, reports and errors are shown.
func WithDisplay(d Display) Option {
	return func(o *options) { o.display = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLiveInterval sets the live analysis period (default 500ms).
func WithLiveInterval(d time.Duration) Option {
	return func(o *options) { o.liveInterval = d }
}

// WithPreviewInterval overrides the preview period derived from the camera
// framerate.
func WithPreviewInterval(d time.Duration) Option {
	return func(o *options) { o.previewInterval = d }
}

// WithPreviewFrame enables the preview loop; fn receives each JPEG frame
// while the camera is open.
func WithPreviewFrame(fn func([]byte)) Option {
	return func(o *options) { o.onPreviewFrame = fn }
}

// New creates an idle controller. cameras may be nil for the default config.
func New(opener camera.Opener, classifier classify.Classifier, cameras *camera.Manager, opts ...Option) *Controller {
	o := options{
		display:      NopDisplay{},
		logger:       slog.Default(),
		liveInterval: live.DefaultInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if cameras == nil {
		cameras = camera.NewManager()
	}

	c := &Controller{
		opener:          opener,
		classifier:      classifier,
		cameras:         cameras,
		display:         o.display,
		logger:          o.logger.With("component", "capture"),
		previewInterval: o.previewInterval,
		onPreviewFrame:  o.onPreviewFrame,
		state:           StateIdle,
	}
	c.poller = live.New(o.liveInterval, c.liveTick, live.WithLogger(o.logger))

	prev := cameras.OnConfigChange
	cameras.OnConfigChange = func(cfg camera.Config) error {
		if prev != nil {
			if err := prev(cfg); err != nil {
				return err
			}
		}
		c.configChanged(cfg)
		return nil
	}
	return c
}

// configChanged publishes a new camera config. An open camera keeps its
// current settings until the next Start.
func (c *Controller) configChanged(cfg camera.Config) {
	c.logger.Info("camera config changed",
		"device", cfg.Device,
		"backend", cfg.Backend,
		"width", cfg.Width,
		"height", cfg.Height,
		"mirror", cfg.Mirror)
	c.publishState()
}

// Cameras returns the camera config manager.
func (c *Controller) Cameras() *camera.Manager {
	return c.cameras
}

// Start opens the camera and begins previewing.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle || c.starting {
		c.mu.Unlock()
		return fmt.Errorf("%w: start while %s", ErrInvalidState, c.state)
	}
	c.starting = true
	c.mu.Unlock()

	cfg := c.cameras.GetConfig()
	src, err := c.opener.Open(ctx, cfg)

	c.mu.Lock()
	c.starting = false
	if err != nil {
		c.mu.Unlock()
		c.logger.Error("camera start failed", "device", cfg.Device, "error", err)
		c.fail(err)
		return err
	}
	c.source = src
	c.state = StatePreviewing
	c.lastErr = nil
	c.startPreviewLocked(src, cfg)
	c.mu.Unlock()

	c.logger.Info("camera started", "device", cfg.Device, "width", cfg.Width, "height", cfg.Height)
	c.publishState()
	return nil
}

// Capture stops live analysis and stores one still photo.
func (c *Controller) Capture() error {
	c.mu.Lock()
	if c.state != StatePreviewing {
		state := c.state
		c.mu.Unlock()
		err := fmt.Errorf("%w: capture while %s", ErrInvalidState, state)
		c.fail(err)
		return err
	}
	src := c.source
	c.mu.Unlock()

	c.poller.Stop()

	frame, err := src.Snapshot(c.cameras.GetConfig().Still())
	if err != nil {
		err = fmt.Errorf("capture: snapshot: %w", err)
		c.fail(err)
		return err
	}

	c.mu.Lock()
	if c.state != StatePreviewing || c.source != src {
		c.mu.Unlock()
		err := fmt.Errorf("%w: camera stopped during capture", ErrInvalidState)
		c.fail(err)
		return err
	}
	c.photo = frame
	c.state = StateCaptured
	c.lastErr = nil
	c.mu.Unlock()

	c.logger.Info("photo captured", "bytes", len(frame))
	c.publishState()
	return nil
}

// Retake discards the still photo and returns to the preview.
func (c *Controller) Retake() error {
	c.mu.Lock()
	if c.state != StateCaptured {
		state := c.state
		c.mu.Unlock()
		err := fmt.Errorf("%w: retake while %s", ErrInvalidState, state)
		c.fail(err)
		return err
	}
	c.photo = nil
	c.state = StatePreviewing
	c.mu.Unlock()

	c.publishState()
	return nil
}

// Submit stops live analysis, sends the still photo for classification and
// publishes the resulting report.
func (c *Controller) Submit(ctx context.Context) (*verdict.Report, error) {
	c.mu.Lock()
	if len(c.photo) == 0 {
		c.mu.Unlock()
		c.fail(ErrNoPhotoCaptured)
		return nil, ErrNoPhotoCaptured
	}
	photo := c.photo
	c.submitting++
	c.mu.Unlock()

	c.poller.Stop()
	c.publishState()

	resp, err := c.classifier.Classify(ctx, &classify.Request{Image: photo, Filename: PhotoFilename})

	c.mu.Lock()
	c.submitting--
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("submit failed", "error", err)
		c.fail(err)
		return nil, err
	}

	report := verdict.Evaluate(resp.Document)
	c.logger.Info("photo classified",
		"request_id", resp.RequestID,
		"latency_ms", resp.LatencyMs,
		"issues", len(report.Issues))
	c.publishReport(OriginSubmit, report)
	return report, nil
}

// StartLive begins periodic analysis of preview frames.
func (c *Controller) StartLive() error {
	c.mu.Lock()
	open := c.source != nil
	c.mu.Unlock()
	if !open {
		c.fail(ErrCameraNotStarted)
		return ErrCameraNotStarted
	}

	if c.poller.Start() {
		c.logger.Info("live analysis started", "interval", c.poller.Interval())
		c.publishState()
	}
	return nil
}

// StopLive cancels the live timer. A request already in flight still
// completes and may publish its report.
func (c *Controller) StopLive() {
	if c.poller.Stop() {
		c.logger.Info("live analysis stopped")
		c.publishState()
	}
}

// ToggleLive flips live analysis and reports whether it is now running.
func (c *Controller) ToggleLive() (bool, error) {
	if c.poller.Running() {
		c.StopLive()
		return false, nil
	}
	if err := c.StartLive(); err != nil {
		return false, err
	}
	return true, nil
}

// Stop ends the session: live analysis and preview stop, the camera is
// released and the photo discarded. Stopping an idle session is a no-op.
func (c *Controller) Stop() error {
	c.poller.Stop()

	c.mu.Lock()
	src := c.source
	cancel, done := c.previewCancel, c.previewDone
	c.source = nil
	c.photo = nil
	c.previewCancel, c.previewDone = nil, nil
	wasIdle := c.state == StateIdle
	c.state = StateIdle
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	var err error
	if src != nil {
		if err = src.Close(); err != nil {
			c.logger.Warn("camera close failed", "error", err)
		}
		c.logger.Info("camera released")
	}
	if !wasIdle {
		c.publishState()
	}
	return err
}

// Close releases everything. It is the shutdown path.
func (c *Controller) Close() error {
	return c.Stop()
}

// Photo returns a copy of the still photo, if any.
func (c *Controller) Photo() ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.photo) == 0 {
		return nil, false
	}
	out := make([]byte, len(c.photo))
	copy(out, c.photo)
	return out, true
}

// LastReport returns the most recent report and where it came from.
func (c *Controller) LastReport() (*verdict.Report, Origin) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastReport, c.reportOrigin
}

// Snapshot returns the current status.
func (c *Controller) Snapshot() Status {
	stats := c.poller.Stats()

	c.mu.Lock()
	defer c.mu.Unlock()
	s := Status{
		State:        c.state,
		Live:         stats.Running,
		Submitting:   c.submitting > 0,
		HasPhoto:     len(c.photo) > 0,
		PhotoBytes:   len(c.photo),
		LastReport:   c.lastReport,
		ReportOrigin: c.reportOrigin,
		ReportAt:     c.reportAt,
		LiveStats:    stats,
		Camera:       c.cameras.GetConfig(),
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
		s.Guidance = Guidance(c.lastErr)
	}
	return s
}

// liveTick snapshots the preview and classifies it. Errors are counted by
// the poller and never shown.
func (c *Controller) liveTick(ctx context.Context) error {
	c.mu.Lock()
	src := c.source
	c.mu.Unlock()
	if src == nil {
		return live.ErrSkip
	}

	frame, err := src.Snapshot(c.cameras.GetConfig().Live())
	if errors.Is(err, camera.ErrNoFrame) || errors.Is(err, camera.ErrClosed) {
		return live.ErrSkip
	}
	if err != nil {
		return fmt.Errorf("live snapshot: %w", err)
	}

	resp, err := c.classifier.Classify(ctx, &classify.Request{Image: frame, Filename: FrameFilename})
	if err != nil {
		c.logger.Debug("live classify failed", "error", err)
		return err
	}

	c.publishReport(OriginLive, verdict.Evaluate(resp.Document))
	return nil
}

func (c *Controller) startPreviewLocked(src camera.Source, cfg camera.Config) {
	if c.onPreviewFrame == nil {
		return
	}
	interval := c.previewInterval
	if interval <= 0 {
		interval = time.Second / time.Duration(max(cfg.Framerate, 1))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.previewCancel, c.previewDone = cancel, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				frame, err := src.Snapshot(c.cameras.GetConfig().Live())
				if err != nil {
					continue
				}
				c.onPreviewFrame(frame)
			}
		}
	}()
}

func (c *Controller) publishReport(origin Origin, r *verdict.Report) {
	c.mu.Lock()
	c.lastReport = r
	c.reportOrigin = origin
	c.reportAt = time.Now()
	if origin == OriginSubmit {
		c.lastErr = nil
	}
	c.mu.Unlock()

	c.display.ShowReport(origin, r)
	c.publishState()
}

func (c *Controller) publishState() {
	c.display.ShowState(c.Snapshot())
}

func (c *Controller) fail(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()

	c.display.ShowError(err, Guidance(err))
	c.publishState()
}
