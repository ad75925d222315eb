package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/teslashibe/photocheck/pkg/camera"
	"github.com/teslashibe/photocheck/pkg/capture"
	"github.com/teslashibe/photocheck/pkg/classify"
	"github.com/teslashibe/photocheck/pkg/web"
)

// healthTimeout bounds the startup reachability check.
const healthTimeout = 3 * time.Second

// App is the photocheck orchestrator. It owns every component and their
// lifecycle.
type App struct {
	config Config
	logger *slog.Logger
	out    io.Writer

	opener     camera.Opener
	classifier classify.Classifier
	cameras    *camera.Manager
	ctrl       *capture.Controller
	server     *web.Server
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithOutput sets where once and live modes print reports (default stdout).
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.out = w }
}

// WithClassifier replaces the HTTP classification client.
func WithClassifier(c classify.Classifier) Option {
	return func(a *App) { a.classifier = c }
}

// New validates cfg and creates an app that acquires cameras through opener.
func New(cfg Config, opener camera.Opener, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opener == nil {
		return nil, &ConfigError{Field: "Opener", Message: "camera opener is required"}
	}

	a := &App{
		config: cfg,
		logger: slog.Default(),
		out:    os.Stdout,
		opener: opener,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Init builds the components. Call it after New and before Run.
func (a *App) Init() error {
	if a.classifier == nil {
		client, err := classify.NewClient(
			classify.WithBaseURL(a.config.Endpoint),
			classify.WithTimeout(a.config.Timeout),
			classify.WithInsecureTLS(a.config.InsecureTLS),
			classify.WithLogger(a.logger),
		)
		if err != nil {
			return fmt.Errorf("classifier: %w", err)
		}
		a.classifier = client
	}

	a.cameras = camera.NewManagerWith(a.config.Camera)

	opts := []capture.Option{
		capture.WithLogger(a.logger),
		capture.WithLiveInterval(a.config.LiveInterval),
	}
	if a.config.Mode == ModeServe {
		a.server = web.NewServer(web.Config{
			Addr:      a.config.ListenAddr,
			AccessLog: a.config.Debug,
			Logger:    a.logger,
		})
		opts = append(opts,
			capture.WithDisplay(a.server),
			capture.WithPreviewFrame(a.server.SendCameraFrame))
	} else {
		opts = append(opts, capture.WithDisplay(capture.NewTextDisplay(a.out)))
	}

	a.ctrl = capture.New(a.opener, a.classifier, a.cameras, opts...)
	if a.server != nil {
		a.server.Attach(a.ctrl, a.classifier)
	}

	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()
	if err := a.classifier.Health(ctx); err != nil {
		a.logger.Warn("classification service not reachable yet", "endpoint", a.config.Endpoint, "error", err)
	}

	a.logger.Info("photocheck initialized",
		"mode", a.config.Mode,
		"endpoint", a.config.Endpoint,
		"live_interval", a.config.LiveInterval)
	return nil
}

// Controller returns the capture session.
func (a *App) Controller() *capture.Controller {
	return a.ctrl
}

// Run executes the configured mode. Serve and live block until ctx is
// cancelled; once returns after printing the report.
func (a *App) Run(ctx context.Context) error {
	if a.ctrl == nil {
		return errors.New("app: Run called before Init")
	}

	switch a.config.Mode {
	case ModeOnce:
		return a.runOnce(ctx)
	case ModeLive:
		return a.runLive(ctx)
	default:
		return a.runServe(ctx)
	}
}

func (a *App) runServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Start() }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return fmt.Errorf("web server: %w", err)
	}
}

func (a *App) runOnce(ctx context.Context) error {
	if err := a.ctrl.Start(ctx); err != nil {
		return err
	}
	if err := a.ctrl.Capture(); err != nil {
		return err
	}
	report, err := a.ctrl.Submit(ctx)
	if err != nil {
		return err
	}
	if !report.AllPassed {
		return ErrChecksFailed
	}
	return nil
}

func (a *App) runLive(ctx context.Context) error {
	if err := a.ctrl.Start(ctx); err != nil {
		return err
	}
	if err := a.ctrl.StartLive(); err != nil {
		return err
	}
	<-ctx.Done()
	a.ctrl.StopLive()
	return nil
}

// ErrChecksFailed is returned by once mode when the photo has issues.
var ErrChecksFailed = errors.New("photo did not pass all checks")

// Shutdown releases the camera, stops the dashboard and closes the
// classifier. It is the page-unload path.
func (a *App) Shutdown() {
	if a.ctrl != nil {
		if err := a.ctrl.Close(); err != nil {
			a.logger.Warn("camera release failed", "error", err)
		}
	}
	if a.server != nil {
		if err := a.server.Shutdown(); err != nil {
			a.logger.Debug("web server shutdown", "error", err)
		}
	}
	if a.classifier != nil {
		a.classifier.Close()
	}
}
