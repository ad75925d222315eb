// Package web serves the photo check dashboard: a JSON control API over the
// capture session plus websocket feeds for status, reports and preview frames.
package web

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/photocheck/pkg/capture"
	"github.com/teslashibe/photocheck/pkg/classify"
	"github.com/teslashibe/photocheck/pkg/hub"
	"github.com/teslashibe/photocheck/pkg/verdict"
)

//go:embed static
var static embed.FS

// ReportEvent is pushed on /ws/report for every published report.
type ReportEvent struct {
	Origin capture.Origin  `json:"origin"`
	Report *verdict.Report `json:"report"`
	At     time.Time       `json:"at"`
}

// StatusEvent is pushed on /ws/status. Type is "state" or "error".
type StatusEvent struct {
	Type     string          `json:"type"`
	Status   *capture.Status `json:"status,omitempty"`
	Error    string          `json:"error,omitempty"`
	Kind     string          `json:"kind,omitempty"`
	Guidance string          `json:"guidance,omitempty"`
}

// Config holds server settings.
type Config struct {
	// Addr is the listen address, e.g. ":3000".
	Addr string

	// AccessLog enables the request logger middleware.
	AccessLog bool

	// Logger is used for server events; slog.Default if nil.
	Logger *slog.Logger
}

// Server is the dashboard server. It implements capture.Display so the
// controller can publish straight to the websocket hubs.
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger

	ctrl       *capture.Controller
	classifier classify.Classifier

	statusHub *hub.Hub
	reportHub *hub.Hub
	cameraHub *hub.Hub
}

// NewServer creates the server. Attach must be called before serving.
func NewServer(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		addr:      cfg.Addr,
		logger:    log.With("component", "web"),
		statusHub: hub.New("status", hub.WithLogger(log), hub.WithRetain()),
		reportHub: hub.New("report", hub.WithLogger(log), hub.WithRetain()),
		cameraHub: hub.New("camera", hub.WithLogger(log)),
	}

	app := fiber.New(fiber.Config{
		AppName:               "photocheck",
		DisableStartupMessage: true,
		BodyLimit:             1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,OPTIONS",
		AllowHeaders: "Content-Type,Accept",
	}))
	if cfg.AccessLog {
		app.Use(logger.New())
	}

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", s.handleMetrics)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/camera/start", s.handleCameraStart)
	api.Post("/camera/stop", s.handleCameraStop)
	api.Get("/camera/config", s.handleGetCameraConfig)
	api.Patch("/camera/config", s.handlePatchCameraConfig)
	api.Get("/camera/presets", s.handleCameraPresets)
	api.Post("/capture", s.handleCapture)
	api.Post("/retake", s.handleRetake)
	api.Post("/submit", s.handleSubmit)
	api.Get("/photo", s.handlePhoto)
	api.Get("/report", s.handleReport)
	api.Post("/live/start", s.handleLiveStart)
	api.Post("/live/stop", s.handleLiveStop)
	api.Post("/live/toggle", s.handleLiveToggle)
	api.Get("/classifier/health", s.handleClassifierHealth)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.serveHub(s.statusHub)))
	app.Get("/ws/report", websocket.New(s.serveHub(s.reportHub)))
	app.Get("/ws/camera", websocket.New(s.serveHub(s.cameraHub)))

	root, _ := fs.Sub(static, "static")
	app.Use("/", filesystem.New(filesystem.Config{
		Root:  http.FS(root),
		Index: "index.html",
	}))

	s.app = app
	return s
}

// Attach binds the capture session and classifier the API operates on.
func (s *Server) Attach(ctrl *capture.Controller, classifier classify.Classifier) {
	s.ctrl = ctrl
	s.classifier = classifier
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the hubs and blocks serving HTTP.
func (s *Server) Start() error {
	go s.statusHub.Run()
	go s.reportHub.Run()
	go s.cameraHub.Run()

	s.logger.Info("dashboard listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown stops the HTTP server and disconnects websocket clients.
func (s *Server) Shutdown() error {
	s.statusHub.Stop()
	s.reportHub.Stop()
	s.cameraHub.Stop()
	return s.app.Shutdown()
}

// ShowState implements capture.Display.
func (s *Server) ShowState(st capture.Status) {
	s.statusHub.BroadcastJSON(StatusEvent{Type: "state", Status: &st})
}

// ShowReport implements capture.Display.
func (s *Server) ShowReport(origin capture.Origin, r *verdict.Report) {
	s.reportHub.BroadcastJSON(ReportEvent{Origin: origin, Report: r, At: time.Now()})
}

// ShowError implements capture.Display.
func (s *Server) ShowError(err error, guidance string) {
	_, kind := classifyError(err)
	s.statusHub.BroadcastJSON(StatusEvent{
		Type:     "error",
		Error:    err.Error(),
		Kind:     kind,
		Guidance: guidance,
	})
}

// SendCameraFrame pushes a preview frame to /ws/camera clients.
func (s *Server) SendCameraFrame(jpeg []byte) {
	if s.cameraHub.ClientCount() == 0 {
		return
	}
	s.cameraHub.BroadcastBinary(jpeg)
}

func (s *Server) serveHub(h *hub.Hub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		client, err := hub.NewClient(h, conn)
		if err != nil {
			conn.Close()
			return
		}
		client.Run()
	}
}

var _ capture.Display = (*Server)(nil)
