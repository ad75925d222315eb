package web

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/teslashibe/photocheck/pkg/camera"
	"github.com/teslashibe/photocheck/pkg/capture"
	"github.com/teslashibe/photocheck/pkg/classify"
	"github.com/teslashibe/photocheck/pkg/hub"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error    string `json:"error"`
	Kind     string `json:"kind"`
	Guidance string `json:"guidance,omitempty"`
}

// classifyError maps an error to its HTTP status and kind.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, capture.ErrInvalidState):
		return fiber.StatusConflict, "invalid_state"
	case errors.Is(err, capture.ErrNoPhotoCaptured):
		return fiber.StatusConflict, "no_photo"
	case errors.Is(err, capture.ErrCameraNotStarted):
		return fiber.StatusConflict, "camera_not_started"
	case errors.Is(err, camera.ErrPermissionDenied),
		errors.Is(err, camera.ErrNoDevice),
		errors.Is(err, camera.ErrDeviceBusy),
		errors.Is(err, camera.ErrUnsupported),
		errors.Is(err, camera.ErrNoFrame),
		errors.Is(err, camera.ErrClosed):
		return fiber.StatusServiceUnavailable, "camera"
	case classify.IsTransport(err):
		return fiber.StatusBadGateway, "transport"
	}
	if _, ok := classify.AsAPIError(err); ok {
		return fiber.StatusBadGateway, "classifier"
	}
	if errors.Is(err, classify.ErrInvalidDocument) {
		return fiber.StatusBadGateway, "classifier"
	}
	return fiber.StatusInternalServerError, "internal"
}

func sendError(c *fiber.Ctx, err error) error {
	status, kind := classifyError(err)
	return c.Status(status).JSON(ErrorResponse{
		Error:    err.Error(),
		Kind:     kind,
		Guidance: capture.Guidance(err),
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleMetrics exposes live analysis counters in Prometheus text format.
func (s *Server) handleMetrics(c *fiber.Ctx) error {
	st := s.ctrl.Snapshot()
	stats := st.LiveStats

	var b strings.Builder
	gauge := func(name, help string, v any) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s gauge\n%s %v\n\n", name, help, name, name, v)
	}
	counter := func(name, help string, v uint64) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, v)
	}
	gauge("photocheck_live_running", "Live analysis active", boolToInt(stats.Running))
	gauge("photocheck_camera_open", "Camera open", boolToInt(st.State != capture.StateIdle))
	counter("photocheck_live_ticks_started", "Live ticks started", stats.Started)
	counter("photocheck_live_ticks_skipped", "Live ticks skipped while a request was outstanding", stats.Skipped)
	counter("photocheck_live_ticks_idle", "Live ticks with no frame ready", stats.Idle)
	counter("photocheck_live_ticks_failed", "Live ticks that failed", stats.Failed)
	b.WriteString("# HELP photocheck_ws_clients Connected websocket clients\n# TYPE photocheck_ws_clients gauge\n")
	for _, h := range []*hub.Hub{s.statusHub, s.reportHub, s.cameraHub} {
		fmt.Fprintf(&b, "photocheck_ws_clients{hub=%q} %d\n", h.Name(), h.ClientCount())
	}

	c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
	return c.SendString(b.String())
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Snapshot())
}

func (s *Server) handleCameraStart(c *fiber.Ctx) error {
	if err := s.ctrl.Start(c.UserContext()); err != nil {
		return sendError(c, err)
	}
	return c.JSON(s.ctrl.Snapshot())
}

func (s *Server) handleCameraStop(c *fiber.Ctx) error {
	if err := s.ctrl.Stop(); err != nil {
		s.logger.Warn("camera stop", "error", err)
	}
	return c.JSON(s.ctrl.Snapshot())
}

func (s *Server) handleGetCameraConfig(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Cameras().GetConfigJSON())
}

// handlePatchCameraConfig applies partial updates; they take effect on the
// next camera start.
func (s *Server) handlePatchCameraConfig(c *fiber.Ctx) error {
	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid JSON body",
			Kind:  "bad_request",
		})
	}

	if err := s.ctrl.Cameras().UpdateConfig(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: err.Error(),
			Kind:  "bad_request",
		})
	}
	return c.JSON(s.ctrl.Cameras().GetConfigJSON())
}

func (s *Server) handleCameraPresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"presets": camera.PresetNames()})
}

func (s *Server) handleCapture(c *fiber.Ctx) error {
	if err := s.ctrl.Capture(); err != nil {
		return sendError(c, err)
	}
	return c.JSON(s.ctrl.Snapshot())
}

func (s *Server) handleRetake(c *fiber.Ctx) error {
	if err := s.ctrl.Retake(); err != nil {
		return sendError(c, err)
	}
	return c.JSON(s.ctrl.Snapshot())
}

func (s *Server) handleSubmit(c *fiber.Ctx) error {
	report, err := s.ctrl.Submit(c.UserContext())
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(report)
}

func (s *Server) handlePhoto(c *fiber.Ctx) error {
	photo, ok := s.ctrl.Photo()
	if !ok {
		return sendError(c, capture.ErrNoPhotoCaptured)
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(photo)
}

func (s *Server) handleReport(c *fiber.Ctx) error {
	report, origin := s.ctrl.LastReport()
	if report == nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error: "no report yet",
			Kind:  "no_report",
		})
	}
	return c.JSON(fiber.Map{"origin": origin, "report": report})
}

func (s *Server) handleLiveStart(c *fiber.Ctx) error {
	if err := s.ctrl.StartLive(); err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{"live": true})
}

func (s *Server) handleLiveStop(c *fiber.Ctx) error {
	s.ctrl.StopLive()
	return c.JSON(fiber.Map{"live": false})
}

func (s *Server) handleLiveToggle(c *fiber.Ctx) error {
	on, err := s.ctrl.ToggleLive()
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{"live": on})
}

func (s *Server) handleClassifierHealth(c *fiber.Ctx) error {
	if err := s.classifier.Health(c.UserContext()); err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
