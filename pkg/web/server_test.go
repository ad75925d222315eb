package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/teslashibe/photocheck/internal/log"
	"github.com/teslashibe/photocheck/pkg/camera"
	"github.com/teslashibe/photocheck/pkg/capture"
	"github.com/teslashibe/photocheck/pkg/classify"
	"github.com/teslashibe/photocheck/pkg/verdict"
)

var jpeg = []byte{0xFF, 0xD8, 0xFF, 0xD9}

type testEnv struct {
	srv    *Server
	opener *camera.MockOpener
	cls    *classify.Mock
	ctrl   *capture.Controller
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := log.Discard()

	env := &testEnv{
		opener: &camera.MockOpener{NewSource: func() camera.Source { return camera.NewMockSource(jpeg) }},
		cls: classify.NewMock(verdict.Document{
			"is_centered": true,
			"has_glasses": true,
			"report_info": map[string]any{"head tilt": 170.0},
		}),
	}
	env.srv = NewServer(Config{Addr: ":0", Logger: logger})
	env.ctrl = capture.New(env.opener, env.cls, nil,
		capture.WithDisplay(env.srv),
		capture.WithLogger(logger))
	env.srv.Attach(env.ctrl, env.cls)

	for _, h := range []interface{ Run() }{env.srv.statusHub, env.srv.reportHub, env.srv.cameraHub} {
		go h.Run()
	}
	t.Cleanup(func() {
		env.ctrl.Close()
		env.srv.statusHub.Stop()
		env.srv.reportHub.Stop()
		env.srv.cameraHub.Stop()
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.srv.App().Test(req, 5000)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, data
}

func decodeError(t *testing.T, data []byte) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatalf("decode error body %q: %v", data, err)
	}
	return e
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, "GET", "/health", "")
	if resp.StatusCode != 200 || !strings.Contains(string(body), `"ok"`) {
		t.Errorf("health = %d %s", resp.StatusCode, body)
	}
}

func TestSessionFlow(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, "POST", "/api/camera/start", "")
	if resp.StatusCode != 200 {
		t.Fatalf("start = %d %s", resp.StatusCode, body)
	}
	var st capture.Status
	json.Unmarshal(body, &st)
	if st.State != capture.StatePreviewing {
		t.Errorf("state = %s, want previewing", st.State)
	}

	if resp, body := env.do(t, "POST", "/api/capture", ""); resp.StatusCode != 200 {
		t.Fatalf("capture = %d %s", resp.StatusCode, body)
	}

	resp, body = env.do(t, "GET", "/api/photo", "")
	if resp.StatusCode != 200 || resp.Header.Get("Content-Type") != "image/jpeg" || string(body) != string(jpeg) {
		t.Errorf("photo = %d %s %v", resp.StatusCode, resp.Header.Get("Content-Type"), body)
	}

	resp, body = env.do(t, "POST", "/api/submit", "")
	if resp.StatusCode != 200 {
		t.Fatalf("submit = %d %s", resp.StatusCode, body)
	}
	var report verdict.Report
	if err := json.Unmarshal(body, &report); err != nil {
		t.Fatal(err)
	}
	if report.AllPassed || len(report.Issues) != 1 || report.Issues[0] != "Nothing on the face(no glasses, no mask)" {
		t.Errorf("issues = %v", report.Issues)
	}
	if len(report.Advice) != 1 || !strings.Contains(report.Advice[0].Text, "right") {
		t.Errorf("advice = %+v", report.Advice)
	}

	resp, body = env.do(t, "GET", "/api/report", "")
	if resp.StatusCode != 200 || !strings.Contains(string(body), `"origin":"submit"`) {
		t.Errorf("report = %d %s", resp.StatusCode, body)
	}

	if resp, _ := env.do(t, "POST", "/api/retake", ""); resp.StatusCode != 200 {
		t.Errorf("retake = %d", resp.StatusCode)
	}

	resp, body = env.do(t, "POST", "/api/camera/stop", "")
	json.Unmarshal(body, &st)
	if resp.StatusCode != 200 || st.State != capture.StateIdle {
		t.Errorf("stop = %d %s", resp.StatusCode, st.State)
	}
}

func TestConflicts(t *testing.T) {
	tests := []struct {
		method, path string
		kind         string
	}{
		{"POST", "/api/capture", "invalid_state"},
		{"POST", "/api/retake", "invalid_state"},
		{"POST", "/api/submit", "no_photo"},
		{"GET", "/api/photo", "no_photo"},
		{"POST", "/api/live/start", "camera_not_started"},
		{"POST", "/api/live/toggle", "camera_not_started"},
	}

	env := newTestEnv(t)
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			resp, body := env.do(t, tc.method, tc.path, "")
			if resp.StatusCode != http.StatusConflict {
				t.Errorf("status = %d, want 409 (%s)", resp.StatusCode, body)
			}
			if e := decodeError(t, body); e.Kind != tc.kind {
				t.Errorf("kind = %q, want %q", e.Kind, tc.kind)
			}
		})
	}
}

func TestCameraStartFailure(t *testing.T) {
	env := newTestEnv(t)
	env.opener.Err = fmt.Errorf("open: %w", camera.ErrPermissionDenied)

	resp, body := env.do(t, "POST", "/api/camera/start", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	e := decodeError(t, body)
	if e.Kind != "camera" || !strings.Contains(e.Guidance, "permission denied") {
		t.Errorf("error = %+v", e)
	}
	if env.ctrl.Snapshot().State != capture.StateIdle {
		t.Error("controller left idle after failed start")
	}
}

func TestSubmitClassifierErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
	}{
		{"api", &classify.APIError{StatusCode: 500, Body: "Internal Server Error"}, "classifier"},
		{"transport", &classify.TransportError{URL: "https://x", Err: errors.New("refused")}, "transport"},
		{"document", classify.ErrInvalidDocument, "classifier"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.cls.ClassifyFunc = func(ctx context.Context, req *classify.Request) (*classify.Response, error) {
				return nil, tc.err
			}
			env.do(t, "POST", "/api/camera/start", "")
			env.do(t, "POST", "/api/capture", "")

			resp, body := env.do(t, "POST", "/api/submit", "")
			if resp.StatusCode != http.StatusBadGateway {
				t.Fatalf("status = %d, want 502", resp.StatusCode)
			}
			if e := decodeError(t, body); e.Kind != tc.kind {
				t.Errorf("kind = %q, want %q", e.Kind, tc.kind)
			}
		})
	}
}

func TestCameraConfig(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, "PATCH", "/api/camera/config", `{"preset":"480p","mirror":false}`)
	if resp.StatusCode != 200 {
		t.Fatalf("patch = %d %s", resp.StatusCode, body)
	}
	cfg := env.ctrl.Cameras().GetConfig()
	if cfg.Width != 640 || cfg.Mirror {
		t.Errorf("config = %+v", cfg)
	}

	resp, _ = env.do(t, "PATCH", "/api/camera/config", `{"width":5}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid width = %d, want 400", resp.StatusCode)
	}
	resp, body = env.do(t, "PATCH", "/api/camera/config", `{"width":"1920"}`)
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), "invalid value for width") {
		t.Errorf("string width = %d %s, want 400", resp.StatusCode, body)
	}
	resp, _ = env.do(t, "PATCH", "/api/camera/config", `not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad body = %d, want 400", resp.StatusCode)
	}

	env.do(t, "POST", "/api/camera/start", "")
	if got := env.opener.LastConfig(); got.Width != 640 {
		t.Errorf("camera opened at width %d, want 640", got.Width)
	}

	resp, body = env.do(t, "GET", "/api/camera/presets", "")
	if resp.StatusCode != 200 || !strings.Contains(string(body), "1080p") {
		t.Errorf("presets = %d %s", resp.StatusCode, body)
	}
}

func TestLiveToggle(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/camera/start", "")

	_, body := env.do(t, "POST", "/api/live/toggle", "")
	if !strings.Contains(string(body), `"live":true`) {
		t.Errorf("toggle on = %s", body)
	}
	_, body = env.do(t, "POST", "/api/live/stop", "")
	if !strings.Contains(string(body), `"live":false`) {
		t.Errorf("stop = %s", body)
	}
	if env.ctrl.Snapshot().Live {
		t.Error("live still running")
	}
}

func TestReportNotFound(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, "GET", "/api/report", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestClassifierHealth(t *testing.T) {
	env := newTestEnv(t)

	if resp, _ := env.do(t, "GET", "/api/classifier/health", ""); resp.StatusCode != 200 {
		t.Errorf("healthy = %d", resp.StatusCode)
	}

	env.cls.HealthFunc = func(ctx context.Context) error {
		return &classify.TransportError{URL: "https://x/", Err: errors.New("timeout")}
	}
	resp, body := env.do(t, "GET", "/api/classifier/health", "")
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("unhealthy = %d", resp.StatusCode)
	}
	if e := decodeError(t, body); !strings.Contains(e.Guidance, "Access-Control-Allow-Origin") {
		t.Errorf("guidance = %q", e.Guidance)
	}
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, "GET", "/metrics", "")
	if resp.StatusCode != 200 {
		t.Fatalf("metrics = %d", resp.StatusCode)
	}
	for _, name := range []string{"photocheck_live_running 0", "photocheck_live_ticks_skipped 0", "photocheck_camera_open 0", `photocheck_ws_clients{hub="report"} 0`} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics missing %q", name)
		}
	}
}

func TestDashboardIndex(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, "GET", "/", "")
	if resp.StatusCode != 200 || !strings.Contains(string(body), "Photo Check") {
		t.Errorf("index = %d", resp.StatusCode)
	}
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, "GET", "/ws/report", "")
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("status = %d, want 426", resp.StatusCode)
	}
}
