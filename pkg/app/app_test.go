package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/teslashibe/photocheck/internal/log"
	"github.com/teslashibe/photocheck/pkg/camera"
	"github.com/teslashibe/photocheck/pkg/capture"
	"github.com/teslashibe/photocheck/pkg/classify"
	"github.com/teslashibe/photocheck/pkg/verdict"
)

var quiet = log.Discard()

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func newTestApp(t *testing.T, mode Mode, doc verdict.Document) (*App, *syncBuffer, *camera.MockOpener) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Mode = mode
	cfg.LiveInterval = 5 * time.Millisecond
	cfg.ListenAddr = "127.0.0.1:0"

	out := &syncBuffer{}
	opener := &camera.MockOpener{Source: camera.NewMockSource([]byte{0xFF, 0xD8, 0xFF, 0xD9})}
	a, err := New(cfg, opener,
		WithLogger(quiet),
		WithOutput(out),
		WithClassifier(classify.NewMock(doc)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(a.Shutdown)
	return a, out, opener
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"mode", func(c *Config) { c.Mode = "batch" }, "Mode"},
		{"endpoint scheme", func(c *Config) { c.Endpoint = "ftp://host" }, "Endpoint"},
		{"endpoint empty", func(c *Config) { c.Endpoint = "" }, "Endpoint"},
		{"addr", func(c *Config) { c.ListenAddr = "" }, "ListenAddr"},
		{"addr not needed for once", func(c *Config) { c.Mode = ModeOnce; c.ListenAddr = "" }, ""},
		{"interval", func(c *Config) { c.LiveInterval = 0 }, "LiveInterval"},
		{"timeout", func(c *Config) { c.Timeout = -time.Second }, "Timeout"},
		{"camera", func(c *Config) { c.Camera.StillQuality = 0 }, "Camera"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.field == "" {
				if err != nil {
					t.Errorf("Validate() = %v", err)
				}
				return
			}
			var ce *ConfigError
			if !errors.As(err, &ce) || ce.Field != tc.field {
				t.Errorf("Validate() = %v, want ConfigError on %s", err, tc.field)
			}
		})
	}
}

func TestLoadEnvConfig(t *testing.T) {
	t.Setenv("PHOTOCHECK_ENDPOINT", "http://localhost:8000/")
	t.Setenv("LIVE_INTERVAL", "250")
	t.Setenv("CAMERA_DEVICE", "2")
	t.Setenv("PHOTOCHECK_INSECURE", "true")

	cfg := DefaultConfig()
	cfg.LoadEnvConfig()

	if cfg.Endpoint != "http://localhost:8000" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if cfg.LiveInterval != 250*time.Millisecond {
		t.Errorf("LiveInterval = %v", cfg.LiveInterval)
	}
	if cfg.Camera.Device != 2 || !cfg.InsecureTLS {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestNewRequiresOpener(t *testing.T) {
	if _, err := New(DefaultConfig(), nil); err == nil {
		t.Error("expected error without opener")
	}
}

func TestRunOnce(t *testing.T) {
	a, out, opener := newTestApp(t, ModeOnce, verdict.Document{"is_centered": true, "open_eye_status": true})

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "All checks passed") {
		t.Errorf("output:\n%s", out.String())
	}
	if opener.Opens() != 1 {
		t.Errorf("opens = %d", opener.Opens())
	}
}

func TestRunOnceWithIssues(t *testing.T) {
	a, out, _ := newTestApp(t, ModeOnce, verdict.Document{"is_centered": false})

	if err := a.Run(context.Background()); !errors.Is(err, ErrChecksFailed) {
		t.Fatalf("Run = %v, want ErrChecksFailed", err)
	}
	if !strings.Contains(out.String(), "Face Is Centered") {
		t.Errorf("output:\n%s", out.String())
	}
}

func TestRunOnceCameraError(t *testing.T) {
	a, out, opener := newTestApp(t, ModeOnce, verdict.Document{})
	opener.Err = camera.ErrNoDevice

	if err := a.Run(context.Background()); !errors.Is(err, camera.ErrNoDevice) {
		t.Fatalf("Run = %v, want ErrNoDevice", err)
	}
	if !strings.Contains(out.String(), "No camera found") {
		t.Errorf("output:\n%s", out.String())
	}
}

func TestRunLive(t *testing.T) {
	a, out, _ := newTestApp(t, ModeLive, verdict.Document{"is_centered": true})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), "live") {
		if time.Now().After(deadline) {
			t.Fatal("no live report printed")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	if err := <-done; err != nil {
		t.Errorf("Run = %v", err)
	}
	if a.Controller().Snapshot().Live {
		t.Error("live still running after cancel")
	}
}

func TestRunServe(t *testing.T) {
	a, _, _ := newTestApp(t, ModeServe, verdict.Document{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run = %v", err)
	}
}

func TestShutdownReleasesCamera(t *testing.T) {
	a, _, opener := newTestApp(t, ModeServe, verdict.Document{})
	if err := a.Controller().Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	a.Shutdown()

	if !opener.Source.(*camera.MockSource).Closed() {
		t.Error("camera not released on shutdown")
	}
	if a.Controller().Snapshot().State != capture.StateIdle {
		t.Error("controller not idle after shutdown")
	}
}

func TestRunBeforeInit(t *testing.T) {
	a, err := New(DefaultConfig(), &camera.MockOpener{})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Run(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photocheck.yaml")
	data := `mode: live
endpoint: http://classifier.local:8000/
live_interval: 750ms
camera:
  device: 1
  width: 640
  height: 480
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	want := DefaultConfig()
	want.Mode = ModeLive
	want.Endpoint = "http://classifier.local:8000"
	want.LiveInterval = 750 * time.Millisecond
	want.Camera.Device = 1
	want.Camera.Width = 640
	want.Camera.Height = 480
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	if err := cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
