package webcam

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/teslashibe/photocheck/pkg/camera"
)

func withDevDir(t *testing.T, dir string) {
	t.Helper()
	old := devDir
	devDir = dir
	t.Cleanup(func() { devDir = old })
}

func TestProbeMissingDevice(t *testing.T) {
	withDevDir(t, t.TempDir())

	if err := probeDevice(0); !errors.Is(err, camera.ErrNoDevice) {
		t.Errorf("err = %v, want ErrNoDevice", err)
	}
}

func TestProbeAccessibleDevice(t *testing.T) {
	dir := t.TempDir()
	withDevDir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, "video2"), nil, 0o600); err != nil {
		t.Fatal(err)
	}

	if err := probeDevice(2); err != nil {
		t.Errorf("probeDevice = %v", err)
	}
}

func TestProbePermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses file permissions")
	}
	dir := t.TempDir()
	withDevDir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, "video0"), nil, 0o000); err != nil {
		t.Fatal(err)
	}

	if err := probeDevice(0); !errors.Is(err, camera.ErrPermissionDenied) {
		t.Errorf("err = %v, want ErrPermissionDenied", err)
	}
}
