package webcam

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/teslashibe/photocheck/pkg/camera"
	"golang.org/x/sys/unix"
)

// devDir is where V4L2 device nodes live.
var devDir = "/dev"

// probeDevice checks the device node before OpenCV gets a chance to fail
// with a generic error.
func probeDevice(index int) error {
	path := filepath.Join(devDir, fmt.Sprintf("video%d", index))
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", camera.ErrNoDevice, path)
		}
		return fmt.Errorf("webcam: stat %s: %w", path, err)
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
		if errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM) {
			return fmt.Errorf("%w: %s", camera.ErrPermissionDenied, path)
		}
		return fmt.Errorf("webcam: access %s: %w", path, err)
	}
	return nil
}
