package camera

import (
	"context"
	"errors"
)

// Acquisition errors. Each maps to specific user guidance via Guidance.
var (
	// ErrPermissionDenied is returned when the OS refuses access to the device.
	ErrPermissionDenied = errors.New("camera: permission denied")

	// ErrNoDevice is returned when no camera exists at the configured index.
	ErrNoDevice = errors.New("camera: no device found")

	// ErrDeviceBusy is returned when the device exists but cannot be read,
	// usually because another application holds it.
	ErrDeviceBusy = errors.New("camera: device busy")

	// ErrUnsupported is returned when the requested capture backend is not
	// available in this build or on this platform.
	ErrUnsupported = errors.New("camera: capture not supported")

	// ErrClosed is returned by a Source after Close.
	ErrClosed = errors.New("camera: source closed")

	// ErrNoFrame is returned when the device delivered no frame yet.
	ErrNoFrame = errors.New("camera: no frame available")
)

// EncodeOptions controls how a frame becomes a JPEG.
type EncodeOptions struct {
	// Quality is the JPEG quality, 1-100.
	Quality int

	// Mirror flips the frame horizontally.
	Mirror bool
}

// Source is an open camera stream.
type Source interface {
	// Snapshot grabs the current frame and encodes it as JPEG.
	Snapshot(opts EncodeOptions) ([]byte, error)

	// Close releases the device. Further Snapshots return ErrClosed.
	Close() error
}

// Opener acquires a camera.
type Opener interface {
	Open(ctx context.Context, cfg Config) (Source, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, cfg Config) (Source, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, cfg Config) (Source, error) {
	return f(ctx, cfg)
}

// Guidance returns user-facing text for an acquisition error, or "" if err
// is not one of the camera errors.
func Guidance(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "Camera permission denied. Please:\n" +
			"1. Allow this program to use the camera when the system asks\n" +
			"2. Check your privacy settings to ensure camera access is allowed\n" +
			"3. Make sure your user can read the video device (e.g. the video group)\n" +
			"4. Try again after changing the setting"
	case errors.Is(err, ErrNoDevice):
		return "No camera found. Please connect a camera and try again."
	case errors.Is(err, ErrDeviceBusy):
		return "Camera is already in use by another application. Please close other apps using the camera and try again."
	case errors.Is(err, ErrUnsupported):
		return "Camera access is not supported with this capture backend. Please choose another backend or use the default."
	case errors.Is(err, ErrClosed), errors.Is(err, ErrNoFrame):
		return "Camera is not ready. Please start the camera first."
	}
	return ""
}
