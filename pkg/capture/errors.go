package capture

import (
	"errors"

	"github.com/teslashibe/photocheck/pkg/camera"
	"github.com/teslashibe/photocheck/pkg/classify"
)

var (
	// ErrInvalidState is returned when an operation is not allowed in the
	// current session state.
	ErrInvalidState = errors.New("capture: invalid state")

	// ErrNoPhotoCaptured is returned by Submit without a still photo.
	ErrNoPhotoCaptured = errors.New("capture: no photo captured")

	// ErrCameraNotStarted is returned by live analysis without an open camera.
	ErrCameraNotStarted = errors.New("capture: camera not started")
)

// Guidance returns user-facing help for any error the controller surfaces.
func Guidance(err error) string {
	if err == nil {
		return ""
	}
	if g := camera.Guidance(err); g != "" {
		return g
	}

	var te *classify.TransportError
	if errors.As(err, &te) {
		return te.Hint()
	}
	if apiErr, ok := classify.AsAPIError(err); ok {
		if apiErr.IsServerError() {
			return "The classification service failed to process the photo. Please try again."
		}
		return "The classification service rejected the photo."
	}

	switch {
	case errors.Is(err, ErrNoPhotoCaptured):
		return "Please capture a photo first."
	case errors.Is(err, ErrCameraNotStarted):
		return "Please start the camera first."
	case errors.Is(err, ErrInvalidState):
		return "That action is not available right now."
	}
	return ""
}
