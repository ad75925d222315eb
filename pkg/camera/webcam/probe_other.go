//go:build !linux

package webcam

// probeDevice is a no-op where devices are not exposed as files; OpenCV's
// open and warm-up read do the categorization.
func probeDevice(index int) error {
	return nil
}
