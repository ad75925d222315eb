// Package webcam implements camera.Opener on top of OpenCV's VideoCapture.
package webcam

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/photocheck/pkg/camera"
	"gocv.io/x/gocv"
)

// Capture API identifiers, as defined by OpenCV's videoio module.
var apis = map[string]gocv.VideoCaptureAPI{
	"":             gocv.VideoCaptureAny,
	"auto":         gocv.VideoCaptureAny,
	"v4l2":         gocv.VideoCaptureAPI(200),
	"dshow":        gocv.VideoCaptureAPI(700),
	"avfoundation": gocv.VideoCaptureAPI(1200),
	"msmf":         gocv.VideoCaptureAPI(1400),
	"gstreamer":    gocv.VideoCaptureAPI(1800),
	"ffmpeg":       gocv.VideoCaptureAPI(1900),
}

func apiFor(backend string) (gocv.VideoCaptureAPI, error) {
	api, ok := apis[backend]
	if !ok {
		return 0, fmt.Errorf("%w: backend %q", camera.ErrUnsupported, backend)
	}
	return api, nil
}

// Opener opens local webcams.
type Opener struct {
	logger *slog.Logger
}

// NewOpener returns an Opener that logs through logger (slog.Default if nil).
func NewOpener(logger *slog.Logger) *Opener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Opener{logger: logger.With("component", "webcam")}
}

// Open acquires the device named by cfg and reads one warm-up frame.
func (o *Opener) Open(ctx context.Context, cfg camera.Config) (camera.Source, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("webcam: invalid config: %v", errs)
	}
	api, err := apiFor(cfg.Backend)
	if err != nil {
		return nil, err
	}
	if err := probeDevice(cfg.Device); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vc, err := gocv.OpenVideoCaptureWithAPI(cfg.Device, api)
	if err != nil {
		return nil, fmt.Errorf("%w: open device %d: %v", camera.ErrDeviceBusy, cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: device %d did not open", camera.ErrDeviceBusy, cfg.Device)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))

	warm := gocv.NewMat()
	defer warm.Close()
	if ok := vc.Read(&warm); !ok || warm.Empty() {
		vc.Close()
		return nil, fmt.Errorf("%w: no frame from device %d", camera.ErrDeviceBusy, cfg.Device)
	}

	o.logger.Info("camera opened",
		"device", cfg.Device,
		"backend", cfg.Backend,
		"width", warm.Cols(),
		"height", warm.Rows())

	return &Source{vc: vc}, nil
}

// Source is an open webcam. Reads are serialized.
type Source struct {
	mu     sync.Mutex
	vc     *gocv.VideoCapture
	closed bool
}

// Snapshot reads the current frame and encodes it as JPEG.
func (s *Source) Snapshot(opts camera.EncodeOptions) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, camera.ErrClosed
	}

	img := gocv.NewMat()
	defer img.Close()
	if ok := s.vc.Read(&img); !ok || img.Empty() {
		return nil, camera.ErrNoFrame
	}

	out := img
	if opts.Mirror {
		flipped := gocv.NewMat()
		defer flipped.Close()
		gocv.Flip(img, &flipped, 1)
		out = flipped
	}

	quality := opts.Quality
	if quality < 1 || quality > 100 {
		quality = 95
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, out, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("webcam: encode jpeg: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	frame := make([]byte, len(data))
	copy(frame, data)
	return frame, nil
}

// Close releases the device. It is safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.vc.Close()
}

var (
	_ camera.Opener = (*Opener)(nil)
	_ camera.Source = (*Source)(nil)
)
