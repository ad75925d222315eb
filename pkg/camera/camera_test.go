package camera

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestGuidance(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrPermissionDenied, "permission denied"},
		{fmt.Errorf("open /dev/video0: %w", ErrPermissionDenied), "permission denied"},
		{ErrNoDevice, "No camera found"},
		{ErrDeviceBusy, "already in use"},
		{ErrUnsupported, "not supported"},
		{ErrNoFrame, "start the camera first"},
		{errors.New("other"), ""},
		{nil, ""},
	}

	for _, tc := range tests {
		got := Guidance(tc.err)
		if tc.want == "" {
			if got != "" {
				t.Errorf("Guidance(%v) = %q, want empty", tc.err, got)
			}
			continue
		}
		if !strings.Contains(got, tc.want) {
			t.Errorf("Guidance(%v) = %q, want it to contain %q", tc.err, got, tc.want)
		}
	}
}

func TestMockSource(t *testing.T) {
	s := NewMockSource([]byte{1, 2, 3})

	frame, err := s.Snapshot(EncodeOptions{Quality: 95, Mirror: true})
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(frame) != 3 {
		t.Errorf("frame = %v", frame)
	}

	s.Close()
	if _, err := s.Snapshot(EncodeOptions{}); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
	if got := s.Snapshots(); len(got) != 1 || got[0].Quality != 95 || !got[0].Mirror {
		t.Errorf("Snapshots = %+v", got)
	}

	empty := NewMockSource(nil)
	if _, err := empty.Snapshot(EncodeOptions{}); !errors.Is(err, ErrNoFrame) {
		t.Errorf("err = %v, want ErrNoFrame", err)
	}
}

func TestOpenerFunc(t *testing.T) {
	var got Config
	o := OpenerFunc(func(ctx context.Context, cfg Config) (Source, error) {
		got = cfg
		return nil, ErrNoDevice
	})
	cfg := DefaultConfig()
	cfg.Device = 2
	if _, err := o.Open(context.Background(), cfg); !errors.Is(err, ErrNoDevice) {
		t.Errorf("err = %v", err)
	}
	if got.Device != 2 {
		t.Errorf("config not passed through: %+v", got)
	}
}
