package main

import (
	"flag"
	"testing"

	"github.com/teslashibe/photocheck/pkg/app"
	"github.com/teslashibe/photocheck/pkg/camera"
)

func TestConfigPath(t *testing.T) {
	t.Setenv("PHOTOCHECK_CONFIG", "")

	tests := []struct {
		args []string
		want string
	}{
		{nil, ""},
		{[]string{"-config", "booth.yaml"}, "booth.yaml"},
		{[]string{"-mode", "once", "-config=booth.yaml", "-width", "640"}, "booth.yaml"},
		{[]string{"-bogus"}, ""},
	}
	for _, tc := range tests {
		if got := configPath(tc.args); got != tc.want {
			t.Errorf("configPath(%v) = %q, want %q", tc.args, got, tc.want)
		}
	}

	t.Setenv("PHOTOCHECK_CONFIG", "env.yaml")
	if got := configPath(nil); got != "env.yaml" {
		t.Errorf("configPath from env = %q", got)
	}
}

func TestBindFlags(t *testing.T) {
	cfg := app.DefaultConfig()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	mode := bindFlags(fs, &cfg)

	err := fs.Parse([]string{"-mode", "live", "-endpoint", "http://x:8000", "-interval", "1s", "-device", "2"})
	if err != nil {
		t.Fatal(err)
	}
	if *mode != "live" || cfg.Endpoint != "http://x:8000" || cfg.LiveInterval.String() != "1s" || cfg.Camera.Device != 2 {
		t.Errorf("cfg = %+v mode %q", cfg, *mode)
	}
}

func TestApplyPresetKeepsDevice(t *testing.T) {
	cfg := camera.DefaultConfig()
	cfg.Device = 3
	cfg.Backend = "v4l2"

	applyPreset(&cfg, camera.FastConfig())

	if cfg.Device != 3 || cfg.Backend != "v4l2" {
		t.Errorf("device/backend lost: %+v", cfg)
	}
	if cfg.Width != 640 || cfg.LiveQuality != 70 {
		t.Errorf("preset not applied: %+v", cfg)
	}
}
