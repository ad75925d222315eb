// photocheck checks webcam photos against a remote classification service.
// It serves a dashboard, checks a single photo, or prints live analysis.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/photocheck/internal/config"
	"github.com/teslashibe/photocheck/internal/log"
	"github.com/teslashibe/photocheck/pkg/app"
	"github.com/teslashibe/photocheck/pkg/camera"
	"github.com/teslashibe/photocheck/pkg/camera/webcam"
)

func main() {
	cfg := parseFlags()

	level := config.LogLevel()
	if cfg.Debug {
		level = "debug"
	}
	log.Init(level)
	log.Info("photocheck starting", "mode", cfg.Mode, "endpoint", cfg.Endpoint)
	log.Debug("camera config", "config", cfg.Camera)

	a, err := app.New(cfg, webcam.NewOpener(log.L()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(2)
	}

	if err := a.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Initialization failed: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = a.Run(ctx)
	cancel()
	a.Shutdown()
	log.Info("photocheck stopped")

	switch {
	case err == nil:
	case errors.Is(err, app.ErrChecksFailed):
		os.Exit(3)
	default:
		log.Error("run failed", "error", err)
		os.Exit(1)
	}
}

// parseFlags layers configuration: defaults, then the optional YAML file,
// then environment, then command line flags.
func parseFlags() app.Config {
	cfg := app.DefaultConfig()

	if path := configPath(os.Args[1:]); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			os.Exit(2)
		}
	}
	cfg.LoadEnvConfig()

	mode := bindFlags(flag.CommandLine, &cfg)
	preset := flag.String("preset", "", "Camera preset: default, 480p, 720p, 1080p, fast (applied before other camera flags)")
	flag.Parse()
	cfg.Mode = app.Mode(*mode)

	if *preset != "" {
		p := camera.GetPreset(*preset)
		if p == nil {
			fmt.Fprintf(os.Stderr, "❌ Unknown preset %q\n", *preset)
			os.Exit(2)
		}
		applyPreset(&cfg.Camera, *p)
	}
	return cfg
}

// bindFlags registers every config flag on fs with cfg's values as defaults.
func bindFlags(fs *flag.FlagSet, cfg *app.Config) *string {
	fs.String("config", "", "YAML config file (PHOTOCHECK_CONFIG)")
	mode := fs.String("mode", string(cfg.Mode), "Run mode: serve, once, live")
	fs.StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "Dashboard listen address (PHOTOCHECK_ADDR)")
	fs.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "Classification service base URL (PHOTOCHECK_ENDPOINT)")
	fs.BoolVar(&cfg.InsecureTLS, "insecure", cfg.InsecureTLS, "Skip TLS verification for self-signed endpoints (PHOTOCHECK_INSECURE)")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Classification request timeout (PHOTOCHECK_TIMEOUT)")
	fs.DurationVar(&cfg.LiveInterval, "interval", cfg.LiveInterval, "Live analysis interval (LIVE_INTERVAL)")
	fs.IntVar(&cfg.Camera.Device, "device", cfg.Camera.Device, "Camera index (CAMERA_DEVICE)")
	fs.StringVar(&cfg.Camera.Backend, "backend", cfg.Camera.Backend, "Capture backend: auto, v4l2, avfoundation, dshow, msmf, gstreamer, ffmpeg")
	fs.IntVar(&cfg.Camera.Width, "width", cfg.Camera.Width, "Preferred frame width")
	fs.IntVar(&cfg.Camera.Height, "height", cfg.Camera.Height, "Preferred frame height")
	fs.BoolVar(&cfg.Camera.Mirror, "mirror", cfg.Camera.Mirror, "Mirror frames horizontally")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug logging and HTTP access log")
	return mode
}

// configPath finds -config in args ahead of the real parse, falling back
// to PHOTOCHECK_CONFIG.
func configPath(args []string) string {
	fs := flag.NewFlagSet("photocheck", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var scratch app.Config
	bindFlags(fs, &scratch)
	fs.String("preset", "", "")
	if err := fs.Parse(args); err == nil {
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			return f.Value.String()
		}
	}
	return config.String(config.EnvConfigFile, "")
}

// applyPreset replaces cfg with preset, keeping any camera flag set
// explicitly on the command line.
func applyPreset(cfg *camera.Config, preset camera.Config) {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	out := preset
	out.Device, out.Backend = cfg.Device, cfg.Backend
	if set["width"] {
		out.Width = cfg.Width
	}
	if set["height"] {
		out.Height = cfg.Height
	}
	if set["mirror"] {
		out.Mirror = cfg.Mirror
	}
	*cfg = out
}
