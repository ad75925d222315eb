// verdict-watch prints photo check reports from a running photocheck
// dashboard as they arrive.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/photocheck/internal/config"
	"github.com/teslashibe/photocheck/internal/log"
	"github.com/teslashibe/photocheck/pkg/capture"
	"github.com/teslashibe/photocheck/pkg/web"
)

const (
	handshakeTimeout = 10 * time.Second
	minBackoff       = 500 * time.Millisecond
	maxBackoff       = 10 * time.Second
)

// errDone stops the watch loop after the first report in -once mode.
var errDone = errors.New("done")

func main() {
	server := flag.String("server", "http://localhost"+config.DefaultListenAddr, "photocheck dashboard URL")
	once := flag.Bool("once", false, "Exit after the first report (exit status 3 if it has issues)")
	liveOnly := flag.Bool("live", false, "Only print live analysis reports")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := config.LogLevel()
	if *debug {
		level = "debug"
	}
	log.Init(level)

	wsURL, err := reportURL(*server)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	w := &watcher{
		url:      wsURL,
		out:      os.Stdout,
		logger:   log.With("component", "verdict-watch"),
		once:     *once,
		liveOnly: *liveOnly,
	}
	err = w.run(ctx)
	cancel()

	switch {
	case err == nil:
	case errors.Is(err, errDone):
		if w.last != nil && !w.last.Report.AllPassed {
			os.Exit(3)
		}
	default:
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

// reportURL turns the dashboard base URL into its report websocket URL.
func reportURL(server string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(server, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server URL %q: want http(s) or ws(s)", server)
	}
	u.Path += "/ws/report"
	return u.String(), nil
}

type watcher struct {
	url      string
	out      io.Writer
	logger   *slog.Logger
	once     bool
	liveOnly bool

	last *web.ReportEvent
	seen time.Time
}

// run connects and prints reports until ctx ends, reconnecting with
// backoff when the dashboard goes away.
func (w *watcher) run(ctx context.Context) error {
	backoff := minBackoff
	for {
		connected, err := w.session(ctx)
		if errors.Is(err, errDone) {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		backoff = retryDelay(backoff, connected)
		w.logger.Warn("connection lost, retrying", "url", w.url, "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// retryDelay is the wait before the next dial. A session that got connected
// resets the backoff.
func retryDelay(backoff time.Duration, connected bool) time.Duration {
	if connected {
		return minBackoff
	}
	return backoff
}

// session handles one websocket connection. connected reports whether the
// dial succeeded.
func (w *watcher) session(ctx context.Context) (connected bool, err error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", w.url, err)
	}
	defer conn.Close()
	w.logger.Info("connected", "url", w.url)

	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return true, nil
			}
			return true, err
		}
		if err := w.handle(data); err != nil {
			return true, err
		}
	}
}

// handle prints one report message.
func (w *watcher) handle(data []byte) error {
	var ev web.ReportEvent
	if err := json.Unmarshal(data, &ev); err != nil || ev.Report == nil {
		w.logger.Debug("ignoring message", "error", err)
		return nil
	}
	// The hub replays its latest report on connect; skip one already shown.
	if !ev.At.IsZero() && !ev.At.After(w.seen) {
		return nil
	}
	w.seen = ev.At
	if w.liveOnly && ev.Origin != capture.OriginLive {
		return nil
	}

	w.last = &ev
	fmt.Fprintf(w.out, "── %s report at %s ──\n", ev.Origin, ev.At.Local().Format("15:04:05"))
	ev.Report.WriteText(w.out)
	fmt.Fprintln(w.out)

	if w.once {
		return errDone
	}
	return nil
}
