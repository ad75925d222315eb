package capture

import (
	"fmt"
	"io"
	"sync"

	"github.com/teslashibe/photocheck/pkg/verdict"
)

// Origin tells where a report came from.
type Origin string

const (
	OriginSubmit Origin = "submit"
	OriginLive   Origin = "live"
)

// Display receives everything the user should see. Calls are made outside
// the controller lock and may arrive from several goroutines.
type Display interface {
	ShowState(s Status)
	ShowReport(origin Origin, r *verdict.Report)
	ShowError(err error, guidance string)
}

// NopDisplay discards all updates.
type NopDisplay struct{}

func (NopDisplay) ShowState(Status) {}
func (NopDisplay) ShowReport(Origin, *verdict.Report) {}
func (NopDisplay) ShowError(error, string) {}

// Displays fans updates out to several displays in order.
func Displays(ds ...Display) Display {
	return multiDisplay(ds)
}

type multiDisplay []Display

func (m multiDisplay) ShowState(s Status) {
	for _, d := range m {
		d.ShowState(s)
	}
}

func (m multiDisplay) ShowReport(origin Origin, r *verdict.Report) {
	for _, d := range m {
		d.ShowReport(origin, r)
	}
}

func (m multiDisplay) ShowError(err error, guidance string) {
	for _, d := range m {
		d.ShowError(err, guidance)
	}
}

// TextDisplay prints reports and errors for a terminal. State changes are
// not printed.
type TextDisplay struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextDisplay writes to w.
func NewTextDisplay(w io.Writer) *TextDisplay {
	return &TextDisplay{w: w}
}

func (d *TextDisplay) ShowState(Status) {}

func (d *TextDisplay) ShowReport(origin Origin, r *verdict.Report) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if origin == OriginLive {
		fmt.Fprintln(d.w, "── live ──")
	}
	r.WriteText(d.w)
	fmt.Fprintln(d.w)
}

func (d *TextDisplay) ShowError(err error, guidance string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.w, "❌ %v\n", err)
	if guidance != "" {
		fmt.Fprintln(d.w, guidance)
	}
}

var (
	_ Display = NopDisplay{}
	_ Display = (*TextDisplay)(nil)
	_ Display = multiDisplay(nil)
)
