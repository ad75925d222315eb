package verdict

import (
	"fmt"
	"io"
	"strings"
)

// Icon returns the single-character marker for a status.
func (s Status) Icon() string {
	switch s {
	case StatusPass:
		return "✓"
	case StatusFail:
		return "✗"
	default:
		return "?"
	}
}

// Title returns the display word for a status.
func (s Status) Title() string {
	switch s {
	case StatusPass:
		return "Pass"
	case StatusFail:
		return "Fail"
	default:
		return "Unknown"
	}
}

// WriteText renders the report for a terminal.
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder

	width := 0
	for _, c := range r.Checks {
		if len(c.Label) > width {
			width = len(c.Label)
		}
	}
	for _, c := range r.Checks {
		fmt.Fprintf(&b, "  %s %-*s  %s\n", c.Status.Icon(), width, c.Label+":", c.Status.Title())
	}

	if len(r.Advice) > 0 {
		b.WriteString("\nRecommendations\n")
		for _, a := range r.Advice {
			if a.Kind == AdviceOK {
				fmt.Fprintf(&b, "  ✓ %s\n", a.Text)
			} else {
				fmt.Fprintf(&b, "  💡 Advice: %s\n", a.Text)
			}
		}
	}

	pass, fail, unknown := r.Counts()
	fmt.Fprintf(&b, "\n%d passed, %d failed, %d unknown\n", pass, fail, unknown)

	if r.AllPassed {
		b.WriteString("✓ All checks passed! Your photo meets all the requirements.\n")
	} else {
		fmt.Fprintf(&b, "✗ %d issue(s): %s\n", len(r.Issues), strings.Join(r.Issues, ", "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// String renders the report as text.
func (r *Report) String() string {
	var b strings.Builder
	_ = r.WriteText(&b)
	return b.String()
}
