// Package verdict turns a classification document into display state.
//
// The classification service returns loosely named boolean fields. Each
// logical check accepts an ordered list of field names; the first one found
// decides the check. Missing fields leave the check Unknown, and Unknown
// never counts as a failure.
//
//	report := verdict.Evaluate(doc)
//	for _, c := range report.Checks {
//	    fmt.Println(c.Label, c.Status)
//	}
package verdict

import (
	"sort"
	"strings"
)

// Document is a decoded verdict response: a generic string-keyed JSON object.
type Document map[string]any

// Status is the outcome of a single check.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusUnknown Status = "unknown"
)

// Check describes one logical check and how to find it in a Document.
type Check struct {
	// ID is a stable identifier for clients.
	ID string

	// Label is the human-readable name.
	Label string

	// Keys are the accepted field names, in priority order.
	Keys []string

	// Invert lists keys whose meaning is the opposite of the check
	// (is_rotated=false means the head is straight).
	Invert []string
}

// inverted reports whether key has inverted semantics for this check.
func (c Check) inverted(key string) bool {
	for _, k := range c.Invert {
		if k == key {
			return true
		}
	}
	return false
}

// Checks is the fixed table of checks, in display order.
// has_glasses is inverted (true fails), and inversion follows the matched
// alias, so a key found case-insensitively (IS_ROTATED) is inverted too.
var Checks = []Check{
	{
		ID:     "face_clear",
		Label:  "Nothing on the face(no glasses, no mask)",
		Keys:   []string{"no_glasses", "is_valid", "valid", "has_glasses"},
		Invert: []string{"has_glasses"},
	},
	{
		ID:    "centered",
		Label: "Face Is Centered",
		Keys:  []string{"is_centered", "centered", "center"},
	},
	{
		ID:    "eyes_open",
		Label: "Open Eye Status",
		Keys:  []string{"open_eye_status", "eyes_open", "open_eyes", "eye_status"},
	},
	{
		ID:    "eyes_centered",
		Label: "Eyes Are Centered",
		Keys:  []string{"eyes_centered"},
	},
	{
		ID:     "vertical",
		Label:  "Is Vertical Straight",
		Keys:   []string{"is_vertical_straight", "not_rotated", "is_rotated", "vertical_straight", "rotated"},
		Invert: []string{"is_rotated", "rotated"},
	},
	{
		ID:    "bg_uniform",
		Label: "Is Background Color Uniform",
		Keys:  []string{"is_bg_uniform"},
	},
	{
		ID:    "bg_bright",
		Label: "Is Background Color Bright",
		Keys:  []string{"is_bg_bright"},
	},
}

// CheckResult is the evaluated state of one check.
type CheckResult struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Status Status `json:"status"`

	// Key is the document field that decided the result, empty if Unknown.
	Key string `json:"key,omitempty"`
}

// Report is the full display state derived from a Document.
type Report struct {
	Checks    []CheckResult `json:"checks"`
	Issues    []string      `json:"issues"`
	Advice    []Advice      `json:"advice,omitempty"`
	AllPassed bool          `json:"all_passed"`
}

// Evaluate runs every check in Checks against doc.
func Evaluate(doc Document) *Report {
	return EvaluateWith(Checks, doc)
}

// EvaluateWith runs a custom check table against doc.
func EvaluateWith(checks []Check, doc Document) *Report {
	r := &Report{
		Checks: make([]CheckResult, 0, len(checks)),
		Issues: []string{},
	}

	for _, c := range checks {
		res := evaluateCheck(c, doc)
		r.Checks = append(r.Checks, res)
		if res.Status == StatusFail {
			r.Issues = append(r.Issues, c.Label)
		}
	}

	r.Advice = adviseFrom(doc)
	r.AllPassed = len(r.Issues) == 0
	return r
}

// Counts returns the number of passed, failed and unknown checks.
func (r *Report) Counts() (pass, fail, unknown int) {
	for _, c := range r.Checks {
		switch c.Status {
		case StatusPass:
			pass++
		case StatusFail:
			fail++
		default:
			unknown++
		}
	}
	return pass, fail, unknown
}

func evaluateCheck(c Check, doc Document) CheckResult {
	res := CheckResult{ID: c.ID, Label: c.Label, Status: StatusUnknown}

	alias, docKey, value, ok := lookup(doc, c.Keys)
	if !ok {
		return res
	}
	res.Key = docKey

	b, isBool := value.(bool)
	var pass bool
	if c.inverted(alias) {
		pass = isBool && !b
	} else {
		pass = isBool && b
	}

	if pass {
		res.Status = StatusPass
	} else {
		res.Status = StatusFail
	}
	return res
}

// lookup finds the first alias present in doc with a non-null value.
// Exact matches win over case-insensitive ones. It returns the matched alias,
// the document key it matched and the value.
func lookup(doc Document, aliases []string) (alias, key string, value any, ok bool) {
	for _, a := range aliases {
		if v, found := doc[a]; found && v != nil {
			return a, a, v, true
		}
	}

	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, a := range aliases {
		for _, k := range keys {
			if strings.EqualFold(k, a) && doc[k] != nil {
				return a, k, doc[k], true
			}
		}
	}
	return "", "", nil, false
}
