package verdict

import (
	"encoding/json"
	"math"
	"strings"
)

// Keys of the optional advice payload.
const (
	ReportInfoKey    = "report_info"
	DisplacementKey  = "face center displacement"
	HeadTiltKey      = "head tilt"
	StraightTiltDeg  = 180.0
	MaxDisplacement  = 20.0
	MaxTiltDeviation = 5.0
)

// AdviceKind tells whether an advice line is a correction or a confirmation.
type AdviceKind string

const (
	AdviceTip AdviceKind = "tip"
	AdviceOK  AdviceKind = "ok"
)

// Advice is one recommendation line.
type Advice struct {
	Kind AdviceKind `json:"kind"`
	Text string     `json:"text"`
}

// adviseFrom derives advice from the report_info payload, if any.
func adviseFrom(doc Document) []Advice {
	var info map[string]any
	switch v := doc[ReportInfoKey].(type) {
	case map[string]any:
		info = v
	case Document:
		info = v
	default:
		return nil
	}

	var out []Advice
	if raw, ok := info[DisplacementKey]; ok {
		if x, y, ok := pair(raw); ok {
			out = append(out, DisplacementAdvice(x, y))
		}
	}
	if raw, ok := info[HeadTiltKey]; ok {
		if tilt, ok := number(raw); ok {
			out = append(out, TiltAdvice(tilt))
		}
	}
	return out
}

// DisplacementAdvice explains how to move given the face center offset.
// Positive x means the face sits right of center in the mirrored frame, so
// the subject should move left; positive y means move up.
func DisplacementAdvice(x, y float64) Advice {
	dx, dy := math.Abs(x), math.Abs(y)
	if dx <= MaxDisplacement && dy <= MaxDisplacement {
		return Advice{Kind: AdviceOK, Text: "Face is well-centered in the frame."}
	}

	var b strings.Builder
	if dx > MaxDisplacement {
		if x > 0 {
			b.WriteString("Move your face slightly to the left. ")
		} else {
			b.WriteString("Move your face slightly to the right. ")
		}
	}
	if dy > MaxDisplacement {
		if y > 0 {
			b.WriteString("Move your face slightly up. ")
		} else {
			b.WriteString("Move your face slightly down. ")
		}
	}
	b.WriteString("Try to center your face in the frame.")
	return Advice{Kind: AdviceTip, Text: b.String()}
}

// TiltAdvice explains how to straighten the head given its roll in degrees,
// where 180 is level.
func TiltAdvice(tilt float64) Advice {
	if math.Abs(tilt-StraightTiltDeg) <= MaxTiltDeviation {
		return Advice{Kind: AdviceOK, Text: "Head is straight and properly aligned."}
	}

	var b strings.Builder
	if tilt < StraightTiltDeg-MaxTiltDeviation {
		b.WriteString("Tilt your head slightly to the right to straighten it. ")
	} else {
		b.WriteString("Tilt your head slightly to the left to straighten it. ")
	}
	b.WriteString("Keep your head straight and level for the best photo.")
	return Advice{Kind: AdviceTip, Text: b.String()}
}

func pair(v any) (x, y float64, ok bool) {
	arr, isArr := v.([]any)
	if !isArr || len(arr) < 2 {
		return 0, 0, false
	}
	x, okX := number(arr[0])
	y, okY := number(arr[1])
	return x, y, okX && okY
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
