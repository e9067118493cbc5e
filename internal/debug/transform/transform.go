// Package transform parses the canonical 2D transforms the turtle runtime
// writes into an element's style.
//
// The canonical form is
//
//	translate(tx, ty) rotate(rot) scale(sx, sy) rotate(twist)
//
// with every component optional.
package transform

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Transform is a canonicalized turtle transform.
type Transform struct {
	TX    float64
	TY    float64
	Rot   float64
	SX    float64
	SY    float64
	Twist float64
}

// Identity is the transform for "none".
var Identity = Transform{SX: 1, SY: 1}

// Some engines emit exponents even though CSS does not allow them.
const num = `([\-+.\de]+)`

var canonical = regexp.MustCompile(`^` +
	`(?:translate\(` + num + `(?:px)?,\s*` + num + `(?:px)?\)\s*)?` +
	`(?:rotate\(` + num + `(?:deg)?\)\s*)?` +
	`(?:scale\(` + num + `(?:,\s*` + num + `)?\)\s*)?` +
	`(?:rotate\(` + num + `(?:deg)?\)\s*)?$`)

// Parse parses s. It returns false when s is not in canonical form.
func Parse(s string) (Transform, bool) {
	if s == "none" {
		return Identity, true
	}
	m := canonical.FindStringSubmatch(s)
	if m == nil {
		return Transform{}, false
	}

	t := Identity
	fields := []*float64{&t.TX, &t.TY, &t.Rot, &t.SX, &t.SY, &t.Twist}
	for i, dst := range fields {
		if m[i+1] == "" {
			continue
		}
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return Transform{}, false
		}
		*dst = v
	}
	if m[5] == "" {
		t.SY = t.SX
	}
	return t, true
}

// IsIdentity reports whether t has no effect.
func (t Transform) IsIdentity() bool {
	return t == Identity
}

// String renders t in canonical form, omitting default components.
func (t Transform) String() string {
	if t.IsIdentity() {
		return "none"
	}
	var parts []string
	if t.TX != 0 || t.TY != 0 {
		parts = append(parts, fmt.Sprintf("translate(%spx, %spx)", formatNum(t.TX), formatNum(t.TY)))
	}
	// A lone twist would read back as rot, so rot is written whenever twist is.
	if t.Rot != 0 || t.Twist != 0 {
		parts = append(parts, fmt.Sprintf("rotate(%sdeg)", formatNum(t.Rot)))
	}
	if t.SX != 1 || t.SY != 1 {
		if t.SX == t.SY {
			parts = append(parts, fmt.Sprintf("scale(%s)", formatNum(t.SX)))
		} else {
			parts = append(parts, fmt.Sprintf("scale(%s, %s)", formatNum(t.SX), formatNum(t.SY)))
		}
	}
	if t.Twist != 0 {
		parts = append(parts, fmt.Sprintf("rotate(%sdeg)", formatNum(t.Twist)))
	}
	return strings.Join(parts, " ")
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
