package replay

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/dshills/turtletrace/internal/bridge"
	"github.com/dshills/turtletrace/internal/debug"
)

// Console prints outbound editor commands as they happen and keeps the
// resulting mark state so it can be inspected after a replay.
type Console struct {
	w io.Writer

	traceColor   *color.Color
	errorColor   *color.Color
	focusColor   *color.Color
	overlayColor *color.Color
	mutedColor   *color.Color

	// marks[pane][class] is the set of marked lines.
	marks   map[string]map[string]map[int]bool
	overlay bridge.ShowOverlay
	shown   bool
}

// NewConsole creates a console writing to w. Colors are used only when
// colorize is set.
func NewConsole(w io.Writer, colorize bool) *Console {
	c := &Console{
		w:            w,
		traceColor:   color.New(color.FgYellow, color.Bold),
		errorColor:   color.New(color.FgRed, color.Bold),
		focusColor:   color.New(color.FgCyan),
		overlayColor: color.New(color.FgGreen),
		mutedColor:   color.New(color.Faint),
		marks:        make(map[string]map[string]map[int]bool),
	}
	if !colorize {
		for _, col := range []*color.Color{c.traceColor, c.errorColor, c.focusColor, c.overlayColor, c.mutedColor} {
			col.DisableColor()
		}
	}
	return c
}

// Send implements bridge.Sender.
func (c *Console) Send(msg any) {
	switch m := msg.(type) {
	case bridge.Allocated:
		c.print(c.mutedColor, m.Type, "#%d", m.ID)
	case bridge.LineMark:
		c.set(m.Pane, m.Class, m.Line, m.Type == bridge.TypeMark)
		c.print(c.classColor(m.Class), m.Type, "%s:%d %s", m.Pane, m.Line, m.Class)
	case bridge.ClearAll:
		c.clearAll(m.Pane, m.Class)
		class := m.Class
		if class == "" {
			class = "*"
		}
		c.print(c.mutedColor, m.Type, "%s %s", m.Pane, class)
	case bridge.ShowOverlay:
		c.overlay, c.shown = m, true
		c.print(c.overlayColor, m.Type, "%s at (%g, %g) angle %g size %g", m.Pane, m.X, m.Y, m.Angle, m.Size)
	case bridge.HideOverlay:
		c.shown = false
		c.print(c.mutedColor, m.Type, "%s", m.Pane)
	case bridge.ErrorReply:
		c.print(c.errorColor, m.Type, "%s: %s", m.Code, m.Message)
	default:
		c.print(c.mutedColor, "?", "%T", msg)
	}
}

// Marked returns the lines of pane carrying class, in order.
func (c *Console) Marked(pane, class string) []int {
	var lines []int
	for line, on := range c.marks[pane][class] {
		if on {
			lines = append(lines, line)
		}
	}
	sort.Ints(lines)
	return lines
}

// Overlay returns the protractor currently shown, if any.
func (c *Console) Overlay() (bridge.ShowOverlay, bool) {
	return c.overlay, c.shown
}

func (c *Console) set(pane, class string, line int, on bool) {
	classes, ok := c.marks[pane]
	if !ok {
		classes = make(map[string]map[int]bool)
		c.marks[pane] = classes
	}
	lines, ok := classes[class]
	if !ok {
		lines = make(map[int]bool)
		classes[class] = lines
	}
	if on {
		lines[line] = true
	} else {
		delete(lines, line)
	}
}

func (c *Console) clearAll(pane, class string) {
	if class == "" {
		delete(c.marks, pane)
		return
	}
	delete(c.marks[pane], class)
}

func (c *Console) classColor(class string) *color.Color {
	switch class {
	case debug.ClassTrace:
		return c.traceColor
	case debug.ClassError:
		return c.errorColor
	case debug.ClassFocus:
		return c.focusColor
	default:
		return c.mutedColor
	}
}

func (c *Console) print(col *color.Color, kind, format string, args ...any) {
	fmt.Fprintf(c.w, "%-11s %s\n", kind, col.Sprintf(format, args...))
}
