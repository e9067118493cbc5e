package debug

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dshills/turtletrace/internal/debug/sourcemap"
	"github.com/dshills/turtletrace/internal/logging"
)

const compiledFile = "http://localhost/run/main.coffee"

// recordingEditor logs every command it receives.
type recordingEditor struct {
	calls []string
}

func (e *recordingEditor) MarkLine(pane string, line int, class string) {
	e.calls = append(e.calls, fmt.Sprintf("mark %s %d %s", pane, line, class))
}

func (e *recordingEditor) ClearLine(pane string, line int, class string) {
	e.calls = append(e.calls, fmt.Sprintf("clear %s %d %s", pane, line, class))
}

func (e *recordingEditor) ClearAllMarks(pane string, class string) {
	e.calls = append(e.calls, fmt.Sprintf("clearall %s %s", pane, class))
}

func (e *recordingEditor) ShowOverlay(pane string, x, y, angle, size float64) {
	e.calls = append(e.calls, fmt.Sprintf("show %s %g %g %g %g", pane, x, y, angle, size))
}

func (e *recordingEditor) HideOverlay(pane string) {
	e.calls = append(e.calls, "hide "+pane)
}

func (e *recordingEditor) reset() {
	e.calls = nil
}

// offsetMapping maps every column of a generated line to the authored
// line three further down, so resolution yields the generated line.
type offsetMapping struct{}

func (offsetMapping) OriginalLine(genLine, _ int) (int, bool) {
	return genLine + 3, true
}

// fakeTarget captures a stack pointing at a configurable compiled line.
type fakeTarget struct {
	*sourcemap.MemoryRegistry
	line int
}

func newFakeTarget() *fakeTarget {
	reg := sourcemap.NewMemoryRegistry()
	reg.Register(compiledFile, []byte("{}"))
	return &fakeTarget{MemoryRegistry: reg, line: 1}
}

func (t *fakeTarget) CaptureStack() string {
	return traceAt(t.line)
}

func traceAt(line int) string {
	return fmt.Sprintf("TypeError: object is not a function\n"+
		"    at createError (http://localhost/src/debug.js:170:5)\n"+
		"    at Turtle.fd (http://localhost/lib/turtle.js:5512:20)\n"+
		"    at %s:%d:7", compiledFile, line)
}

type errElement struct{}

func (errElement) Transform() (string, error) {
	return "", errors.New("detached")
}

type testEngine struct {
	*Engine
	editor  *recordingEditor
	target  *fakeTarget
	metrics *Metrics
	log     *bytes.Buffer
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	editor := &recordingEditor{}
	metrics := NewMetrics()
	var log bytes.Buffer

	opts := DefaultOptions()
	opts.Editor = editor
	opts.Metrics = metrics
	opts.Anchor = FixedAnchor{X: 100, Y: 50}
	opts.Logger = logging.New(logging.Config{Level: logging.LevelDebug, Output: &log})
	opts.Resolver.Build = func(string, []byte) (sourcemap.Mapping, error) {
		return offsetMapping{}, nil
	}
	opts.NewSessionID = func() string { return "session" }

	e, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	target := newFakeTarget()
	e.Bind(target)
	editor.reset()

	return &testEngine{Engine: e, editor: editor, target: target, metrics: metrics, log: &log}
}

// allocate allocates an id whose call site is at authored line.
func (te *testEngine) allocate(line int) int {
	te.target.line = line
	return te.NextID()
}

func expectCalls(t *testing.T, got []string, expected ...string) {
	t.Helper()
	if len(got) == 0 && len(expected) == 0 {
		return
	}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("editor calls =\n  %s\nexpected\n  %s", strings.Join(got, "\n  "), strings.Join(expected, "\n  "))
	}
}

func TestEngine_AsyncSequence(t *testing.T) {
	te := newTestEngine(t)
	id := te.allocate(4)
	elem := StyleTransform("translate(10px, 20px) rotate(90deg)")

	te.Apply(Enter("fd", id, 1))
	te.Apply(Appear("fd", id, 1, 0, elem))
	te.Apply(Exit("fd", id, 1))

	r := te.Record(id)
	if r == nil {
		t.Fatal("Record() = nil while the animation is in flight")
	}
	if !r.Traced || r.Line != 4 {
		t.Errorf("record Traced = %v, Line = %d, expected true, 4", r.Traced, r.Line)
	}

	te.Apply(Resolve(id, 0, elem))

	if te.Record(id) != nil {
		t.Error("Record() should be nil once the record is complete")
	}
	if r.Traced {
		t.Error("Traced should be false after the animation resolved")
	}
	expectCalls(t, te.editor.calls,
		"mark left 4 debugtrace",
		"clear left 4 debugtrace",
	)
	if got := testutil.ToFloat64(te.metrics.records); got != 0 {
		t.Errorf("live_records = %v, expected 0", got)
	}
}

func TestEngine_SynchronousAnimationIsNotTraced(t *testing.T) {
	te := newTestEngine(t)
	id := te.allocate(7)

	te.Apply(Enter("fd", id, 1))
	te.Apply(Appear("fd", id, 1, 0, nil))
	te.Apply(Resolve(id, 0, nil))
	te.Apply(Exit("fd", id, 1))

	expectCalls(t, te.editor.calls)
	if te.Record(id) != nil {
		t.Error("Record() should be collected after exit")
	}
	if got := testutil.ToFloat64(te.metrics.resolutions.WithLabelValues("resolved")); got != 0 {
		t.Errorf("line resolutions = %v, expected the lookup to be skipped", got)
	}
}

func TestEngine_ExitBeforeAppear(t *testing.T) {
	te := newTestEngine(t)
	id := te.allocate(5)

	te.Apply(Enter("rt", id, 2))
	te.Apply(Exit("rt", id, 2))
	te.Apply(Appear("rt", id, 2, 0, nil))
	te.Apply(Appear("rt", id, 2, 1, nil))
	te.Apply(Resolve(id, 0, nil))

	if r := te.Record(id); r == nil || !r.Traced {
		t.Fatalf("record should still be traced with one animation in flight: %+v", r)
	}

	te.Apply(Resolve(id, 1, nil))

	expectCalls(t, te.editor.calls,
		"mark left 5 debugtrace",
		"clear left 5 debugtrace",
	)
	if te.Record(id) != nil {
		t.Error("Record() should be collected")
	}
}

func TestEngine_Rebind(t *testing.T) {
	te := newTestEngine(t)
	for want := 1; want <= 5; want++ {
		if got := te.NextID(); got != want {
			t.Fatalf("NextID() = %d, expected %d", got, want)
		}
	}

	te.Bind(te.target)
	fresh := te.NextID()
	if fresh != 6 {
		t.Fatalf("NextID() after Bind() = %d, expected 6", fresh)
	}

	te.Apply(Enter("fd", 3, 1))
	te.Apply(Enter("fd", fresh, 1))

	if te.Record(3) != nil {
		t.Error("event for a pre-rebind id should be ignored")
	}
	if r := te.Record(fresh); r == nil || r.Method != "fd" {
		t.Errorf("Record(%d) = %+v, expected a fresh record", fresh, r)
	}
	if got := testutil.ToFloat64(te.metrics.stale); got != 1 {
		t.Errorf("stale_events = %v, expected 1", got)
	}
}

func TestEngine_StaleEventsAreNoOps(t *testing.T) {
	te := newTestEngine(t)
	stale := te.allocate(4)
	te.Apply(Enter("fd", stale, 1))
	te.Apply(Appear("fd", stale, 1, 0, nil))
	te.Apply(Exit("fd", stale, 1))

	te.Bind(te.target)
	te.editor.reset()

	events := []Event{
		Enter("fd", stale, 1),
		Exit("fd", stale, 1),
		Appear("fd", stale, 1, 0, StyleTransform("none")),
		Resolve(stale, 0, StyleTransform("none")),
	}
	for _, ev := range events {
		te.Apply(ev)
	}

	expectCalls(t, te.editor.calls)
	if te.Store().Len() != 0 {
		t.Errorf("Store().Len() = %d, expected 0", te.Store().Len())
	}
	if te.LineOwner(4) != nil {
		t.Error("LineOwner() should be cleared by Bind()")
	}
}

func TestEngine_ResolveForUnknownID(t *testing.T) {
	te := newTestEngine(t)

	te.Apply(Resolve(42, 0, nil))

	if te.Record(42) != nil {
		t.Error("Resolve must never create a record")
	}
	expectCalls(t, te.editor.calls)
}

func TestEngine_ResolveOverflow(t *testing.T) {
	te := newTestEngine(t)
	id := te.allocate(4)

	te.Apply(Enter("fd", id, 2))
	te.Apply(Appear("fd", id, 2, 0, nil))
	te.Apply(Resolve(id, 0, nil))
	te.Apply(Resolve(id, 0, nil))

	r := te.Record(id)
	if r == nil {
		t.Fatal("record should be retained after an overflowing resolve")
	}
	if r.ResolveCount != 2 || r.AppearCount != 1 {
		t.Errorf("counts = %d/%d, expected 2 resolves and 1 appear", r.ResolveCount, r.AppearCount)
	}
	if !strings.Contains(te.log.String(), "more resolve than appear events") {
		t.Errorf("log = %q, expected an overflow warning", te.log.String())
	}
	if got := testutil.ToFloat64(te.metrics.overflows); got != 1 {
		t.Errorf("resolve_overflows = %v, expected 1", got)
	}

	te.Apply(Resolve(id, 1, nil))
	if !strings.Contains(te.log.String(), "too many resolve events") {
		t.Errorf("log = %q, expected a total count warning", te.log.String())
	}
}

func TestEngine_SharedLineOwnership(t *testing.T) {
	te := newTestEngine(t)
	a := te.allocate(6)
	b := te.allocate(6)

	te.Apply(Enter("fd", a, 1))
	te.Apply(Exit("fd", a, 1))
	te.Apply(Enter("fd", b, 1))
	te.Apply(Exit("fd", b, 1))
	te.Apply(Appear("fd", a, 1, 0, nil))
	te.Apply(Appear("fd", b, 1, 0, nil))

	if te.LineOwner(6) != te.Record(b) {
		t.Error("the most recent in-flight record should own the line")
	}

	te.Apply(Resolve(a, 0, nil))
	if te.LineOwner(6) != te.Record(b) {
		t.Error("a settled record must not take the line from an in-flight owner")
	}
	expectCalls(t, te.editor.calls, "mark left 6 debugtrace")

	recB := te.Record(b)
	te.Apply(Resolve(b, 0, nil))
	expectCalls(t, te.editor.calls,
		"mark left 6 debugtrace",
		"clear left 6 debugtrace",
	)
	if te.LineOwner(6) != recB || recB.Traced {
		t.Error("line should be owned by b with its trace cleared")
	}
}

func TestEngine_TracedMatchesHighlight(t *testing.T) {
	te := newTestEngine(t)
	highlighted := map[int]bool{}
	editor := &trackingEditor{marks: highlighted}
	te.editor.reset()
	te.Engine.editor = editor

	ids := []int{te.allocate(2), te.allocate(3), te.allocate(2)}
	steps := []Event{
		Enter("fd", ids[0], 1), Exit("fd", ids[0], 1),
		Enter("rt", ids[1], 1), Exit("rt", ids[1], 1),
		Appear("fd", ids[0], 1, 0, nil),
		Appear("rt", ids[1], 1, 0, nil),
		Resolve(ids[0], 0, nil),
		Enter("fd", ids[2], 1), Exit("fd", ids[2], 1),
		Appear("fd", ids[2], 1, 0, nil),
		Resolve(ids[1], 0, nil),
		Resolve(ids[2], 0, nil),
	}

	for i, ev := range steps {
		te.Apply(ev)
		for line, owner := range te.lines {
			if owner.Traced != highlighted[line] {
				t.Fatalf("step %d: line %d owner Traced = %v, highlight = %v", i, line, owner.Traced, highlighted[line])
			}
		}
	}
}

// trackingEditor keeps the current trace highlight state per line.
type trackingEditor struct {
	NopEditor
	marks map[int]bool
}

func (e *trackingEditor) MarkLine(_ string, line int, class string) {
	if class == ClassTrace {
		e.marks[line] = true
	}
}

func (e *trackingEditor) ClearLine(_ string, line int, class string) {
	if class == ClassTrace {
		e.marks[line] = false
	}
}

func TestEngine_Error(t *testing.T) {
	te := newTestEngine(t)

	te.Apply(Failure(&RuntimeError{Message: "boom", Stack: traceAt(9)}))
	te.Apply(Failure(&RuntimeError{Message: "no stack"}))

	expectCalls(t, te.editor.calls,
		"clearall left debugerror",
		"mark left 9 debugerror",
		"clearall left debugerror",
	)

	te.editor.reset()
	te.Apply(Failure(nil))
	expectCalls(t, te.editor.calls)
}

func TestEngine_Unbound(t *testing.T) {
	e, err := New(Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if e.Bound() {
		t.Error("Bound() = true before Bind()")
	}

	id := e.NextID()
	e.Apply(Enter("fd", id, 1))
	if e.Record(id) != nil {
		t.Error("events before Bind() should be ignored")
	}

	te := newTestEngine(t)
	te.Bind(nil)
	if te.Session() != "" {
		t.Errorf("Session() = %q after Bind(nil), expected empty", te.Session())
	}
	te.Apply(Enter("fd", te.NextID(), 1))
	if te.Store().Len() != 0 {
		t.Error("events after Bind(nil) should be ignored")
	}
}

func TestEngine_BindClearsEditor(t *testing.T) {
	te := newTestEngine(t)

	te.Bind(te.target)

	expectCalls(t, te.editor.calls, "clearall left ")
	if te.Session() != "session" {
		t.Errorf("Session() = %q, expected session", te.Session())
	}
}

func TestEngine_ElementSnapshots(t *testing.T) {
	te := newTestEngine(t)
	id := te.allocate(4)

	te.Apply(Enter("fd", id, 2))
	te.Apply(Appear("fd", id, 2, 1, errElement{}))
	te.Apply(Appear("fd", id, 2, 0, StyleTransform("scale(2)")))

	r := te.Record(id)
	if len(r.StartCoords) != 2 {
		t.Fatalf("len(StartCoords) = %d, expected 2", len(r.StartCoords))
	}
	if r.StartCoords[1] != nil {
		t.Error("an unreadable element should leave a nil snapshot")
	}
	if r.StartCoords[0] == nil || r.StartCoords[0].Transform != "scale(2)" {
		t.Errorf("StartCoords[0] = %v, expected scale(2)", r.StartCoords[0])
	}
}

func completedRecord(te *testEngine, line int, end Element) {
	id := te.allocate(line)
	te.Apply(Enter("fd", id, 1))
	te.Apply(Exit("fd", id, 1))
	te.Apply(Appear("fd", id, 1, 0, StyleTransform("none")))
	te.Apply(Resolve(id, 0, end))
}

func TestEngine_HoverOverlay(t *testing.T) {
	te := newTestEngine(t)
	completedRecord(te, 4, StyleTransform("translate(10px, 20px) rotate(90deg)"))
	te.editor.reset()

	te.HoverEnter(PaneSource, 4)
	te.HoverLeave(PaneSource, 4)

	expectCalls(t, te.editor.calls,
		"clearall left debugfocus",
		"mark left 4 debugfocus",
		"show right 110 70 90 30",
		"clearall left debugfocus",
		"hide right",
	)
}

func TestEngine_HoverWithoutOverlay(t *testing.T) {
	tests := []struct {
		name string
		pane string
		line int
		end  Element
		want []string
	}{
		{
			name: "other pane",
			pane: PaneOverlay,
			line: 4,
			end:  StyleTransform("none"),
		},
		{
			name: "line without record",
			pane: PaneSource,
			line: 12,
			end:  StyleTransform("none"),
		},
		{
			name: "malformed transform",
			pane: PaneSource,
			line: 4,
			end:  StyleTransform("matrix(1, 0, 0, 1, 0, 0)"),
			want: []string{"clearall left debugfocus", "mark left 4 debugfocus"},
		},
		{
			name: "no end snapshot",
			pane: PaneSource,
			line: 4,
			end:  errElement{},
			want: []string{"clearall left debugfocus", "mark left 4 debugfocus"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := newTestEngine(t)
			completedRecord(te, 4, tt.end)
			te.editor.reset()

			te.HoverEnter(tt.pane, tt.line)

			expectCalls(t, te.editor.calls, tt.want...)
		})
	}
}

func TestEngine_OverlayWithoutAnchor(t *testing.T) {
	te := newTestEngine(t)
	te.SetAnchor(nil)
	completedRecord(te, 4, StyleTransform("none"))

	if _, ok := te.OverlayFor(te.LineOwner(4)); ok {
		t.Error("OverlayFor() without an anchor should fail")
	}

	te.SetAnchor(FixedAnchor{})
	o, ok := te.OverlayFor(te.LineOwner(4))
	if !ok || o != (Overlay{Size: 30}) {
		t.Errorf("OverlayFor() = %+v, %v, expected identity placement", o, ok)
	}
}

func TestMetrics_Register(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()

	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := m.Register(reg); err != nil {
		t.Errorf("second Register() error = %v, expected nil", err)
	}

	var nilMetrics *Metrics
	nilMetrics.event(EventEnter)
	nilMetrics.resolution(true)
}

func TestEventKind_String(t *testing.T) {
	kinds := map[EventKind]string{
		EventEnter:    "enter",
		EventExit:     "exit",
		EventAppear:   "appear",
		EventResolve:  "resolve",
		EventError:    "error",
		EventKind(99): "unknown",
	}
	for kind, expected := range kinds {
		if kind.String() != expected {
			t.Errorf("String() = %s, expected %s", kind.String(), expected)
		}
	}
}
