package debug

import (
	"fmt"

	"github.com/dshills/turtletrace/internal/debug/sourcemap"
	"github.com/dshills/turtletrace/internal/debug/stack"
	"github.com/dshills/turtletrace/internal/ids"
	"github.com/dshills/turtletrace/internal/logging"
)

// Options configures an Engine.
type Options struct {
	// Editor receives highlight commands. Defaults to NopEditor.
	Editor Editor

	// Anchor positions the protractor overlay. Without one no overlay is shown.
	Anchor Anchor

	// Logger receives diagnostics. Defaults to a discarding logger.
	Logger *logging.Logger

	// Metrics counts activity. May be nil.
	Metrics *Metrics

	// Resolver tunes source line resolution.
	Resolver sourcemap.Options

	// StackCacheSize bounds the parsed trace cache.
	StackCacheSize int

	// SourcePane and OverlayPane name the editor panes.
	SourcePane  string
	OverlayPane string

	// OverlaySize is the protractor size in pixels.
	OverlaySize float64

	// NewSessionID labels each bound session. Defaults to ids.NewSessionID.
	NewSessionID func() string
}

// DefaultOptions returns the default engine options.
func DefaultOptions() Options {
	return Options{
		Editor:         NopEditor{},
		Resolver:       sourcemap.DefaultOptions(),
		StackCacheSize: stack.DefaultCacheSize,
		SourcePane:     PaneSource,
		OverlayPane:    PaneOverlay,
		OverlaySize:    30,
		NewSessionID:   ids.NewSessionID,
	}
}

// Engine correlates runtime events with source lines for one editor.
type Engine struct {
	store    *Store
	stacks   *stack.Parser
	resolver *sourcemap.Resolver

	// lines maps a source line to the record owning its trace highlight.
	lines map[int]*Record

	target  Target
	session string

	editor      Editor
	anchor      Anchor
	logger      *logging.Logger
	baseLogger  *logging.Logger
	metrics     *Metrics
	sourcePane  string
	overlayPane string
	overlaySize float64
	newSession  func() string
}

// New creates an unbound engine.
func New(opts Options) (*Engine, error) {
	def := DefaultOptions()
	if opts.Editor == nil {
		opts.Editor = def.Editor
	}
	if opts.Logger == nil {
		opts.Logger = logging.Null()
	}
	if opts.SourcePane == "" {
		opts.SourcePane = def.SourcePane
	}
	if opts.OverlayPane == "" {
		opts.OverlayPane = def.OverlayPane
	}
	if opts.OverlaySize <= 0 {
		opts.OverlaySize = def.OverlaySize
	}
	if opts.NewSessionID == nil {
		opts.NewSessionID = def.NewSessionID
	}

	logger := opts.Logger.WithComponent("debug")

	stacks, err := stack.NewParser(opts.StackCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	resolverOpts := opts.Resolver
	resolverOpts.Logger = logger
	resolver, err := sourcemap.NewResolver(resolverOpts)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	return &Engine{
		store:       NewStore(),
		stacks:      stacks,
		resolver:    resolver,
		lines:       make(map[int]*Record),
		editor:      opts.Editor,
		anchor:      opts.Anchor,
		logger:      logger,
		baseLogger:  logger,
		metrics:     opts.Metrics,
		sourcePane:  opts.SourcePane,
		overlayPane: opts.OverlayPane,
		overlaySize: opts.OverlaySize,
		newSession:  opts.NewSessionID,
	}, nil
}

// Bind attaches the engine to a new run. It forgets every record, cache
// and highlight, and makes every id allocated so far stale. Binding nil
// detaches the engine; events are then ignored.
func (e *Engine) Bind(t Target) {
	e.metrics.recordsAdded(-e.store.Len())

	e.target = t
	e.store.Rebind()
	e.lines = make(map[int]*Record)
	e.stacks.Purge()
	e.resolver.SetRegistry(t)
	e.editor.ClearAllMarks(e.sourcePane, "")

	if t == nil {
		e.session = ""
		e.logger = e.baseLogger
		return
	}
	e.session = e.newSession()
	e.logger = e.baseLogger.WithField("session", e.session)
	e.logger.Debug("bound target, first id %d", e.store.FirstSessionID())
}

// Bound reports whether a target is attached.
func (e *Engine) Bound() bool {
	return e.target != nil
}

// Session returns the label of the current session, or "" when unbound.
func (e *Engine) Session() string {
	return e.session
}

// NextID allocates a debug id, capturing the target's current stack.
func (e *Engine) NextID() int {
	snapshot := ""
	if e.target != nil {
		snapshot = e.target.CaptureStack()
	}
	return e.store.AllocateID(snapshot)
}

// AllocateID allocates a debug id for a stack snapshot the host has
// already captured.
func (e *Engine) AllocateID(snapshot string) int {
	return e.store.AllocateID(snapshot)
}

// InvalidateSourceMaps drops cached source maps so that files registered
// again with the target are read afresh.
func (e *Engine) InvalidateSourceMaps() {
	e.resolver.Purge()
}

// SetAnchor replaces the protractor anchor.
func (e *Engine) SetAnchor(a Anchor) {
	e.anchor = a
}

// Record returns the live record for id, or nil.
func (e *Engine) Record(id int) *Record {
	return e.store.Lookup(id)
}

// LineOwner returns the record owning line's highlight, or nil.
func (e *Engine) LineOwner(line int) *Record {
	return e.lines[line]
}

// Store returns the engine's record store.
func (e *Engine) Store() *Store {
	return e.store
}

// resolveLine maps a stack trace to a source line. It returns 0 when the
// line cannot be determined.
func (e *Engine) resolveLine(trace string) int {
	if trace == "" || e.target == nil {
		return 0
	}
	line, ok := e.resolver.ResolveTrace(e.stacks, trace)
	e.metrics.resolution(ok)
	if !ok {
		return 0
	}
	return line
}
