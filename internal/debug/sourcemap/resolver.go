// Package sourcemap resolves stack frames in compiled scripts back to
// authored source lines.
package sourcemap

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/turtletrace/internal/debug/stack"
	"github.com/dshills/turtletrace/internal/logging"
)

// Options tunes line resolution. The defaults match the compiler's
// output: three lines of wrapper boilerplate precede the user's code and
// column-exact mappings tend to land on that header.
type Options struct {
	// ScanWidth is how many columns past the frame column are probed.
	ScanWidth int

	// MinOriginalLine is the first mapped line accepted as user code.
	MinOriginalLine int

	// BoilerplateLines is subtracted from the accepted mapped line.
	BoilerplateLines int

	// CacheSize bounds the number of parsed source maps kept.
	CacheSize int

	// Build constructs mappings. Defaults to ParseMapping.
	Build MappingBuilder

	// Logger receives warnings about unusable source maps.
	Logger *logging.Logger
}

// DefaultOptions returns the default resolver options.
func DefaultOptions() Options {
	return Options{
		ScanWidth:        80,
		MinOriginalLine:  4,
		BoilerplateLines: 3,
		CacheSize:        64,
	}
}

// Resolver maps frames to authored lines. It is not safe for concurrent use.
type Resolver struct {
	opts     Options
	registry Registry
	mappings *lru.Cache[string, Mapping]
	logger   *logging.Logger
}

// NewResolver creates a resolver. Zero-valued options take their defaults.
func NewResolver(opts Options) (*Resolver, error) {
	def := DefaultOptions()
	if opts.ScanWidth <= 0 {
		opts.ScanWidth = def.ScanWidth
	}
	if opts.MinOriginalLine <= 0 {
		opts.MinOriginalLine = def.MinOriginalLine
	}
	if opts.BoilerplateLines < 0 {
		opts.BoilerplateLines = def.BoilerplateLines
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = def.CacheSize
	}
	if opts.Build == nil {
		opts.Build = ParseMapping
	}
	if opts.Logger == nil {
		opts.Logger = logging.Null()
	}

	mappings, err := lru.New[string, Mapping](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create source map cache: %w", err)
	}
	return &Resolver{
		opts:     opts,
		mappings: mappings,
		logger:   opts.Logger,
	}, nil
}

// Options returns the effective options.
func (r *Resolver) Options() Options {
	return r.opts
}

// SetRegistry replaces the registry and drops every cached mapping.
func (r *Resolver) SetRegistry(reg Registry) {
	r.registry = reg
	r.mappings.Purge()
}

// Purge drops every cached mapping.
func (r *Resolver) Purge() {
	r.mappings.Purge()
}

// Cached returns the number of cached mappings.
func (r *Resolver) Cached() int {
	return r.mappings.Len()
}

// Resolve returns the authored line for the innermost frame that belongs
// to a compiled script.
func (r *Resolver) Resolve(frames []stack.Frame) (int, bool) {
	if r.registry == nil {
		return 0, false
	}

	var frame *stack.Frame
	for i := range frames {
		if r.registry.HasCompiledFile(frames[i].File) {
			frame = &frames[i]
			break
		}
	}
	if frame == nil {
		return 0, false
	}

	mapping := r.mapping(frame.File)
	if mapping == nil {
		return 0, false
	}

	// Scan forward from the reported column until a mapping escapes the
	// wrapper header.
	line := 0
	start := max(frame.Column-1, 0)
	end := max(frame.Column+r.opts.ScanWidth, r.opts.ScanWidth)
	for col := start; col < end; col++ {
		mapped, ok := mapping.OriginalLine(frame.Line, col)
		if ok && mapped >= r.opts.MinOriginalLine {
			line = mapped
			break
		}
	}
	if line < r.opts.MinOriginalLine {
		return 0, false
	}
	return line - r.opts.BoilerplateLines, true
}

// ResolveTrace parses trace with p and resolves the result.
func (r *Resolver) ResolveTrace(p *stack.Parser, trace string) (int, bool) {
	frames := p.Parse(trace)
	if len(frames) == 0 {
		return 0, false
	}
	return r.Resolve(frames)
}

// mapping returns the cached mapping for file, building it on first use.
// Files whose map fails to parse are remembered as nil until the next purge.
func (r *Resolver) mapping(file string) Mapping {
	if m, ok := r.mappings.Get(file); ok {
		return m
	}
	raw := r.registry.SourceMap(file)
	if raw == nil {
		return nil
	}
	m, err := r.opts.Build(file, raw)
	if err != nil {
		r.logger.Warn("unusable source map: %v", err)
		m = nil
	}
	r.mappings.Add(file, m)
	return m
}
