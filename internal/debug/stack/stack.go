// Package stack parses V8 stack trace text into call frames.
package stack

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of distinct traces kept when no size is given.
const DefaultCacheSize = 1024

// Frame is one call site from a stack trace.
// Line and Column are 1-based; zero means unknown.
type Frame struct {
	// Method is the function name, empty for anonymous or top-level frames.
	Method string

	// File is the script URL or path.
	File string

	// Line is the generated-code line.
	Line int

	// Column is the generated-code column.
	Column int
}

// HasLocation returns true if the frame carries a line number.
func (f Frame) HasLocation() bool {
	return f.Line > 0
}

// String returns a location string like "method (file.js:43:1)".
func (f Frame) String() string {
	loc := f.File
	if loc == "" {
		loc = "<unknown>"
	}
	if f.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, f.Line)
		if f.Column > 0 {
			loc = fmt.Sprintf("%s:%d", loc, f.Column)
		}
	}
	if f.Method == "" {
		return loc
	}
	return fmt.Sprintf("%s (%s)", f.Method, loc)
}

var (
	callSite   = regexp.MustCompile(`^\s*at\s+`)
	parenLoc   = regexp.MustCompile(`\s+\((.*?)(?::(\d+)(?::(\d+))?)?\)$`)
	bareLoc    = regexp.MustCompile(`^\s*(.*?)(?::(\d+)(?::(\d+))?)?$`)
	lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// Parser parses traces and remembers the result per trace text.
// Traces from the same call site of one compiled bundle are byte-identical,
// so the cache hit rate is high. A Parser is not safe for concurrent use.
type Parser struct {
	cache  *lru.Cache[string, []Frame]
	misses int
}

// NewParser creates a parser caching up to size traces.
func NewParser(size int) (*Parser, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []Frame](size)
	if err != nil {
		return nil, fmt.Errorf("create stack cache: %w", err)
	}
	return &Parser{cache: cache}, nil
}

// Parse converts trace text into frames, deepest call first.
// Lines that are not call sites are skipped, so an unrecognized format
// yields few or no frames rather than an error. The returned slice is
// shared with the cache and must not be modified.
func (p *Parser) Parse(trace string) []Frame {
	if trace == "" {
		return nil
	}
	if frames, ok := p.cache.Get(trace); ok {
		return frames
	}
	p.misses++

	frames := parseFrames(trace)
	p.cache.Add(trace, frames)
	return frames
}

// Misses returns the number of traces parsed rather than served from cache.
func (p *Parser) Misses() int {
	return p.misses
}

// Len returns the number of cached traces.
func (p *Parser) Len() int {
	return p.cache.Len()
}

// Purge drops every cached trace.
func (p *Parser) Purge() {
	p.cache.Purge()
}

func parseFrames(trace string) []Frame {
	lines := strings.Split(lineBreaks.Replace(trace), "\n")
	frames := make([]Frame, 0, len(lines))
	for _, line := range lines {
		loc := callSite.FindStringIndex(line)
		if loc == nil {
			continue
		}
		frames = append(frames, parseCall(line[loc[1]:]))
	}
	return frames
}

// parseCall parses a call as printed by V8's CallSite toString,
// e.g. "Type.method (filename.js:43:1)" or "filename.js:43:1".
func parseCall(call string) Frame {
	var f Frame
	m := parenLoc.FindStringSubmatchIndex(call)
	if m != nil {
		f.Method = call[:m[0]]
	} else {
		m = bareLoc.FindStringSubmatchIndex(call)
	}
	f.File = group(call, m, 1)
	f.Line = atoi(group(call, m, 2))
	f.Column = atoi(group(call, m, 3))
	return f
}

func group(s string, m []int, n int) string {
	if m[2*n] < 0 {
		return ""
	}
	return s[m[2*n]:m[2*n+1]]
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
