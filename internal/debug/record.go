package debug

// Coords is a positional snapshot of an animated element.
type Coords struct {
	// Transform is the element's style transform in canonical form.
	Transform string
}

// Element is a visual element being animated.
type Element interface {
	// Transform returns the element's current style transform.
	Transform() (string, error)
}

// StyleTransform is an Element whose transform was read by the host.
type StyleTransform string

// Transform implements Element.
func (s StyleTransform) Transform() (string, error) {
	return string(s), nil
}

// snapshot captures coords for el. It returns nil when el is missing or
// cannot be read.
func snapshot(el Element) *Coords {
	if el == nil {
		return nil
	}
	t, err := el.Transform()
	if err != nil {
		return nil
	}
	return &Coords{Transform: t}
}

// Record tracks one turtle command invocation.
type Record struct {
	// Method is the turtle method that was called.
	Method string

	// DebugID identifies the invocation.
	DebugID int

	// TotalCount is the number of Appear/Resolve pairs to expect.
	TotalCount int

	// AppearCount is the number of Appear events seen.
	AppearCount int

	// ResolveCount is the number of Resolve events seen.
	ResolveCount int

	// Exited is set once the call has returned.
	Exited bool

	// Exception is the stack trace captured when the id was allocated.
	Exception string

	// Line is the authored source line, or 0 while unresolved.
	Line int

	// Traced is set while this record holds the trace highlight.
	Traced bool

	// StartCoords holds the element snapshot taken at each Appear.
	StartCoords []*Coords

	// EndCoords holds the element snapshot taken at each Resolve.
	EndCoords []*Coords

	// Args are the arguments the method was called with.
	Args []any
}

// InFlight returns true if an animation for this record has not settled.
func (r *Record) InFlight() bool {
	return r.AppearCount > r.ResolveCount
}

// HasLine returns true if the record's source line is known.
func (r *Record) HasLine() bool {
	return r.Line > 0
}

// LastEndCoords returns the Resolve snapshot aligned with the last Appear
// slot, or nil.
func (r *Record) LastEndCoords() *Coords {
	n := len(r.StartCoords)
	if n == 0 || n > len(r.EndCoords) {
		return nil
	}
	return r.EndCoords[n-1]
}

// setCoords stores c at index, growing the slice as needed.
// Negative indices are ignored.
func setCoords(coords []*Coords, index int, c *Coords) []*Coords {
	if index < 0 {
		return coords
	}
	for len(coords) <= index {
		coords = append(coords, nil)
	}
	coords[index] = c
	return coords
}
