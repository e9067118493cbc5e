package debug

// Store owns the session epoch and the debug id to record table.
type Store struct {
	nextID         int
	firstSessionID int

	// Stack snapshots captured at allocation, by debug id.
	exceptions map[int]string

	records map[int]*Record
}

// NewStore creates an empty store. The first allocated id is 1.
func NewStore() *Store {
	return &Store{
		nextID:         1,
		firstSessionID: 1,
		exceptions:     make(map[int]string),
		records:        make(map[int]*Record),
	}
}

// AllocateID returns a fresh debug id and remembers the stack snapshot
// taken at the call site.
func (s *Store) AllocateID(snapshot string) int {
	id := s.nextID
	if snapshot != "" {
		s.exceptions[id] = snapshot
	}
	s.nextID++
	return id
}

// Rebind starts a new session. Every id allocated so far becomes stale.
func (s *Store) Rebind() {
	s.exceptions = make(map[int]string)
	s.records = make(map[int]*Record)
	s.firstSessionID = s.nextID
}

// Stale reports whether id belongs to an earlier session.
func (s *Store) Stale(id int) bool {
	return id < s.firstSessionID
}

// GetOrCreate returns the record for id, creating it on first use.
// It returns nil for stale ids.
func (s *Store) GetOrCreate(id int, method string, totalCount int, args []any) *Record {
	if r, ok := s.records[id]; ok {
		return r
	}
	if s.Stale(id) {
		return nil
	}
	r := &Record{
		Method:     method,
		DebugID:    id,
		TotalCount: totalCount,
		Exception:  s.exceptions[id],
		Args:       args,
	}
	s.records[id] = r
	return r
}

// Lookup returns the record for id without creating one.
func (s *Store) Lookup(id int) *Record {
	return s.records[id]
}

// Complete reports whether every expected animation has resolved and the
// call has returned.
func (s *Store) Complete(r *Record) bool {
	return r.ResolveCount >= r.TotalCount &&
		r.ResolveCount >= r.AppearCount &&
		r.Exited
}

// Collect removes r from the store. It returns false if r was not present.
func (s *Store) Collect(r *Record) bool {
	if s.records[r.DebugID] != r {
		return false
	}
	delete(s.records, r.DebugID)
	delete(s.exceptions, r.DebugID)
	return true
}

// Len returns the number of live records.
func (s *Store) Len() int {
	return len(s.records)
}

// NextID returns the id the next allocation will return.
func (s *Store) NextID() int {
	return s.nextID
}

// FirstSessionID returns the first id valid in the current session.
func (s *Store) FirstSessionID() int {
	return s.firstSessionID
}
