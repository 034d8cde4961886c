package matcher

// Entry is a segment matcher bound to a segment depth.
type Entry struct {
	Depth   int
	Matcher SegmentMatcher
}

// Map is an insertion-ordered map from segment depth to matcher. The order
// is the order in which segments are tested. A Map is never modified in
// place; the zero value is an empty map.
type Map struct {
	entries []Entry
}

// NewMap creates a map from entries. A repeated depth replaces the earlier
// matcher and keeps its position.
func NewMap(entries ...Entry) Map {
	var m Map
	for _, e := range entries {
		m = m.With(e.Depth, e.Matcher)
	}
	return m
}

// Len returns the number of entries.
func (m Map) Len() int {
	return len(m.entries)
}

// Get returns the matcher at depth.
func (m Map) Get(depth int) (SegmentMatcher, bool) {
	for _, e := range m.entries {
		if e.Depth == depth {
			return e.Matcher, true
		}
	}
	return nil, false
}

// Has reports whether the map holds a matcher at depth.
func (m Map) Has(depth int) bool {
	_, ok := m.Get(depth)
	return ok
}

// With returns a copy of the map with sm stored at depth. An existing entry
// keeps its position, a new one is appended.
func (m Map) With(depth int, sm SegmentMatcher) Map {
	entries := make([]Entry, 0, len(m.entries)+1)
	replaced := false
	for _, e := range m.entries {
		if e.Depth == depth {
			e.Matcher = sm
			replaced = true
		}
		entries = append(entries, e)
	}
	if !replaced {
		entries = append(entries, Entry{Depth: depth, Matcher: sm})
	}
	return Map{entries: entries}
}

// Without returns a copy of the map without the entry at depth.
func (m Map) Without(depth int) Map {
	entries := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if e.Depth != depth {
			entries = append(entries, e)
		}
	}
	return Map{entries: entries}
}

// Entries returns the entries in order.
func (m Map) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Depths returns the depths in order.
func (m Map) Depths() []int {
	out := make([]int, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Depth
	}
	return out
}

// Equal reports whether both maps hold structurally equal matchers at the
// same depths in the same order.
func (m Map) Equal(other Map) bool {
	if len(m.entries) != len(other.entries) {
		return false
	}
	for i, e := range m.entries {
		o := other.entries[i]
		if e.Depth != o.Depth || !Equal(e.Matcher, o.Matcher) {
			return false
		}
	}
	return true
}

// Captures holds captured parameters per segment depth.
type Captures map[int]map[string]string

// Match tests every entry against the segment at its depth, in map order.
// It stops at the first failing entry.
func (m Map) Match(segments []string) (matched bool, captures Captures) {
	for _, e := range m.entries {
		if e.Depth < 0 || e.Depth >= len(segments) {
			return false, nil
		}
		ok, params := e.Matcher.Match(segments[e.Depth])
		if !ok {
			return false, nil
		}
		if len(params) == 0 {
			continue
		}
		if captures == nil {
			captures = make(Captures)
		}
		depthParams := captures[e.Depth]
		if depthParams == nil {
			depthParams = make(map[string]string, len(params))
			captures[e.Depth] = depthParams
		}
		for k, v := range params {
			depthParams[k] = v
		}
	}
	return true, captures
}
