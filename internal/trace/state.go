package trace

import (
	"sort"
	"strings"
)

type stateEntry struct {
	fluent Fluent
	value  bool
}

// State is a valuation of grounded fluents. A fluent missing from the
// state is unknown, which is different from false.
type State struct {
	entries map[string]stateEntry
}

// NewState creates an empty state.
func NewState() State {
	return State{entries: make(map[string]stateEntry)}
}

// StateOf builds a closed-world state: every fluent in universe is false
// unless it is listed in trueFluents. Fluents in trueFluents that are not
// part of universe are added as true.
func StateOf(universe []Fluent, trueFluents ...Fluent) State {
	s := NewState()
	for _, f := range universe {
		s.Set(f, false)
	}
	for _, f := range trueFluents {
		s.Set(f, true)
	}
	return s
}

// Set assigns a value to f.
func (s State) Set(f Fluent, value bool) {
	s.entries[f.Key()] = stateEntry{fluent: f, value: value}
}

// Lookup returns the value of f and whether f is known in s.
func (s State) Lookup(f Fluent) (value, known bool) {
	e, ok := s.entries[f.Key()]
	return e.value, ok
}

// Holds reports whether f is known and true.
func (s State) Holds(f Fluent) bool {
	v, ok := s.Lookup(f)
	return ok && v
}

// Len returns the number of known fluents.
func (s State) Len() int {
	return len(s.entries)
}

// Fluents returns every known fluent, sorted by key.
func (s State) Fluents() []Fluent {
	keys := s.sortedKeys()
	out := make([]Fluent, len(keys))
	for i, k := range keys {
		out[i] = s.entries[k].fluent
	}
	return out
}

// True returns the fluents that hold, sorted by key.
func (s State) True() []Fluent {
	var out []Fluent
	for _, k := range s.sortedKeys() {
		if e := s.entries[k]; e.value {
			out = append(out, e.fluent)
		}
	}
	return out
}

// Clone returns an independent copy of s.
func (s State) Clone() State {
	c := State{entries: make(map[string]stateEntry, len(s.entries))}
	for k, e := range s.entries {
		c.entries[k] = e
	}
	return c
}

// Equal reports whether both states know the same fluents with the same
// values.
func (s State) Equal(other State) bool {
	if len(s.entries) != len(other.entries) {
		return false
	}
	for k, e := range s.entries {
		o, ok := other.entries[k]
		if !ok || o.value != e.value {
			return false
		}
	}
	return true
}

func (s State) String() string {
	parts := make([]string, 0, len(s.entries))
	for _, f := range s.True() {
		parts = append(parts, f.String())
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func (s State) sortedKeys() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
