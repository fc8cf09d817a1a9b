// Package sorts holds the sort hierarchy and the inference that assigns a
// sort to every object and action parameter seen in the traces.
package sorts

import (
	"fmt"
	"sort"
)

// Universal is the root sort every other sort descends from. Untyped
// learning maps everything to it.
const Universal = "object"

// Sort is a named sort with an optional parent. An empty parent means the
// universal sort.
type Sort struct {
	Name   string `json:"name" yaml:"name"`
	Parent string `json:"parent,omitempty" yaml:"parent,omitempty"`
}

// Hierarchy is a single-inheritance sort tree rooted at Universal.
type Hierarchy struct {
	parent map[string]string
	order  []string
}

// NewHierarchy builds a tree from sorts. Parents may be declared after
// their children; unknown parents become children of Universal.
func NewHierarchy(list ...Sort) (*Hierarchy, error) {
	h := &Hierarchy{parent: map[string]string{Universal: ""}}
	for _, s := range list {
		if s.Name == "" {
			return nil, fmt.Errorf("sort with empty name")
		}
		if s.Name == Universal {
			continue
		}
		if _, dup := h.parent[s.Name]; dup {
			return nil, fmt.Errorf("sort %q declared twice", s.Name)
		}
		p := s.Parent
		if p == "" {
			p = Universal
		}
		h.parent[s.Name] = p
		h.order = append(h.order, s.Name)
	}
	for _, s := range list {
		p := h.parent[s.Name]
		if _, ok := h.parent[p]; !ok && s.Name != Universal {
			h.parent[p] = Universal
			h.order = append(h.order, p)
		}
	}
	for _, name := range h.order {
		seen := map[string]bool{}
		for cur := name; cur != ""; cur = h.parent[cur] {
			if seen[cur] {
				return nil, fmt.Errorf("sort %q is its own ancestor", name)
			}
			seen[cur] = true
		}
	}
	return h, nil
}

// Has reports whether name is part of the hierarchy.
func (h *Hierarchy) Has(name string) bool {
	if h == nil {
		return name == Universal
	}
	_, ok := h.parent[name]
	return ok
}

// Ancestors returns name followed by each of its ancestors up to
// Universal. Sorts unknown to the hierarchy hang off Universal.
func (h *Hierarchy) Ancestors(name string) []string {
	out := []string{name}
	if name == Universal {
		return out
	}
	if h == nil || !h.Has(name) {
		return append(out, Universal)
	}
	for cur := h.parent[name]; cur != ""; cur = h.parent[cur] {
		out = append(out, cur)
	}
	return out
}

// LowestCommonAncestor returns the most specific sort that is an ancestor
// of (or equal to) every name given.
func (h *Hierarchy) LowestCommonAncestor(names ...string) string {
	if len(names) == 0 {
		return Universal
	}
	common := h.Ancestors(names[0])
	for _, n := range names[1:] {
		anc := make(map[string]bool)
		for _, a := range h.Ancestors(n) {
			anc[a] = true
		}
		kept := common[:0:0]
		for _, a := range common {
			if anc[a] {
				kept = append(kept, a)
			}
		}
		common = kept
	}
	if len(common) == 0 {
		return Universal
	}
	return common[0]
}

// Sorts returns every declared sort with parents listed before children,
// siblings by name.
func (h *Hierarchy) Sorts() []Sort {
	if h == nil {
		return nil
	}
	children := make(map[string][]string)
	for _, name := range h.order {
		children[h.parent[name]] = append(children[h.parent[name]], name)
	}
	var out []Sort
	var walk func(string)
	walk = func(p string) {
		kids := children[p]
		sort.Strings(kids)
		for _, k := range kids {
			parent := h.parent[k]
			if parent == Universal {
				parent = ""
			}
			out = append(out, Sort{Name: k, Parent: parent})
			walk(k)
		}
	}
	walk(Universal)
	return out
}
