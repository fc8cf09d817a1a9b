package sorts

import (
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/omereliy/macq-implementSAA/internal/trace"
)

// Conflict records a role whose objects carry several declared sorts.
type Conflict struct {
	Objects  []string `json:"objects" yaml:"objects"`
	Declared []string `json:"declared" yaml:"declared"`
	Chosen   string   `json:"chosen" yaml:"chosen"`
}

func (c Conflict) String() string {
	return fmt.Sprintf("objects %v declared as %v, using %s", c.Objects, c.Declared, c.Chosen)
}

// Typing is the result of sort inference.
type Typing struct {
	Objects   map[string]string   // object name -> sort
	Actions   map[string][]string // action name -> parameter sorts
	Conflicts []Conflict
}

// Untyped returns a typing that maps every object and parameter to
// Universal.
func (t *Typing) Untyped() *Typing {
	out := &Typing{Objects: make(map[string]string), Actions: make(map[string][]string)}
	for o := range t.Objects {
		out.Objects[o] = Universal
	}
	for a, ps := range t.Actions {
		u := make([]string, len(ps))
		for i := range u {
			u[i] = Universal
		}
		out.Actions[a] = u
	}
	return out
}

// SortNames returns the distinct sorts used by the typing, sorted.
func (t *Typing) SortNames() []string {
	seen := make(map[string]bool)
	for _, s := range t.Objects {
		seen[s] = true
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Infer assigns a sort to every object by the roles it plays. Objects that
// share a predicate argument slot or an action parameter slot play the same
// role and get the same sort:
//   - none of the role's objects declares a sort: a synthetic "sort<k>";
//   - exactly one distinct declared sort: that sort;
//   - several: their lowest common ancestor in h, recorded as a Conflict.
//
// Synthetic sorts are numbered by the role's smallest object name.
func Infer(actions []trace.Action, fluents []trace.Fluent, h *Hierarchy, logger *zap.Logger) *Typing {
	if logger == nil {
		logger = zap.NewNop()
	}
	index := make(map[string]int)
	var names []string
	declared := make(map[string]map[string]bool)
	note := func(o trace.Object) int {
		i, ok := index[o.Name]
		if !ok {
			i = len(names)
			index[o.Name] = i
			names = append(names, o.Name)
			declared[o.Name] = make(map[string]bool)
		}
		if o.Sort != "" {
			declared[o.Name][o.Sort] = true
		}
		return i
	}

	type slot struct {
		kind, name string
		pos        int
	}
	var pending [][2]int
	first := make(map[slot]int)
	bind := func(s slot, o trace.Object) {
		i := note(o)
		if j, ok := first[s]; ok {
			pending = append(pending, [2]int{i, j})
			return
		}
		first[s] = i
	}
	for _, f := range fluents {
		for pos, o := range f.Objects {
			bind(slot{"p", f.Name, pos}, o)
		}
	}
	for _, a := range actions {
		for pos, o := range a.Params {
			bind(slot{"a", a.Name, pos}, o)
		}
	}

	ds := NewDisjointSet(len(names))
	for _, p := range pending {
		ds.Union(p[0], p[1])
	}

	roles := make(map[int][]string)
	for i, n := range names {
		r := ds.Find(i)
		roles[r] = append(roles[r], n)
	}
	groups := make([][]string, 0, len(roles))
	for _, members := range roles {
		sort.Strings(members)
		groups = append(groups, members)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })

	t := &Typing{Objects: make(map[string]string), Actions: make(map[string][]string)}
	synthetic := 0
	for _, members := range groups {
		set := make(map[string]bool)
		for _, m := range members {
			for s := range declared[m] {
				set[s] = true
			}
		}
		decl := make([]string, 0, len(set))
		for s := range set {
			decl = append(decl, s)
		}
		sort.Strings(decl)

		var chosen string
		switch len(decl) {
		case 0:
			chosen = "sort" + strconv.Itoa(synthetic)
			synthetic++
		case 1:
			chosen = decl[0]
		default:
			chosen = h.LowestCommonAncestor(decl...)
			c := Conflict{Objects: members, Declared: decl, Chosen: chosen}
			t.Conflicts = append(t.Conflicts, c)
			logger.Warn("objects play one role under several sorts",
				zap.Strings("objects", members),
				zap.Strings("declared", decl),
				zap.String("chosen", chosen))
		}
		for _, m := range members {
			t.Objects[m] = chosen
		}
	}

	for _, a := range actions {
		if _, ok := t.Actions[a.Name]; ok {
			continue
		}
		ps := make([]string, len(a.Params))
		for i, o := range a.Params {
			ps[i] = t.Objects[o.Name]
		}
		t.Actions[a.Name] = ps
	}
	logger.Debug("sorts inferred",
		zap.Int("objects", len(t.Objects)),
		zap.Int("roles", len(groups)),
		zap.Int("conflicts", len(t.Conflicts)))
	return t
}
