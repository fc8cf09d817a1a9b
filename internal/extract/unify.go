package extract

import (
	"sort"

	"github.com/omereliy/macq-implementSAA/internal/lift"
	"github.com/omereliy/macq-implementSAA/internal/sorts"
)

// Assignment is one literal of a proxy's explicit model.
type Assignment struct {
	Literal lift.Literal
	Value   bool
}

// UnifyParameters merges action parameter indices the model never tells
// apart and returns the mapping from each of the arity original indices to
// its class, numbered 0..m-1 by smallest member.
//
// An index occurring in any false-valued literal is kept distinct. The
// remaining indices seen at the same argument position of the same
// predicate are merged. An empty model maps every index to itself.
func UnifyParameters(assignments []Assignment, arity int) []int {
	mapping := make([]int, arity)
	for i := range mapping {
		mapping[i] = i
	}
	if len(assignments) == 0 || arity == 0 {
		return mapping
	}

	keep := make(map[int]bool)
	for _, a := range assignments {
		if !a.Value {
			for _, idx := range a.Literal.Indices {
				keep[idx] = true
			}
		}
	}

	// predicate -> argument position -> indices seen there
	slots := make(map[string][]map[int]bool)
	for _, a := range assignments {
		l := a.Literal
		pos := slots[l.Predicate]
		for len(pos) < len(l.Indices) {
			pos = append(pos, make(map[int]bool))
		}
		for p, idx := range l.Indices {
			if !keep[idx] {
				pos[p][idx] = true
			}
		}
		slots[l.Predicate] = pos
	}

	ds := sorts.NewDisjointSet(arity)
	for _, pos := range slots {
		for _, set := range pos {
			first := -1
			for idx := range set {
				if first < 0 {
					first = idx
					continue
				}
				ds.Union(first, idx)
			}
		}
	}

	smallest := make(map[int]int)
	for i := 0; i < arity; i++ {
		r := ds.Find(i)
		if _, ok := smallest[r]; !ok {
			smallest[r] = i
		}
	}
	reps := make([]int, 0, len(smallest))
	for r := range smallest {
		reps = append(reps, r)
	}
	sort.Slice(reps, func(i, j int) bool { return smallest[reps[i]] < smallest[reps[j]] })
	class := make(map[int]int, len(reps))
	for c, r := range reps {
		class[r] = c
	}
	for i := range mapping {
		mapping[i] = class[ds.Find(i)]
	}
	return mapping
}

// Classes returns the number of distinct classes in a mapping.
func Classes(mapping []int) int {
	m := -1
	for _, c := range mapping {
		if c > m {
			m = c
		}
	}
	return m + 1
}
