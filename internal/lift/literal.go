// Package lift turns grounded fluents into parameter-bound lifted literals
// and interns them into a frozen id table.
package lift

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/omereliy/macq-implementSAA/internal/sorts"
	"github.com/omereliy/macq-implementSAA/internal/trace"
)

// ErrUnboundParameter is returned when a literal refers to a parameter
// index the action does not have.
var ErrUnboundParameter = errors.New("literal index is not an action parameter")

// Literal is a predicate bound to action parameter positions. Two literals
// are equal when predicate, sorts and indices all match.
type Literal struct {
	Predicate string   `json:"predicate" yaml:"predicate"`
	Sorts     []string `json:"sorts,omitempty" yaml:"sorts,omitempty"`
	Indices   []int    `json:"indices,omitempty" yaml:"indices,omitempty"`
}

// Key returns the structural identity of the literal.
func (l Literal) Key() string {
	var b strings.Builder
	b.WriteString(l.Predicate)
	b.WriteByte('|')
	b.WriteString(strings.Join(l.Sorts, ","))
	b.WriteByte('|')
	for i, idx := range l.Indices {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(idx))
	}
	return b.String()
}

// Equal reports structural equality.
func (l Literal) Equal(other Literal) bool {
	return l.Key() == other.Key()
}

// String renders the literal with parameter placeholders, e.g. "(on ?0 ?1)".
func (l Literal) String() string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(l.Predicate)
	for _, idx := range l.Indices {
		b.WriteString(" ?")
		b.WriteString(strconv.Itoa(idx))
	}
	b.WriteByte(')')
	return b.String()
}

// MaxIndex returns the largest parameter index used, or -1 for a nullary
// literal.
func (l Literal) MaxIndex() int {
	m := -1
	for _, i := range l.Indices {
		if i > m {
			m = i
		}
	}
	return m
}

// Remap rewrites every index through mapping.
func (l Literal) Remap(mapping []int) Literal {
	idx := make([]int, len(l.Indices))
	for i, v := range l.Indices {
		idx[i] = mapping[v]
	}
	return Literal{Predicate: l.Predicate, Sorts: l.Sorts, Indices: idx}
}

// Lift returns every reading of f as a literal over a's parameter slots:
// the cartesian product of the positions each argument occupies in a. The
// result is empty when an argument of f is not a parameter of a. Sorts
// come from predicateSorts[f.Name] when present, else from actionSorts at
// the chosen positions.
func Lift(a trace.Action, f trace.Fluent, actionSorts []string, predicateSorts map[string][]string) []Literal {
	occurrences := make([][]int, len(f.Objects))
	for i, obj := range f.Objects {
		occurrences[i] = a.Indexes(obj)
		if len(occurrences[i]) == 0 {
			return nil
		}
	}

	fixed, hinted := predicateSorts[f.Name]
	var out []Literal
	seen := make(map[string]bool)
	product(occurrences, func(tuple []int) {
		lit := Literal{Predicate: f.Name, Indices: append([]int(nil), tuple...)}
		if hinted {
			lit.Sorts = append([]string(nil), fixed...)
		} else if len(tuple) > 0 {
			lit.Sorts = make([]string, len(tuple))
			for i, idx := range tuple {
				lit.Sorts[i] = sortAt(actionSorts, idx)
			}
		}
		if k := lit.Key(); !seen[k] {
			seen[k] = true
			out = append(out, lit)
		}
	})
	return out
}

func sortAt(actionSorts []string, idx int) string {
	if idx < len(actionSorts) && actionSorts[idx] != "" {
		return actionSorts[idx]
	}
	return sorts.Universal
}

// product calls fn with every tuple of the cartesian product of lists, in
// lexicographic order of positions. fn must not retain the tuple.
func product(lists [][]int, fn func([]int)) {
	tuple := make([]int, len(lists))
	var rec func(int)
	rec = func(pos int) {
		if pos == len(lists) {
			fn(tuple)
			return
		}
		for _, v := range lists[pos] {
			tuple[pos] = v
			rec(pos + 1)
		}
	}
	rec(0)
}

// Ground instantiates l with the parameters of a.
func Ground(l Literal, a trace.Action) (trace.Fluent, error) {
	objs := make([]trace.Object, len(l.Indices))
	for i, idx := range l.Indices {
		if idx < 0 || idx >= len(a.Params) {
			return trace.Fluent{}, fmt.Errorf("%w: %s index %d, %s has %d parameters",
				ErrUnboundParameter, l, idx, a.Name, len(a.Params))
		}
		objs[i] = a.Params[idx]
	}
	return trace.NewFluent(l.Predicate, objs...), nil
}
