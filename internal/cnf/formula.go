// Package cnf is a small clause-list engine for the per-schema effect
// formulas: clause union, existential forgetting, prime implicates and
// model enumeration. Satisfiability is delegated to gini.
package cnf

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrTooLarge is returned when an operation would exceed its clause or
// model bound.
var ErrTooLarge = errors.New("formula exceeds bound")

// Var is a propositional variable, always > 0.
type Var int

// Lit is a signed variable: +v or -v.
type Lit int

// Pos returns the positive literal of v.
func (v Var) Pos() Lit { return Lit(v) }

// Neg returns the negative literal of v.
func (v Var) Neg() Lit { return Lit(-v) }

// Var returns the variable of l.
func (l Lit) Var() Var {
	if l < 0 {
		return Var(-l)
	}
	return Var(l)
}

// Negative reports whether l is a negated variable.
func (l Lit) Negative() bool { return l < 0 }

// Not returns the complement of l.
func (l Lit) Not() Lit { return -l }

// Clause is a disjunction of literals, kept sorted by variable then sign
// with no duplicates.
type Clause []Lit

// NewClause normalizes lits into a clause. ok is false when the clause is
// a tautology (contains some v and -v).
func NewClause(lits ...Lit) (c Clause, ok bool) {
	c = append(Clause(nil), lits...)
	sort.Slice(c, func(i, j int) bool { return litLess(c[i], c[j]) })
	out := c[:0]
	for _, l := range c {
		if len(out) > 0 {
			switch out[len(out)-1] {
			case l:
				continue
			case l.Not():
				return nil, false
			}
		}
		out = append(out, l)
	}
	return out, true
}

func litLess(a, b Lit) bool {
	if a.Var() != b.Var() {
		return a.Var() < b.Var()
	}
	return a.Negative() && !b.Negative()
}

// Has reports whether c contains l.
func (c Clause) Has(l Lit) bool {
	i := sort.Search(len(c), func(i int) bool { return !litLess(c[i], l) })
	return i < len(c) && c[i] == l
}

// Subsumes reports whether every literal of c is in d.
func (c Clause) Subsumes(d Clause) bool {
	if len(c) > len(d) {
		return false
	}
	j := 0
	for _, l := range c {
		for j < len(d) && litLess(d[j], l) {
			j++
		}
		if j == len(d) || d[j] != l {
			return false
		}
		j++
	}
	return true
}

func (c Clause) key() string {
	var b strings.Builder
	for i, l := range c {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(int(l)))
	}
	return b.String()
}

func (c Clause) String() string {
	return "(" + strings.ReplaceAll(c.key(), " ", " | ") + ")"
}

// Formula is a conjunction of clauses. The zero value is the empty
// conjunction (true).
type Formula struct {
	clauses []Clause
	keys    map[string]bool
}

// New returns a formula over clauses.
func New(clauses ...Clause) *Formula {
	f := &Formula{}
	for _, c := range clauses {
		f.Add(c...)
	}
	return f
}

// Add conjoins the clause made of lits. Tautologies and duplicates are
// ignored. Adding no literals adds the empty clause (false).
func (f *Formula) Add(lits ...Lit) {
	c, ok := NewClause(lits...)
	if !ok {
		return
	}
	if f.keys == nil {
		f.keys = make(map[string]bool)
	}
	k := c.key()
	if f.keys[k] {
		return
	}
	f.keys[k] = true
	f.clauses = append(f.clauses, c)
}

// Len returns the number of clauses.
func (f *Formula) Len() int { return len(f.clauses) }

// Clauses returns the clauses in canonical order.
func (f *Formula) Clauses() []Clause {
	out := append([]Clause(nil), f.clauses...)
	sortClauses(out)
	return out
}

// Vars returns the variables occurring in f, ascending.
func (f *Formula) Vars() []Var {
	seen := make(map[Var]bool)
	for _, c := range f.clauses {
		for _, l := range c {
			seen[l.Var()] = true
		}
	}
	out := make([]Var, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Unsatisfiable reports whether f holds the empty clause.
func (f *Formula) Unsatisfiable() bool {
	for _, c := range f.clauses {
		if len(c) == 0 {
			return true
		}
	}
	return false
}

func (f *Formula) String() string {
	cs := f.Clauses()
	if len(cs) == 0 {
		return "true"
	}
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, " & ")
}

// Forget existentially eliminates vars by resolution. The result is
// equivalent to "exists vars. f" and mentions none of vars. maxClauses
// bounds the intermediate clause count; 0 means no bound.
func (f *Formula) Forget(maxClauses int, vars ...Var) (*Formula, error) {
	cur := reduce(f.clauses)
	for _, v := range sortedVars(vars) {
		var pos, neg, rest []Clause
		for _, c := range cur {
			switch {
			case c.Has(v.Pos()):
				pos = append(pos, c)
			case c.Has(v.Neg()):
				neg = append(neg, c)
			default:
				rest = append(rest, c)
			}
		}
		for _, p := range pos {
			for _, n := range neg {
				if r, ok := resolve(p, n, v); ok {
					rest = append(rest, r)
				}
			}
			if maxClauses > 0 && len(rest) > maxClauses {
				return nil, fmt.Errorf("%w: forgetting %d produced over %d clauses", ErrTooLarge, v, maxClauses)
			}
		}
		cur = reduce(rest)
	}
	return New(cur...), nil
}

// Implicates returns the prime implicates of f, its minimal clausal form:
// resolution is saturated and subsumed clauses are dropped. maxClauses
// bounds the working set; 0 means no bound.
func (f *Formula) Implicates(maxClauses int) (*Formula, error) {
	set := reduce(f.clauses)
	for {
		added := false
		n := len(set)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				v, ok := clash(set[i], set[j])
				if !ok {
					continue
				}
				r, ok := resolve(set[i], set[j], v)
				if !ok || subsumed(set, r) {
					continue
				}
				set = append(set, r)
				added = true
				if maxClauses > 0 && len(set) > maxClauses {
					return nil, fmt.Errorf("%w: implicates exceed %d clauses", ErrTooLarge, maxClauses)
				}
			}
		}
		set = reduce(set)
		if !added {
			break
		}
	}
	return New(set...), nil
}

// clash returns the single variable on which c and d clash. Clauses that
// clash on several variables only resolve to tautologies.
func clash(c, d Clause) (Var, bool) {
	var v Var
	n := 0
	for _, l := range c {
		if d.Has(l.Not()) {
			v = l.Var()
			n++
		}
	}
	return v, n == 1
}

// resolve returns the resolvent of p and n on v; ok is false for a
// tautology.
func resolve(p, n Clause, v Var) (Clause, bool) {
	lits := make([]Lit, 0, len(p)+len(n))
	for _, l := range p {
		if l.Var() != v {
			lits = append(lits, l)
		}
	}
	for _, l := range n {
		if l.Var() != v {
			lits = append(lits, l)
		}
	}
	return NewClause(lits...)
}

func subsumed(set []Clause, c Clause) bool {
	for _, s := range set {
		if s.Subsumes(c) {
			return true
		}
	}
	return false
}

// reduce removes duplicate and subsumed clauses and returns the rest in
// canonical order.
func reduce(cs []Clause) []Clause {
	sorted := append([]Clause(nil), cs...)
	sortClauses(sorted)
	var out []Clause
	for _, c := range sorted {
		if !subsumed(out, c) {
			out = append(out, c)
		}
	}
	return out
}

// sortClauses orders by length, then literals. Shorter clauses first makes
// a single subsumption pass sufficient.
func sortClauses(cs []Clause) {
	sort.Slice(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		for k := range a {
			if a[k] != b[k] {
				return litLess(a[k], b[k])
			}
		}
		return false
	})
}

func sortedVars(vars []Var) []Var {
	out := append([]Var(nil), vars...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
