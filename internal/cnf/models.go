package cnf

import (
	"fmt"
	"sort"

	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
)

// Model is a total assignment over the variables of a formula.
type Model map[Var]bool

// True returns the variables assigned true, ascending.
func (m Model) True() []Var {
	var out []Var
	for v, val := range m {
		if val {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Models enumerates every satisfying assignment of f over f.Vars(), using
// gini with one blocking clause per model found. Models are returned in
// canonical order: compared as bit strings over ascending variables with
// false before true. A formula without clauses has exactly one model, the
// empty one; an unsatisfiable formula has none. limit bounds the number of
// models; 0 means no bound.
func (f *Formula) Models(limit int) ([]Model, error) {
	if f.Unsatisfiable() {
		return nil, nil
	}
	vars := f.Vars()
	if len(vars) == 0 {
		return []Model{{}}, nil
	}

	// gini variables are dense from 1; map ours onto them.
	dense := make(map[Var]z.Var, len(vars))
	for i, v := range vars {
		dense[v] = z.Var(i + 1)
	}
	zlit := func(l Lit) z.Lit {
		if l.Negative() {
			return dense[l.Var()].Neg()
		}
		return dense[l.Var()].Pos()
	}

	g := gini.New()
	for _, c := range f.clauses {
		for _, l := range c {
			g.Add(zlit(l))
		}
		g.Add(z.LitNull)
	}

	var models []Model
	for g.Solve() == 1 {
		m := make(Model, len(vars))
		for _, v := range vars {
			m[v] = g.Value(dense[v].Pos())
		}
		models = append(models, m)
		if limit > 0 && len(models) > limit {
			return nil, fmt.Errorf("%w: more than %d models", ErrTooLarge, limit)
		}
		for _, v := range vars {
			if m[v] {
				g.Add(dense[v].Neg())
			} else {
				g.Add(dense[v].Pos())
			}
		}
		g.Add(z.LitNull)
	}

	sort.Slice(models, func(i, j int) bool {
		for _, v := range vars {
			a, b := models[i][v], models[j][v]
			if a != b {
				return !a
			}
		}
		return false
	})
	return models, nil
}

// Satisfies reports whether m satisfies every clause of f. Variables
// missing from m count as false.
func (f *Formula) Satisfies(m Model) bool {
	for _, c := range f.clauses {
		sat := false
		for _, l := range c {
			if m[l.Var()] != l.Negative() {
				sat = true
				break
			}
		}
		if !sat {
			return false
		}
	}
	return true
}
