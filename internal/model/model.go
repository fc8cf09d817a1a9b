// Package model is the learned lifted action model: its fluent vocabulary,
// its proxy actions and the sort information around them.
package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/omereliy/macq-implementSAA/internal/lift"
	"github.com/omereliy/macq-implementSAA/internal/sorts"
	"github.com/omereliy/macq-implementSAA/internal/trace"
)

// ErrUnknownParameter is returned when an action literal refers to a
// parameter the action does not declare.
var ErrUnknownParameter = errors.New("literal refers to an undeclared parameter")

// LearnedLiftedFluent is a sort-erased predicate of the vocabulary.
type LearnedLiftedFluent struct {
	Name       string   `json:"name" yaml:"name"`
	ParamSorts []string `json:"param_sorts,omitempty" yaml:"param_sorts,omitempty"`
}

// FluentOf erases the parameter binding of a literal.
func FluentOf(l lift.Literal) LearnedLiftedFluent {
	return LearnedLiftedFluent{Name: l.Predicate, ParamSorts: append([]string(nil), l.Sorts...)}
}

// Key returns the structural identity of the fluent.
func (f LearnedLiftedFluent) Key() string {
	return f.Name + "|" + strings.Join(f.ParamSorts, ",")
}

func (f LearnedLiftedFluent) String() string {
	if len(f.ParamSorts) == 0 {
		return "(" + f.Name + ")"
	}
	return "(" + f.Name + " " + strings.Join(f.ParamSorts, " ") + ")"
}

// LearnedLiftedAction is one proxy action. Literal indices refer to
// ParamSorts positions.
type LearnedLiftedAction struct {
	Name       string         `json:"name" yaml:"name"`
	Schema     string         `json:"schema" yaml:"schema"`
	ParamSorts []string       `json:"param_sorts" yaml:"param_sorts"`
	Precond    []lift.Literal `json:"precond" yaml:"precond"`
	Add        []lift.Literal `json:"add" yaml:"add"`
	Delete     []lift.Literal `json:"delete" yaml:"delete"`

	// Bindings maps each schema parameter to the proxy parameter it was
	// unified into. Empty means the identity.
	Bindings []int `json:"bindings,omitempty" yaml:"bindings,omitempty"`
}

// NewLearnedLiftedAction validates and normalizes a proxy action: literal
// sets are deduplicated and sorted by key.
func NewLearnedLiftedAction(name, schema string, paramSorts []string, pre, add, del []lift.Literal) (LearnedLiftedAction, error) {
	a := LearnedLiftedAction{
		Name:       name,
		Schema:     schema,
		ParamSorts: append([]string{}, paramSorts...),
		Precond:    normalize(pre),
		Add:        normalize(add),
		Delete:     normalize(del),
	}
	for _, set := range [][]lift.Literal{a.Precond, a.Add, a.Delete} {
		for _, l := range set {
			for _, idx := range l.Indices {
				if idx < 0 || idx >= len(a.ParamSorts) {
					return LearnedLiftedAction{}, fmt.Errorf("%w: %s in %s with %d parameters",
						ErrUnknownParameter, l, name, len(a.ParamSorts))
				}
			}
		}
	}
	return a, nil
}

func normalize(lits []lift.Literal) []lift.Literal {
	seen := make(map[string]bool, len(lits))
	out := make([]lift.Literal, 0, len(lits))
	for _, l := range lits {
		if k := l.Key(); !seen[k] {
			seen[k] = true
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// WithBindings returns a copy of a whose schema parameters map through
// bindings.
func (a LearnedLiftedAction) WithBindings(bindings []int) (LearnedLiftedAction, error) {
	for _, c := range bindings {
		if c < 0 || c >= len(a.ParamSorts) {
			return LearnedLiftedAction{}, fmt.Errorf("%w: binding %d in %s with %d parameters",
				ErrUnknownParameter, c, a.Name, len(a.ParamSorts))
		}
	}
	a.Bindings = append([]int(nil), bindings...)
	return a, nil
}

// Bind maps a grounded occurrence of the schema onto the proxy's
// parameters. ok is false when the occurrence has the wrong arity or gives
// different objects to parameters the proxy merged.
func (a LearnedLiftedAction) Bind(occ trace.Action) (trace.Action, bool) {
	if len(a.Bindings) == 0 {
		if len(occ.Params) != len(a.ParamSorts) {
			return trace.Action{}, false
		}
		return trace.NewAction(a.Name, occ.Params...), true
	}
	if len(occ.Params) != len(a.Bindings) {
		return trace.Action{}, false
	}
	params := make([]trace.Object, len(a.ParamSorts))
	set := make([]bool, len(params))
	for i, c := range a.Bindings {
		if set[c] && !params[c].Is(occ.Params[i]) {
			return trace.Action{}, false
		}
		params[c] = occ.Params[i]
		set[c] = true
	}
	return trace.NewAction(a.Name, params...), true
}

// Literals returns the precondition, add and delete literals together.
func (a LearnedLiftedAction) Literals() []lift.Literal {
	out := append([]lift.Literal(nil), a.Precond...)
	out = append(out, a.Add...)
	return append(out, a.Delete...)
}

func (a LearnedLiftedAction) String() string {
	return a.Name + "(" + strings.Join(a.ParamSorts, ", ") + ")"
}

// Model is the learned action model.
type Model struct {
	fluents []LearnedLiftedFluent
	actions []LearnedLiftedAction

	// Sorts is the hierarchy the model was learned under, if any.
	Sorts []sorts.Sort
	// ObjectSorts is the object typing the learner used.
	ObjectSorts map[string]string
}

// New packages fluents and actions. Both are deduplicated and sorted, so
// equal inputs in any order give equal models.
func New(fluents []LearnedLiftedFluent, actions []LearnedLiftedAction, sortList []sorts.Sort, objectSorts map[string]string) *Model {
	m := &Model{Sorts: append([]sorts.Sort(nil), sortList...), ObjectSorts: objectSorts}
	seen := make(map[string]bool)
	for _, f := range fluents {
		if k := f.Key(); !seen[k] {
			seen[k] = true
			m.fluents = append(m.fluents, f)
		}
	}
	sort.Slice(m.fluents, func(i, j int) bool { return m.fluents[i].Key() < m.fluents[j].Key() })

	m.actions = append(m.actions, actions...)
	sort.SliceStable(m.actions, func(i, j int) bool { return m.actions[i].Name < m.actions[j].Name })
	return m
}

// Fluents returns the lifted fluent vocabulary.
func (m *Model) Fluents() []LearnedLiftedFluent {
	return append([]LearnedLiftedFluent(nil), m.fluents...)
}

// Actions returns every proxy action, sorted by name.
func (m *Model) Actions() []LearnedLiftedAction {
	return append([]LearnedLiftedAction(nil), m.actions...)
}

// Action looks up a proxy action by name.
func (m *Model) Action(name string) (LearnedLiftedAction, bool) {
	for _, a := range m.actions {
		if a.Name == name {
			return a, true
		}
	}
	return LearnedLiftedAction{}, false
}

// ActionsOf returns the proxies learned for one schema.
func (m *Model) ActionsOf(schema string) []LearnedLiftedAction {
	var out []LearnedLiftedAction
	for _, a := range m.actions {
		if a.Schema == schema {
			out = append(out, a)
		}
	}
	return out
}

// Schemas returns the distinct schema names, sorted.
func (m *Model) Schemas() []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range m.actions {
		if !seen[a.Schema] {
			seen[a.Schema] = true
			out = append(out, a.Schema)
		}
	}
	sort.Strings(out)
	return out
}

// HasFluent reports whether the sort-erased form of l is in the vocabulary.
func (m *Model) HasFluent(l lift.Literal) bool {
	k := FluentOf(l).Key()
	for _, f := range m.fluents {
		if f.Key() == k {
			return true
		}
	}
	return false
}

// Details renders a human-readable summary.
func (m *Model) Details() string {
	var b strings.Builder
	b.WriteString("Model:\n  Fluents:\n")
	for _, f := range m.fluents {
		fmt.Fprintf(&b, "    %s\n", f)
	}
	b.WriteString("  Actions:\n")
	for _, a := range m.actions {
		fmt.Fprintf(&b, "    %s\n", a)
		fmt.Fprintf(&b, "      precond: %s\n", literalList(a.Precond))
		fmt.Fprintf(&b, "      add:     %s\n", literalList(a.Add))
		fmt.Fprintf(&b, "      delete:  %s\n", literalList(a.Delete))
	}
	return b.String()
}

func literalList(lits []lift.Literal) string {
	if len(lits) == 0 {
		return "-"
	}
	parts := make([]string, len(lits))
	for i, l := range lits {
		parts[i] = l.String()
	}
	return strings.Join(parts, " ")
}
