// Package trace holds the grounded primitives the learner consumes:
// objects, fluents, actions, states and the traces built from them.
// All values are immutable after construction; maps are keyed by the
// canonical Key() of a fluent or action.
package trace

import (
	"strings"
)

// keySep separates components of a canonical key. It cannot appear in
// object or predicate names read from trace files.
const keySep = "\x1f"

// Object is a planning object. Identity is by name; Sort is the declared
// sort name, or empty when it is to be inferred.
type Object struct {
	Name string `json:"name" yaml:"name"`
	Sort string `json:"sort,omitempty" yaml:"sort,omitempty"`
}

// NewObject creates an object with an optional declared sort.
func NewObject(name, sort string) Object {
	return Object{Name: name, Sort: sort}
}

// Is reports whether two objects are the same object (same name).
func (o Object) Is(other Object) bool {
	return o.Name == other.Name
}

func (o Object) String() string {
	if o.Sort == "" {
		return o.Name
	}
	return o.Name + " - " + o.Sort
}

// Fluent is a grounded predicate over an ordered list of objects.
type Fluent struct {
	Name    string   `json:"name" yaml:"name"`
	Objects []Object `json:"objects,omitempty" yaml:"objects,omitempty"`
}

// NewFluent creates a grounded fluent.
func NewFluent(name string, objects ...Object) Fluent {
	return Fluent{Name: name, Objects: objects}
}

// Key returns the structural identity of the fluent.
func (f Fluent) Key() string {
	return atomKey(f.Name, f.Objects)
}

// Equal reports structural equality by predicate and object names.
func (f Fluent) Equal(other Fluent) bool {
	return f.Key() == other.Key()
}

// String renders the fluent as "(name a b)".
func (f Fluent) String() string {
	return atomString(f.Name, f.Objects)
}

// Action is a grounded action instance.
type Action struct {
	Name   string   `json:"name" yaml:"name"`
	Params []Object `json:"params,omitempty" yaml:"params,omitempty"`
}

// NewAction creates a grounded action.
func NewAction(name string, params ...Object) Action {
	return Action{Name: name, Params: params}
}

// Key returns the structural identity of the action.
func (a Action) Key() string {
	return atomKey(a.Name, a.Params)
}

// Equal reports structural equality by name and parameter names.
func (a Action) Equal(other Action) bool {
	return a.Key() == other.Key()
}

// String renders the action as "(name a b)".
func (a Action) String() string {
	return atomString(a.Name, a.Params)
}

// Indexes returns every parameter position holding obj. An object may
// fill several slots, e.g. move(a, a).
func (a Action) Indexes(obj Object) []int {
	var out []int
	for i, p := range a.Params {
		if p.Is(obj) {
			out = append(out, i)
		}
	}
	return out
}

// Binds reports whether every object of f is one of the action's
// parameters, i.e. whether f is in the action's lifting scope.
func (a Action) Binds(f Fluent) bool {
	for _, obj := range f.Objects {
		if len(a.Indexes(obj)) == 0 {
			return false
		}
	}
	return true
}

func atomKey(name string, objects []Object) string {
	var b strings.Builder
	b.WriteString(name)
	for _, o := range objects {
		b.WriteString(keySep)
		b.WriteString(o.Name)
	}
	return b.String()
}

func atomString(name string, objects []Object) string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(name)
	for _, o := range objects {
		b.WriteByte(' ')
		b.WriteString(o.Name)
	}
	b.WriteByte(')')
	return b.String()
}
