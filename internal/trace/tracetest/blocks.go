// Package tracetest produces deterministic blocks-world traces for tests.
package tracetest

import (
	"fmt"
	"math/rand"

	"github.com/omereliy/macq-implementSAA/internal/trace"
)

// BlockSort is the declared sort of every block.
const BlockSort = "block"

// Atom is a predicate over operator parameter positions.
type Atom struct {
	Predicate string
	Args      []int
}

// Operator is a ground-truth STRIPS operator. Its lists use parameter
// positions, the same shape a learner produces.
type Operator struct {
	Name  string
	Arity int
	Pre   []Atom
	Add   []Atom
	Del   []Atom
}

func atom(p string, args ...int) Atom { return Atom{Predicate: p, Args: args} }

// Operators is the four-operator blocks world.
var Operators = []Operator{
	{
		Name: "pickup", Arity: 1,
		Pre: []Atom{atom("clear", 0), atom("ontable", 0), atom("handempty")},
		Add: []Atom{atom("holding", 0)},
		Del: []Atom{atom("clear", 0), atom("ontable", 0), atom("handempty")},
	},
	{
		Name: "putdown", Arity: 1,
		Pre: []Atom{atom("holding", 0)},
		Add: []Atom{atom("clear", 0), atom("ontable", 0), atom("handempty")},
		Del: []Atom{atom("holding", 0)},
	},
	{
		Name: "stack", Arity: 2,
		Pre: []Atom{atom("holding", 0), atom("clear", 1)},
		Add: []Atom{atom("on", 0, 1), atom("clear", 0), atom("handempty")},
		Del: []Atom{atom("holding", 0), atom("clear", 1)},
	},
	{
		Name: "unstack", Arity: 2,
		Pre: []Atom{atom("on", 0, 1), atom("clear", 0), atom("handempty")},
		Add: []Atom{atom("holding", 0), atom("clear", 1)},
		Del: []Atom{atom("on", 0, 1), atom("clear", 0), atom("handempty")},
	},
}

// OperatorNamed returns the operator called name.
func OperatorNamed(name string) (Operator, bool) {
	for _, op := range Operators {
		if op.Name == name {
			return op, true
		}
	}
	return Operator{}, false
}

// Blocks walks the blocks world at random from an all-on-table start.
type Blocks struct {
	objects  []trace.Object
	universe []trace.Fluent
	rng      *rand.Rand
}

// NewBlocks creates a walker over the named blocks. Equal seeds give equal
// traces.
func NewBlocks(seed int64, names ...string) *Blocks {
	b := &Blocks{rng: rand.New(rand.NewSource(seed))}
	for _, n := range names {
		b.objects = append(b.objects, trace.NewObject(n, BlockSort))
	}
	b.universe = append(b.universe, trace.NewFluent("handempty"))
	for _, x := range b.objects {
		b.universe = append(b.universe,
			trace.NewFluent("clear", x),
			trace.NewFluent("ontable", x),
			trace.NewFluent("holding", x))
		for _, y := range b.objects {
			if !x.Is(y) {
				b.universe = append(b.universe, trace.NewFluent("on", x, y))
			}
		}
	}
	return b
}

// Objects returns the blocks.
func (b *Blocks) Objects() []trace.Object {
	return append([]trace.Object(nil), b.objects...)
}

// Initial is the state with every block on the table.
func (b *Blocks) Initial() trace.State {
	holds := []trace.Fluent{trace.NewFluent("handempty")}
	for _, x := range b.objects {
		holds = append(holds, trace.NewFluent("clear", x), trace.NewFluent("ontable", x))
	}
	return trace.StateOf(b.universe, holds...)
}

// Trace performs steps random applicable actions.
func (b *Blocks) Trace(steps int) (trace.Trace, error) {
	states := []trace.State{b.Initial()}
	var actions []trace.Action
	for i := 0; i < steps; i++ {
		cur := states[len(states)-1]
		options := b.applicable(cur)
		if len(options) == 0 {
			return trace.Trace{}, fmt.Errorf("no applicable action at step %d", i)
		}
		pick := options[b.rng.Intn(len(options))]
		next, err := Apply(cur, pick)
		if err != nil {
			return trace.Trace{}, err
		}
		actions = append(actions, pick)
		states = append(states, next)
	}
	return trace.NewTrace(states, actions)
}

// Generator returns a trace generator producing walks of the given length.
func (b *Blocks) Generator(steps int) trace.Generator {
	return func() (trace.Trace, error) { return b.Trace(steps) }
}

// List builds a generator-backed list holding n walks.
func (b *Blocks) List(n, steps int) (*trace.List, error) {
	list := trace.NewList(b.Generator(steps))
	if err := list.GenerateMore(n); err != nil {
		return nil, err
	}
	return list, nil
}

func (b *Blocks) applicable(s trace.State) []trace.Action {
	var out []trace.Action
	for _, op := range Operators {
		for _, args := range tuples(b.objects, op.Arity) {
			a := trace.NewAction(op.Name, args...)
			if holdsAll(s, op.Pre, args) {
				out = append(out, a)
			}
		}
	}
	return out
}

// Apply executes a grounded blocks-world action on s.
func Apply(s trace.State, a trace.Action) (trace.State, error) {
	op, ok := OperatorNamed(a.Name)
	if !ok {
		return trace.State{}, fmt.Errorf("unknown operator %q", a.Name)
	}
	if len(a.Params) != op.Arity {
		return trace.State{}, fmt.Errorf("%s takes %d parameters, got %d", op.Name, op.Arity, len(a.Params))
	}
	if !holdsAll(s, op.Pre, a.Params) {
		return trace.State{}, fmt.Errorf("%s is not applicable", a)
	}
	next := s.Clone()
	for _, at := range op.Del {
		next.Set(ground(at, a.Params), false)
	}
	for _, at := range op.Add {
		next.Set(ground(at, a.Params), true)
	}
	return next, nil
}

func holdsAll(s trace.State, atoms []Atom, args []trace.Object) bool {
	for _, at := range atoms {
		if !s.Holds(ground(at, args)) {
			return false
		}
	}
	return true
}

func ground(at Atom, args []trace.Object) trace.Fluent {
	objs := make([]trace.Object, len(at.Args))
	for i, idx := range at.Args {
		objs[i] = args[idx]
	}
	return trace.NewFluent(at.Predicate, objs...)
}

// tuples enumerates ordered argument lists of distinct objects.
func tuples(objs []trace.Object, n int) [][]trace.Object {
	if n == 0 {
		return [][]trace.Object{nil}
	}
	var out [][]trace.Object
	for _, rest := range tuples(objs, n-1) {
		for _, o := range objs {
			dup := false
			for _, r := range rest {
				if r.Is(o) {
					dup = true
					break
				}
			}
			if dup {
				continue
			}
			t := append(append([]trace.Object(nil), rest...), o)
			out = append(out, t)
		}
	}
	return out
}
