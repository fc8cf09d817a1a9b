package trace

import (
	"errors"
	"fmt"
)

// ErrMissingGenerator is returned when more traces are requested from a
// list that has no generator attached.
var ErrMissingGenerator = errors.New("trace list has no generator")

// Step is one observation point of a trace: the state before Action is
// applied. The final step of a trace has a nil Action.
type Step struct {
	State  State
	Action *Action
	Index  int
}

// Trace is an ordered sequence of steps. The state of step i+1 is the
// state after the action of step i.
type Trace struct {
	Steps []Step
}

// NewTrace builds a trace from states and the actions between them.
// len(states) must be len(actions)+1.
func NewTrace(states []State, actions []Action) (Trace, error) {
	if len(states) != len(actions)+1 {
		return Trace{}, fmt.Errorf("trace needs %d states for %d actions, got %d", len(actions)+1, len(actions), len(states))
	}
	steps := make([]Step, len(states))
	for i, s := range states {
		steps[i] = Step{State: s, Index: i}
		if i < len(actions) {
			a := actions[i]
			steps[i].Action = &a
		}
	}
	return Trace{Steps: steps}, nil
}

// Len returns the number of steps.
func (t Trace) Len() int {
	return len(t.Steps)
}

// Actions returns the distinct actions of the trace in first-use order.
func (t Trace) Actions() []Action {
	seen := make(map[string]bool)
	var out []Action
	for _, s := range t.Steps {
		if s.Action == nil || seen[s.Action.Key()] {
			continue
		}
		seen[s.Action.Key()] = true
		out = append(out, *s.Action)
	}
	return out
}

// Fluents returns every fluent known in any state of the trace, in
// first-seen order.
func (t Trace) Fluents() []Fluent {
	seen := make(map[string]bool)
	var out []Fluent
	for _, s := range t.Steps {
		for _, f := range s.State.Fluents() {
			if seen[f.Key()] {
				continue
			}
			seen[f.Key()] = true
			out = append(out, f)
		}
	}
	return out
}

// Usage returns the fraction of steps whose action equals a.
func (t Trace) Usage(a Action) float64 {
	if len(t.Steps) == 0 {
		return 0
	}
	n := 0
	for _, s := range t.Steps {
		if s.Action != nil && s.Action.Equal(a) {
			n++
		}
	}
	return float64(n) / float64(len(t.Steps))
}

// Generator produces one new trace per call.
type Generator func() (Trace, error)

// List is a collection of traces from the same domain, optionally able to
// generate more.
type List struct {
	Traces    []Trace
	Generator Generator
}

// NewList creates a list over traces with an optional generator.
func NewList(gen Generator, traces ...Trace) *List {
	return &List{Traces: traces, Generator: gen}
}

// Len returns the number of traces.
func (l *List) Len() int {
	return len(l.Traces)
}

// Append adds traces to the list.
func (l *List) Append(traces ...Trace) {
	l.Traces = append(l.Traces, traces...)
}

// GenerateMore appends n traces produced by the generator.
func (l *List) GenerateMore(n int) error {
	if l.Generator == nil {
		return ErrMissingGenerator
	}
	for i := 0; i < n; i++ {
		t, err := l.Generator()
		if err != nil {
			return fmt.Errorf("generate trace %d of %d: %w", i+1, n, err)
		}
		l.Traces = append(l.Traces, t)
	}
	return nil
}

// Usage returns, for each trace, the fraction of steps using a.
func (l *List) Usage(a Action) []float64 {
	out := make([]float64, len(l.Traces))
	for i, t := range l.Traces {
		out[i] = t.Usage(a)
	}
	return out
}
