// Package observation turns traces into the observed form learners
// consume. A token decides how much of each step survives observation.
package observation

import (
	"errors"
	"fmt"

	"github.com/omereliy/macq-implementSAA/internal/trace"
)

// ErrInvalidToken is returned for an unrecognized observation token.
var ErrInvalidToken = errors.New("invalid observation token")

// Token names an observation policy.
type Token string

const (
	// Identity keeps the full state and action of every step.
	Identity Token = "identity"
	// ActionOnly keeps the action and drops the state.
	ActionOnly Token = "action"
)

// ParseToken validates a token name.
func ParseToken(s string) (Token, error) {
	switch t := Token(s); t {
	case Identity, ActionOnly:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidToken, s, Identity, ActionOnly)
	}
}

// Observation is one observed step. State is nil when the token hides it.
type Observation struct {
	Index  int
	State  *trace.State
	Action *trace.Action
}

func observe(step trace.Step, token Token) Observation {
	o := Observation{Index: step.Index}
	if step.Action != nil {
		a := *step.Action
		o.Action = &a
	}
	if token == Identity {
		s := step.State.Clone()
		o.State = &s
	}
	return o
}

// Transition is one observed occurrence of an action.
type Transition struct {
	Pre  trace.State
	Post trace.State
}

// ActionTransitions groups every occurrence of one grounded action.
type ActionTransitions struct {
	Action trace.Action
	Pairs  []Transition
}

// List is a tokenized trace list.
type List struct {
	Token  Token
	Traces [][]Observation
}

// Tokenize observes every trace of list under token.
func Tokenize(list *trace.List, token Token) (*List, error) {
	if _, err := ParseToken(string(token)); err != nil {
		return nil, err
	}
	out := &List{Token: token}
	for _, t := range list.Traces {
		obs := make([]Observation, len(t.Steps))
		for i, step := range t.Steps {
			obs[i] = observe(step, token)
		}
		out.Traces = append(out.Traces, obs)
	}
	return out, nil
}

// HasStates reports whether the observations carry state information.
func (l *List) HasStates() bool {
	return l.Token == Identity
}

// Actions returns every grounded action observed, in first-use order.
func (l *List) Actions() []trace.Action {
	seen := make(map[string]bool)
	var out []trace.Action
	for _, obs := range l.Traces {
		for _, o := range obs {
			if o.Action == nil || seen[o.Action.Key()] {
				continue
			}
			seen[o.Action.Key()] = true
			out = append(out, *o.Action)
		}
	}
	return out
}

// Fluents returns every grounded fluent known in any observed state, in
// first-seen order.
func (l *List) Fluents() []trace.Fluent {
	seen := make(map[string]bool)
	var out []trace.Fluent
	for _, obs := range l.Traces {
		for _, o := range obs {
			if o.State == nil {
				continue
			}
			for _, f := range o.State.Fluents() {
				if !seen[f.Key()] {
					seen[f.Key()] = true
					out = append(out, f)
				}
			}
		}
	}
	return out
}

// Transitions returns the (pre, post) pairs of every grounded action, one
// pair per occurrence, grouped in first-use order. Steps whose state or
// successor state is hidden are skipped.
func (l *List) Transitions() []ActionTransitions {
	index := make(map[string]int)
	var out []ActionTransitions
	for _, obs := range l.Traces {
		for i := 0; i+1 < len(obs); i++ {
			o := obs[i]
			if o.Action == nil || o.State == nil || obs[i+1].State == nil {
				continue
			}
			k := o.Action.Key()
			j, ok := index[k]
			if !ok {
				j = len(out)
				index[k] = j
				out = append(out, ActionTransitions{Action: *o.Action})
			}
			out[j].Pairs = append(out[j].Pairs, Transition{Pre: *o.State, Post: *obs[i+1].State})
		}
	}
	return out
}
