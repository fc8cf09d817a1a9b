// Package extract learns lifted STRIPS action models from fully observed
// traces. ESAM handles ambiguous parameter bindings by enumerating effect
// hypotheses; SAM assumes every binding of a flip is an effect.
package extract

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/omereliy/macq-implementSAA/internal/model"
	"github.com/omereliy/macq-implementSAA/internal/observation"
	"github.com/omereliy/macq-implementSAA/internal/sorts"
	"github.com/omereliy/macq-implementSAA/internal/trace"
)

var (
	// ErrIncompatibleObservation is returned for observations without
	// state information.
	ErrIncompatibleObservation = errors.New("observations carry no states")
	// ErrTooAmbiguous is returned when a schema's effect formula exceeds
	// the configured variable or model bound.
	ErrTooAmbiguous = errors.New("effect formula too ambiguous")
	// ErrInconsistentArity is returned when one action name is used with
	// different parameter counts, or a sort hint has the wrong length.
	ErrInconsistentArity = errors.New("inconsistent action arity")
)

// Observations is the observed-trace collection a learner consumes.
type Observations interface {
	// Actions returns every grounded action observed.
	Actions() []trace.Action
	// Fluents returns every grounded fluent known in any state.
	Fluents() []trace.Fluent
	// Transitions returns one (pre, post) pair per occurrence of each
	// grounded action.
	Transitions() []observation.ActionTransitions
}

// stateful is implemented by observation lists that may hide states.
type stateful interface {
	HasStates() bool
}

// PreconditionPolicy decides which literals become preconditions of an
// ESAM proxy action.
type PreconditionPolicy string

const (
	// PolicySure uses only the sure preconditions: literals true before
	// every observed occurrence.
	PolicySure PreconditionPolicy = "sure"
	// PolicyESAM also adds every add-effect candidate the model sets to
	// false.
	PolicyESAM PreconditionPolicy = "esam"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (PreconditionPolicy, error) {
	switch p := PreconditionPolicy(s); p {
	case PolicySure, PolicyESAM:
		return p, nil
	case "":
		return PolicySure, nil
	default:
		return "", fmt.Errorf("unknown precondition policy %q", s)
	}
}

// Options are the hints and bounds of one extraction run. Zero bounds mean
// unbounded.
type Options struct {
	ObjectSorts    map[string]string   // object name -> sort
	ActionSorts    map[string][]string // action name -> parameter sorts
	PredicateSorts map[string][]string // predicate name -> argument sorts
	Hierarchy      *sorts.Hierarchy
	Untyped        bool

	Precondition PreconditionPolicy

	MaxEffectVariables int // per schema, after minimization
	MaxModels          int // per schema
	MaxClauses         int // bound on forget and implicate working sets
	Workers            int // concurrent schemas; <= 1 runs sequentially

	// Debug logs every stage in detail. It never changes results.
	Debug  bool
	Logger *zap.Logger
}

// DefaultOptions returns the bounds the CLI uses.
func DefaultOptions() Options {
	return Options{
		Precondition:       PolicySure,
		MaxEffectVariables: 24,
		MaxModels:          4096,
		MaxClauses:         20000,
		Workers:            1,
	}
}

// Result is the outcome of one extraction.
type Result struct {
	Model  *model.Model
	Typing *sorts.Typing
	// EmptySchemas lists schemas whose effect formula had no usable model.
	EmptySchemas []string
	// Unminimized holds each schema's proxies before parameter
	// unification, in proxy order.
	Unminimized map[string][]model.LearnedLiftedAction
}
