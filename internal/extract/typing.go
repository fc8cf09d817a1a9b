package extract

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/omereliy/macq-implementSAA/internal/sorts"
	"github.com/omereliy/macq-implementSAA/internal/trace"
)

// arities checks that every action name is used with one parameter count.
func arities(actions []trace.Action) (map[string]int, error) {
	out := make(map[string]int)
	for _, a := range actions {
		n, ok := out[a.Name]
		if ok && n != len(a.Params) {
			return nil, fmt.Errorf("%w: %s used with %d and %d parameters", ErrInconsistentArity, a.Name, n, len(a.Params))
		}
		out[a.Name] = len(a.Params)
	}
	return out, nil
}

// resolveTyping infers sorts and then applies the hints of opts. Object
// hints replace inferred object sorts and re-derive parameter sorts;
// action hints replace parameter sorts outright.
func resolveTyping(actions []trace.Action, fluents []trace.Fluent, arity map[string]int, opts Options, logger *zap.Logger) (*sorts.Typing, error) {
	typing := sorts.Infer(actions, fluents, opts.Hierarchy, logger)

	if len(opts.ObjectSorts) > 0 {
		for obj, s := range opts.ObjectSorts {
			typing.Objects[obj] = s
		}
		for _, a := range actions {
			ps := make([]string, len(a.Params))
			for i, o := range a.Params {
				ps[i] = typing.Objects[o.Name]
			}
			typing.Actions[a.Name] = ps
		}
	}
	for name, ps := range opts.ActionSorts {
		if n, ok := arity[name]; ok && n != len(ps) {
			return nil, fmt.Errorf("%w: sort hint for %s has %d entries, action takes %d", ErrInconsistentArity, name, len(ps), n)
		}
		typing.Actions[name] = append([]string(nil), ps...)
	}
	for _, f := range fluents {
		if ps, ok := opts.PredicateSorts[f.Name]; ok && len(ps) != len(f.Objects) {
			return nil, fmt.Errorf("%w: sort hint for %s has %d entries, predicate takes %d", ErrInconsistentArity, f.Name, len(ps), len(f.Objects))
		}
	}
	if opts.Untyped {
		typing = typing.Untyped()
	}

	if opts.Debug {
		names := make([]string, 0, len(typing.Actions))
		for n := range typing.Actions {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			logger.Debug("action sorts", zap.String("action", n), zap.Strings("sorts", typing.Actions[n]))
		}
	}
	return typing, nil
}

// predicateSorts returns the per-predicate sort hints in effect. Untyped
// runs drop them so every literal is typed by Universal.
func predicateSorts(opts Options) map[string][]string {
	if !opts.Untyped {
		return opts.PredicateSorts
	}
	if len(opts.PredicateSorts) == 0 {
		return nil
	}
	out := make(map[string][]string, len(opts.PredicateSorts))
	for p, ss := range opts.PredicateSorts {
		u := make([]string, len(ss))
		for i := range u {
			u[i] = sorts.Universal
		}
		out[p] = u
	}
	return out
}
