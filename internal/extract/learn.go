package extract

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/omereliy/macq-implementSAA/internal/lift"
	"github.com/omereliy/macq-implementSAA/internal/logging"
	"github.com/omereliy/macq-implementSAA/internal/model"
	"github.com/omereliy/macq-implementSAA/internal/sorts"
)

// run is the private state of one extraction call.
type run struct {
	opts   Options
	typing *sorts.Typing
	sc     *scanner
	logger *zap.Logger
}

// prepare resolves typing, lifts every literal and scans every transition.
func prepare(ctx context.Context, obs Observations, opts Options) (*run, error) {
	if st, ok := obs.(stateful); ok && !st.HasStates() {
		return nil, ErrIncompatibleObservation
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root := logging.OrNop(opts.Logger)

	actions := obs.Actions()
	fluents := obs.Fluents()
	arity, err := arities(actions)
	if err != nil {
		return nil, err
	}
	typing, err := resolveTyping(actions, fluents, arity, opts, logging.For(root, logging.CategorySorts))
	if err != nil {
		return nil, err
	}

	sc := &scanner{
		byName:    make(map[string]*schemaScan),
		predSorts: predicateSorts(opts),
		debug:     opts.Debug,
		liftLog:   logging.For(root, logging.CategoryLift),
		scanLog:   logging.For(root, logging.CategoryScan),
	}
	names := make([]string, 0, len(arity))
	for n := range arity {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		s := newSchemaScan(n, arity[n], typing.Actions[n])
		sc.schemas = append(sc.schemas, s)
		sc.byName[n] = s
	}

	sc.lift(actions, fluents, typing.Actions)
	if err := sc.scan(obs); err != nil {
		return nil, err
	}
	return &run{opts: opts, typing: typing, sc: sc, logger: root}, nil
}

// forEachSchema calls fn for every schema index, concurrently when the
// options ask for workers. fn must only write to its own index.
func (r *run) forEachSchema(ctx context.Context, fn func(ctx context.Context, i int) error) error {
	if r.opts.Workers <= 1 {
		for i := range r.sc.schemas {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i := range r.sc.schemas {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}
	return g.Wait()
}

// sortList returns the hierarchy the model is reported under.
func (r *run) sortList() []sorts.Sort {
	if r.opts.Untyped {
		return nil
	}
	return r.opts.Hierarchy.Sorts()
}

func (r *run) newAction(name, schema string, paramSorts []string, pre, add, del []int, mapping []int) (model.LearnedLiftedAction, error) {
	a, err := model.NewLearnedLiftedAction(name, schema, paramSorts,
		r.literals(pre, mapping), r.literals(add, mapping), r.literals(del, mapping))
	if err != nil {
		return model.LearnedLiftedAction{}, fmt.Errorf("failed to build %s: %w", name, err)
	}
	return a, nil
}

func (r *run) literals(ids []int, mapping []int) []lift.Literal {
	out := make([]lift.Literal, len(ids))
	for i, id := range ids {
		l := r.sc.table.Literal(id)
		if mapping != nil {
			l = l.Remap(mapping)
		}
		out[i] = l
	}
	return out
}
