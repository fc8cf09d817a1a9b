package extract

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/omereliy/macq-implementSAA/internal/cnf"
	"github.com/omereliy/macq-implementSAA/internal/logging"
	"github.com/omereliy/macq-implementSAA/internal/model"
)

// ESAM learns a safe lifted action model under ambiguous parameter
// bindings. Each schema yields one proxy action per surviving model of its
// effect formula; a schema whose formula has no usable model yields none
// and is listed in Result.EmptySchemas.
func ESAM(ctx context.Context, obs Observations, opts Options) (*Result, error) {
	r, err := prepare(ctx, obs, opts)
	if err != nil {
		return nil, err
	}
	outcomes := make([]schemaOutcome, len(r.sc.schemas))
	err = r.forEachSchema(ctx, func(_ context.Context, i int) error {
		out, err := r.learnSchema(r.sc.schemas[i])
		if err != nil {
			return err
		}
		outcomes[i] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.assemble(outcomes), nil
}

type schemaOutcome struct {
	proxies     []model.LearnedLiftedAction
	unminimized []model.LearnedLiftedAction
}

// Effect variables map onto dense cnf variables: +id -> 2id-1, -id -> 2id.
func toCNF(v effectVar) cnf.Var {
	if v.isDelete() {
		return cnf.Var(2 * v.id())
	}
	return cnf.Var(2*v.id() - 1)
}

func fromCNF(v cnf.Var) effectVar {
	if v%2 == 0 {
		return delVar(int(v) / 2)
	}
	return addVar((int(v) + 1) / 2)
}

// effectFormula forgets the non-effects of s and minimizes what remains.
func (r *run) effectFormula(s *schemaScan, log *zap.Logger) (*cnf.Formula, error) {
	f := cnf.New()
	for _, c := range s.clauses {
		lits := make([]cnf.Lit, len(c))
		for i, v := range c {
			lits[i] = toCNF(v).Pos()
		}
		f.Add(lits...)
	}
	forget := make([]cnf.Var, 0, len(s.forget))
	for v := range s.forget {
		forget = append(forget, toCNF(v))
	}
	if r.opts.Debug {
		log.Debug("effect formula", zap.String("schema", s.name), zap.Stringer("cnf", f), zap.Int("forget", len(forget)))
	}

	f, err := f.Forget(r.opts.MaxClauses, forget...)
	if err != nil {
		return nil, fmt.Errorf("failed to forget non-effects of %s: %w", s.name, err)
	}
	f, err = f.Implicates(r.opts.MaxClauses)
	if err != nil {
		return nil, fmt.Errorf("failed to minimize effects of %s: %w", s.name, err)
	}
	if r.opts.Debug {
		log.Debug("minimized formula", zap.String("schema", s.name), zap.Stringer("cnf", f))
	}
	return f, nil
}

func (r *run) learnSchema(s *schemaScan) (schemaOutcome, error) {
	minLog := logging.For(r.logger, logging.CategoryMinimize)
	unifyLog := logging.For(r.logger, logging.CategoryUnify)

	f, err := r.effectFormula(s, minLog)
	if err != nil {
		return schemaOutcome{}, err
	}
	if n := len(f.Vars()); r.opts.MaxEffectVariables > 0 && n > r.opts.MaxEffectVariables {
		return schemaOutcome{}, fmt.Errorf("%w: %s has %d effect variables, limit %d",
			ErrTooAmbiguous, s.name, n, r.opts.MaxEffectVariables)
	}
	models, err := f.Models(r.opts.MaxModels)
	if errors.Is(err, cnf.ErrTooLarge) {
		return schemaOutcome{}, fmt.Errorf("%w: %s: %w", ErrTooAmbiguous, s.name, err)
	}
	if err != nil {
		return schemaOutcome{}, err
	}

	sure := s.surePreconditions()
	var out schemaOutcome
	for _, m := range models {
		h, ok := decodeModel(m)
		if !ok {
			if r.opts.Debug {
				minLog.Debug("model dropped: false delete variable", zap.String("schema", s.name))
			}
			continue
		}
		name := fmt.Sprintf("%s_%d", s.name, len(out.proxies)+1)

		pre := append([]int(nil), sure...)
		if r.opts.Precondition == PolicyESAM {
			pre = append(pre, h.notAdded...)
		}

		raw, err := r.newAction(name, s.name, s.sorts, pre, h.added, h.deleted, nil)
		if err != nil {
			return schemaOutcome{}, err
		}
		out.unminimized = append(out.unminimized, raw)

		mapping := UnifyParameters(r.explicit(h), s.arity)
		proxy, err := r.newAction(name, s.name, reducedSorts(s.sorts, mapping), pre, h.added, h.deleted, mapping)
		if err != nil {
			return schemaOutcome{}, err
		}
		if proxy, err = proxy.WithBindings(mapping); err != nil {
			return schemaOutcome{}, err
		}
		unifyLog.Debug("parameters unified",
			zap.String("proxy", name),
			zap.Int("before", s.arity),
			zap.Int("after", Classes(mapping)))
		out.proxies = append(out.proxies, proxy)
	}

	if len(out.proxies) == 0 {
		minLog.Warn("schema has no consistent effect model", zap.String("schema", s.name),
			zap.Int("models", len(models)))
	} else {
		minLog.Info("proxies enumerated", zap.String("schema", s.name),
			zap.Int("models", len(models)), zap.Int("proxies", len(out.proxies)))
	}
	return out, nil
}

// hypothesis is one model read back as literal ids.
type hypothesis struct {
	added, deleted, notAdded []int
	values                   map[int]bool
}

// decodeModel reads a model. ok is false when the model sets a delete
// variable to false, which would need a negative precondition.
func decodeModel(m cnf.Model) (hypothesis, bool) {
	h := hypothesis{values: make(map[int]bool)}
	var dels []effectVar
	for _, v := range sortedCNFVars(m) {
		ev := fromCNF(v)
		val := m[v]
		if ev.isDelete() {
			if !val {
				return hypothesis{}, false
			}
			h.deleted = append(h.deleted, ev.id())
			dels = append(dels, ev)
			continue
		}
		h.values[ev.id()] = val
		if val {
			h.added = append(h.added, ev.id())
		} else {
			h.notAdded = append(h.notAdded, ev.id())
		}
	}
	// a delete variable that holds reads as its literal being false
	// afterwards, and takes precedence over the add reading
	for _, ev := range dels {
		h.values[ev.id()] = false
	}
	return h, true
}

func sortedCNFVars(m cnf.Model) []cnf.Var {
	out := make([]cnf.Var, 0, len(m))
	for v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *run) explicit(h hypothesis) []Assignment {
	ids := make(map[int]bool, len(h.values))
	for id := range h.values {
		ids[id] = true
	}
	out := make([]Assignment, 0, len(ids))
	for _, id := range sortedIDs(ids) {
		out = append(out, Assignment{Literal: r.sc.table.Literal(id), Value: h.values[id]})
	}
	return out
}

// reducedSorts picks, for each class, the sort of its smallest original
// index.
func reducedSorts(orig []string, mapping []int) []string {
	out := make([]string, Classes(mapping))
	set := make([]bool, len(out))
	for i, c := range mapping {
		if !set[c] {
			out[c] = orig[i]
			set[c] = true
		}
	}
	return out
}

func (r *run) assemble(outcomes []schemaOutcome) *Result {
	log := logging.For(r.logger, logging.CategoryAssemble)
	res := &Result{Typing: r.typing, Unminimized: make(map[string][]model.LearnedLiftedAction)}
	var actions []model.LearnedLiftedAction
	for i, out := range outcomes {
		s := r.sc.schemas[i]
		if len(out.proxies) == 0 {
			res.EmptySchemas = append(res.EmptySchemas, s.name)
		}
		actions = append(actions, out.proxies...)
		res.Unminimized[s.name] = out.unminimized
	}
	var fluents []model.LearnedLiftedFluent
	for _, l := range r.sc.table.Literals() {
		fluents = append(fluents, model.FluentOf(l))
	}
	res.Model = model.New(fluents, actions, r.sortList(), r.typing.Objects)
	log.Info("model assembled",
		zap.Int("actions", len(actions)),
		zap.Int("fluents", len(res.Model.Fluents())),
		zap.Strings("empty_schemas", res.EmptySchemas))
	return res
}
