package extract

import (
	"context"

	"go.uber.org/zap"

	"github.com/omereliy/macq-implementSAA/internal/logging"
	"github.com/omereliy/macq-implementSAA/internal/model"
)

// SAM learns one action per schema without resolving ambiguity: the
// preconditions are the sure preconditions and every reading of every
// observed flip becomes an effect. It is exact when no action repeats an
// object among its parameters.
func SAM(ctx context.Context, obs Observations, opts Options) (*Result, error) {
	r, err := prepare(ctx, obs, opts)
	if err != nil {
		return nil, err
	}
	log := logging.For(r.logger, logging.CategoryAssemble)

	res := &Result{Typing: r.typing}
	var actions []model.LearnedLiftedAction
	var fluents []model.LearnedLiftedFluent
	for _, s := range r.sc.schemas {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a, err := r.newAction(s.name, s.name, s.sorts,
			s.surePreconditions(), sortedIDs(s.adds), sortedIDs(s.deletes), nil)
		if err != nil {
			return nil, err
		}
		for _, l := range a.Literals() {
			fluents = append(fluents, model.FluentOf(l))
		}
		actions = append(actions, a)
	}
	res.Model = model.New(fluents, actions, r.sortList(), r.typing.Objects)
	log.Info("model assembled", zap.String("algorithm", "sam"), zap.Int("actions", len(actions)))
	return res, nil
}
