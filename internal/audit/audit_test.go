package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/omereliy/macq-implementSAA/internal/extract"
	"github.com/omereliy/macq-implementSAA/internal/lift"
	"github.com/omereliy/macq-implementSAA/internal/mangle"
	"github.com/omereliy/macq-implementSAA/internal/model"
	"github.com/omereliy/macq-implementSAA/internal/observation"
	"github.com/omereliy/macq-implementSAA/internal/trace"
	"github.com/omereliy/macq-implementSAA/internal/trace/tracetest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func blocks(t *testing.T) *observation.List {
	t.Helper()
	list, err := tracetest.NewBlocks(21, "a", "b", "c").List(3, 20)
	require.NoError(t, err)
	obs, err := observation.Tokenize(list, observation.Identity)
	require.NoError(t, err)
	return obs
}

func TestLearnedModelIsClean(t *testing.T) {
	obs := blocks(t)
	for name, learn := range map[string]func(context.Context, extract.Observations, extract.Options) (*extract.Result, error){
		"esam": extract.ESAM,
		"sam":  extract.SAM,
	} {
		t.Run(name, func(t *testing.T) {
			res, err := learn(context.Background(), obs, extract.DefaultOptions())
			require.NoError(t, err)

			report, err := Run(res.Model, obs, mangle.DefaultConfig(), zaptest.NewLogger(t))
			require.NoError(t, err)
			assert.True(t, report.Clean(), "findings: %v", report.Findings)
			assert.Equal(t, 60, report.Occurrences)
			assert.Equal(t, report.Occurrences, report.Groundings, "one proxy per schema")
		})
	}
}

func block(p string, idx ...int) lift.Literal {
	ss := make([]string, len(idx))
	for i := range ss {
		ss[i] = tracetest.BlockSort
	}
	if len(idx) == 0 {
		ss = nil
	}
	return lift.Literal{Predicate: p, Sorts: ss, Indices: idx}
}

func TestWrongModelFindings(t *testing.T) {
	// pickup that forgets to delete handempty, claims ontable afterwards
	// and demands holding beforehand
	pickup, err := model.NewLearnedLiftedAction("pickup", "pickup", []string{tracetest.BlockSort},
		[]lift.Literal{block("clear", 0), block("holding", 0)},
		[]lift.Literal{block("holding", 0), block("ontable", 0)},
		[]lift.Literal{block("clear", 0), block("ontable", 0)})
	require.NoError(t, err)
	m := model.New(nil, []model.LearnedLiftedAction{pickup}, nil, nil)

	list, err := tracetest.NewBlocks(4, "a", "b").List(1, 1)
	require.NoError(t, err)
	obs, err := observation.Tokenize(list, observation.Identity)
	require.NoError(t, err)
	require.Equal(t, "pickup", obs.Traces[0][0].Action.Name)

	core, logs := observer.New(zapcore.DebugLevel)
	report, err := Run(m, obs, mangle.DefaultConfig(), zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(Precondition))
	assert.Equal(t, 1, report.Count(ContradictedAdd))
	assert.Equal(t, 0, report.Count(ContradictedDelete))
	assert.Equal(t, 1, report.Count(Unexplained))

	for _, f := range report.Findings {
		assert.Equal(t, "0:0", f.Occurrence)
		switch f.Kind {
		case Precondition:
			assert.Contains(t, f.Fluent, "(holding ")
		case ContradictedAdd:
			assert.Contains(t, f.Fluent, "(ontable ")
		case Unexplained:
			assert.Equal(t, "(handempty)", f.Fluent)
			assert.Empty(t, f.Proxy)
		}
	}

	entries := logs.FilterMessage("audit facts").All()
	require.Len(t, entries, 1)
	counts, ok := entries[0].ContextMap()["counts"].(map[string]int)
	require.True(t, ok)
	assert.Equal(t, 2, counts["requires"])
	assert.Equal(t, 1, counts["violated_precondition"])
	assert.Equal(t, 1, counts["unexplained"])
}

func paint(t *testing.T, universe []trace.Fluent, a trace.Action, before, after []trace.Fluent) trace.Trace {
	t.Helper()
	tr, err := trace.NewTrace(
		[]trace.State{trace.StateOf(universe, before...), trace.StateOf(universe, after...)},
		[]trace.Action{a})
	require.NoError(t, err)
	return tr
}

func TestAmbiguityFindings(t *testing.T) {
	o1, o2 := trace.NewObject("o1", ""), trace.NewObject("o2", "")
	p1, p2 := trace.NewFluent("painted", o1), trace.NewFluent("painted", o2)
	universe := []trace.Fluent{p1, p2}

	t.Run("extra preconditions", func(t *testing.T) {
		obs, err := observation.Tokenize(trace.NewList(nil,
			paint(t, universe, trace.NewAction("paint", o1, o1), nil, []trace.Fluent{p1})), observation.Identity)
		require.NoError(t, err)

		opts := extract.DefaultOptions()
		opts.Precondition = extract.PolicyESAM
		res, err := extract.ESAM(context.Background(), obs, opts)
		require.NoError(t, err)

		report, err := Run(res.Model, obs, mangle.DefaultConfig(), nil)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Groundings)
		assert.Equal(t, 2, report.Count(Precondition), "paint_1 and paint_2 require the fluent they would add")
		assert.Equal(t, 0, report.Count(Unexplained))
	})

	t.Run("forgotten reading", func(t *testing.T) {
		obs, err := observation.Tokenize(trace.NewList(nil,
			paint(t, universe, trace.NewAction("paint", o1, o1), nil, []trace.Fluent{p1}),
			paint(t, universe, trace.NewAction("paint", o1, o2), []trace.Fluent{p1}, []trace.Fluent{p1})),
			observation.Identity)
		require.NoError(t, err)

		res, err := extract.ESAM(context.Background(), obs, extract.DefaultOptions())
		require.NoError(t, err)
		proxies := res.Model.ActionsOf("paint")
		require.Len(t, proxies, 1)
		assert.Empty(t, proxies[0].Add)

		report, err := Run(res.Model, obs, mangle.DefaultConfig(), nil)
		require.NoError(t, err)
		require.Equal(t, 1, report.Count(Unexplained))
		assert.Equal(t, "(painted o1)", report.Findings[0].Fluent)
		assert.Equal(t, "(paint o1 o1)", report.Findings[0].Action)
	})
}

func TestRunRejectsHiddenStates(t *testing.T) {
	list, err := tracetest.NewBlocks(1, "a").List(1, 2)
	require.NoError(t, err)
	obs, err := observation.Tokenize(list, observation.ActionOnly)
	require.NoError(t, err)
	_, err = Run(model.New(nil, nil, nil, nil), obs, mangle.DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrNoStates)
}
