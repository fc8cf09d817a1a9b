package extract

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omereliy/macq-implementSAA/internal/trace"
	"github.com/omereliy/macq-implementSAA/internal/trace/tracetest"
)

func TestSAMRecoversBlocksWorld(t *testing.T) {
	obs := blocksObservations(t, 42, 4, 30)
	res, err := SAM(context.Background(), obs, DefaultOptions())
	require.NoError(t, err)
	assert.Nil(t, res.Unminimized)

	m := res.Model
	require.Len(t, m.Actions(), 4)
	for _, op := range tracetest.Operators {
		got, ok := m.Action(op.Name)
		require.True(t, ok, op.Name)
		assert.Equal(t, op.Name, got.Schema)
		if diff := cmp.Diff(atomStrings(op.Add), literalStrings(got.Add)); diff != "" {
			t.Errorf("%s add mismatch (-want +got):\n%s", op.Name, diff)
		}
		if diff := cmp.Diff(atomStrings(op.Del), literalStrings(got.Delete)); diff != "" {
			t.Errorf("%s delete mismatch (-want +got):\n%s", op.Name, diff)
		}
		assert.Subset(t, literalStrings(got.Precond), atomStrings(op.Pre))
	}
}

func TestSAMMatchesESAMWithoutAmbiguity(t *testing.T) {
	obs := blocksObservations(t, 17, 3, 25)
	sam, err := SAM(context.Background(), obs, DefaultOptions())
	require.NoError(t, err)
	esam, err := ESAM(context.Background(), obs, DefaultOptions())
	require.NoError(t, err)

	for _, a := range sam.Model.Actions() {
		proxies := esam.Model.ActionsOf(a.Name)
		require.Len(t, proxies, 1)
		assert.Equal(t, literalStrings(a.Precond), literalStrings(proxies[0].Precond))
		assert.Equal(t, literalStrings(a.Add), literalStrings(proxies[0].Add))
		assert.Equal(t, literalStrings(a.Delete), literalStrings(proxies[0].Delete))
	}
}

func TestSAMTakesEveryBinding(t *testing.T) {
	o1, _, universe := paintWorld()
	obs := observe(t, step(t, universe, trace.NewAction("paint", o1, o1), nil, universe[:1]))

	res, err := SAM(context.Background(), obs, DefaultOptions())
	require.NoError(t, err)
	paint, ok := res.Model.Action("paint")
	require.True(t, ok)
	assert.Equal(t, []string{"(painted ?0)", "(painted ?1)"}, literalStrings(paint.Add))
	assert.Empty(t, paint.Delete)
	assert.Empty(t, paint.Bindings)
	require.Len(t, res.Model.Fluents(), 1)
	assert.Equal(t, "(painted sort0)", res.Model.Fluents()[0].String())
}

func TestSAMVocabularyIsWhatActionsUse(t *testing.T) {
	x := trace.NewObject("x", "")
	moved, idle := trace.NewFluent("moved", x), trace.NewFluent("idle")
	broken := trace.NewFluent("broken", x)
	universe := []trace.Fluent{moved, idle, broken}
	obs := observe(t, step(t, universe, trace.NewAction("move", x), []trace.Fluent{idle}, []trace.Fluent{idle, moved}))

	res, err := SAM(context.Background(), obs, DefaultOptions())
	require.NoError(t, err)
	var names []string
	for _, f := range res.Model.Fluents() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"idle", "moved"}, names)

	esam, err := ESAM(context.Background(), obs, DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, esam.Model.Fluents(), 3, "every interned literal")
}
