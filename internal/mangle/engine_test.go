package mangle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const reachProgram = `
Decl edge(X, Y).
Decl reach(X, Y).
Decl blocked(X).
Decl open_reach(X, Y).

reach(X, Y) :- edge(X, Y).
reach(X, Z) :- edge(X, Y), reach(Y, Z).
open_reach(X, Y) :- reach(X, Y), !blocked(Y).
`

func edge(a, b string) Fact { return Fact{Predicate: "edge", Args: []interface{}{a, b}} }

func newReachEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, e.Load(reachProgram))
	return e
}

func TestEngineDerivesFacts(t *testing.T) {
	e := newReachEngine(t, DefaultConfig())
	require.NoError(t, e.Insert([]Fact{
		edge("a", "b"),
		edge("b", "c"),
		{Predicate: "blocked", Args: []interface{}{"c"}},
	}))

	reach, err := e.Query("reach")
	require.NoError(t, err)
	assert.Empty(t, reach, "rules wait for Eval")

	require.NoError(t, e.Eval())
	reach, err = e.Query("reach")
	require.NoError(t, err)
	assert.Len(t, reach, 3)

	open, err := e.Query("open_reach")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, []interface{}{"a", "b"}, open[0].Args)
	assert.Equal(t, `open_reach("a", "b").`, open[0].String())

	counts := e.Counts()
	assert.Equal(t, 2, counts["edge"])
	assert.Equal(t, 3, counts["reach"])
	assert.Equal(t, 1, counts["open_reach"])
}

func TestEngineLoadAccumulates(t *testing.T) {
	e := newReachEngine(t, DefaultConfig())
	require.NoError(t, e.Load("Decl hub(X).\nhub(X) :- edge(X, Y), edge(Z, X)."))
	require.NoError(t, e.Insert([]Fact{edge("a", "b"), edge("b", "c")}))
	require.NoError(t, e.Eval())

	hubs, err := e.Query("hub")
	require.NoError(t, err)
	require.Len(t, hubs, 1)
	assert.Equal(t, "b", hubs[0].Args[0])
}

func TestEngineErrors(t *testing.T) {
	_, err := NewEngine(Config{FactLimit: -1}, nil)
	assert.Error(t, err)

	e, err := NewEngine(DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Error(t, e.Insert([]Fact{edge("a", "b")}), "no program loaded")
	assert.Error(t, e.Eval())
	assert.Error(t, e.Load("reach(X :- edge."))

	e = newReachEngine(t, DefaultConfig())
	assert.Error(t, e.Insert([]Fact{{Predicate: "missing", Args: []interface{}{"a"}}}))
	assert.Error(t, e.Insert([]Fact{{Predicate: "edge", Args: []interface{}{"a"}}}))
	assert.Error(t, e.Insert([]Fact{{Predicate: "edge", Args: []interface{}{"a", 1.5}}}))
	_, err = e.Query("missing")
	assert.Error(t, err)
}

func TestEngineFactLimit(t *testing.T) {
	e := newReachEngine(t, Config{FactLimit: 1})
	require.NoError(t, e.Insert([]Fact{edge("a", "b")}))
	// duplicates do not count against the limit
	require.NoError(t, e.Insert([]Fact{edge("a", "b")}))
	assert.Error(t, e.Insert([]Fact{edge("b", "c")}))
}

func TestTermConversion(t *testing.T) {
	name, err := toTerm("/add")
	require.NoError(t, err)
	assert.Equal(t, "/add", fromTerm(name))

	num, err := toTerm(7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), fromTerm(num))

	s, err := toTerm("(on a b)")
	require.NoError(t, err)
	assert.Equal(t, "(on a b)", fromTerm(s))
}
