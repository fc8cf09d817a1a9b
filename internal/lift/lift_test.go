package lift

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omereliy/macq-implementSAA/internal/trace"
)

func o(name string) trace.Object { return trace.NewObject(name, "") }

func TestLift(t *testing.T) {
	tests := []struct {
		name      string
		action    trace.Action
		fluent    trace.Fluent
		sorts     []string
		predSorts map[string][]string
		want      []Literal
	}{
		{
			name:   "single binding",
			action: trace.NewAction("stack", o("a"), o("b")),
			fluent: trace.NewFluent("on", o("a"), o("b")),
			sorts:  []string{"block", "block"},
			want:   []Literal{{Predicate: "on", Sorts: []string{"block", "block"}, Indices: []int{0, 1}}},
		},
		{
			name:   "repeated object gives every reading",
			action: trace.NewAction("act", o("o1"), o("o1")),
			fluent: trace.NewFluent("lit", o("o1")),
			sorts:  []string{"object", "object"},
			want: []Literal{
				{Predicate: "lit", Sorts: []string{"object"}, Indices: []int{0}},
				{Predicate: "lit", Sorts: []string{"object"}, Indices: []int{1}},
			},
		},
		{
			name:   "cartesian product",
			action: trace.NewAction("swap", o("x"), o("y"), o("x"), o("y")),
			fluent: trace.NewFluent("link", o("x"), o("y")),
			sorts:  []string{"n", "n", "n", "n"},
			want: []Literal{
				{Predicate: "link", Sorts: []string{"n", "n"}, Indices: []int{0, 1}},
				{Predicate: "link", Sorts: []string{"n", "n"}, Indices: []int{0, 3}},
				{Predicate: "link", Sorts: []string{"n", "n"}, Indices: []int{2, 1}},
				{Predicate: "link", Sorts: []string{"n", "n"}, Indices: []int{2, 3}},
			},
		},
		{
			name:   "out of scope",
			action: trace.NewAction("pickup", o("a")),
			fluent: trace.NewFluent("on", o("a"), o("b")),
			sorts:  []string{"block"},
			want:   nil,
		},
		{
			name:   "nullary",
			action: trace.NewAction("pickup", o("a")),
			fluent: trace.NewFluent("handempty"),
			sorts:  []string{"block"},
			want:   []Literal{{Predicate: "handempty"}},
		},
		{
			name:      "predicate sorts win",
			action:    trace.NewAction("load", o("p"), o("t")),
			fluent:    trace.NewFluent("in", o("p"), o("t")),
			sorts:     []string{"sort0", "sort1"},
			predSorts: map[string][]string{"in": {"package", "vehicle"}},
			want:      []Literal{{Predicate: "in", Sorts: []string{"package", "vehicle"}, Indices: []int{0, 1}}},
		},
		{
			name:   "missing action sorts fall back to object",
			action: trace.NewAction("noop", o("a")),
			fluent: trace.NewFluent("p", o("a")),
			want:   []Literal{{Predicate: "p", Sorts: []string{"object"}, Indices: []int{0}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Lift(tt.action, tt.fluent, tt.sorts, tt.predSorts)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Lift mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGround(t *testing.T) {
	a := trace.NewAction("stack", o("a"), o("b"))
	f, err := Ground(Literal{Predicate: "on", Indices: []int{1, 0}}, a)
	require.NoError(t, err)
	assert.Equal(t, "(on b a)", f.String())

	_, err = Ground(Literal{Predicate: "on", Indices: []int{0, 2}}, a)
	assert.True(t, errors.Is(err, ErrUnboundParameter))
}

func TestLiftGroundRoundTrip(t *testing.T) {
	a := trace.NewAction("swap", o("x"), o("y"), o("x"))
	f := trace.NewFluent("link", o("x"), o("y"))
	for _, lit := range Lift(a, f, nil, nil) {
		g, err := Ground(lit, a)
		require.NoError(t, err)
		assert.True(t, g.Equal(f), "%s grounds back to %s", lit, g)
	}
}

func TestLiteralKeyDistinguishesFields(t *testing.T) {
	base := Literal{Predicate: "on", Sorts: []string{"b", "b"}, Indices: []int{0, 1}}
	assert.True(t, base.Equal(Literal{Predicate: "on", Sorts: []string{"b", "b"}, Indices: []int{0, 1}}))
	assert.False(t, base.Equal(Literal{Predicate: "on", Sorts: []string{"b", "b"}, Indices: []int{1, 0}}))
	assert.False(t, base.Equal(Literal{Predicate: "on", Sorts: []string{"b", "c"}, Indices: []int{0, 1}}))
	assert.False(t, base.Equal(Literal{Predicate: "in", Sorts: []string{"b", "b"}, Indices: []int{0, 1}}))
	assert.Equal(t, "(on ?0 ?1)", base.String())
	assert.Equal(t, 1, base.MaxIndex())
	assert.Equal(t, -1, Literal{Predicate: "handempty"}.MaxIndex())
	assert.Equal(t, []int{0, 0}, base.Remap([]int{0, 0}).Indices)
}

func TestTableIsBijection(t *testing.T) {
	b := NewBuilder()
	lits := []Literal{
		{Predicate: "on", Indices: []int{0, 1}},
		{Predicate: "clear", Indices: []int{0}},
		{Predicate: "clear", Indices: []int{1}},
	}
	b.Add(lits...)
	b.Add(lits[0])
	require.Equal(t, 3, b.Len())

	tab := b.Freeze()
	require.Equal(t, 3, tab.Len())
	seen := make(map[int]bool)
	for _, l := range lits {
		id, ok := tab.ID(l)
		require.True(t, ok)
		assert.True(t, id >= 1 && id <= 3)
		assert.False(t, seen[id])
		seen[id] = true
		assert.True(t, tab.Literal(id).Equal(l))
	}
	_, ok := tab.ID(Literal{Predicate: "holding", Indices: []int{0}})
	assert.False(t, ok)

	// ids follow key order, so equal inputs give equal tables
	again := NewBuilder()
	again.Add(lits[2], lits[1], lits[0])
	if diff := cmp.Diff(tab.Literals(), again.Freeze().Literals()); diff != "" {
		t.Errorf("table order depends on insertion (-want +got):\n%s", diff)
	}
}
