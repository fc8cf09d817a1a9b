package cnf

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cl(lits ...Lit) Clause {
	c, _ := NewClause(lits...)
	return c
}

func TestNewClause(t *testing.T) {
	c, ok := NewClause(3, -1, 3, 2)
	require.True(t, ok)
	assert.Equal(t, Clause{-1, 2, 3}, c)

	_, ok = NewClause(1, 2, -1)
	assert.False(t, ok, "tautology")

	c, ok = NewClause()
	assert.True(t, ok)
	assert.Empty(t, c)
}

func TestClauseSubsumes(t *testing.T) {
	assert.True(t, cl(1, 3).Subsumes(cl(1, 2, 3)))
	assert.False(t, cl(1, 4).Subsumes(cl(1, 2, 3)))
	assert.False(t, cl(-1).Subsumes(cl(1, 2)))
	assert.True(t, Clause{}.Subsumes(cl(5)))
	assert.True(t, cl(2).Has(2))
	assert.False(t, cl(2).Has(-2))
}

func TestFormulaAddIgnoresDuplicates(t *testing.T) {
	f := New()
	f.Add(1, 2)
	f.Add(2, 1)
	f.Add(1, -1)
	assert.Equal(t, 1, f.Len())
	assert.Equal(t, []Var{1, 2}, f.Vars())
	assert.False(t, f.Unsatisfiable())

	f.Add()
	assert.True(t, f.Unsatisfiable())
}

func TestForgetMonotone(t *testing.T) {
	// clauses that mention a forgotten positive-only variable are satisfiable
	// by it and vanish
	f := New(cl(1, 2), cl(3), cl(2, 4))
	got, err := f.Forget(0, 1, 4)
	require.NoError(t, err)
	if diff := cmp.Diff([]Clause{cl(3)}, got.Clauses()); diff != "" {
		t.Errorf("Forget mismatch (-want +got):\n%s", diff)
	}
}

func TestForgetResolves(t *testing.T) {
	// exists x. (x | a) & (-x | b)  ==  (a | b)
	f := New(cl(1, 2), cl(-1, 3), cl(4))
	got, err := f.Forget(0, 1)
	require.NoError(t, err)
	if diff := cmp.Diff([]Clause{cl(4), cl(2, 3)}, got.Clauses()); diff != "" {
		t.Errorf("Forget mismatch (-want +got):\n%s", diff)
	}
	assert.NotContains(t, got.Vars(), Var(1))
}

func TestForgetBound(t *testing.T) {
	f := New(cl(1, 2), cl(1, 3), cl(1, 4), cl(-1, 5), cl(-1, 6), cl(-1, 7))
	_, err := f.Forget(4, 1)
	assert.True(t, errors.Is(err, ErrTooLarge))
}

func TestImplicates(t *testing.T) {
	tests := []struct {
		name string
		in   []Clause
		want []Clause
	}{
		{"subsumption", []Clause{cl(1, 2, 3), cl(1, 2), cl(4)}, []Clause{cl(4), cl(1, 2)}},
		{"resolution", []Clause{cl(1, 2), cl(-1, 2)}, []Clause{cl(2)}},
		{"chain", []Clause{cl(1), cl(-1, 2), cl(-2, 3)}, []Clause{cl(1), cl(2), cl(3)}},
		{"contradiction", []Clause{cl(1), cl(-1)}, []Clause{nil}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.in...).Implicates(0)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got.Clauses()); diff != "" {
				t.Errorf("Implicates mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestImplicatesEquivalent(t *testing.T) {
	f := New(cl(1, 2), cl(-2, 3), cl(-1, 3, 4))
	pi, err := f.Implicates(0)
	require.NoError(t, err)

	want, err := f.Models(0)
	require.NoError(t, err)
	for _, m := range want {
		assert.True(t, pi.Satisfies(m))
	}
	// (1|2)&(-2|3) implies (1|3); both are kept
	assert.Contains(t, pi.Clauses(), cl(1, 3))
}

func TestImplicatesBound(t *testing.T) {
	f := New(cl(1, 2), cl(-1, 3), cl(-2, 4), cl(-3, 5), cl(-4, 6))
	_, err := f.Implicates(5)
	assert.ErrorIs(t, err, ErrTooLarge)
}
