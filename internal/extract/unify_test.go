package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/omereliy/macq-implementSAA/internal/lift"
)

func as(p string, value bool, idx ...int) Assignment {
	return Assignment{Literal: lift.Literal{Predicate: p, Indices: idx}, Value: value}
}

// falsify returns a copy of model with the literal at i set to false.
func falsify(model []Assignment, i int) []Assignment {
	out := append([]Assignment(nil), model...)
	out[i].Value = false
	return out
}

func TestUnifyParameters(t *testing.T) {
	test1 := []Assignment{as("a", true, 0), as("a", true, 1)}
	test2 := []Assignment{as("a", true, 0, 2), as("a", true, 1, 2), as("a", true, 0, 3), as("a", true, 1, 3)}
	test3 := []Assignment{as("a", true, 0), as("a", true, 1), as("b", true, 2), as("b", true, 3)}
	test4 := []Assignment{as("a", true, 0), as("a", true, 1), as("a", true, 2), as("a", true, 3)}

	tests := []struct {
		name    string
		model   []Assignment
		arity   int
		classes int
	}{
		{"single predicate", test1, 2, 1},
		{"single predicate one false", falsify(test1, 1), 2, 2},

		{"binary", test2, 4, 2},
		{"binary one false", falsify(test2, 3), 4, 4},
		{"binary two false", falsify(falsify(test2, 3), 2), 4, 4},
		{"binary three false", falsify(falsify(falsify(test2, 3), 2), 1), 4, 4},

		{"two predicates", test3, 4, 2},
		{"two predicates one false", falsify(test3, 3), 4, 3},
		{"two predicates two false", falsify(falsify(test3, 3), 2), 4, 3},
		{"two predicates three false", falsify(falsify(falsify(test3, 3), 2), 1), 4, 4},

		{"four readings", test4, 4, 1},
		{"four readings one false", falsify(test4, 3), 4, 2},
		{"four readings two false", falsify(falsify(test4, 3), 2), 4, 3},
		{"four readings three false", falsify(falsify(falsify(test4, 3), 2), 1), 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapping := UnifyParameters(tt.model, tt.arity)
			assert.Len(t, mapping, tt.arity)
			assert.Equal(t, tt.classes, Classes(mapping))
		})
	}
}

func TestUnifyParametersClassOrder(t *testing.T) {
	// indices 1 and 3 merge; 0 and 2 are kept apart by a false literal
	model := []Assignment{as("p", false, 0, 2), as("q", true, 1), as("q", true, 3)}
	got := UnifyParameters(model, 4)
	if diff := cmp.Diff([]int{0, 1, 2, 1}, got); diff != "" {
		t.Errorf("mapping mismatch (-want +got):\n%s", diff)
	}
}

func TestUnifyParametersEmptyModel(t *testing.T) {
	if diff := cmp.Diff([]int{0, 1, 2}, UnifyParameters(nil, 3)); diff != "" {
		t.Errorf("mapping mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, UnifyParameters(nil, 0))
	assert.Equal(t, 0, Classes(nil))
}

func TestUnifyParametersIdempotent(t *testing.T) {
	models := [][]Assignment{
		{as("a", true, 0, 2), as("a", true, 1, 2), as("a", true, 0, 3), as("a", true, 1, 3)},
		{as("a", true, 0), as("a", true, 1), as("b", false, 2), as("b", true, 3)},
		{as("a", true, 0), as("a", true, 1), as("a", true, 2), as("a", true, 3)},
	}
	for _, m := range models {
		mapping := UnifyParameters(m, 4)
		n := Classes(mapping)

		remapped := make([]Assignment, 0, len(m))
		seen := make(map[string]bool)
		for _, a := range m {
			r := Assignment{Literal: a.Literal.Remap(mapping), Value: a.Value}
			if k := r.Literal.Key(); !seen[k] {
				seen[k] = true
				remapped = append(remapped, r)
			}
		}
		identity := make([]int, n)
		for i := range identity {
			identity[i] = i
		}
		if diff := cmp.Diff(identity, UnifyParameters(remapped, n)); diff != "" {
			t.Errorf("second pass is not the identity (-want +got):\n%s", diff)
		}
	}
}
