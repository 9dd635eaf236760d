package filter

import (
	"math/rand"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCompile(t *testing.T, pattern string) []*regexp.Regexp {
	t.Helper()
	re, err := regexp.Compile(pattern)
	require.NoError(t, err)
	return []*regexp.Regexp{re}
}

func rowOf(t *testing.T, fields map[string]string) ResolverFunc {
	t.Helper()
	return func(macro string) (string, bool) {
		v, ok := fields[macro]
		return v, ok
	}
}

// Scenario 1: AND all-match (spec.md §8.1).
func TestEvaluate_AndAllMatch(t *testing.T) {
	f := Filter{
		EvalType: EvalAnd,
		Conditions: []Condition{
			{ID: 1, Macro: "A", Operator: OpRegexpMatch, Regexps: mustCompile(t, "^x$")},
			{ID: 2, Macro: "B", Operator: OpRegexpMatch, Regexps: mustCompile(t, "^y$")},
		},
	}

	pass, err := Evaluate(f, rowOf(t, map[string]string{"A": "x", "B": "y"}), nil)
	require.NoError(t, err)
	assert.True(t, pass)

	pass, err = Evaluate(f, rowOf(t, map[string]string{"A": "x", "B": "z"}), nil)
	require.NoError(t, err)
	assert.False(t, pass)
}

// Scenario 2: AND/OR grouping (spec.md §8.2).
func TestEvaluate_AndOrGrouping(t *testing.T) {
	f := Filter{
		EvalType: EvalAndOr,
		Conditions: []Condition{
			{ID: 1, Macro: "A", Operator: OpRegexpMatch, Regexps: mustCompile(t, "^1$")},
			{ID: 2, Macro: "A", Operator: OpRegexpMatch, Regexps: mustCompile(t, "^2$")},
			{ID: 3, Macro: "B", Operator: OpRegexpMatch, Regexps: mustCompile(t, "^z$")},
		},
	}

	tests := []struct {
		row  map[string]string
		want bool
	}{
		{map[string]string{"A": "1", "B": "z"}, true},
		{map[string]string{"A": "2", "B": "z"}, true},
		{map[string]string{"A": "3", "B": "z"}, false},
		{map[string]string{"A": "1", "B": "q"}, false},
	}
	for _, tc := range tests {
		got, err := Evaluate(f, rowOf(t, tc.row), nil)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "row %v", tc.row)
	}
}

// and_or is invariant under permutation of conditions within the same
// macro group (spec.md §8, universal invariant).
func TestEvaluate_AndOrPermutationInvariant(t *testing.T) {
	base := []Condition{
		{ID: 1, Macro: "A", Operator: OpRegexpMatch, Regexps: mustCompile(t, "^1$")},
		{ID: 2, Macro: "A", Operator: OpRegexpMatch, Regexps: mustCompile(t, "^2$")},
		{ID: 3, Macro: "A", Operator: OpRegexpMatch, Regexps: mustCompile(t, "^3$")},
	}
	row := rowOf(t, map[string]string{"A": "2"})

	want, err := Evaluate(Filter{EvalType: EvalAndOr, Conditions: base}, row, nil)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := append([]Condition(nil), base...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got, err := Evaluate(Filter{EvalType: EvalAndOr, Conditions: shuffled}, row, nil)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

// Scenario 3: expression mode (spec.md §8.3).
func TestEvaluate_Expression(t *testing.T) {
	f := Filter{
		EvalType: EvalExpression,
		Formula:  "{100} and not {101}",
		Conditions: []Condition{
			{ID: 100, Macro: "A", Operator: OpRegexpMatch, Regexps: mustCompile(t, "^yes$")},
			{ID: 101, Macro: "B", Operator: OpRegexpMatch, Regexps: mustCompile(t, "^yes$")},
		},
	}

	pass, err := Evaluate(f, rowOf(t, map[string]string{"A": "yes", "B": "no"}), nil)
	require.NoError(t, err)
	assert.True(t, pass)

	pass, err = Evaluate(f, rowOf(t, map[string]string{"A": "yes", "B": "yes"}), nil)
	require.NoError(t, err)
	assert.False(t, pass)
}

func TestEvaluate_Or(t *testing.T) {
	f := Filter{
		EvalType: EvalOr,
		Conditions: []Condition{
			{ID: 1, Macro: "A", Operator: OpRegexpMatch, Regexps: mustCompile(t, "^x$")},
			{ID: 2, Macro: "B", Operator: OpRegexpMatch, Regexps: mustCompile(t, "^y$")},
		},
	}

	pass, err := Evaluate(f, rowOf(t, map[string]string{"A": "no", "B": "y"}), nil)
	require.NoError(t, err)
	assert.True(t, pass)

	pass, err = Evaluate(f, rowOf(t, map[string]string{"A": "no", "B": "no"}), nil)
	require.NoError(t, err)
	assert.False(t, pass)
}

func TestMatch_AbsentMacroFails(t *testing.T) {
	c := Condition{Macro: "A", Operator: OpRegexpMatch, Regexps: mustCompile(t, ".*")}
	assert.False(t, Match(rowOf(t, map[string]string{}), c))
}

func TestMatch_NotMatchOperatorNegates(t *testing.T) {
	c := Condition{Macro: "A", Operator: OpRegexpNotMatch, Regexps: mustCompile(t, "^x$")}
	assert.True(t, Match(rowOf(t, map[string]string{"A": "y"}), c))
	assert.False(t, Match(rowOf(t, map[string]string{"A": "x"}), c))
}

func TestFilter_ReferencedMacros(t *testing.T) {
	f := Filter{Conditions: []Condition{
		{Macro: "A"}, {Macro: "B"}, {Macro: "A"},
	}}
	assert.Equal(t, []string{"A", "B"}, f.ReferencedMacros())
}
