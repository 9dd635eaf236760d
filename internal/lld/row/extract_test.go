package row

import (
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/lld/internal/lld/filter"
	"github.com/c360/lld/internal/lld/macropath"
)

func mustRegexps(t *testing.T, pattern string) []*regexp.Regexp {
	t.Helper()
	re, err := regexp.Compile(pattern)
	require.NoError(t, err)
	return []*regexp.Regexp{re}
}

// Scenario 4: path projection (spec.md §8.4).
func TestExtract_PathProjection(t *testing.T) {
	payload := []byte(`[{"metadata":{"name":"srv-1"}}, {"metadata":{"name":"db-1"}}]`)

	f := filter.Filter{
		EvalType: filter.EvalAnd,
		Conditions: []filter.Condition{
			{ID: 1, Macro: "{#NAME}", Operator: filter.OpRegexpMatch, Regexps: mustRegexps(t, "^srv-")},
		},
	}
	paths := macropath.NewSet([]macropath.MacroPath{{Macro: "{#NAME}", Path: "metadata.name"}})

	e := New(nil, 10, nil)
	result, err := e.Extract(payload, f, paths)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Empty(t, result.Warnings)

	v, ok := result.Rows[0].Get("{#NAME}", paths)
	require.True(t, ok)
	assert.Equal(t, "srv-1", v)
}

// Scenario 5: missing-macro warning (spec.md §8.5).
func TestExtract_MissingMacroWarning(t *testing.T) {
	payload := []byte(`[{"Y":"a"}]`)

	f := filter.Filter{
		EvalType: filter.EvalAnd,
		Conditions: []filter.Condition{
			{ID: 1, Macro: "{#X}", Operator: filter.OpRegexpMatch, Regexps: mustRegexps(t, ".*")},
		},
	}

	e := New(nil, 10, nil)
	result, err := e.Extract(payload, f, macropath.Set{})
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
	assert.Contains(t, result.Warnings, `no value received for macro "{#X}"`)
}

func TestExtract_LegacyDataShape(t *testing.T) {
	payload := []byte(`{"data": [{"A":"x"}]}`)
	f := filter.Filter{EvalType: filter.EvalAnd}

	e := New(nil, 10, nil)
	result, err := e.Extract(payload, f, macropath.Set{})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 1)
}

func TestExtract_NotAnArray(t *testing.T) {
	payload := []byte(`{"foo": "bar"}`)
	f := filter.Filter{EvalType: filter.EvalAnd}

	e := New(nil, 10, nil)
	_, err := e.Extract(payload, f, macropath.Set{})
	assert.Error(t, err)
}

// Round-trip/law: exactly one row survives, preserving the first
// element (spec.md §8).
func TestExtract_FirstMatchWins(t *testing.T) {
	payload := []byte(`[{"macro1":"v1"}, {"macro1":"v2"}]`)
	f := filter.Filter{
		EvalType: filter.EvalAnd,
		Conditions: []filter.Condition{
			{ID: 1, Macro: "macro1", Operator: filter.OpRegexpMatch, Regexps: mustRegexps(t, "^v1$")},
		},
	}

	e := New(nil, 10, nil)
	result, err := e.Extract(payload, f, macropath.Set{})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	v, ok := result.Rows[0].Get("macro1", macropath.Set{})
	require.True(t, ok)
	assert.Equal(t, "v1", v)
}

// Payload order must survive filtering: rows come out in the same
// relative order they were submitted in (spec.md §8, cf. schema
// contract comparisons via cmp.Diff).
func TestExtract_PreservesPayloadOrder(t *testing.T) {
	payload := []byte(`[{"macro1":"v1"}, {"macro1":"v2"}, {"macro1":"v3"}]`)
	f := filter.Filter{
		EvalType: filter.EvalAnd,
		Conditions: []filter.Condition{
			{ID: 1, Macro: "macro1", Operator: filter.OpRegexpMatch, Regexps: mustRegexps(t, "^v")},
		},
	}

	e := New(nil, 10, nil)
	result, err := e.Extract(payload, f, macropath.Set{})
	require.NoError(t, err)

	got := make([]string, len(result.Rows))
	for i, r := range result.Rows {
		v, _ := r.Get("macro1", macropath.Set{})
		got[i] = v
	}
	want := []string{"v1", "v2", "v3"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("row order mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_WarningCapSuppression(t *testing.T) {
	f := filter.Filter{
		EvalType: filter.EvalAnd,
		Conditions: []filter.Condition{
			{ID: 1, Macro: "{#A}", Operator: filter.OpRegexpMatch, Regexps: mustRegexps(t, ".*")},
			{ID: 2, Macro: "{#B}", Operator: filter.OpRegexpMatch, Regexps: mustRegexps(t, ".*")},
			{ID: 3, Macro: "{#C}", Operator: filter.OpRegexpMatch, Regexps: mustRegexps(t, ".*")},
		},
	}
	payload := []byte(`[{}]`)

	e := New(nil, 2, nil)
	result, err := e.Extract(payload, f, macropath.Set{})
	require.NoError(t, err)
	assert.Contains(t, result.Warnings, "1 more warnings suppressed")
}
