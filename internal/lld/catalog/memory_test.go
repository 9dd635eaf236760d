package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_RuleNotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.Rule(context.Background(), 1)
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestMemory_UpdateItemAppliesDiff(t *testing.T) {
	m := NewMemory()
	m.PutRule(Rule{ID: 1, State: StateNormal, LastError: ""})

	state := StateNotSupported
	errText := "boom"
	require.NoError(t, m.UpdateItem(context.Background(), ItemDiff{RuleID: 1, State: &state, Error: &errText}))

	rule, err := m.Rule(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, StateNotSupported, rule.State)
	assert.Equal(t, "boom", rule.LastError)
	assert.Len(t, m.Updates, 1)
}

func TestMemory_ConditionsAndMacroPathsRoundTrip(t *testing.T) {
	m := NewMemory()
	m.PutConditions(1, []ConditionRow{{ID: 1, Macro: "{#A}", Value: ".*", Operator: OpRegexpMatch}})
	m.PutMacroPaths(1, []MacroPathRow{{Macro: "{#A}", Path: "a"}})

	conditions, err := m.Conditions(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, conditions, 1)

	paths, err := m.MacroPaths(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, paths, 1)
}
