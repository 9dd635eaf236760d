package catalog

import (
	"context"
	"sync"
)

// Memory is an in-memory Catalog used by tests, grounded on the
// teacher's kv_test_helpers.go pattern of hand-rolled fakes for the
// component's external collaborators.
type Memory struct {
	mu         sync.Mutex
	rules      map[int64]Rule
	conditions map[int64][]ConditionRow
	macroPaths map[int64][]MacroPathRow
	Updates    []ItemDiff
}

// NewMemory returns an empty Memory catalog.
func NewMemory() *Memory {
	return &Memory{
		rules:      make(map[int64]Rule),
		conditions: make(map[int64][]ConditionRow),
		macroPaths: make(map[int64][]MacroPathRow),
	}
}

// PutRule registers (or replaces) a rule row.
func (m *Memory) PutRule(r Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[r.ID] = r
}

// PutConditions registers a rule's condition rows.
func (m *Memory) PutConditions(ruleID int64, rows []ConditionRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conditions[ruleID] = rows
}

// PutMacroPaths registers a rule's macro-path rows.
func (m *Memory) PutMacroPaths(ruleID int64, rows []MacroPathRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.macroPaths[ruleID] = rows
}

// Rule implements RuleReader.
func (m *Memory) Rule(_ context.Context, ruleID int64) (Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[ruleID]
	if !ok {
		return Rule{}, ErrRuleNotFound
	}
	return r, nil
}

// Conditions implements ConditionReader.
func (m *Memory) Conditions(_ context.Context, ruleID int64) ([]ConditionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ConditionRow(nil), m.conditions[ruleID]...), nil
}

// MacroPaths implements MacroPathReader.
func (m *Memory) MacroPaths(_ context.Context, ruleID int64) ([]MacroPathRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MacroPathRow(nil), m.macroPaths[ruleID]...), nil
}

// UpdateItem implements ItemWriter, recording the diff and applying the
// state/error onto the stored rule so a second Process call observes it.
func (m *Memory) UpdateItem(_ context.Context, diff ItemDiff) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Updates = append(m.Updates, diff)

	rule, ok := m.rules[diff.RuleID]
	if !ok {
		return ErrRuleNotFound
	}
	if diff.State != nil {
		rule.State = *diff.State
	}
	if diff.Error != nil {
		rule.LastError = *diff.Error
	}
	m.rules[diff.RuleID] = rule
	return nil
}
