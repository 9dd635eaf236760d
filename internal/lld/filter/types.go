// Package filter implements the LLD filter data model and its four
// evaltype evaluators (and, or, and_or, expression).
package filter

import "regexp"

// Operator is a condition's comparison operator.
type Operator int

const (
	// OpRegexpMatch passes when the resolved macro value matches the
	// condition's compiled pattern.
	OpRegexpMatch Operator = iota
	// OpRegexpNotMatch passes when the resolved macro value does not
	// match the condition's compiled pattern.
	OpRegexpNotMatch
)

func (o Operator) String() string {
	if o == OpRegexpNotMatch {
		return "regexp-not-match"
	}
	return "regexp-match"
}

// EvalType selects how condition results compose into a filter result.
type EvalType int

const (
	// EvalAndOr groups conditions by macro, disjunctively within a group
	// and conjunctively across groups.
	EvalAndOr EvalType = iota
	// EvalAnd requires every condition to pass.
	EvalAnd
	// EvalOr requires at least one condition to pass.
	EvalOr
	// EvalExpression evaluates Filter.Formula as a boolean arithmetic
	// expression over per-condition pass/fail substitutions.
	EvalExpression
)

func (e EvalType) String() string {
	switch e {
	case EvalAnd:
		return "and"
	case EvalOr:
		return "or"
	case EvalExpression:
		return "expression"
	default:
		return "and_or"
	}
}

// Condition is a single (macro, pattern, operator) predicate. Regexps holds
// the resolved regular-expression alternatives: a single element for a
// literal, macro-interpolated pattern, or one-or-more for a pattern that
// referenced a named global expression set (spec.md §3, §4.3).
type Condition struct {
	ID       uint64
	Macro    string
	Pattern  string
	Operator Operator
	Regexps  []*regexp.Regexp
}

// matchesAny reports whether s matches any of the condition's compiled
// alternatives, case-sensitively.
func (c Condition) matchesAny(s string) bool {
	for _, re := range c.Regexps {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Filter is the (evaltype, expression, conditions) triple of spec.md §3.
// Under EvalAndOr, Conditions must be sorted by (Macro, ID) — see
// DESIGN.md's resolution of the Open Question in spec.md §9.
type Filter struct {
	EvalType   EvalType
	Formula    string
	Conditions []Condition
}

// ReferencedMacros returns the distinct macros this filter's conditions
// resolve against, in condition order. Used by the row extractor to warn
// about macros that cannot be resolved in a given row (spec.md §4.8).
func (f Filter) ReferencedMacros() []string {
	seen := make(map[string]struct{}, len(f.Conditions))
	macros := make([]string, 0, len(f.Conditions))
	for _, c := range f.Conditions {
		if _, ok := seen[c.Macro]; ok {
			continue
		}
		seen[c.Macro] = struct{}{}
		macros = append(macros, c.Macro)
	}
	return macros
}
