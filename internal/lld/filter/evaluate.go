package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/c360/lld/internal/lld/expr"
)

// ExpressionEvaluator is the narrow arithmetic-evaluator collaborator of
// spec.md §6, satisfied by internal/lld/expr.Program.
type ExpressionEvaluator interface {
	Evaluate() (bool, error)
}

// ExpressionCompiler compiles a substituted formula buffer into an
// ExpressionEvaluator. Satisfied by expr.Compile.
type ExpressionCompiler func(formula string) (ExpressionEvaluator, error)

// DefaultCompiler wraps internal/lld/expr.Compile for use as an
// ExpressionCompiler.
func DefaultCompiler(formula string) (ExpressionEvaluator, error) {
	return expr.Compile(formula)
}

// Evaluate dispatches on f.EvalType (spec.md §4.7). row resolves macros
// for Match; compile is used only when EvalType is EvalExpression — pass
// nil to use DefaultCompiler.
func Evaluate(f Filter, row Resolver, compile ExpressionCompiler) (bool, error) {
	if compile == nil {
		compile = DefaultCompiler
	}

	switch f.EvalType {
	case EvalAnd:
		return evaluateAnd(f, row), nil
	case EvalOr:
		return evaluateOr(f, row), nil
	case EvalExpression:
		return evaluateExpression(f, row, compile)
	default: // EvalAndOr
		return evaluateAndOr(f, row), nil
	}
}

func evaluateAnd(f Filter, row Resolver) bool {
	for _, c := range f.Conditions {
		if !Match(row, c) {
			return false
		}
	}
	return true
}

func evaluateOr(f Filter, row Resolver) bool {
	for _, c := range f.Conditions {
		if Match(row, c) {
			return true
		}
	}
	return false
}

// evaluateAndOr implements spec.md §4.7's and_or combinator: conditions
// are grouped by macro (Conditions must already be sorted by macro, see
// the Loader), disjunctively combined within a group, and the groups are
// conjoined.
func evaluateAndOr(f Filter, row Resolver) bool {
	if len(f.Conditions) == 0 {
		return true
	}

	accumulator := true
	currentMacro := f.Conditions[0].Macro
	groupResult := false

	for i, c := range f.Conditions {
		if i > 0 && c.Macro != currentMacro {
			if !groupResult {
				return false
			}
			accumulator = accumulator && groupResult
			currentMacro = c.Macro
			groupResult = false
		}
		if Match(row, c) {
			groupResult = true
		}
	}

	// Conjoin the final group's result.
	if !groupResult {
		return false
	}
	return accumulator && groupResult
}

// tokenPrefix and tokenSuffix bracket a condition id inside Filter.Formula,
// e.g. "{100}".
const (
	tokenPrefix = "{"
	tokenSuffix = "}"
)

// evaluateExpression substitutes every occurrence of "{id}" in the
// formula with the condition's pass/fail as a boolean literal, then
// hands the buffer to the external evaluator. expr-lang type-checks
// "and"/"or"/"not" operands at compile time, so a formula like
// "{100} and not {101}" needs true/false substituted in, not 1/0.
func evaluateExpression(f Filter, row Resolver, compile ExpressionCompiler) (bool, error) {
	buffer := f.Formula

	for _, c := range f.Conditions {
		token := tokenPrefix + strconv.FormatUint(c.ID, 10) + tokenSuffix
		buffer = strings.ReplaceAll(buffer, token, substitutionFor(Match(row, c)))
	}

	evaluator, err := compile(buffer)
	if err != nil {
		return false, fmt.Errorf("filter expression: %w", err)
	}
	return evaluator.Evaluate()
}

// substitutionFor renders a condition's pass/fail as the boolean literal
// expr-lang expects as an operand to "and"/"or"/"not".
func substitutionFor(pass bool) string {
	if pass {
		return "true"
	}
	return "false"
}
