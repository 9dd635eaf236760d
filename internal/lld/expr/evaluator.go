// Package expr adapts the expr-lang/expr engine to the narrow "generic
// numeric boolean expression calculator" collaborator that spec.md §6
// treats as external to the LLD core. evaltype=expression replaces every
// {id} placeholder with the condition's pass/fail as the literal true or
// false (no padding, so the buffer length changes) and hands the
// resulting ASCII buffer to this evaluator.
package expr

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// epsilon mirrors the project's double_compare equality tolerance
// referenced by spec.md §4.7.
const epsilon = 1e-6

// Program is a compiled boolean/arithmetic formula ready for repeated
// evaluation against literal (already-substituted) buffers.
type Program struct {
	source  string
	program *vm.Program
}

// Compile compiles an ASCII boolean/arithmetic formula. The formula
// contains no free variables at this point — every {id} placeholder has
// already been substituted with true/false by the caller.
func Compile(formula string) (*Program, error) {
	program, err := expr.Compile(formula)
	if err != nil {
		return nil, fmt.Errorf("compile expression %q: %w", formula, err)
	}
	return &Program{source: formula, program: program}, nil
}

// Evaluate runs the compiled formula and reports pass iff the numeric
// result is not equal to zero (doubleEqual), matching spec.md §4.7's
// "double_compare equality" rule. A boolean result is treated as 1/0.
func (p *Program) Evaluate() (bool, error) {
	out, err := expr.Run(p.program, nil)
	if err != nil {
		return false, fmt.Errorf("evaluate expression %q: %w", p.source, err)
	}

	switch v := out.(type) {
	case bool:
		return v, nil
	case int:
		return !doubleEqual(float64(v), 0), nil
	case int64:
		return !doubleEqual(float64(v), 0), nil
	case float64:
		return !doubleEqual(v, 0), nil
	default:
		return false, fmt.Errorf("expression %q produced non-numeric result %T", p.source, out)
	}
}

// Eval is a convenience one-shot compile-and-run, used by callers (e.g.
// tests) that do not need to cache the compiled program across rows.
func Eval(formula string) (bool, error) {
	program, err := Compile(formula)
	if err != nil {
		return false, err
	}
	return program.Evaluate()
}

// doubleEqual reports whether a and b are equal within the project's
// standard floating-point tolerance.
func doubleEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}
