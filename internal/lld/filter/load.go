package filter

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/c360/lld/errors"
	"github.com/c360/lld/internal/lld/catalog"
	"github.com/c360/lld/internal/lld/macrosub"
)

// evalTypeFromInt decodes the catalog's raw evaltype code (spec.md §3).
func evalTypeFromInt(code int) EvalType {
	switch code {
	case 1:
		return EvalAnd
	case 2:
		return EvalOr
	case 3:
		return EvalExpression
	default:
		return EvalAndOr
	}
}

func operatorFromCatalog(op catalog.Operator) Operator {
	if op == catalog.OpRegexpNotMatch {
		return OpRegexpNotMatch
	}
	return OpRegexpMatch
}

// Interpolator substitutes host-scoped macros into a literal filter
// pattern before it is compiled (spec.md §4.3). Satisfied by
// macrosub.Substitutor.
type Interpolator interface {
	Substitute(ctx context.Context, mode macrosub.Mode, hostID int64, text string) (string, error)
}

// NamedExpressionResolver resolves an "@name" condition value to its
// compiled regex alternatives, without interpolating host macros into it
// (spec.md §9's asymmetry). Satisfied by macrosub.Registry.
type NamedExpressionResolver interface {
	Lookup(ctx context.Context, name string) ([]*regexp.Regexp, error)
}

// Loader builds a rule's Filter from the catalog's condition rows.
type Loader struct {
	reader       catalog.ConditionReader
	interpolator Interpolator
	named        NamedExpressionResolver
}

// NewLoader builds a Loader. named may be nil if the deployment never
// uses "@name" condition references.
func NewLoader(reader catalog.ConditionReader, interpolator Interpolator, named NamedExpressionResolver) *Loader {
	return &Loader{reader: reader, interpolator: interpolator, named: named}
}

// Load fetches ruleID's condition rows and compiles them into a Filter
// (spec.md §4.3). A single condition failure aborts the whole load,
// discarding any regexes already compiled for earlier conditions.
func (l *Loader) Load(ctx context.Context, ruleID, hostID int64, evalTypeCode int, formula string) (Filter, error) {
	rows, err := l.reader.Conditions(ctx, ruleID)
	if err != nil {
		return Filter{}, err
	}

	conditions := make([]Condition, 0, len(rows))
	for _, row := range rows {
		regexps, err := l.compile(ctx, hostID, row.Value)
		if err != nil {
			return Filter{}, err
		}
		conditions = append(conditions, Condition{
			ID:       row.ID,
			Macro:    row.Macro,
			Pattern:  row.Value,
			Operator: operatorFromCatalog(row.Operator),
			Regexps:  regexps,
		})
	}

	evalType := evalTypeFromInt(evalTypeCode)
	if evalType == EvalAndOr {
		sort.Slice(conditions, func(i, j int) bool {
			if conditions[i].Macro != conditions[j].Macro {
				return conditions[i].Macro < conditions[j].Macro
			}
			return conditions[i].ID < conditions[j].ID
		})
	}

	return Filter{EvalType: evalType, Formula: formula, Conditions: conditions}, nil
}

// compile resolves a condition value into its compiled regex
// alternatives: a named-expression reference ("@name") is looked up
// without host-macro interpolation; anything else is interpolated then
// compiled as a single literal pattern.
func (l *Loader) compile(ctx context.Context, hostID int64, value string) ([]*regexp.Regexp, error) {
	if strings.HasPrefix(strings.TrimSpace(value), "@") {
		if l.named == nil {
			return nil, errors.ErrUnknownNamedExpression
		}
		return l.named.Lookup(ctx, value)
	}

	pattern := value
	if l.interpolator != nil {
		interpolated, err := l.interpolator.Substitute(ctx, macrosub.ModeLLDFilter, hostID, value)
		if err != nil {
			return nil, err
		}
		pattern = interpolated
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Load", "compile condition pattern")
	}
	return []*regexp.Regexp{re}, nil
}
