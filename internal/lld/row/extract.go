package row

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/lld/errors"
	"github.com/c360/lld/internal/lld/filter"
	"github.com/c360/lld/internal/lld/macropath"
)

// payloadSchema accepts a bare top-level array of objects or the legacy
// {"data": [...]} object shape; Extract checks it with
// gojsonschema.Validate ahead of a hand-rolled walk.
var payloadSchema = gojsonschema.NewStringLoader(`{
	"oneOf": [
		{"type": "array", "items": {"type": "object"}},
		{
			"type": "object",
			"properties": {"data": {"type": "array", "items": {"type": "object"}}},
			"required": ["data"]
		}
	]
}`)

// defaultMaxWarnings is the fallback row-warning accumulation cap
// (spec.md §6 supplement #5) when a caller passes zero.
const defaultMaxWarnings = 10

// Result is the outcome of an Extract call: the surviving row set in
// payload order, plus any accumulated diagnostics.
type Result struct {
	Rows     []*Row
	Warnings string
}

// Extractor parses a discovery payload and builds the surviving row set.
type Extractor struct {
	logger         *slog.Logger
	maxWarnings    int
	expressionEval filter.ExpressionCompiler
}

// New builds an Extractor. maxWarnings <= 0 uses defaultMaxWarnings.
// compile may be nil, in which case filter.DefaultCompiler is used for
// "expression" evaltype filters.
func New(logger *slog.Logger, maxWarnings int, compile filter.ExpressionCompiler) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if maxWarnings <= 0 {
		maxWarnings = defaultMaxWarnings
	}
	return &Extractor{logger: logger, maxWarnings: maxWarnings, expressionEval: compile}
}

// Extract parses value as a structured document (top-level array, or the
// legacy {"data": [...]} object shape), resolves each of f's referenced
// macros per row, evaluates f, and returns the surviving rows in payload
// order (spec.md §4.8).
func (e *Extractor) Extract(value []byte, f filter.Filter, paths macropath.Set) (Result, error) {
	if !gjson.ValidBytes(value) {
		return Result{}, errors.ErrNotAnArray
	}

	shapeResult, err := gojsonschema.Validate(payloadSchema, gojsonschema.NewBytesLoader(value))
	if err != nil || !shapeResult.Valid() {
		return Result{}, errors.ErrNotAnArray
	}

	parsed := gjson.ParseBytes(value)
	elements, legacyShape, ok := arrayElements(parsed)
	if !ok {
		return Result{}, errors.ErrNotAnArray
	}
	if legacyShape {
		e.logger.Warn("deprecated payload shape", "deprecated_payload_shape", true)
	}

	referenced := f.ReferencedMacros()
	warnings := make([]string, 0, e.maxWarnings)
	suppressed := 0

	rows := make([]*Row, 0, len(elements))
	for _, elem := range elements {
		if !elem.IsObject() {
			continue
		}
		r := &Row{raw: elem}
		res := resolver{row: r, paths: paths}

		for _, macro := range referenced {
			if _, ok := res.Resolve(macro); !ok {
				msg := missingMacroWarning(macro, paths)
				if len(warnings) < e.maxWarnings {
					warnings = append(warnings, msg)
				} else {
					suppressed++
				}
			}
		}

		pass, err := filter.Evaluate(f, res, e.expressionEval)
		if err != nil {
			return Result{}, err
		}
		if pass {
			rows = append(rows, r)
		}
	}

	warningText := strings.Join(warnings, "; ")
	if suppressed > 0 {
		if warningText != "" {
			warningText += "; "
		}
		warningText += fmt.Sprintf("... %d more warnings suppressed", suppressed)
	}

	return Result{Rows: rows, Warnings: warningText}, nil
}

// arrayElements returns parsed's top-level array elements, accepting
// both a bare top-level array and the legacy {"data": [...]} object
// shape. legacyShape reports whether the {"data": [...]} form was used.
// ok is false if neither applies.
func arrayElements(parsed gjson.Result) (elements []gjson.Result, legacyShape bool, ok bool) {
	if parsed.IsArray() {
		return parsed.Array(), false, true
	}
	if parsed.IsObject() {
		data := parsed.Get("data")
		if data.Exists() && data.IsArray() {
			return data.Array(), true, true
		}
	}
	return nil, false, false
}

func missingMacroWarning(macro string, paths macropath.Set) string {
	for _, m := range paths.Macros() {
		if m == macro {
			return fmt.Sprintf("no value received for macro %q (path-mapped)", macro)
		}
	}
	return fmt.Sprintf("no value received for macro %q (field lookup)", macro)
}
