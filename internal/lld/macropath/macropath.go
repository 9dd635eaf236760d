// Package macropath implements the macro-to-path loader spec.md §4.4
// describes: mapping a discovery-rule macro (e.g. {#FS.NAME}) to a
// structured-document path expression evaluated against each raw
// discovery row, grounded on the gjson path-resolution style of
// sashu2310-streamgate's attribute filter.
package macropath

import (
	"context"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/c360/lld/errors"
	"github.com/c360/lld/internal/lld/catalog"
)

// MacroPath binds a discovery macro to the path expression that
// resolves its value out of a raw row.
type MacroPath struct {
	Macro string
	Path  string
}

// Set is a rule's macro-path mappings, sorted by Macro ascending so
// Resolve can binary-search (spec.md §4.4's "processed in macro order").
type Set struct {
	paths []MacroPath
}

// NewSet builds a Set from paths, sorting a defensive copy by macro.
func NewSet(paths []MacroPath) Set {
	sorted := append([]MacroPath(nil), paths...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Macro < sorted[j].Macro })
	return Set{paths: sorted}
}

// Macros returns the set's macros in sorted order.
func (s Set) Macros() []string {
	out := make([]string, len(s.paths))
	for i, p := range s.paths {
		out[i] = p.Macro
	}
	return out
}

// Len reports the number of macro-path mappings.
func (s Set) Len() int { return len(s.paths) }

// Resolve evaluates the path bound to macro against row, returning the
// scalar string value gjson finds there. ok is false when the macro has
// no binding in the set, or the path resolves to nothing in row
// (spec.md §5's "absent" case, distinct from a present-but-empty value).
func (s Set) Resolve(macro string, row gjson.Result) (value string, ok bool) {
	idx := sort.Search(len(s.paths), func(i int) bool { return s.paths[i].Macro >= macro })
	if idx >= len(s.paths) || s.paths[idx].Macro != macro {
		return "", false
	}
	result := row.Get(s.paths[idx].Path)
	if !result.Exists() {
		return "", false
	}
	return result.String(), true
}

// Loader fetches and validates a rule's macro-path mappings.
type Loader struct {
	reader catalog.MacroPathReader
}

// NewLoader builds a Loader over reader.
func NewLoader(reader catalog.MacroPathReader) *Loader {
	return &Loader{reader: reader}
}

// Load fetches ruleID's macro-path rows, validates each path expression
// is non-empty and syntactically usable by gjson, and returns them as a
// sorted Set. A malformed path fails the whole rule per spec.md §4.4:
// "a rule with an unusable macro-path mapping cannot produce any rows."
func (l *Loader) Load(ctx context.Context, ruleID int64) (Set, error) {
	rows, err := l.reader.MacroPaths(ctx, ruleID)
	if err != nil {
		return Set{}, err
	}

	paths := make([]MacroPath, 0, len(rows))
	for _, row := range rows {
		if err := validatePath(row.Path); err != nil {
			return Set{}, errors.WrapInvalid(err, "Loader", "Load", "macro path for "+row.Macro)
		}
		paths = append(paths, MacroPath{Macro: row.Macro, Path: row.Path})
	}
	return NewSet(paths), nil
}

// validatePath rejects paths gjson cannot address at all. gjson has no
// pre-flight parse step, so this checks the minimal well-formedness
// spec.md §4.4 requires: non-empty, and balanced query brackets.
func validatePath(path string) error {
	if path == "" {
		return errors.ErrBadPath
	}
	depth := 0
	for _, r := range path {
		switch r {
		case '#', '(':
			// gjson query/array-filter openers; only '(' needs balancing
			if r == '(' {
				depth++
			}
		case ')':
			depth--
			if depth < 0 {
				return errors.ErrBadPath
			}
		}
	}
	if depth != 0 {
		return errors.ErrBadPath
	}
	return nil
}
