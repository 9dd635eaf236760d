// Package row implements the row extractor spec.md §4.8 describes:
// parsing a discovery payload, resolving each filter-referenced macro
// per row, and evaluating the rule's filter to build the surviving row
// set the reconcilers fan out over.
package row

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/c360/lld/internal/lld/filter"
	"github.com/c360/lld/internal/lld/macropath"
)

// ItemLink is populated lazily by reconcilers once a row is matched to
// a derived monitoring entity; the row extractor always constructs Rows
// with an empty slice.
type ItemLink struct {
	Kind string
	ID   int64
}

// Row owns a subtree of the parsed payload plus the item links
// discovered for it during reconciliation.
type Row struct {
	raw       gjson.Result
	itemLinks []ItemLink
}

// Raw exposes the row's underlying structured-document subtree.
func (r *Row) Raw() gjson.Result { return r.raw }

// ItemLinks returns the item links reconcilers have attached so far.
func (r *Row) ItemLinks() []ItemLink { return r.itemLinks }

// AddItemLink appends a link discovered by a reconciler.
func (r *Row) AddItemLink(l ItemLink) { r.itemLinks = append(r.itemLinks, l) }

// Get resolves macro against the row: first via the macro-path set (a
// structured-document path lookup), falling back to a direct field name
// lookup on the row's own object per spec.md §4.5.
func (r *Row) Get(macro string, paths macropath.Set) (value string, ok bool) {
	if value, ok := paths.Resolve(macro, r.raw); ok {
		return value, true
	}
	field := r.raw.Get(fieldPath(macro))
	if !field.Exists() {
		return "", false
	}
	return field.String(), true
}

// fieldPath escapes a macro name for use as a direct gjson object key
// lookup, since discovery macros commonly contain characters ('{', '#',
// '.', '}') gjson treats as path syntax. Every byte other than an ASCII
// letter, digit, '_' or '-' (or a non-ASCII byte) is backslash-escaped.
func fieldPath(macro string) string {
	var b strings.Builder
	for i := 0; i < len(macro); i++ {
		c := macro[i]
		safe := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-' || c >= 0x80
		if !safe {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// resolver adapts a *Row plus its macro-path set to filter.Resolver.
type resolver struct {
	row   *Row
	paths macropath.Set
}

func (r resolver) Resolve(macro string) (string, bool) {
	return r.row.Get(macro, r.paths)
}

var _ filter.Resolver = resolver{}
