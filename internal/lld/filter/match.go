package filter

// Resolver resolves a discovery macro to its per-row value. Row and
// macropath.Set both satisfy this via internal/lld/row's adapter; kept
// as a narrow interface here so filter has no dependency on the row or
// macropath packages (spec.md §4.5's resolver is a pure function of its
// inputs).
type Resolver interface {
	Resolve(macro string) (value string, ok bool)
}

// ResolverFunc adapts a plain function to Resolver.
type ResolverFunc func(macro string) (string, bool)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(macro string) (string, bool) {
	return f(macro)
}

// Match implements the Condition Matcher of spec.md §4.6: resolve the
// condition's macro against row, three-way match the value against the
// condition's compiled alternatives, then map to pass/fail by operator.
func Match(row Resolver, c Condition) bool {
	value, ok := row.Resolve(c.Macro)
	if !ok {
		// Absence maps to fail regardless of operator (§4.6 step 1).
		return false
	}

	matched := c.matchesAny(value)

	switch c.Operator {
	case OpRegexpNotMatch:
		return !matched
	default: // OpRegexpMatch
		return matched
	}
}
