package macrosub

import (
	"context"
	"regexp"
	"strings"

	"github.com/hashicorp/golang-lru/v2"

	"github.com/c360/lld/errors"
)

// NamedExpressionSource resolves a global named regular expression
// (spec.md §4.3's "@name" condition values) into its raw pattern
// alternatives. Implemented by internal/lld/configcache.Cache
// (Expressions), which cmd/lld-worker passes to NewRegistry.
type NamedExpressionSource interface {
	Expressions(ctx context.Context, name string) ([]string, error)
}

// Registry compiles and caches named-expression lookups, grounded on
// pkg/cache's LRU strategy but specialized to compiled *regexp.Regexp
// slices since golang-lru's typed cache needs no eviction callback here.
type Registry struct {
	source NamedExpressionSource
	cache  *lru.Cache[string, []*regexp.Regexp]
}

// NewRegistry builds a Registry backed by source, caching up to size
// distinct named expressions.
func NewRegistry(source NamedExpressionSource, size int) (*Registry, error) {
	if size <= 0 {
		size = 128
	}
	cache, err := lru.New[string, []*regexp.Regexp](size)
	if err != nil {
		return nil, errors.WrapFatal(err, "Registry", "NewRegistry", "allocate cache")
	}
	return &Registry{source: source, cache: cache}, nil
}

// Lookup resolves name (with or without its leading "@") to its compiled
// regex alternatives. A rule value matches the named expression if it
// matches ANY alternative (spec.md §4.3).
func (r *Registry) Lookup(ctx context.Context, name string) ([]*regexp.Regexp, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(name), "@")

	if compiled, ok := r.cache.Get(trimmed); ok {
		return compiled, nil
	}

	raw, err := r.source.Expressions(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.ErrUnknownNamedExpression
	}

	compiled := make([]*regexp.Regexp, 0, len(raw))
	for _, pattern := range raw {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Registry", "Lookup", "compile named expression "+trimmed)
		}
		compiled = append(compiled, re)
	}

	r.cache.Add(trimmed, compiled)
	return compiled, nil
}

// MatchesAny reports whether s matches at least one of the registry's
// compiled alternatives for name.
func (r *Registry) MatchesAny(ctx context.Context, name, s string) (bool, error) {
	patterns, err := r.Lookup(ctx, name)
	if err != nil {
		return false, err
	}
	for _, re := range patterns {
		if re.MatchString(s) {
			return true, nil
		}
	}
	return false, nil
}
