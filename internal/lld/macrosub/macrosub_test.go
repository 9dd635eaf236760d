package macrosub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMacroSource map[int64]map[string]string

func (f fakeMacroSource) HostMacros(_ context.Context, hostID int64) (map[string]string, error) {
	return f[hostID], nil
}

func TestSubstitute_InterpolatesKnownMacro(t *testing.T) {
	source := fakeMacroSource{1: {"{$TIMEOUT}": "30s"}}
	s := New(source)

	out, err := s.Substitute(context.Background(), ModeLifetime, 1, "wait {$TIMEOUT} then retry")
	require.NoError(t, err)
	assert.Equal(t, "wait 30s then retry", out)
}

func TestSubstitute_LeavesUnknownMacroLiteral(t *testing.T) {
	source := fakeMacroSource{1: {}}
	s := New(source)

	out, err := s.Substitute(context.Background(), ModeLLDFilter, 1, "^{$UNKNOWN}$")
	require.NoError(t, err)
	assert.Equal(t, "^{$UNKNOWN}$", out)
}

func TestSubstitute_NoTokensSkipsLookup(t *testing.T) {
	s := New(nil) // nil source: would panic if HostMacros were called
	out, err := s.Substitute(context.Background(), ModeLLDFilter, 1, "^plain$")
	require.NoError(t, err)
	assert.Equal(t, "^plain$", out)
}

type fakeNamedExpressionSource map[string][]string

func (f fakeNamedExpressionSource) Expressions(_ context.Context, name string) ([]string, error) {
	patterns, ok := f[name]
	if !ok {
		return nil, nil
	}
	return patterns, nil
}

func TestRegistry_LookupTrimsAtPrefix(t *testing.T) {
	source := fakeNamedExpressionSource{"srv": {"^srv-"}}
	reg, err := NewRegistry(source, 8)
	require.NoError(t, err)

	patterns, err := reg.Lookup(context.Background(), "@srv")
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.True(t, patterns[0].MatchString("srv-1"))
}

func TestRegistry_LookupUnknownFails(t *testing.T) {
	source := fakeNamedExpressionSource{}
	reg, err := NewRegistry(source, 8)
	require.NoError(t, err)

	_, err = reg.Lookup(context.Background(), "@missing")
	assert.Error(t, err)
}

func TestRegistry_MatchesAny(t *testing.T) {
	source := fakeNamedExpressionSource{"srv": {"^srv-", "^db-"}}
	reg, err := NewRegistry(source, 8)
	require.NoError(t, err)

	ok, err := reg.MatchesAny(context.Background(), "srv", "db-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reg.MatchesAny(context.Background(), "srv", "web-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
