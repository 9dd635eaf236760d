package lld

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/lld/internal/lld/catalog"
)

func TestParseLifetime(t *testing.T) {
	cases := []struct {
		spec string
		want time.Duration
	}{
		{"30", 30 * time.Second},
		{"30s", 30 * time.Second},
		{"5m", 5 * time.Minute},
		{"2h", 2 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"2w", 2 * 7 * 24 * time.Hour},
	}
	for _, tc := range cases {
		got, err := parseLifetime(tc.spec)
		require.NoError(t, err, tc.spec)
		assert.Equal(t, tc.want, got, tc.spec)
	}
}

func TestParseLifetime_Invalid(t *testing.T) {
	for _, spec := range []string{"", "abc", "5x", "-5d"} {
		_, err := parseLifetime(spec)
		assert.Error(t, err, spec)
	}
}

func TestOrchestrator_ResolveLifetime_SubstitutesAndParses(t *testing.T) {
	cat := catalog.NewMemory()
	o := newTestOrchestrator(t, cat, nil)
	o.cache.PutHostMacros(10, map[string]string{"{$LLD_LIFETIME}": "14d"})

	rule := catalog.Rule{ID: 1, HostID: 10, LifetimeSpec: "{$LLD_LIFETIME}"}
	got := o.resolveLifetime(context.Background(), slog.Default(), rule)
	assert.Equal(t, 14*24*time.Hour, got)
}

func TestOrchestrator_ResolveLifetime_InvalidClamps(t *testing.T) {
	cat := catalog.NewMemory()
	o := newTestOrchestrator(t, cat, nil)

	rule := catalog.Rule{ID: 1, HostID: 10, LifetimeSpec: "not-a-duration"}
	got := o.resolveLifetime(context.Background(), slog.Default(), rule)
	assert.Equal(t, o.config.LifetimeMaxClamp, got)
}

func TestOrchestrator_ResolveLifetime_ClampsOverlong(t *testing.T) {
	cat := catalog.NewMemory()
	o := newTestOrchestrator(t, cat, nil)

	rule := catalog.Rule{ID: 1, HostID: 10, LifetimeSpec: "99999d"}
	got := o.resolveLifetime(context.Background(), slog.Default(), rule)
	assert.Equal(t, o.config.LifetimeMaxClamp, got)
}

func TestOrchestrator_Process_SetsCachedLifetime(t *testing.T) {
	cat := catalog.NewMemory()
	cat.PutRule(catalog.Rule{ID: 1, HostID: 10, State: catalog.StateNormal, LifetimeSpec: "3d"})

	o := newTestOrchestrator(t, cat, nil)
	require.NoError(t, o.Process(context.Background(), 1, []byte(`[]`), time.Now()))

	meta, ok := o.cache.GetItem(1)
	require.True(t, ok)
	assert.Equal(t, 3*24*time.Hour, meta.Lifetime)
}
