package lld

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/lld/internal/lld/catalog"
	"github.com/c360/lld/internal/lld/configcache"
	"github.com/c360/lld/internal/lld/eventbus"
	"github.com/c360/lld/internal/lld/filter"
	"github.com/c360/lld/internal/lld/macropath"
	"github.com/c360/lld/internal/lld/reconcile"
	"github.com/c360/lld/internal/lld/row"
)

func newTestOrchestrator(t *testing.T, cat *catalog.Memory, bus eventbus.Bus) *Orchestrator {
	t.Helper()

	cache, err := configcache.New(64)
	require.NoError(t, err)

	filters := filter.NewLoader(cat, nil, nil)
	macroPaths := macropath.NewLoader(cat)
	extractor := row.New(nil, 0, nil)
	fanout := reconcile.NewFanout(reconcile.NewLoggingReconciler("items", nil))

	return New(cat, cache, filters, macroPaths, extractor, fanout, bus, DefaultConfig(), nil, nil)
}

func TestOrchestrator_RecoversToNormalAndIsIdempotent(t *testing.T) {
	cat := catalog.NewMemory()
	cat.PutRule(catalog.Rule{
		ID:        1,
		HostID:    10,
		Key:       "disc.key",
		State:     catalog.StateNotSupported,
		EvalType:  1, // and
		LastError: "prev",
	})
	cat.PutConditions(1, []catalog.ConditionRow{
		{ID: 1, Macro: "{#NAME}", Value: ".+", Operator: catalog.OpRegexpMatch},
	})

	bus := eventbus.NewMemory()
	o := newTestOrchestrator(t, cat, bus)

	payload := []byte(`[{"{#NAME}": "eth0"}]`)
	ts := time.Now()

	err := o.Process(context.Background(), 1, payload, ts)
	require.NoError(t, err)

	require.Len(t, cat.Updates, 1)
	assert.NotNil(t, cat.Updates[0].State)
	assert.Equal(t, catalog.StateNormal, *cat.Updates[0].State)
	require.NotNil(t, cat.Updates[0].Error)
	assert.Equal(t, "", *cat.Updates[0].Error)

	require.Len(t, bus.Emitted, 1)
	assert.Equal(t, "normal", bus.Emitted[0].State)
	assert.Equal(t, 1, bus.ProcessCalls)
	assert.Equal(t, 1, bus.CleanCalls)

	rule, err := cat.Rule(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, catalog.StateNormal, rule.State)
	assert.Equal(t, "", rule.LastError)

	// Second, immediate invocation with unchanged inputs must not
	// persist another writeback (spec.md §8 scenario 6).
	err = o.Process(context.Background(), 1, payload, ts)
	require.NoError(t, err)
	assert.Len(t, cat.Updates, 1)
	assert.Len(t, bus.Emitted, 1)
}

func TestOrchestrator_RecoversToNormalDespiteRowWarnings(t *testing.T) {
	cat := catalog.NewMemory()
	cat.PutRule(catalog.Rule{
		ID:        1,
		HostID:    10,
		Key:       "disc.key",
		State:     catalog.StateNotSupported,
		EvalType:  1, // and
		LastError: "prev",
	})
	cat.PutConditions(1, []catalog.ConditionRow{
		{ID: 1, Macro: "{#MISSING}", Value: ".+", Operator: catalog.OpRegexpMatch},
	})

	bus := eventbus.NewMemory()
	o := newTestOrchestrator(t, cat, bus)

	// {#MISSING} is referenced by the filter but absent from every row,
	// producing a missing-macro warning without a load-stage failure —
	// recovery must still fire (spec.md §4.8: warnings don't block rows;
	// §4.9 gates the transition on reaching past filter/row extraction).
	payload := []byte(`[{"{#NAME}": "eth0"}]`)
	err := o.Process(context.Background(), 1, payload, time.Now())
	require.NoError(t, err)

	require.Len(t, cat.Updates, 1)
	require.NotNil(t, cat.Updates[0].State)
	assert.Equal(t, catalog.StateNormal, *cat.Updates[0].State)
	require.NotNil(t, cat.Updates[0].Error)
	assert.NotEmpty(t, *cat.Updates[0].Error, "the warning text is still persisted as the row error")

	require.Len(t, bus.Emitted, 1, "state-normal event must fire despite the warning")
	assert.Equal(t, "normal", bus.Emitted[0].State)
}

func TestOrchestrator_MissingRuleAborts(t *testing.T) {
	cat := catalog.NewMemory()
	bus := eventbus.NewMemory()
	o := newTestOrchestrator(t, cat, bus)

	err := o.Process(context.Background(), 999, []byte(`[]`), time.Now())
	require.NoError(t, err)
	assert.Empty(t, cat.Updates)
	assert.Empty(t, bus.Emitted)
}

func TestOrchestrator_LockedRuleDropsInvocation(t *testing.T) {
	cat := catalog.NewMemory()
	cat.PutRule(catalog.Rule{ID: 1, HostID: 10, State: catalog.StateNormal})
	bus := eventbus.NewMemory()
	o := newTestOrchestrator(t, cat, bus)

	require.True(t, o.cache.TryLockRule(1))
	err := o.Process(context.Background(), 1, []byte(`[]`), time.Now())
	require.NoError(t, err)
	assert.Empty(t, cat.Updates, "a contended rule lock must drop the invocation before any writeback")
}

func TestOrchestrator_InvalidPayloadRecordsError(t *testing.T) {
	cat := catalog.NewMemory()
	cat.PutRule(catalog.Rule{ID: 1, HostID: 10, State: catalog.StateNormal})
	bus := eventbus.NewMemory()
	o := newTestOrchestrator(t, cat, bus)

	err := o.Process(context.Background(), 1, []byte(`not json`), time.Now())
	require.NoError(t, err)

	require.Len(t, cat.Updates, 1)
	require.NotNil(t, cat.Updates[0].Error)
	assert.NotEmpty(t, *cat.Updates[0].Error)

	rule, err := cat.Rule(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, catalog.StateNotSupported, rule.State)
}
