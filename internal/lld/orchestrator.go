package lld

import (
	"context"
	"log/slog"
	"time"

	"github.com/c360/lld/errors"
	"github.com/c360/lld/internal/lld/catalog"
	"github.com/c360/lld/internal/lld/configcache"
	"github.com/c360/lld/internal/lld/eventbus"
	"github.com/c360/lld/internal/lld/filter"
	"github.com/c360/lld/internal/lld/macropath"
	"github.com/c360/lld/internal/lld/macrosub"
	"github.com/c360/lld/internal/lld/reconcile"
	"github.com/c360/lld/internal/lld/row"
	"github.com/c360/lld/metric"
	"github.com/c360/lld/pkg/timestamp"
)

// Orchestrator executes the S1-S8 discovery pipeline for one rule
// invocation at a time (spec.md §2, §4.9).
type Orchestrator struct {
	catalog    catalog.Catalog
	cache      *configcache.Cache
	filters    *filter.Loader
	macroPaths *macropath.Loader
	extractor  *row.Extractor
	fanout     *reconcile.Fanout
	bus        eventbus.Bus

	lifetimeSub *macrosub.Substitutor

	config  Config
	logger  *slog.Logger
	metrics *orchestratorMetrics
}

// New builds an Orchestrator wiring every collaborator. registry may be
// nil, in which case metrics are disabled.
func New(
	cat catalog.Catalog,
	cache *configcache.Cache,
	filters *filter.Loader,
	macroPaths *macropath.Loader,
	extractor *row.Extractor,
	fanout *reconcile.Fanout,
	bus eventbus.Bus,
	config Config,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		catalog:     cat,
		cache:       cache,
		filters:     filters,
		macroPaths:  macroPaths,
		extractor:   extractor,
		fanout:      fanout,
		bus:         bus,
		lifetimeSub: macrosub.New(cache),
		config:      config,
		logger:      logger.With("component", "lld-orchestrator"),
		metrics:     newOrchestratorMetrics(registry),
	}
}

// Process runs the S1-S8 pipeline for ruleID against value, observed at
// ts. It never returns an error for expected, load-stage-level failures
// (missing rule, contended lock, invalid payload) — those are recorded
// via writeback and logged, matching spec.md §4.9's "jump to the
// error-writeback branch" rather than propagating a Go error to the
// caller. It returns a non-nil error only for a truly unexpected
// (fatal) failure the caller should treat as an operational alarm.
func (o *Orchestrator) Process(ctx context.Context, ruleID int64, value []byte, ts time.Time) error {
	start := time.Now()
	outcome := "ok"
	defer func() {
		if o.metrics != nil {
			o.metrics.processDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		}
	}()

	// S1: Rule Gate.
	if !o.cache.TryLockRule(ruleID) {
		o.logger.Warn("rule locked, dropping value", "rule_id", ruleID)
		o.metrics.observeAbort("rule-locked")
		outcome = "locked"
		return nil
	}
	defer o.cache.UnlockRule(ruleID) // S8

	logger := o.logger.With("rule_id", ruleID)

	// S2: Rule Loader.
	rule, err := o.catalog.Rule(ctx, ruleID)
	if err != nil {
		if err == catalog.ErrRuleNotFound {
			logger.Debug("rule missing, dropping value")
			o.metrics.observeAbort("rule-missing")
			outcome = "missing"
			return nil
		}
		outcome = "error"
		return err
	}
	logger = logger.With("host_id", rule.HostID, "discovery_key", rule.Key)

	lifetime := o.resolveLifetime(ctx, logger, rule)
	o.cache.SetLifetime(rule.ID, lifetime)

	loadErr, hardFailed := o.loadAndProcess(ctx, logger, rule, value)
	if loadErr != nil {
		outcome = "load-error"
	}
	return o.writeback(ctx, logger, rule, loadErr, hardFailed, ts)
}

// loadAndProcess runs S3-S6: filter load, macro-path load, row
// extraction, reconciler fan-out. A failure in filter/macro-path load,
// row extraction, or reconcile (other than reconcile.ErrParentHostGone,
// which is swallowed and logged, spec.md §4.9: "aborts the remainder
// silently... but still proceeds to writeback") is a hard load-stage
// failure and is reported via hardFailed, distinct from the returned
// error text, which also carries row-extraction warnings that must not
// themselves count as a hard failure (spec.md §4.8: "warnings do not
// prevent row acceptance"; §4.9 gates the not_supported→normal
// transition on "reached past filter/row extraction", independent of
// any accompanying warning text).
func (o *Orchestrator) loadAndProcess(ctx context.Context, logger *slog.Logger, rule catalog.Rule, value []byte) (err error, hardFailed bool) {
	f, err := o.filters.Load(ctx, rule.ID, rule.HostID, rule.EvalType, rule.Formula)
	if err != nil {
		logger.Warn("filter load failed", "error", err)
		return err, true
	}

	paths, err := o.macroPaths.Load(ctx, rule.ID)
	if err != nil {
		logger.Warn("macro-path load failed", "error", err)
		return err, true
	}

	result, err := o.extractor.Extract(value, f, paths)
	if err != nil {
		logger.Warn("row extraction failed", "error", err)
		return err, true
	}
	o.metrics.observeRows(len(result.Rows))

	if err := o.fanout.Run(ctx, rule.ID, result.Rows); err != nil {
		if err == reconcile.ErrParentHostGone {
			logger.Debug("parent host disappeared, aborting reconcile fan-out")
			return warningOnlyError(result.Warnings), false
		}
		return err, true
	}

	return warningOnlyError(result.Warnings), false
}

// warningOnlyError converts row-extraction warnings into an error value
// so writeback treats them uniformly with load-stage failures, or
// returns nil when there is nothing to report.
func warningOnlyError(warnings string) error {
	if warnings == "" {
		return nil
	}
	return errors.WrapInvalid(warningsErr(warnings), "Orchestrator", "Process", "row warnings")
}

type warningsErr string

func (w warningsErr) Error() string { return string(w) }

// writeback implements S7: compare the accumulated error to the
// persisted last_error, persist on change, emit a state-normal event and
// clamp state on recovery, then apply the diff to the configuration
// cache exactly once under the rule lock (spec.md §4.9). The
// normal/not_supported transition is gated on hardFailed — whether a
// load-stage failure occurred — not on whether newError is empty, since
// newError also carries non-blocking row-extraction warnings.
func (o *Orchestrator) writeback(ctx context.Context, logger *slog.Logger, rule catalog.Rule, procErr error, hardFailed bool, ts time.Time) error {
	newError := ""
	if procErr != nil {
		newError = procErr.Error()
	}
	newError = catalog.TruncateError(newError, o.config.MaxErrorColumnBytes)

	diff := catalog.ItemDiff{RuleID: rule.ID, UpdatedAt: timestamp.FromUnixMs(timestamp.Now())}
	changed := newError != rule.LastError
	if changed {
		diff.Error = &newError
	}

	recovering := rule.State == catalog.StateNotSupported && !hardFailed
	failing := hardFailed && rule.State == catalog.StateNormal

	switch {
	case recovering:
		state := catalog.StateNormal
		diff.State = &state
		if err := o.emitStateNormal(ctx, rule, ts); err != nil {
			logger.Warn("state-normal event emission failed", "error", err)
		}
	case failing:
		state := catalog.StateNotSupported
		diff.State = &state
	}

	if diff.State == nil && !changed {
		// Nothing to persist; the cached view already matches, so a
		// second, immediate invocation is a no-op (spec.md §8 scenario 6).
		return nil
	}

	if err := o.catalog.UpdateItem(ctx, diff); err != nil {
		logger.Warn("writeback failed", "error", err)
		return err
	}
	o.metrics.observeWriteback(stateLabel(diff.State))

	o.cache.ApplyDiff(diff)
	return nil
}

func stateLabel(s *catalog.State) string {
	if s == nil {
		return "unchanged"
	}
	return s.String()
}

// emitStateNormal publishes the internal state-normal event and flushes
// the event pipeline (spec.md §4.9/§6: "emit... followed by
// process_events() and clean_events()").
func (o *Orchestrator) emitStateNormal(ctx context.Context, rule catalog.Rule, ts time.Time) error {
	if o.bus == nil {
		return nil
	}
	ev := eventbus.Event{
		Source:    "internal",
		Object:    "lld_rule",
		ID:        rule.ID,
		Timestamp: ts,
		State:     "normal",
	}
	if err := o.bus.Emit(ctx, ev); err != nil {
		return err
	}
	if err := o.bus.ProcessEvents(ctx); err != nil {
		return err
	}
	return o.bus.CleanEvents(ctx)
}
