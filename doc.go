// Package lld implements the Low-Level Discovery rule processing core: it
// filters a discovery payload against a user-defined predicate, projects
// named discovery macros onto surviving rows, and drives reconciliation of
// derived monitoring entities against a persistent catalog.
//
// # Pipeline
//
// A single invocation of Orchestrator.Process(ctx, ruleID, value, ts) runs:
//
//	S1 rule gate            exclusive, non-blocking per-rule claim
//	S2 rule loader          host id, key, state, evaltype, formula, lifetime
//	S3 filter loader        conditions, named-expression resolution, macro interpolation
//	S4 macro-path loader    macro -> structured-document path mappings
//	S5 row extractor        parse payload, evaluate filter, collect surviving rows
//	S6 reconciler fan-out   items, triggers, graphs, hosts in fixed order
//	S7 state & writeback    event emission, persisted-error diffing, cache commit
//	S8 teardown             release the rule lock
//
// # Packages
//
//   - internal/lld/filter: Condition, Filter, and the four evaltype evaluators
//   - internal/lld/macropath: macro-to-path mappings and structured-document projection
//   - internal/lld/row: payload parsing and surviving row-set construction
//   - internal/lld/expr: the boolean arithmetic formula evaluator used by evaltype=expression
//   - internal/lld/catalog: read/write interfaces to the persistent rule store
//   - internal/lld/configcache: per-rule exclusion gate and configuration-cache diff application
//   - internal/lld/eventbus: event emission on rule state transitions
//   - internal/lld/reconcile: downstream item/trigger/graph/host reconciler interfaces
//   - internal/lld/macrosub: macro substitution (lifetime, filter interpolation) and the
//     named-expression registry
package lld
