// Package configcache implements the per-rule exclusion gate and the
// process-wide configuration cache spec.md §5/§6 describe: a
// non-blocking try-acquire lock per rule id, and a read-mostly cache of
// item metadata, host macros, and named expressions mutated by a single
// diff-apply per invocation.
package configcache

import "sync"

// Gate is the Rule Gate of spec.md §4.1/§9: exclusive, per-rule,
// non-blocking. Grounded on the teacher's sync.Map-backed test-and-set
// pattern rather than a mutex map, so lock/unlock never allocates for an
// already-seen rule id.
type Gate struct {
	locked sync.Map // map[int64]struct{}
}

// NewGate returns an empty Gate.
func NewGate() *Gate {
	return &Gate{}
}

// TryLock attempts to acquire exclusive access to ruleID. Returns false
// immediately on contention — callers must not block or retry
// (spec.md §5: "the losing worker abandons the call").
func (g *Gate) TryLock(ruleID int64) bool {
	_, loaded := g.locked.LoadOrStore(ruleID, struct{}{})
	return !loaded
}

// Unlock releases ruleID, whoever holds it. It is a no-op when ruleID
// is not locked.
func (g *Gate) Unlock(ruleID int64) {
	g.locked.Delete(ruleID)
}
