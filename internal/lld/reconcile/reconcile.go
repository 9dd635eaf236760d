// Package reconcile implements the fixed-order reconciler fan-out
// spec.md §4.9 describes: items, then triggers, then graphs, then
// hosts, each reconciler able to abort the remainder silently by
// reporting that its parent host disappeared mid-run.
package reconcile

import (
	"context"
	"errors"

	"github.com/c360/lld/internal/lld/row"
)

// ErrParentHostGone is returned by a Reconciler when the host backing
// the rule it is reconciling against no longer exists. Fanout treats
// this as an early, silent abort of the remaining reconcilers — not a
// pipeline failure (spec.md §4.9).
var ErrParentHostGone = errors.New("parent host disappeared")

// Reconciler reconciles one class of derived monitoring entity
// (items, triggers, graphs, hosts) against the surviving row set.
type Reconciler interface {
	Name() string
	Reconcile(ctx context.Context, ruleID int64, rows []*row.Row) error
}

// Fanout runs a fixed, ordered sequence of Reconcilers. Order matters —
// triggers depend on items existing, graphs on triggers, hosts on
// graphs — so this is sequential, not fanned out concurrently, despite
// the package name inherited from spec.md's terminology.
type Fanout struct {
	reconcilers []Reconciler
}

// NewFanout builds a Fanout that runs reconcilers in the given order.
func NewFanout(reconcilers ...Reconciler) *Fanout {
	return &Fanout{reconcilers: reconcilers}
}

// Run invokes every reconciler in order against rows. If a reconciler
// reports ErrParentHostGone, Run stops invoking further reconcilers and
// returns that error to the caller (spec.md §4.9: "aborts the remainder
// silently... but still proceeds to writeback"); the caller is
// responsible for logging it at debug level and treating it as a
// non-fatal abort, not a load-stage failure.
//
// Reconcilers run one at a time, in order — triggers depend on items,
// graphs on triggers, hosts on graphs — so there is nothing to run
// concurrently here; a plain ctx.Err() check between steps is enough to
// honor cancellation.
func (f *Fanout) Run(ctx context.Context, ruleID int64, rows []*row.Row) error {
	for _, r := range f.reconcilers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.Reconcile(ctx, ruleID, rows); err != nil {
			if errors.Is(err, ErrParentHostGone) {
				return ErrParentHostGone
			}
			return err
		}
	}
	return nil
}
