package reconcile

import (
	"context"

	"github.com/c360/lld/internal/lld/row"
)

// FuncReconciler adapts a plain function to Reconciler, used by tests to
// stub items/triggers/graphs/hosts reconcilers.
type FuncReconciler struct {
	NameValue string
	Fn        func(ctx context.Context, ruleID int64, rows []*row.Row) error
}

// Name implements Reconciler.
func (f FuncReconciler) Name() string { return f.NameValue }

// Reconcile implements Reconciler.
func (f FuncReconciler) Reconcile(ctx context.Context, ruleID int64, rows []*row.Row) error {
	if f.Fn == nil {
		return nil
	}
	return f.Fn(ctx, ruleID, rows)
}

var _ Reconciler = FuncReconciler{}
