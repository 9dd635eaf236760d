package reconcile

import (
	"context"
	"log/slog"

	"github.com/c360/lld/internal/lld/row"
)

// LoggingReconciler is a stand-in Reconciler for the "items", "triggers",
// "graphs", and "hosts" collaborators spec.md §1 lists as out of scope,
// modeled as narrow interfaces (spec.md §6). It logs the row count it
// was handed and never reports ErrParentHostGone; a deployment wires a
// catalog-backed implementation of Reconciler in its place.
type LoggingReconciler struct {
	name   string
	logger *slog.Logger
}

// NewLoggingReconciler builds a LoggingReconciler identified by name.
func NewLoggingReconciler(name string, logger *slog.Logger) LoggingReconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return LoggingReconciler{name: name, logger: logger}
}

// Name implements Reconciler.
func (r LoggingReconciler) Name() string { return r.name }

// Reconcile implements Reconciler.
func (r LoggingReconciler) Reconcile(_ context.Context, ruleID int64, rows []*row.Row) error {
	r.logger.Debug("reconcile stage", "reconciler", r.name, "rule_id", ruleID, "rows", len(rows))
	return nil
}

var _ Reconciler = LoggingReconciler{}
