// Package worker contains the background consumers: snapshot export and the
// recurring sweep loop.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/export"
)

// DashboardBuilder builds the aggregated view the snapshot flattens.
type DashboardBuilder interface {
	Build(ctx context.Context, accountID int64, month core.MonthKey, currency core.CurrencyCode) (*core.Dashboard, error)
}

// AccountDirectory resolves account identity for the exported row.
type AccountDirectory interface {
	Account(ctx context.Context, accountID int64) (email string, preferred core.CurrencyCode, err error)
}

// SnapshotWorker turns snapshot requests into exported rows. Each request is
// rebuilt from scratch so the export always reflects the ledger at handling
// time, not at publish time.
type SnapshotWorker struct {
	dashboards DashboardBuilder
	accounts   AccountDirectory
	writer     export.SnapshotWriter
}

func NewSnapshotWorker(dashboards DashboardBuilder, accounts AccountDirectory, writer export.SnapshotWriter) *SnapshotWorker {
	return &SnapshotWorker{
		dashboards: dashboards,
		accounts:   accounts,
		writer:     writer,
	}
}

// HandleSnapshotRequest processes one snapshot request message.
func (w *SnapshotWorker) HandleSnapshotRequest(ctx context.Context, msg *amqp.SnapshotRequestMessage) error {
	month, err := core.ParseMonthKey(msg.Month)
	if err != nil {
		return fmt.Errorf("snapshot month %q: %w", msg.Month, err)
	}

	email, _, err := w.accounts.Account(ctx, msg.AccountID)
	if err != nil {
		return fmt.Errorf("resolve account %d: %w", msg.AccountID, err)
	}

	dashboard, err := w.dashboards.Build(ctx, msg.AccountID, month, "")
	if err != nil {
		return fmt.Errorf("build dashboard for snapshot: %w", err)
	}

	snap := export.MonthlySnapshot{
		AccountEmail:    email,
		Month:           dashboard.Month,
		Currency:        dashboard.Currency,
		ActualIncome:    dashboard.ActualIncome.StringFixed(2),
		ActualExpense:   dashboard.ActualExpense.StringFixed(2),
		ProjectedNet:    dashboard.ProjectedNet.StringFixed(2),
		PlannedIncome:   dashboard.PlannedIncome.StringFixed(2),
		RemainingBudget: dashboard.RemainingExpenseBudget.StringFixed(2),
		Degraded:        dashboard.DegradedConversions,
	}
	if err := w.writer.AppendSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot exported",
		"account_id", msg.AccountID,
		"month", month,
		"degraded_conversions", dashboard.DegradedConversions)
	return nil
}
