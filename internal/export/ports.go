// Package export defines the outbound ports for monthly snapshot export.
package export

import (
	"context"

	"tally/internal/core"
)

// MonthlySnapshot is the flattened, display-currency view of one
// account-month, ready to append to an external sheet.
type MonthlySnapshot struct {
	AccountEmail    string
	Month           core.MonthKey
	Currency        core.CurrencyCode
	ActualIncome    string
	ActualExpense   string
	ProjectedNet    string
	PlannedIncome   string
	RemainingBudget string
	Degraded        int
}

// SnapshotWriter appends one snapshot row to the export target.
type SnapshotWriter interface {
	AppendSnapshot(ctx context.Context, snap MonthlySnapshot) error
}
