package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tally/internal/core"
)

// RecurringStore is the slice of storage the recurring sweep needs.
type RecurringStore interface {
	AccountIDs(ctx context.Context) ([]int64, error)
	TemplatesForAccount(ctx context.Context, accountID int64) ([]core.RecurringTemplate, error)
	AppliedTemplateIDs(ctx context.Context, accountID int64, month core.MonthKey) (map[int64]bool, error)
	InsertTransaction(ctx context.Context, accountID int64, rec core.TransactionRecord) (int64, error)
}

// RecurringProcessor materializes due recurring templates into ledger rows.
// Each template produces at most one transaction per month; the produced row
// keeps the template's id so re-runs and projections can tell it apart.
type RecurringProcessor struct {
	store RecurringStore
}

func NewRecurringProcessor(store RecurringStore) *RecurringProcessor {
	return &RecurringProcessor{store: store}
}

// ProcessDue sweeps every account and creates transactions for templates
// whose day of month has arrived. Per-account failures are logged and
// skipped so one bad account cannot stall the sweep.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	accounts, err := p.store.AccountIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list accounts: %w", err)
	}

	month := core.MonthKeyOf(now)
	processed := 0

	for _, account := range accounts {
		n, err := p.processAccount(ctx, account, month, now)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to process recurring templates",
				"account_id", account,
				"error", err)
			continue
		}
		processed += n
	}

	slog.InfoContext(ctx, "Recurring sweep complete",
		"accounts", len(accounts),
		"processed", processed,
		"month", month)
	return processed, nil
}

func (p *RecurringProcessor) processAccount(ctx context.Context, accountID int64, month core.MonthKey, now time.Time) (int, error) {
	templates, err := p.store.TemplatesForAccount(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("load templates: %w", err)
	}
	if len(templates) == 0 {
		return 0, nil
	}

	applied, err := p.store.AppliedTemplateIDs(ctx, accountID, month)
	if err != nil {
		return 0, fmt.Errorf("load applied templates: %w", err)
	}

	created := 0
	for _, tpl := range templates {
		if !tpl.ActiveFor(month) || applied[tpl.ID] {
			continue
		}
		if now.Day() < dueDay(tpl.DayOfMonth, now) {
			continue
		}

		_, err := p.store.InsertTransaction(ctx, accountID, core.TransactionRecord{
			Type:                tpl.Type,
			Amount:              tpl.Amount,
			Currency:            tpl.Currency,
			CategoryID:          tpl.CategoryID,
			Month:               month,
			RecurringTemplateID: tpl.ID,
		})
		if err != nil {
			slog.ErrorContext(ctx, "Failed to create transaction from template",
				"template_id", tpl.ID,
				"account_id", accountID,
				"error", err)
			continue
		}

		created++
		slog.InfoContext(ctx, "Created transaction from recurring template",
			"template_id", tpl.ID,
			"account_id", accountID,
			"month", month,
			"amount", tpl.Amount)
	}
	return created, nil
}

// dueDay clamps the template's day of month to the month's actual length,
// so a day-31 template still fires in February.
func dueDay(dayOfMonth int, now time.Time) int {
	if dayOfMonth < 1 {
		return 1
	}
	lastDay := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()
	if dayOfMonth > lastDay {
		return lastDay
	}
	return dayOfMonth
}
