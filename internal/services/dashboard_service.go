// Package services orchestrates the aggregation engine across storage, rates
// and messaging: gathering a working set, running the pure engine, and
// fanning results out.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"tally/internal/core"
)

// Ledger is the slice of storage the dashboard needs.
type Ledger interface {
	TransactionsForMonth(ctx context.Context, accountID int64, month core.MonthKey) ([]core.TransactionRecord, error)
	TransactionsForRange(ctx context.Context, accountID int64, from, to core.MonthKey) ([]core.TransactionRecord, error)
	BudgetsForMonth(ctx context.Context, accountID int64, month core.MonthKey) ([]core.BudgetLine, error)
	TemplatesForAccount(ctx context.Context, accountID int64) ([]core.RecurringTemplate, error)
	GoalForMonth(ctx context.Context, accountID int64, month core.MonthKey) (*core.IncomeGoal, error)
	SharesOwedTo(ctx context.Context, email string) ([]core.ParticipantShare, error)
	SharesOwedBy(ctx context.Context, email string) ([]core.ParticipantShare, error)
	Account(ctx context.Context, accountID int64) (email string, preferred core.CurrencyCode, err error)
}

// RateSource supplies the historical rate caches for a working set.
type RateSource interface {
	BuildRateSet(ctx context.Context, current core.MonthKey, months []core.MonthKey) (*core.RateSet, error)
}

type DashboardService struct {
	ledger      Ledger
	rates       RateSource
	trendMonths int
}

func NewDashboardService(ledger Ledger, rates RateSource, trendMonths int) *DashboardService {
	if trendMonths <= 0 {
		trendMonths = core.DefaultTrendMonths
	}
	return &DashboardService{
		ledger:      ledger,
		rates:       rates,
		trendMonths: trendMonths,
	}
}

// Build gathers the account's working set concurrently, then runs the
// aggregation engine over it. currency overrides the account's preferred
// display currency when non-empty.
func (s *DashboardService) Build(ctx context.Context, accountID int64, month core.MonthKey, currency core.CurrencyCode) (*core.Dashboard, error) {
	if !month.Valid() {
		return nil, fmt.Errorf("month %q: %w", month, core.ErrInvalidMonth)
	}

	email, preferred, err := s.ledger.Account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if currency == "" {
		currency = preferred
	}

	months := core.MonthsNeeded(month, s.trendMonths)
	trendFrom := months[0]
	prev := month.Prev()

	in := core.DashboardInput{
		Month:       month,
		Currency:    currency,
		TrendMonths: s.trendMonths,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.Rates, err = s.rates.BuildRateSet(gctx, month, months)
		return err
	})
	g.Go(func() error {
		var err error
		in.Transactions, err = s.ledger.TransactionsForMonth(gctx, accountID, month)
		return err
	})
	g.Go(func() error {
		var err error
		in.PrevTransactions, err = s.ledger.TransactionsForMonth(gctx, accountID, prev)
		return err
	})
	g.Go(func() error {
		var err error
		in.TrendTransactions, err = s.ledger.TransactionsForRange(gctx, accountID, trendFrom, month)
		return err
	})
	g.Go(func() error {
		var err error
		in.Budgets, err = s.ledger.BudgetsForMonth(gctx, accountID, month)
		return err
	})
	g.Go(func() error {
		var err error
		in.Templates, err = s.ledger.TemplatesForAccount(gctx, accountID)
		return err
	})
	g.Go(func() error {
		var err error
		in.Goal, err = s.ledger.GoalForMonth(gctx, accountID, month)
		return err
	})
	g.Go(func() error {
		var err error
		in.OwedToMe, err = s.ledger.SharesOwedTo(gctx, email)
		return err
	})
	g.Go(func() error {
		var err error
		in.IOwe, err = s.ledger.SharesOwedBy(gctx, email)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("gather dashboard data: %w", err)
	}

	dashboard, err := core.BuildDashboard(in)
	if err != nil {
		return nil, fmt.Errorf("build dashboard: %w", err)
	}

	if dashboard.DegradedConversions > 0 {
		slog.WarnContext(ctx, "Dashboard built with degraded conversions",
			"account_id", accountID,
			"month", month,
			"degraded_conversions", dashboard.DegradedConversions)
	}

	return dashboard, nil
}
