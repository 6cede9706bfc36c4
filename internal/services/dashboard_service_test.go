package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeLedger struct {
	email        string
	preferred    core.CurrencyCode
	transactions map[core.MonthKey][]core.TransactionRecord
	budgets      []core.BudgetLine
	templates    []core.RecurringTemplate
	goal         *core.IncomeGoal
	owedToMe     []core.ParticipantShare
	iOwe         []core.ParticipantShare
	accountErr   error
}

func (f *fakeLedger) Account(context.Context, int64) (string, core.CurrencyCode, error) {
	if f.accountErr != nil {
		return "", "", f.accountErr
	}
	return f.email, f.preferred, nil
}

func (f *fakeLedger) TransactionsForMonth(_ context.Context, _ int64, month core.MonthKey) ([]core.TransactionRecord, error) {
	return f.transactions[month], nil
}

func (f *fakeLedger) TransactionsForRange(_ context.Context, _ int64, from, to core.MonthKey) ([]core.TransactionRecord, error) {
	var out []core.TransactionRecord
	for month, rows := range f.transactions {
		if month >= from && month <= to {
			out = append(out, rows...)
		}
	}
	return out, nil
}

func (f *fakeLedger) BudgetsForMonth(context.Context, int64, core.MonthKey) ([]core.BudgetLine, error) {
	return f.budgets, nil
}

func (f *fakeLedger) TemplatesForAccount(context.Context, int64) ([]core.RecurringTemplate, error) {
	return f.templates, nil
}

func (f *fakeLedger) GoalForMonth(context.Context, int64, core.MonthKey) (*core.IncomeGoal, error) {
	return f.goal, nil
}

func (f *fakeLedger) SharesOwedTo(context.Context, string) ([]core.ParticipantShare, error) {
	return f.owedToMe, nil
}

func (f *fakeLedger) SharesOwedBy(context.Context, string) ([]core.ParticipantShare, error) {
	return f.iOwe, nil
}

type fakeRates struct {
	months []core.MonthKey
}

func (f *fakeRates) BuildRateSet(_ context.Context, current core.MonthKey, months []core.MonthKey) (*core.RateSet, error) {
	f.months = months
	caches := make([]*core.RateCache, 0, len(months))
	for _, m := range months {
		caches = append(caches, &core.RateCache{
			Month: m,
			Rates: map[core.CurrencyCode]decimal.Decimal{
				"USD": decimal.NewFromInt(1),
				"EUR": dec("1.08"),
			},
		})
	}
	return core.NewRateSet(current, caches...), nil
}

func TestDashboardServiceBuild(t *testing.T) {
	ledger := &fakeLedger{
		email:     "alice@example.com",
		preferred: "USD",
		transactions: map[core.MonthKey][]core.TransactionRecord{
			"2026-02": {
				{ID: 1, Type: core.Income, Amount: dec("3000"), Currency: "USD", CategoryID: 1, Month: "2026-02"},
				{ID: 2, Type: core.Expense, Amount: dec("100"), Currency: "EUR", CategoryID: 2, Month: "2026-02"},
			},
			"2026-01": {
				{ID: 3, Type: core.Income, Amount: dec("2800"), Currency: "USD", CategoryID: 1, Month: "2026-01"},
			},
		},
		owedToMe: []core.ParticipantShare{
			{CounterpartyID: "bob@example.com", Amount: dec("50"), Currency: "USD", Status: core.SharePending},
		},
	}
	rates := &fakeRates{}
	svc := NewDashboardService(ledger, rates, 3)

	d, err := svc.Build(context.Background(), 1, "2026-02", "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if d.Currency != "USD" {
		t.Errorf("currency should default to account preference, got %s", d.Currency)
	}
	if !d.ActualIncome.Equal(dec("3000")) {
		t.Errorf("ActualIncome = %s", d.ActualIncome)
	}
	// 100 EUR * 1.08 = 108 USD.
	if !d.ActualExpense.Equal(dec("108")) {
		t.Errorf("ActualExpense = %s", d.ActualExpense)
	}
	if !d.PreviousNet.Equal(dec("2800")) {
		t.Errorf("PreviousNet = %s", d.PreviousNet)
	}
	if len(d.Trend) != 3 {
		t.Errorf("trend length = %d, want 3", len(d.Trend))
	}
	if len(d.Balances) != 1 || d.Balances[0].CounterpartyID != "bob@example.com" {
		t.Errorf("balances = %+v", d.Balances)
	}
	if d.DegradedConversions != 0 {
		t.Errorf("DegradedConversions = %d", d.DegradedConversions)
	}

	// Rate fetch must cover the current month, the previous month and the
	// whole trend window.
	want := core.MonthsNeeded("2026-02", 3)
	if len(rates.months) != len(want) {
		t.Fatalf("rate months = %v, want %v", rates.months, want)
	}
	for i := range want {
		if rates.months[i] != want[i] {
			t.Errorf("rate months = %v, want %v", rates.months, want)
			break
		}
	}
}

func TestDashboardServiceCurrencyOverride(t *testing.T) {
	ledger := &fakeLedger{email: "alice@example.com", preferred: "USD"}
	svc := NewDashboardService(ledger, &fakeRates{}, 3)

	d, err := svc.Build(context.Background(), 1, "2026-02", "EUR")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if d.Currency != "EUR" {
		t.Errorf("currency = %s, want EUR override", d.Currency)
	}
}

func TestDashboardServiceInvalidMonth(t *testing.T) {
	svc := NewDashboardService(&fakeLedger{}, &fakeRates{}, 3)
	if _, err := svc.Build(context.Background(), 1, "2026-2", ""); !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("got %v, want ErrInvalidMonth", err)
	}
}

func TestDashboardServiceAccountError(t *testing.T) {
	wantErr := errors.New("boom")
	svc := NewDashboardService(&fakeLedger{accountErr: wantErr}, &fakeRates{}, 3)
	if _, err := svc.Build(context.Background(), 1, "2026-02", ""); !errors.Is(err, wantErr) {
		t.Errorf("got %v, want account error", err)
	}
}
