package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func febRates() *RateSet {
	return NewRateSet("2026-02", usdRates("2026-02", map[CurrencyCode]string{"EUR": "1.08"}))
}

func TestGoalWinsOverRecurringAndBudgets(t *testing.T) {
	// All three sources set at once: only the goal may be used.
	in := ProjectionInput{
		Month:    "2026-02",
		Currency: "USD",
		Goal:     &IncomeGoal{Amount: dec("5000"), Currency: "USD"},
		Templates: []RecurringTemplate{
			{ID: 1, Type: Income, Amount: dec("3000"), Currency: "USD", IsActive: true},
		},
		Budgets: []BudgetLine{
			{CategoryID: 1, CategoryType: Income, Planned: dec("2000"), Currency: "USD", Month: "2026-02"},
		},
		Rates: febRates(),
	}

	p, err := ProjectIncome(in, dec("1000"), dec("400"), dec("0"))
	if err != nil {
		t.Fatalf("ProjectIncome: %v", err)
	}
	if p.Source != SourceGoal {
		t.Fatalf("source = %s, want goal", p.Source)
	}
	if !p.PlannedIncome.Equal(dec("5000")) {
		t.Fatalf("planned = %s, want 5000", p.PlannedIncome)
	}
	if !p.ExpectedRemaining.Equal(dec("4000")) {
		t.Fatalf("remaining = %s, want 5000-1000", p.ExpectedRemaining)
	}
}

func TestGoalRemainingClampedAtZero(t *testing.T) {
	in := ProjectionInput{
		Month:    "2026-02",
		Currency: "USD",
		Goal:     &IncomeGoal{Amount: dec("1000"), Currency: "USD"},
		Rates:    febRates(),
	}
	p, err := ProjectIncome(in, dec("1500"), decimal.Zero, decimal.Zero)
	if err != nil {
		t.Fatalf("ProjectIncome: %v", err)
	}
	if !p.ExpectedRemaining.IsZero() {
		t.Fatalf("overshot goal remaining = %s, want 0", p.ExpectedRemaining)
	}
}

func TestRecurringSourceSkipsAppliedTemplates(t *testing.T) {
	in := ProjectionInput{
		Month:    "2026-02",
		Currency: "USD",
		Templates: []RecurringTemplate{
			{ID: 1, Type: Income, Amount: dec("3000"), Currency: "USD", IsActive: true},
			{ID: 2, Type: Income, Amount: dec("500"), Currency: "USD", IsActive: true},
			{ID: 3, Type: Expense, Amount: dec("100"), Currency: "USD", IsActive: true},
			{ID: 4, Type: Income, Amount: dec("999"), Currency: "USD", IsActive: false},
		},
		Transactions: []TransactionRecord{
			// Template 1 already landed this month.
			{Type: Income, Amount: dec("3000"), Currency: "USD", Month: "2026-02", RecurringTemplateID: 1},
		},
		Rates: febRates(),
	}

	p, err := ProjectIncome(in, dec("3000"), decimal.Zero, decimal.Zero)
	if err != nil {
		t.Fatalf("ProjectIncome: %v", err)
	}
	if p.Source != SourceRecurring {
		t.Fatalf("source = %s, want recurring", p.Source)
	}
	// Planned counts both active income templates.
	if !p.PlannedIncome.Equal(dec("3500")) {
		t.Fatalf("planned = %s, want 3500", p.PlannedIncome)
	}
	// Remaining excludes the applied template so it is not counted twice.
	if !p.ExpectedRemaining.Equal(dec("500")) {
		t.Fatalf("remaining = %s, want 500", p.ExpectedRemaining)
	}
}

func TestRecurringRespectsActiveWindow(t *testing.T) {
	in := ProjectionInput{
		Month:    "2026-02",
		Currency: "USD",
		Templates: []RecurringTemplate{
			{ID: 1, Type: Income, Amount: dec("100"), Currency: "USD", IsActive: true, StartMonth: "2026-03"},
			{ID: 2, Type: Income, Amount: dec("200"), Currency: "USD", IsActive: true, EndMonth: "2026-01"},
			{ID: 3, Type: Income, Amount: dec("300"), Currency: "USD", IsActive: true, StartMonth: "2026-01", EndMonth: "2026-06"},
		},
		Rates: febRates(),
	}
	p, err := ProjectIncome(in, decimal.Zero, decimal.Zero, decimal.Zero)
	if err != nil {
		t.Fatalf("ProjectIncome: %v", err)
	}
	if !p.PlannedIncome.Equal(dec("300")) {
		t.Fatalf("planned = %s, want only the in-window template", p.PlannedIncome)
	}
}

func TestBudgetedIncomeFallback(t *testing.T) {
	in := ProjectionInput{
		Month:    "2026-02",
		Currency: "USD",
		Budgets: []BudgetLine{
			{CategoryID: 1, CategoryType: Income, Planned: dec("2000"), Currency: "EUR", Month: "2026-02"},
			{CategoryID: 2, CategoryType: Expense, Planned: dec("500"), Currency: "USD", Month: "2026-02"},
		},
		Rates: febRates(),
	}
	p, err := ProjectIncome(in, dec("160"), decimal.Zero, decimal.Zero)
	if err != nil {
		t.Fatalf("ProjectIncome: %v", err)
	}
	if p.Source != SourceBudget {
		t.Fatalf("source = %s, want budget", p.Source)
	}
	// 2000 EUR at 1.08, expense budget lines ignored.
	if !p.PlannedIncome.Equal(dec("2160")) {
		t.Fatalf("planned = %s, want 2160", p.PlannedIncome)
	}
	if !p.ExpectedRemaining.Equal(dec("2000")) {
		t.Fatalf("remaining = %s, want 2160-160", p.ExpectedRemaining)
	}
}

func TestProjectedNetFormula(t *testing.T) {
	in := ProjectionInput{
		Month:    "2026-02",
		Currency: "USD",
		Goal:     &IncomeGoal{Amount: dec("5000"), Currency: "USD"},
		Rates:    febRates(),
	}

	// actualIncome + expectedRemaining - (actualExpense + max(remainingBudget, 0))
	p, err := ProjectIncome(in, dec("2000"), dec("800"), dec("1200"))
	if err != nil {
		t.Fatalf("ProjectIncome: %v", err)
	}
	want := dec("2000").Add(dec("3000")).Sub(dec("800").Add(dec("1200")))
	if !p.ProjectedNet.Equal(want) {
		t.Fatalf("projected net = %s, want %s", p.ProjectedNet, want)
	}

	// Negative remaining budget (overspent) is clamped out of the formula.
	p, err = ProjectIncome(in, dec("2000"), dec("800"), dec("-999"))
	if err != nil {
		t.Fatalf("ProjectIncome: %v", err)
	}
	want = dec("2000").Add(dec("3000")).Sub(dec("800"))
	if !p.ProjectedNet.Equal(want) {
		t.Fatalf("projected net with overspent budgets = %s, want %s", p.ProjectedNet, want)
	}
}

func TestNoIncomeSourcesAtAll(t *testing.T) {
	p, err := ProjectIncome(ProjectionInput{Month: "2026-02", Currency: "USD", Rates: febRates()},
		decimal.Zero, dec("100"), decimal.Zero)
	if err != nil {
		t.Fatalf("empty inputs must not fail: %v", err)
	}
	if p.Source != SourceNone || !p.PlannedIncome.IsZero() || !p.ExpectedRemaining.IsZero() {
		t.Fatalf("empty inputs: source=%s planned=%s remaining=%s", p.Source, p.PlannedIncome, p.ExpectedRemaining)
	}
	if !p.ProjectedNet.Equal(dec("-100")) {
		t.Fatalf("projected net = %s, want -100", p.ProjectedNet)
	}
}
