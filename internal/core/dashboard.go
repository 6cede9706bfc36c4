package core

import "github.com/shopspring/decimal"

// DashboardInput is the pre-fetched working set for one account-month. All
// fetching happens before this point; BuildDashboard performs no I/O.
type DashboardInput struct {
	Month    MonthKey
	Currency CurrencyCode
	// Rates must hold one cache per distinct month in the working set, see
	// MonthsNeeded.
	Rates *RateSet

	Transactions      []TransactionRecord
	PrevTransactions  []TransactionRecord
	TrendTransactions []TransactionRecord
	Budgets           []BudgetLine
	Templates         []RecurringTemplate
	Goal              *IncomeGoal
	OwedToMe          []ParticipantShare
	IOwe              []ParticipantShare
	TrendMonths       int
}

// Dashboard is the aggregated view for one account-month, built fresh per
// request.
type Dashboard struct {
	Month    MonthKey
	Currency CurrencyCode

	ActualIncome  decimal.Decimal
	ActualExpense decimal.Decimal
	ActualNet     decimal.Decimal

	IncomeSource            IncomeSource
	PlannedIncome           decimal.Decimal
	ExpectedRemainingIncome decimal.Decimal
	ProjectedNet            decimal.Decimal
	RemainingExpenseBudget  decimal.Decimal

	Budgets []BudgetSummary
	Trend   []TrendPoint

	PreviousNet decimal.Decimal
	NetChange   decimal.Decimal

	Balances []SettlementBalance

	// DegradedConversions counts amounts that could not use their month's
	// own historical rate; callers log it as a degraded-accuracy event.
	DegradedConversions int
}

// BuildDashboard orchestrates the engine over a gathered working set. Missing
// data (no budgets, templates, goal or shares) degrades to zero or empty
// results; the only failure mode is a conversion integrity error.
func BuildDashboard(in DashboardInput) (*Dashboard, error) {
	d := &Dashboard{Month: in.Month, Currency: in.Currency}

	rows, degraded, err := ConvertAll(in.Transactions, in.Currency, in.Rates)
	if err != nil {
		return nil, err
	}
	d.DegradedConversions += degraded

	d.ActualIncome = SumByType(rows, Income)
	d.ActualExpense = SumByType(rows, Expense)
	d.ActualNet = d.ActualIncome.Sub(d.ActualExpense)

	expenseByCat, incomeByCat := GroupByCategory(rows)
	d.Budgets, degraded, err = ReconcileBudgets(in.Budgets, expenseByCat, incomeByCat, in.Currency, in.Rates)
	if err != nil {
		return nil, err
	}
	d.DegradedConversions += degraded
	d.RemainingExpenseBudget = RemainingExpenseBudget(d.Budgets)

	projection, err := ProjectIncome(ProjectionInput{
		Month:        in.Month,
		Currency:     in.Currency,
		Goal:         in.Goal,
		Templates:    in.Templates,
		Budgets:      in.Budgets,
		Transactions: rows,
		Rates:        in.Rates,
	}, d.ActualIncome, d.ActualExpense, d.RemainingExpenseBudget)
	if err != nil {
		return nil, err
	}
	d.IncomeSource = projection.Source
	d.PlannedIncome = projection.PlannedIncome
	d.ExpectedRemainingIncome = projection.ExpectedRemaining
	d.ProjectedNet = projection.ProjectedNet
	d.DegradedConversions += projection.Degraded

	d.Trend, degraded, err = BuildTrend(in.Month, in.TrendMonths, in.TrendTransactions, in.Currency, in.Rates)
	if err != nil {
		return nil, err
	}
	d.DegradedConversions += degraded

	// Period-over-period comparison with the previous month's own rates.
	prevRows, degraded, err := ConvertAll(in.PrevTransactions, in.Currency, in.Rates)
	if err != nil {
		return nil, err
	}
	d.DegradedConversions += degraded
	d.PreviousNet = SumByType(prevRows, Income).Sub(SumByType(prevRows, Expense))
	d.NetChange = d.ActualNet.Sub(d.PreviousNet)

	d.Balances = NetBalances(in.OwedToMe, in.IOwe)
	return d, nil
}
