package core

import "github.com/shopspring/decimal"

// IncomeSource names which rung of the priority chain produced the planned
// income figure.
type IncomeSource string

const (
	SourceGoal      IncomeSource = "goal"
	SourceRecurring IncomeSource = "recurring"
	SourceBudget    IncomeSource = "budget"
	SourceNone      IncomeSource = "none"
)

// ProjectionInput carries everything the income projection needs for one
// account-month. Transactions must already be converted into Currency.
type ProjectionInput struct {
	Month        MonthKey
	Currency     CurrencyCode
	Goal         *IncomeGoal
	Templates    []RecurringTemplate
	Budgets      []BudgetLine
	Transactions []TransactionRecord
	Rates        *RateSet
}

// Projection is the resolved income outlook for a month.
type Projection struct {
	Source IncomeSource
	// PlannedIncome is the full expected income for the month.
	PlannedIncome decimal.Decimal
	// ExpectedRemaining is the portion of planned income not yet realized.
	ExpectedRemaining decimal.Decimal
	// ProjectedNet estimates the end-of-month net position.
	ProjectedNet decimal.Decimal
	// Degraded counts conversions that fell back to a non-historical rate.
	Degraded int
}

// incomeStep is one rung of the priority chain: the first step whose producer
// yields a positive amount wins. Keeping the chain as an ordered list makes
// the precedence auditable and testable on its own.
type incomeStep struct {
	source  IncomeSource
	produce func() (decimal.Decimal, error)
}

// ProjectIncome resolves the month's planned income via the strict priority
// chain (explicit goal, then active recurring income templates, then budgeted
// income) and derives the remaining and projected figures from the winning
// source.
func ProjectIncome(in ProjectionInput, actualIncome, actualExpense, remainingExpenseBudget decimal.Decimal) (Projection, error) {
	p := Projection{Source: SourceNone}

	steps := []incomeStep{
		{SourceGoal, func() (decimal.Decimal, error) { return p.goalAmount(in) }},
		{SourceRecurring, func() (decimal.Decimal, error) { return p.recurringTotal(in, nil) }},
		{SourceBudget, func() (decimal.Decimal, error) { return p.budgetedIncome(in) }},
	}
	for _, step := range steps {
		amount, err := step.produce()
		if err != nil {
			return Projection{}, err
		}
		if amount.Sign() > 0 {
			p.Source = step.source
			p.PlannedIncome = amount
			break
		}
	}

	remaining, err := p.expectedRemaining(in, actualIncome)
	if err != nil {
		return Projection{}, err
	}
	p.ExpectedRemaining = remaining

	outstandingBudget := decimal.Max(remainingExpenseBudget, decimal.Zero)
	p.ProjectedNet = RoundCents(actualIncome.Add(p.ExpectedRemaining).Sub(actualExpense.Add(outstandingBudget)))
	return p, nil
}

// expectedRemaining differs by winning source: goals and budgets count down
// against actual income, while the recurring source instead skips templates
// that already produced a transaction this month so an applied template is
// not counted twice.
func (p *Projection) expectedRemaining(in ProjectionInput, actualIncome decimal.Decimal) (decimal.Decimal, error) {
	switch p.Source {
	case SourceGoal, SourceBudget:
		return decimal.Max(p.PlannedIncome.Sub(actualIncome), decimal.Zero), nil
	case SourceRecurring:
		applied := make(map[int64]bool)
		for _, row := range in.Transactions {
			if row.RecurringTemplateID != 0 {
				applied[row.RecurringTemplateID] = true
			}
		}
		return p.recurringTotal(in, applied)
	default:
		return decimal.Zero, nil
	}
}

func (p *Projection) goalAmount(in ProjectionInput) (decimal.Decimal, error) {
	if in.Goal == nil {
		return decimal.Zero, nil
	}
	m, degraded, err := Convert(Money{Value: in.Goal.Amount, Currency: in.Goal.Currency}, in.Currency, in.Month, in.Rates)
	if err != nil {
		return decimal.Zero, err
	}
	if degraded {
		p.Degraded++
	}
	return m.Value, nil
}

// recurringTotal sums active income templates for the month, excluding any
// whose ID appears in skip.
func (p *Projection) recurringTotal(in ProjectionInput, skip map[int64]bool) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, t := range in.Templates {
		if t.Type != Income || !t.ActiveFor(in.Month) || skip[t.ID] {
			continue
		}
		m, degraded, err := Convert(Money{Value: t.Amount, Currency: t.Currency}, in.Currency, in.Month, in.Rates)
		if err != nil {
			return decimal.Zero, err
		}
		if degraded {
			p.Degraded++
		}
		total = total.Add(m.Value)
	}
	return RoundCents(total), nil
}

func (p *Projection) budgetedIncome(in ProjectionInput) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, line := range in.Budgets {
		if line.CategoryType != Income {
			continue
		}
		m, degraded, err := Convert(Money{Value: line.Planned, Currency: line.Currency}, in.Currency, line.Month, in.Rates)
		if err != nil {
			return decimal.Zero, err
		}
		if degraded {
			p.Degraded++
		}
		total = total.Add(m.Value)
	}
	return RoundCents(total), nil
}
