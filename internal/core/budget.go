package core

import "github.com/shopspring/decimal"

// BudgetSummary joins one planned budget line against the actual rollup for
// its category, in the preferred currency.
type BudgetSummary struct {
	CategoryID   int64
	CategoryName string
	CategoryType TransactionType
	Planned      decimal.Decimal
	Actual       decimal.Decimal
	Remaining    decimal.Decimal
	Currency     CurrencyCode
}

// ReconcileBudgets produces one summary row per budget line. Planned amounts
// are converted with the rate cache of the line's own month so past months
// keep their historical rates; actuals come from the already-converted rollup
// maps, defaulting to zero for categories with no activity. Rows are
// independent: overspend in one category never redistributes into another.
func ReconcileBudgets(lines []BudgetLine, actualExpense, actualIncome map[int64]decimal.Decimal, preferred CurrencyCode, rs *RateSet) ([]BudgetSummary, int, error) {
	summaries := make([]BudgetSummary, 0, len(lines))
	degraded := 0
	for _, line := range lines {
		planned, fellBack, err := Convert(Money{Value: line.Planned, Currency: line.Currency}, preferred, line.Month, rs)
		if err != nil {
			return nil, 0, err
		}
		if fellBack {
			degraded++
		}

		actuals := actualExpense
		if line.CategoryType == Income {
			actuals = actualIncome
		}
		actual := RoundCents(actuals[line.CategoryID])

		summaries = append(summaries, BudgetSummary{
			CategoryID:   line.CategoryID,
			CategoryName: line.CategoryName,
			CategoryType: line.CategoryType,
			Planned:      planned.Value,
			Actual:       actual,
			Remaining:    planned.Value.Sub(actual),
			Currency:     preferred,
		})
	}
	return summaries, degraded, nil
}

// RemainingExpenseBudget sums the remaining column over expense-type rows.
// The sum may be negative when budgets are overspent; the projection clamps
// it at zero where needed.
func RemainingExpenseBudget(summaries []BudgetSummary) decimal.Decimal {
	total := decimal.Zero
	for _, s := range summaries {
		if s.CategoryType == Expense {
			total = total.Add(s.Remaining)
		}
	}
	return RoundCents(total)
}
