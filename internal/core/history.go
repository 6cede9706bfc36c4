package core

import "github.com/shopspring/decimal"

// DefaultTrendMonths is the width of the trailing history window.
const DefaultTrendMonths = 6

// TrendPoint is one month of the trailing income/expense series.
type TrendPoint struct {
	Month   MonthKey
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
}

// BuildTrend builds a fixed trailing window of months ending at end,
// inclusive. Every month in the window is seeded with zero totals so the
// series is gap-free even when a month has no transactions. Each row is
// bucketed by its own Month field and converted with that month's rates,
// never the current month's. The result always holds exactly months entries,
// ascending by month key.
func BuildTrend(end MonthKey, months int, rows []TransactionRecord, preferred CurrencyCode, rs *RateSet) ([]TrendPoint, int, error) {
	if months <= 0 {
		months = DefaultTrendMonths
	}

	points := make([]TrendPoint, months)
	index := make(map[MonthKey]int, months)
	for i := 0; i < months; i++ {
		m := end.AddMonths(i - months + 1)
		points[i] = TrendPoint{Month: m}
		index[m] = i
	}

	degraded := 0
	for _, row := range rows {
		i, ok := index[row.Month]
		if !ok {
			continue
		}
		converted, fellBack, err := Convert(Money{Value: row.Amount, Currency: row.Currency}, preferred, row.Month, rs)
		if err != nil {
			return nil, 0, err
		}
		if fellBack {
			degraded++
		}
		switch row.Type {
		case Income:
			points[i].Income = points[i].Income.Add(converted.Value)
		case Expense:
			points[i].Expense = points[i].Expense.Add(converted.Value)
		}
	}

	for i := range points {
		points[i].Income = RoundCents(points[i].Income)
		points[i].Expense = RoundCents(points[i].Expense)
		points[i].Net = points[i].Income.Sub(points[i].Expense)
	}
	return points, degraded, nil
}
