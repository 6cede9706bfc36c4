package core

import "github.com/shopspring/decimal"

// SumByType sums the amounts of rows matching the given type. Rows are
// expected to be converted into a single currency already.
func SumByType(rows []TransactionRecord, t TransactionType) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		if row.Type == t {
			total = total.Add(row.Amount)
		}
	}
	return RoundCents(total)
}

// GroupByCategory splits rows into per-category expense and income totals. A
// row's type decides which map it lands in, so a category used for both ends
// up with an entry in each; that mirrors real data and is not enforced away.
// Lookups on the returned maps default to zero for absent categories.
func GroupByCategory(rows []TransactionRecord) (expense, income map[int64]decimal.Decimal) {
	expense = make(map[int64]decimal.Decimal)
	income = make(map[int64]decimal.Decimal)
	for _, row := range rows {
		switch row.Type {
		case Expense:
			expense[row.CategoryID] = expense[row.CategoryID].Add(row.Amount)
		case Income:
			income[row.CategoryID] = income[row.CategoryID].Add(row.Amount)
		}
	}
	return expense, income
}

// ConvertAll converts every row's amount into the target currency using that
// row's own month's rates, returning the converted rows and how many of them
// degraded (fallback rate or no conversion at all).
func ConvertAll(rows []TransactionRecord, to CurrencyCode, rs *RateSet) ([]TransactionRecord, int, error) {
	converted := make([]TransactionRecord, len(rows))
	degraded := 0
	for i, row := range rows {
		m, fellBack, err := Convert(Money{Value: row.Amount, Currency: row.Currency}, to, row.Month, rs)
		if err != nil {
			return nil, 0, err
		}
		if fellBack {
			degraded++
		}
		converted[i] = row
		converted[i].Amount = m.Value
		converted[i].Currency = m.Currency
	}
	return converted, degraded, nil
}
