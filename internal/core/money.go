// Package core implements the financial aggregation and settlement engine:
// currency conversion over per-month rate snapshots, monetary rollups, income
// projection, budget reconciliation, trailing trends, expense splitting and
// settlement netting. Every function is pure over its inputs; fetching rows
// and rate snapshots is the job of the surrounding services.
package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyCode is an ISO 4217 currency code, e.g. "USD".
type CurrencyCode string

// MonthKey identifies a calendar month as "YYYY-MM". The fixed-width,
// zero-padded form makes lexicographic order equal to chronological order.
type MonthKey string

const monthKeyLayout = "2006-01"

// Money is a monetary amount in a specific currency. Value is always rounded
// to 2 decimal places before being returned to a caller.
type Money struct {
	Value    decimal.Decimal
	Currency CurrencyCode
}

// NewMoney returns a Money with the value rounded to cents.
func NewMoney(value decimal.Decimal, currency CurrencyCode) Money {
	return Money{Value: RoundCents(value), Currency: currency}
}

// RoundCents rounds a decimal to 2 places (currency minor units). Rounding an
// already-rounded value is a no-op.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ParseMonthKey validates and normalizes a "YYYY-MM" string.
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse(monthKeyLayout, s)
	if err != nil {
		return "", fmt.Errorf("parse month key %q: %w", s, err)
	}
	return MonthKeyOf(t), nil
}

// MonthKeyOf returns the MonthKey for the month containing t.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey(t.Format(monthKeyLayout))
}

// Valid reports whether the key is a well-formed "YYYY-MM" month.
func (m MonthKey) Valid() bool {
	_, err := time.Parse(monthKeyLayout, string(m))
	return err == nil
}

// Time returns midnight UTC on the first day of the month. Invalid keys
// return the zero time.
func (m MonthKey) Time() time.Time {
	t, err := time.Parse(monthKeyLayout, string(m))
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddMonths returns the key n months after m (n may be negative).
func (m MonthKey) AddMonths(n int) MonthKey {
	return MonthKeyOf(m.Time().AddDate(0, n, 0))
}

// Prev returns the month immediately before m.
func (m MonthKey) Prev() MonthKey {
	return m.AddMonths(-1)
}

// MonthsNeeded returns the distinct set of months whose rate snapshots a
// dashboard build for the given month requires: the month itself, the
// previous month, and every month of the trailing trend window. The result is
// sorted ascending so batch fetching is deterministic.
func MonthsNeeded(month MonthKey, trendLen int) []MonthKey {
	if trendLen <= 0 {
		trendLen = DefaultTrendMonths
	}
	seen := map[MonthKey]bool{
		month:        true,
		month.Prev(): true,
	}
	for i := 0; i < trendLen; i++ {
		seen[month.AddMonths(-i)] = true
	}
	months := make([]MonthKey, 0, len(seen))
	for k := range seen {
		months = append(months, k)
	}
	sort.Slice(months, func(i, j int) bool { return months[i] < months[j] })
	return months
}
