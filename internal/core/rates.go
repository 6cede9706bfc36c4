package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RateCache is a snapshot of exchange rates for one as-of month. Rates are
// quoted against the snapshot's base currency: one unit of the keyed currency
// equals Rates[key] units of base. A cache is immutable once built.
type RateCache struct {
	Month MonthKey
	AsOf  time.Time
	Rates map[CurrencyCode]decimal.Decimal
}

// Rate returns the rate for a currency and whether it is present.
func (c *RateCache) Rate(cur CurrencyCode) (decimal.Decimal, bool) {
	if c == nil {
		return decimal.Zero, false
	}
	r, ok := c.Rates[cur]
	return r, ok
}

// RateSet holds one RateCache per distinct month in a working set, plus the
// designated current month used as the fallback for missing historical rates.
// Callers collect the distinct months first and batch-fetch one snapshot per
// month, keeping lookups O(distinct months) rather than O(rows).
type RateSet struct {
	current MonthKey
	byMonth map[MonthKey]*RateCache
}

// NewRateSet builds a RateSet from per-month caches. current names the month
// whose cache backs the fallback chain.
func NewRateSet(current MonthKey, caches ...*RateCache) *RateSet {
	s := &RateSet{current: current, byMonth: make(map[MonthKey]*RateCache, len(caches))}
	for _, c := range caches {
		if c != nil {
			s.byMonth[c.Month] = c
		}
	}
	return s
}

// ForMonth returns the cache for a month, or nil when none was loaded.
func (s *RateSet) ForMonth(m MonthKey) *RateCache {
	if s == nil {
		return nil
	}
	return s.byMonth[m]
}

// CurrentMonth returns the month whose cache serves as fallback.
func (s *RateSet) CurrentMonth() MonthKey {
	if s == nil {
		return ""
	}
	return s.current
}

// Convert converts an amount into the target currency using the rates for
// asOf. When the target is unset or matches the source currency the amount is
// returned unchanged (identity, minus rounding).
//
// Missing rates never fail a rollup: if the as-of month's cache lacks either
// currency the current month's cache is tried, and if that also fails the
// amount is returned unconverted. Both fallbacks set degraded=true so the
// caller can log the accuracy loss. A zero or negative rate is a
// data-integrity error and is the only way Convert fails.
func Convert(amount Money, to CurrencyCode, asOf MonthKey, rs *RateSet) (Money, bool, error) {
	if to == "" || amount.Currency == to {
		return NewMoney(amount.Value, amount.Currency), false, nil
	}

	if converted, ok, err := convertWith(rs.ForMonth(asOf), amount, to); err != nil {
		return Money{}, false, err
	} else if ok {
		return converted, false, nil
	}

	// Historical snapshot is missing a rate: degrade to the current month's
	// snapshot, then to the unconverted amount.
	if current := rs.ForMonth(rs.CurrentMonth()); current != nil && current.Month != asOf {
		if converted, ok, err := convertWith(current, amount, to); err != nil {
			return Money{}, false, err
		} else if ok {
			return converted, true, nil
		}
	}
	return NewMoney(amount.Value, amount.Currency), true, nil
}

// convertWith applies one cache's rate pair. ok=false means a rate was
// absent; an error means a present rate was unusable.
func convertWith(c *RateCache, amount Money, to CurrencyCode) (Money, bool, error) {
	fromRate, ok := c.Rate(amount.Currency)
	if !ok {
		return Money{}, false, nil
	}
	toRate, ok := c.Rate(to)
	if !ok {
		return Money{}, false, nil
	}
	if fromRate.Sign() <= 0 || toRate.Sign() <= 0 {
		return Money{}, false, fmt.Errorf("convert %s to %s for %s: %w", amount.Currency, to, c.Month, ErrBadRate)
	}
	value := amount.Value.Mul(fromRate).Div(toRate)
	return NewMoney(value, to), true, nil
}
