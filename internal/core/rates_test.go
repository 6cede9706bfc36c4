package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func usdRates(month MonthKey, pairs map[CurrencyCode]string) *RateCache {
	rates := map[CurrencyCode]decimal.Decimal{"USD": decimal.NewFromInt(1)}
	for cur, r := range pairs {
		rates[cur] = dec(r)
	}
	return &RateCache{Month: month, Rates: rates}
}

func TestConvertIdentity(t *testing.T) {
	rs := NewRateSet("2026-02", usdRates("2026-02", map[CurrencyCode]string{"EUR": "1.08"}))

	cases := []struct {
		amount Money
		to     CurrencyCode
	}{
		{Money{Value: dec("100"), Currency: "USD"}, "USD"},
		{Money{Value: dec("42.424242"), Currency: "EUR"}, "EUR"},
		{Money{Value: dec("7.50"), Currency: "GBP"}, ""}, // unset target
	}
	for _, tc := range cases {
		got, degraded, err := Convert(tc.amount, tc.to, "2026-02", rs)
		if err != nil {
			t.Fatalf("identity conversion failed: %v", err)
		}
		if degraded {
			t.Fatalf("identity conversion flagged degraded")
		}
		if got.Currency != tc.amount.Currency {
			t.Fatalf("identity changed currency: %s -> %s", tc.amount.Currency, got.Currency)
		}
		if !got.Value.Equal(RoundCents(tc.amount.Value)) {
			t.Fatalf("identity changed value: %s -> %s", tc.amount.Value, got.Value)
		}
	}
}

func TestConvertUsesMonthRate(t *testing.T) {
	// February EUR->USD at 1.08; the current month (March) has a different
	// rate that must not be used for February amounts.
	rs := NewRateSet("2026-03",
		usdRates("2026-02", map[CurrencyCode]string{"EUR": "1.08"}),
		usdRates("2026-03", map[CurrencyCode]string{"EUR": "1.20"}),
	)

	got, degraded, err := Convert(Money{Value: dec("400"), Currency: "EUR"}, "USD", "2026-02", rs)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if degraded {
		t.Fatalf("historical conversion flagged degraded")
	}
	if !got.Value.Equal(dec("432")) {
		t.Fatalf("400 EUR at 1.08 = %s USD, want 432", got.Value)
	}
	if got.Currency != "USD" {
		t.Fatalf("converted currency = %s", got.Currency)
	}
}

func TestConvertFallsBackToCurrentMonth(t *testing.T) {
	// January's snapshot lacks GBP; the current month's snapshot has it.
	rs := NewRateSet("2026-02",
		usdRates("2026-01", map[CurrencyCode]string{"EUR": "1.09"}),
		usdRates("2026-02", map[CurrencyCode]string{"EUR": "1.08", "GBP": "1.25"}),
	)

	got, degraded, err := Convert(Money{Value: dec("10"), Currency: "GBP"}, "USD", "2026-01", rs)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !degraded {
		t.Fatalf("fallback to current month not flagged degraded")
	}
	if !got.Value.Equal(dec("12.5")) {
		t.Fatalf("fallback conversion = %s, want 12.5", got.Value)
	}
}

func TestConvertUnconvertedWhenRateMissingEverywhere(t *testing.T) {
	rs := NewRateSet("2026-02", usdRates("2026-02", map[CurrencyCode]string{"EUR": "1.08"}))

	got, degraded, err := Convert(Money{Value: dec("99.99"), Currency: "JPY"}, "USD", "2026-01", rs)
	if err != nil {
		t.Fatalf("missing rate must not fail: %v", err)
	}
	if !degraded {
		t.Fatalf("unconverted amount not flagged degraded")
	}
	if got.Currency != "JPY" || !got.Value.Equal(dec("99.99")) {
		t.Fatalf("expected original amount back, got %s %s", got.Value, got.Currency)
	}
}

func TestConvertNilRateSet(t *testing.T) {
	got, degraded, err := Convert(Money{Value: dec("5"), Currency: "EUR"}, "USD", "2026-02", nil)
	if err != nil {
		t.Fatalf("nil rate set must degrade, not fail: %v", err)
	}
	if !degraded || got.Currency != "EUR" {
		t.Fatalf("nil rate set: degraded=%v currency=%s", degraded, got.Currency)
	}
}

func TestConvertZeroRateIsIntegrityError(t *testing.T) {
	rs := NewRateSet("2026-02", usdRates("2026-02", map[CurrencyCode]string{"EUR": "0"}))

	_, _, err := Convert(Money{Value: dec("10"), Currency: "USD"}, "EUR", "2026-02", rs)
	if !errors.Is(err, ErrBadRate) {
		t.Fatalf("zero rate: got err=%v, want ErrBadRate", err)
	}
}
