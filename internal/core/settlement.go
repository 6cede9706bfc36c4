package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// SettlementBalance is the netted position against one counterparty in one
// currency. Net is TheyOwe minus YouOwe: positive means the counterparty owes
// the current user on balance.
type SettlementBalance struct {
	CounterpartyID string
	Currency       CurrencyCode
	TheyOwe        decimal.Decimal
	YouOwe         decimal.Decimal
	Net            decimal.Decimal
}

type balanceKey struct {
	counterparty string
	currency     CurrencyCode
}

// NetBalances nets all pending shares into one signed balance per
// (counterparty, currency) pair. owedToMe holds shares on expenses the
// current user owns; iOwe holds shares where the user is the participant.
// Paid and declined shares never contribute. Balances in different currencies
// are never merged: owing a friend in USD while being owed by them in EUR
// yields two entries.
//
// The result is ordered by descending |Net| so the largest imbalances surface
// first, with counterparty then currency as tie-breakers. This is a display
// convention, not a correctness requirement.
func NetBalances(owedToMe, iOwe []ParticipantShare) []SettlementBalance {
	acc := make(map[balanceKey]*SettlementBalance)

	get := func(s ParticipantShare) *SettlementBalance {
		k := balanceKey{counterparty: s.CounterpartyID, currency: s.Currency}
		b, ok := acc[k]
		if !ok {
			b = &SettlementBalance{CounterpartyID: s.CounterpartyID, Currency: s.Currency}
			acc[k] = b
		}
		return b
	}

	for _, s := range owedToMe {
		if s.Status != SharePending {
			continue
		}
		b := get(s)
		b.TheyOwe = b.TheyOwe.Add(s.Amount)
	}
	for _, s := range iOwe {
		if s.Status != SharePending {
			continue
		}
		b := get(s)
		b.YouOwe = b.YouOwe.Add(s.Amount)
	}

	balances := make([]SettlementBalance, 0, len(acc))
	for _, b := range acc {
		b.TheyOwe = RoundCents(b.TheyOwe)
		b.YouOwe = RoundCents(b.YouOwe)
		b.Net = b.TheyOwe.Sub(b.YouOwe)
		balances = append(balances, *b)
	}

	sort.Slice(balances, func(i, j int) bool {
		ai, aj := balances[i].Net.Abs(), balances[j].Net.Abs()
		if !ai.Equal(aj) {
			return ai.GreaterThan(aj)
		}
		if balances[i].CounterpartyID != balances[j].CounterpartyID {
			return balances[i].CounterpartyID < balances[j].CounterpartyID
		}
		return balances[i].Currency < balances[j].Currency
	})
	return balances
}
