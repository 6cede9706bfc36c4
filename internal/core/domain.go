package core

import (
	"errors"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes money coming in from money going out.
type TransactionType string

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

// SplitType is the strategy used to divide a shared expense.
type SplitType string

const (
	SplitEqual      SplitType = "EQUAL"
	SplitPercentage SplitType = "PERCENTAGE"
	SplitFixed      SplitType = "FIXED"
)

// ShareStatus is the lifecycle state of a participant's share. Only pending
// shares contribute to settlement balances.
type ShareStatus string

const (
	SharePending  ShareStatus = "PENDING"
	SharePaid     ShareStatus = "PAID"
	ShareDeclined ShareStatus = "DECLINED"
)

var (
	ErrBadRate       = errors.New("non-positive exchange rate")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidMonth  = errors.New("invalid month key")
)

// TransactionRecord is a single ledger row, already filtered for
// soft-deletion by the repository that produced it.
type TransactionRecord struct {
	ID       int64
	Type     TransactionType
	Amount   decimal.Decimal
	Currency CurrencyCode
	// CategoryID groups rows for per-category rollups.
	CategoryID int64
	Month      MonthKey
	// RecurringTemplateID is non-zero when the row was materialized from a
	// recurring template; the income projection uses it to avoid counting
	// an applied template twice.
	RecurringTemplateID int64
}

// BudgetLine is one planned amount for a category in a month, read-only here.
type BudgetLine struct {
	AccountID    int64
	CategoryID   int64
	CategoryName string
	CategoryType TransactionType
	Planned      decimal.Decimal
	Currency     CurrencyCode
	Month        MonthKey
}

// RecurringTemplate describes a repeating income or expense.
type RecurringTemplate struct {
	ID         int64
	Type       TransactionType
	Amount     decimal.Decimal
	Currency   CurrencyCode
	CategoryID int64
	IsActive   bool
	// StartMonth and EndMonth bound the template's lifetime; an empty key
	// leaves that side open.
	StartMonth MonthKey
	EndMonth   MonthKey
	DayOfMonth int
}

// ActiveFor reports whether the template applies to month m.
func (t RecurringTemplate) ActiveFor(m MonthKey) bool {
	if !t.IsActive {
		return false
	}
	if t.StartMonth != "" && t.StartMonth > m {
		return false
	}
	if t.EndMonth != "" && t.EndMonth < m {
		return false
	}
	return true
}

// IncomeGoal is an explicit income target. A month-specific goal overrides
// the account default; resolution happens in the repository, so the core only
// ever sees the one effective goal (or none).
type IncomeGoal struct {
	Amount    decimal.Decimal
	Currency  CurrencyCode
	IsDefault bool
}

// ParticipantShare is one side of a shared-expense debt as seen by the
// current user: either an amount a counterparty owes them, or an amount they
// owe a counterparty.
type ParticipantShare struct {
	CounterpartyID string
	Amount         decimal.Decimal
	Currency       CurrencyCode
	Status         ShareStatus
}
