package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SplitParticipant is one requested participant of a shared expense.
// Identity is by email in the surrounding system.
type SplitParticipant struct {
	ID string
	// Percentage is used by PERCENTAGE splits (0-100 per participant).
	Percentage decimal.Decimal
	// Amount is used verbatim by FIXED splits.
	Amount decimal.Decimal
}

// Share is one participant's computed portion of a shared expense.
type Share struct {
	Amount decimal.Decimal
	// Percentage is set only for percentage splits.
	Percentage *decimal.Decimal
}

var oneHundred = decimal.NewFromInt(100)

// CalculateShares computes each participant's share of a total amount.
//
// EQUAL divides the total by participantCount+1: the expense owner is not in
// the participant list but holds an implicit equal share, which callers must
// derive as total minus the sum of participant shares (see
// OwnerImplicitShare) so the total reconciles exactly despite rounding.
// PERCENTAGE applies each participant's own percentage of the total. FIXED
// takes amounts verbatim.
//
// Participant keys are lower-cased before use, and any participant absent
// from validIDs is silently skipped, which shields the math from stale or
// removed-user requests. The function assumes pre-validated input: it does
// not check that percentages stay under 100% or that fixed shares stay under
// the total, that is the caller's contract.
func CalculateShares(splitType SplitType, total decimal.Decimal, participants []SplitParticipant, validIDs map[string]bool) map[string]Share {
	valid := make([]SplitParticipant, 0, len(participants))
	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		id := strings.ToLower(strings.TrimSpace(p.ID))
		if id == "" || !validIDs[id] || seen[id] {
			continue
		}
		seen[id] = true
		p.ID = id
		valid = append(valid, p)
	}

	shares := make(map[string]Share, len(valid))
	switch splitType {
	case SplitEqual:
		if len(valid) == 0 {
			return shares
		}
		// +1 for the owner's implicit share.
		each := RoundCents(total.Div(decimal.NewFromInt(int64(len(valid) + 1))))
		for _, p := range valid {
			shares[p.ID] = Share{Amount: each}
		}
	case SplitPercentage:
		for _, p := range valid {
			pct := p.Percentage
			shares[p.ID] = Share{
				Amount:     RoundCents(total.Mul(pct).Div(oneHundred)),
				Percentage: &pct,
			}
		}
	case SplitFixed:
		for _, p := range valid {
			shares[p.ID] = Share{Amount: RoundCents(p.Amount)}
		}
	}
	return shares
}

// OwnerImplicitShare derives the owner's never-materialized share: whatever
// of the total the participant shares do not cover, rounding remainder
// included.
func OwnerImplicitShare(total decimal.Decimal, shares map[string]Share) decimal.Decimal {
	claimed := decimal.Zero
	for _, s := range shares {
		claimed = claimed.Add(s.Amount)
	}
	return RoundCents(total.Sub(claimed))
}
