package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/storage"
)

var (
	ErrNoParticipants = errors.New("no valid participants")
	ErrInvalidSplit   = errors.New("invalid split")
)

// ShareStore is the slice of storage the sharing workflow needs.
type ShareStore interface {
	ValidParticipants(ctx context.Context, emails []string) (map[string]bool, error)
	CreateSharedExpense(ctx context.Context, exp storage.SharedExpense) (int64, error)
	UpdateShareStatus(ctx context.Context, shareID int64, participantEmail string, status core.ShareStatus) error
	SharedExpenseOwner(ctx context.Context, shareID int64) (string, error)
	SharesOwedTo(ctx context.Context, email string) ([]core.ParticipantShare, error)
	SharesOwedBy(ctx context.Context, email string) ([]core.ParticipantShare, error)
}

// ShareNotifier fans share events out to the message broker.
type ShareNotifier interface {
	PublishShareNotification(ctx context.Context, msg *amqp.ShareNotificationMessage) error
}

// SharingService validates and persists shared expenses and tracks their
// settlement state.
type SharingService struct {
	store    ShareStore
	notifier ShareNotifier
}

func NewSharingService(store ShareStore, notifier ShareNotifier) *SharingService {
	return &SharingService{store: store, notifier: notifier}
}

// SplitRequest is a request to share an expense with other users.
type SplitRequest struct {
	OwnerEmail   string
	Description  string
	Total        decimal.Decimal
	Currency     core.CurrencyCode
	SplitType    core.SplitType
	Month        core.MonthKey
	Participants []core.SplitParticipant
}

func (r SplitRequest) validate() error {
	if !r.Total.IsPositive() {
		return fmt.Errorf("total %s: %w", r.Total, core.ErrInvalidAmount)
	}
	if !r.Month.Valid() {
		return fmt.Errorf("month %q: %w", r.Month, core.ErrInvalidMonth)
	}
	switch r.SplitType {
	case core.SplitEqual:
	case core.SplitPercentage:
		sum := decimal.Zero
		for _, p := range r.Participants {
			if p.Percentage.IsNegative() {
				return fmt.Errorf("%w: negative percentage for %s", ErrInvalidSplit, p.ID)
			}
			sum = sum.Add(p.Percentage)
		}
		if sum.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("%w: percentages sum to %s", ErrInvalidSplit, sum)
		}
	case core.SplitFixed:
		sum := decimal.Zero
		for _, p := range r.Participants {
			if p.Amount.IsNegative() {
				return fmt.Errorf("%w: negative amount for %s", ErrInvalidSplit, p.ID)
			}
			sum = sum.Add(p.Amount)
		}
		if sum.GreaterThan(r.Total) {
			return fmt.Errorf("%w: fixed shares %s exceed total %s", ErrInvalidSplit, sum, r.Total)
		}
	default:
		return fmt.Errorf("%w: unknown split type %q", ErrInvalidSplit, r.SplitType)
	}
	return nil
}

// CreateSplit validates the request, computes each participant's share and
// persists the expense. The owner is never a participant of their own
// expense; their implicit remainder share is derived, not stored.
func (s *SharingService) CreateSplit(ctx context.Context, req SplitRequest) (int64, map[string]core.Share, error) {
	if err := req.validate(); err != nil {
		return 0, nil, err
	}

	owner := strings.ToLower(strings.TrimSpace(req.OwnerEmail))
	emails := make([]string, 0, len(req.Participants))
	for _, p := range req.Participants {
		emails = append(emails, p.ID)
	}
	valid, err := s.store.ValidParticipants(ctx, emails)
	if err != nil {
		return 0, nil, fmt.Errorf("validate participants: %w", err)
	}
	delete(valid, owner)

	shares := core.CalculateShares(req.SplitType, req.Total, req.Participants, valid)
	if len(shares) == 0 {
		return 0, nil, ErrNoParticipants
	}

	id, err := s.store.CreateSharedExpense(ctx, storage.SharedExpense{
		OwnerEmail:  owner,
		Description: req.Description,
		Total:       req.Total,
		Currency:    req.Currency,
		SplitType:   req.SplitType,
		Month:       req.Month,
		Shares:      shares,
	})
	if err != nil {
		return 0, nil, fmt.Errorf("save shared expense: %w", err)
	}

	for participant, share := range shares {
		s.notify(ctx, &amqp.ShareNotificationMessage{
			OwnerEmail:  owner,
			Participant: participant,
			Amount:      share.Amount.String(),
			Currency:    string(req.Currency),
			Status:      string(core.SharePending),
		})
	}

	return id, shares, nil
}

// UpdateStatus marks a participant's share paid or declined and notifies the
// expense owner.
func (s *SharingService) UpdateStatus(ctx context.Context, shareID int64, participantEmail string, status core.ShareStatus) error {
	if status != core.SharePaid && status != core.ShareDeclined {
		return fmt.Errorf("%w: status %q", ErrInvalidSplit, status)
	}
	if err := s.store.UpdateShareStatus(ctx, shareID, participantEmail, status); err != nil {
		return err
	}

	owner, err := s.store.SharedExpenseOwner(ctx, shareID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to resolve share owner for notification",
			"share_id", shareID, "error", err)
		return nil
	}
	s.notify(ctx, &amqp.ShareNotificationMessage{
		ShareID:     shareID,
		OwnerEmail:  owner,
		Participant: strings.ToLower(strings.TrimSpace(participantEmail)),
		Status:      string(status),
	})
	return nil
}

// Balances nets the user's pending shares into per-counterparty,
// per-currency settlement balances.
func (s *SharingService) Balances(ctx context.Context, email string) ([]core.SettlementBalance, error) {
	owedToMe, err := s.store.SharesOwedTo(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load shares owed to %s: %w", email, err)
	}
	iOwe, err := s.store.SharesOwedBy(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load shares owed by %s: %w", email, err)
	}
	return core.NetBalances(owedToMe, iOwe), nil
}

func (s *SharingService) notify(ctx context.Context, msg *amqp.ShareNotificationMessage) {
	if s.notifier == nil {
		return
	}
	// Best effort: the share is already persisted.
	if err := s.notifier.PublishShareNotification(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish share notification",
			"participant", msg.Participant, "error", err)
	}
}
