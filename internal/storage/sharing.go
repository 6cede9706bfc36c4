package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// SharedExpense is a persisted shared expense together with its computed
// shares.
type SharedExpense struct {
	ID          int64
	OwnerEmail  string
	Description string
	Total       decimal.Decimal
	Currency    core.CurrencyCode
	SplitType   core.SplitType
	Month       core.MonthKey
	Shares      map[string]core.Share
}

// CreateSharedExpense stores the expense and its shares in one transaction.
func (r *Repository) CreateSharedExpense(ctx context.Context, exp SharedExpense) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin shared expense: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO shared_expenses (owner_email, description, total_amount, currency, split_type, month)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		strings.ToLower(exp.OwnerEmail), exp.Description, exp.Total.String(),
		string(exp.Currency), string(exp.SplitType), string(exp.Month))
	if err != nil {
		return 0, fmt.Errorf("insert shared expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("shared expense id: %w", err)
	}

	for participant, share := range exp.Shares {
		var pct any
		if share.Percentage != nil {
			pct = share.Percentage.String()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO expense_shares (shared_expense_id, participant_email, amount, percentage, status)
			 VALUES (?, ?, ?, ?, ?)`,
			id, participant, share.Amount.String(), pct, string(core.SharePending)); err != nil {
			return 0, fmt.Errorf("insert share for %s: %w", participant, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit shared expense: %w", err)
	}
	slog.InfoContext(ctx, "Shared expense saved",
		"id", id,
		"owner", strings.ToLower(exp.OwnerEmail),
		"split_type", exp.SplitType,
		"participants", len(exp.Shares))
	return id, nil
}

// UpdateShareStatus marks one participant's share paid or declined. Only the
// participant named on the share may change it.
func (r *Repository) UpdateShareStatus(ctx context.Context, shareID int64, participantEmail string, status core.ShareStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expense_shares SET status = ? WHERE id = ? AND lower(participant_email) = lower(?)`,
		string(status), shareID, participantEmail)
	if err != nil {
		return fmt.Errorf("update share status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update share status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("share %d for %s: %w", shareID, participantEmail, ErrNotFound)
	}
	return nil
}

// SharedExpenseOwner returns the owner email of the expense a share belongs
// to, for notifying them on status changes.
func (r *Repository) SharedExpenseOwner(ctx context.Context, shareID int64) (string, error) {
	var owner string
	err := r.db.QueryRowContext(ctx,
		`SELECT se.owner_email FROM expense_shares es
		 JOIN shared_expenses se ON se.id = es.shared_expense_id
		 WHERE es.id = ?`, shareID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("share %d: %w", shareID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query share owner: %w", err)
	}
	return owner, nil
}

// SharesOwedTo returns every share on expenses the email owns: amounts other
// people owe them, with status so callers can filter.
func (r *Repository) SharesOwedTo(ctx context.Context, email string) ([]core.ParticipantShare, error) {
	return r.queryShares(ctx,
		`SELECT es.participant_email, es.amount, se.currency, es.status
		 FROM expense_shares es
		 JOIN shared_expenses se ON se.id = es.shared_expense_id
		 WHERE lower(se.owner_email) = lower(?)
		 ORDER BY es.id`, email)
}

// SharesOwedBy returns every share where the email is the participant:
// amounts they owe expense owners.
func (r *Repository) SharesOwedBy(ctx context.Context, email string) ([]core.ParticipantShare, error) {
	return r.queryShares(ctx,
		`SELECT se.owner_email, es.amount, se.currency, es.status
		 FROM expense_shares es
		 JOIN shared_expenses se ON se.id = es.shared_expense_id
		 WHERE lower(es.participant_email) = lower(?)
		 ORDER BY es.id`, email)
}

func (r *Repository) queryShares(ctx context.Context, query string, args ...any) ([]core.ParticipantShare, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query shares: %w", err)
	}
	defer rows.Close()

	var shares []core.ParticipantShare
	for rows.Next() {
		var (
			share               core.ParticipantShare
			amount, cur, status string
		)
		if err := rows.Scan(&share.CounterpartyID, &amount, &cur, &status); err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		share.Currency = core.CurrencyCode(cur)
		share.Status = core.ShareStatus(status)
		if share.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("share amount %q: %w", amount, err)
		}
		shares = append(shares, share)
	}
	return shares, rows.Err()
}
