// Package storage implements the sqlite-backed repositories behind the
// aggregation engine: the ledger, budgets, recurring templates, income goals
// and shared expenses.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"tally/internal/core"
)

var ErrNotFound = errors.New("not found")

type Repository struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at dbPath and applies
// migrations.
func Open(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Account returns the identity needed to aggregate for an account: its email
// (the participant key in shared expenses) and preferred currency.
func (r *Repository) Account(ctx context.Context, accountID int64) (email string, preferred core.CurrencyCode, err error) {
	var currency string
	err = r.db.QueryRowContext(ctx,
		`SELECT email, preferred_currency FROM accounts WHERE id = ?`, accountID).
		Scan(&email, &currency)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", fmt.Errorf("account %d: %w", accountID, ErrNotFound)
	}
	if err != nil {
		return "", "", fmt.Errorf("load account %d: %w", accountID, err)
	}
	return email, core.CurrencyCode(currency), nil
}

// AccountIDs lists every account, for workers that sweep all of them.
func (r *Repository) AccountIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateAccount inserts an account and returns its id.
func (r *Repository) CreateAccount(ctx context.Context, email string, preferred core.CurrencyCode) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (email, preferred_currency) VALUES (?, ?)`, email, string(preferred))
	if err != nil {
		return 0, fmt.Errorf("create account: %w", err)
	}
	return res.LastInsertId()
}

// CreateCategory inserts a category and returns its id.
func (r *Repository) CreateCategory(ctx context.Context, accountID int64, name string, t core.TransactionType) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (account_id, name, type) VALUES (?, ?, ?)`, accountID, name, string(t))
	if err != nil {
		return 0, fmt.Errorf("create category: %w", err)
	}
	return res.LastInsertId()
}

// InsertTransaction appends a ledger row and returns its id.
func (r *Repository) InsertTransaction(ctx context.Context, accountID int64, rec core.TransactionRecord) (int64, error) {
	var templateID any
	if rec.RecurringTemplateID != 0 {
		templateID = rec.RecurringTemplateID
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (account_id, category_id, type, amount, currency, month, recurring_template_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		accountID, rec.CategoryID, string(rec.Type), rec.Amount.String(), string(rec.Currency), string(rec.Month), templateID)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert transaction id: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"account_id", accountID,
		"type", rec.Type,
		"month", rec.Month)
	return id, nil
}

// TransactionsForMonth returns the account's live rows for one month.
func (r *Repository) TransactionsForMonth(ctx context.Context, accountID int64, month core.MonthKey) ([]core.TransactionRecord, error) {
	return r.queryTransactions(ctx,
		`SELECT id, type, amount, currency, category_id, month, COALESCE(recurring_template_id, 0)
		 FROM transactions
		 WHERE account_id = ? AND month = ? AND deleted_at IS NULL
		 ORDER BY id`, accountID, string(month))
}

// TransactionsForRange returns live rows for months in [from, to],
// inclusive. MonthKey's fixed-width form makes the BETWEEN comparison
// chronological.
func (r *Repository) TransactionsForRange(ctx context.Context, accountID int64, from, to core.MonthKey) ([]core.TransactionRecord, error) {
	return r.queryTransactions(ctx,
		`SELECT id, type, amount, currency, category_id, month, COALESCE(recurring_template_id, 0)
		 FROM transactions
		 WHERE account_id = ? AND month BETWEEN ? AND ? AND deleted_at IS NULL
		 ORDER BY month, id`, accountID, string(from), string(to))
}

func (r *Repository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.TransactionRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var records []core.TransactionRecord
	for rows.Next() {
		var (
			rec             core.TransactionRecord
			txType, amount  string
			currency, month string
		)
		if err := rows.Scan(&rec.ID, &txType, &amount, &currency, &rec.CategoryID, &month, &rec.RecurringTemplateID); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		rec.Type = core.TransactionType(txType)
		rec.Currency = core.CurrencyCode(currency)
		rec.Month = core.MonthKey(month)
		if rec.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("transaction %d amount %q: %w", rec.ID, amount, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return records, nil
}

// AppliedTemplateIDs returns the set of recurring template ids that already
// produced a transaction for the month.
func (r *Repository) AppliedTemplateIDs(ctx context.Context, accountID int64, month core.MonthKey) (map[int64]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT recurring_template_id FROM transactions
		 WHERE account_id = ? AND month = ? AND recurring_template_id IS NOT NULL AND deleted_at IS NULL`,
		accountID, string(month))
	if err != nil {
		return nil, fmt.Errorf("query applied templates: %w", err)
	}
	defer rows.Close()

	applied := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan applied template: %w", err)
		}
		applied[id] = true
	}
	return applied, rows.Err()
}

// UpsertBudget creates or replaces the planned amount for one
// (account, category, month).
func (r *Repository) UpsertBudget(ctx context.Context, line core.BudgetLine) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (account_id, category_id, amount, currency, month)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (account_id, category_id, month)
		 DO UPDATE SET amount = excluded.amount, currency = excluded.currency`,
		line.AccountID, line.CategoryID, line.Planned.String(), string(line.Currency), string(line.Month))
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

// BudgetsForMonth returns the account's budget lines with the category
// joined.
func (r *Repository) BudgetsForMonth(ctx context.Context, accountID int64, month core.MonthKey) ([]core.BudgetLine, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.account_id, b.category_id, c.name, c.type, b.amount, b.currency, b.month
		 FROM budgets b
		 JOIN categories c ON c.id = b.category_id
		 WHERE b.account_id = ? AND b.month = ?
		 ORDER BY c.name`, accountID, string(month))
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	var lines []core.BudgetLine
	for rows.Next() {
		var (
			line                           core.BudgetLine
			catType, amount, cur, monthKey string
		)
		if err := rows.Scan(&line.AccountID, &line.CategoryID, &line.CategoryName, &catType, &amount, &cur, &monthKey); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		line.CategoryType = core.TransactionType(catType)
		line.Currency = core.CurrencyCode(cur)
		line.Month = core.MonthKey(monthKey)
		if line.Planned, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("budget amount %q: %w", amount, err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// CreateTemplate inserts a recurring template and returns its id.
func (r *Repository) CreateTemplate(ctx context.Context, accountID int64, t core.RecurringTemplate) (int64, error) {
	var start, end any
	if t.StartMonth != "" {
		start = string(t.StartMonth)
	}
	if t.EndMonth != "" {
		end = string(t.EndMonth)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_templates (account_id, category_id, type, amount, currency, is_active, start_month, end_month, day_of_month)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		accountID, t.CategoryID, string(t.Type), t.Amount.String(), string(t.Currency), t.IsActive, start, end, t.DayOfMonth)
	if err != nil {
		return 0, fmt.Errorf("create template: %w", err)
	}
	return res.LastInsertId()
}

// TemplatesForAccount returns all of the account's recurring templates,
// active or not; activity for a given month is the core's call.
func (r *Repository) TemplatesForAccount(ctx context.Context, accountID int64) ([]core.RecurringTemplate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, category_id, type, amount, currency, is_active, COALESCE(start_month, ''), COALESCE(end_month, ''), day_of_month
		 FROM recurring_templates WHERE account_id = ? ORDER BY id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var templates []core.RecurringTemplate
	for rows.Next() {
		var (
			t                  core.RecurringTemplate
			tType, amount, cur string
			start, end         string
		)
		if err := rows.Scan(&t.ID, &t.CategoryID, &tType, &amount, &cur, &t.IsActive, &start, &end, &t.DayOfMonth); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		t.Type = core.TransactionType(tType)
		t.Currency = core.CurrencyCode(cur)
		t.StartMonth = core.MonthKey(start)
		t.EndMonth = core.MonthKey(end)
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("template %d amount %q: %w", t.ID, amount, err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// SetGoal stores a goal. A nil month sets the account default.
func (r *Repository) SetGoal(ctx context.Context, accountID int64, goal core.IncomeGoal, month *core.MonthKey) error {
	if month != nil {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO income_goals (account_id, amount, currency, month, is_default)
			 VALUES (?, ?, ?, ?, 0)
			 ON CONFLICT (account_id, month) WHERE month IS NOT NULL
			 DO UPDATE SET amount = excluded.amount, currency = excluded.currency`,
			accountID, goal.Amount.String(), string(goal.Currency), string(*month))
		if err != nil {
			return fmt.Errorf("set month goal: %w", err)
		}
		return nil
	}
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM income_goals WHERE account_id = ? AND is_default = 1`, accountID); err != nil {
		return fmt.Errorf("replace default goal: %w", err)
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO income_goals (account_id, amount, currency, month, is_default) VALUES (?, ?, ?, NULL, 1)`,
		accountID, goal.Amount.String(), string(goal.Currency)); err != nil {
		return fmt.Errorf("set default goal: %w", err)
	}
	return nil
}

// GoalForMonth resolves the effective goal: the month-specific one when set,
// otherwise the account default, otherwise nil.
func (r *Repository) GoalForMonth(ctx context.Context, accountID int64, month core.MonthKey) (*core.IncomeGoal, error) {
	var (
		amount, cur string
		isDefault   bool
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT amount, currency, is_default FROM income_goals
		 WHERE account_id = ? AND (month = ? OR is_default = 1)
		 ORDER BY is_default ASC
		 LIMIT 1`, accountID, string(month)).
		Scan(&amount, &cur, &isDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query goal: %w", err)
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("goal amount %q: %w", amount, err)
	}
	return &core.IncomeGoal{Amount: value, Currency: core.CurrencyCode(cur), IsDefault: isDefault}, nil
}

// ValidParticipants lower-cases the candidate emails and returns the subset
// that belong to known accounts.
func (r *Repository) ValidParticipants(ctx context.Context, emails []string) (map[string]bool, error) {
	valid := make(map[string]bool, len(emails))
	for _, email := range emails {
		var exists bool
		err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM accounts WHERE lower(email) = lower(?))`, email).
			Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("check participant %q: %w", email, err)
		}
		if exists {
			valid[strings.ToLower(strings.TrimSpace(email))] = true
		}
	}
	return valid, nil
}
