package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"tally/internal/core"
	"tally/internal/storage"
)

type budgetJSON struct {
	CategoryID   int64  `json:"category_id"`
	CategoryName string `json:"category_name"`
	CategoryType string `json:"category_type"`
	Planned      string `json:"planned"`
	Actual       string `json:"actual"`
	Remaining    string `json:"remaining"`
}

type trendPointJSON struct {
	Month   string `json:"month"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Net     string `json:"net"`
}

type balanceJSON struct {
	Counterparty string `json:"counterparty"`
	Currency     string `json:"currency"`
	TheyOwe      string `json:"they_owe"`
	YouOwe       string `json:"you_owe"`
	Net          string `json:"net"`
}

type dashboardJSON struct {
	Month    string `json:"month"`
	Currency string `json:"currency"`

	ActualIncome  string `json:"actual_income"`
	ActualExpense string `json:"actual_expense"`
	ActualNet     string `json:"actual_net"`

	IncomeSource            string `json:"income_source"`
	PlannedIncome           string `json:"planned_income"`
	ExpectedRemainingIncome string `json:"expected_remaining_income"`
	ProjectedNet            string `json:"projected_net"`
	RemainingExpenseBudget  string `json:"remaining_expense_budget"`

	Budgets []budgetJSON     `json:"budgets"`
	Trend   []trendPointJSON `json:"trend"`

	PreviousNet string `json:"previous_net"`
	NetChange   string `json:"net_change"`

	Balances []balanceJSON `json:"balances"`

	DegradedConversions int `json:"degraded_conversions"`
}

// handleDashboard serves GET /api/dashboard?account&month&currency.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	accountID, err := queryInt64(r, "account")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	month, err := core.ParseMonthKey(strings.TrimSpace(r.URL.Query().Get("month")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "month must be in YYYY-MM format")
		return
	}

	currency := core.CurrencyCode(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency"))))

	dashboard, err := s.dashboards.Build(r.Context(), accountID, month, currency)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "account not found")
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "Failed to build dashboard",
			"account_id", accountID,
			"month", month,
			"error", err)
		writeError(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}

	writeJSON(w, http.StatusOK, toDashboardJSON(dashboard))
}

func toDashboardJSON(d *core.Dashboard) dashboardJSON {
	out := dashboardJSON{
		Month:    string(d.Month),
		Currency: string(d.Currency),

		ActualIncome:  d.ActualIncome.StringFixed(2),
		ActualExpense: d.ActualExpense.StringFixed(2),
		ActualNet:     d.ActualNet.StringFixed(2),

		IncomeSource:            string(d.IncomeSource),
		PlannedIncome:           d.PlannedIncome.StringFixed(2),
		ExpectedRemainingIncome: d.ExpectedRemainingIncome.StringFixed(2),
		ProjectedNet:            d.ProjectedNet.StringFixed(2),
		RemainingExpenseBudget:  d.RemainingExpenseBudget.StringFixed(2),

		PreviousNet: d.PreviousNet.StringFixed(2),
		NetChange:   d.NetChange.StringFixed(2),

		Budgets:  make([]budgetJSON, 0, len(d.Budgets)),
		Trend:    make([]trendPointJSON, 0, len(d.Trend)),
		Balances: make([]balanceJSON, 0, len(d.Balances)),

		DegradedConversions: d.DegradedConversions,
	}

	for _, b := range d.Budgets {
		out.Budgets = append(out.Budgets, budgetJSON{
			CategoryID:   b.CategoryID,
			CategoryName: b.CategoryName,
			CategoryType: string(b.CategoryType),
			Planned:      b.Planned.StringFixed(2),
			Actual:       b.Actual.StringFixed(2),
			Remaining:    b.Remaining.StringFixed(2),
		})
	}
	for _, p := range d.Trend {
		out.Trend = append(out.Trend, trendPointJSON{
			Month:   string(p.Month),
			Income:  p.Income.StringFixed(2),
			Expense: p.Expense.StringFixed(2),
			Net:     p.Net.StringFixed(2),
		})
	}
	for _, b := range d.Balances {
		out.Balances = append(out.Balances, balanceJSON{
			Counterparty: b.CounterpartyID,
			Currency:     string(b.Currency),
			TheyOwe:      b.TheyOwe.StringFixed(2),
			YouOwe:       b.YouOwe.StringFixed(2),
			Net:          b.Net.StringFixed(2),
		})
	}
	return out
}
