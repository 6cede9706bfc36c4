package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/services"
	"tally/internal/storage"
)

type shareParticipantJSON struct {
	Email      string `json:"email"`
	Percentage string `json:"percentage,omitempty"`
	Amount     string `json:"amount,omitempty"`
}

type createShareRequest struct {
	OwnerEmail   string                 `json:"owner_email"`
	Description  string                 `json:"description"`
	Total        string                 `json:"total"`
	Currency     string                 `json:"currency"`
	SplitType    string                 `json:"split_type"`
	Month        string                 `json:"month"`
	Participants []shareParticipantJSON `json:"participants"`
}

type shareJSON struct {
	Participant string `json:"participant"`
	Amount      string `json:"amount"`
	Percentage  string `json:"percentage,omitempty"`
}

type createShareResponse struct {
	ID         int64       `json:"id"`
	Shares     []shareJSON `json:"shares"`
	OwnerShare string      `json:"owner_share"`
}

// handleCreateShare serves POST /api/shares.
func (s *Server) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	var body createShareRequest
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	total, err := decimal.NewFromString(strings.TrimSpace(body.Total))
	if err != nil {
		writeError(w, http.StatusBadRequest, "total must be a decimal amount")
		return
	}

	req := services.SplitRequest{
		OwnerEmail:  body.OwnerEmail,
		Description: body.Description,
		Total:       total,
		Currency:    core.CurrencyCode(strings.ToUpper(strings.TrimSpace(body.Currency))),
		SplitType:   core.SplitType(strings.ToUpper(strings.TrimSpace(body.SplitType))),
		Month:       core.MonthKey(strings.TrimSpace(body.Month)),
	}
	for _, p := range body.Participants {
		sp := core.SplitParticipant{ID: p.Email}
		if p.Percentage != "" {
			if sp.Percentage, err = decimal.NewFromString(p.Percentage); err != nil {
				writeError(w, http.StatusBadRequest, "percentage must be a decimal")
				return
			}
		}
		if p.Amount != "" {
			if sp.Amount, err = decimal.NewFromString(p.Amount); err != nil {
				writeError(w, http.StatusBadRequest, "amount must be a decimal")
				return
			}
		}
		req.Participants = append(req.Participants, sp)
	}

	id, shares, err := s.shares.CreateSplit(r.Context(), req)
	switch {
	case errors.Is(err, services.ErrNoParticipants),
		errors.Is(err, services.ErrInvalidSplit),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidMonth):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "Failed to create shared expense", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create shared expense")
		return
	}

	resp := createShareResponse{
		ID:         id,
		OwnerShare: core.OwnerImplicitShare(total, shares).StringFixed(2),
	}
	for participant, share := range shares {
		sj := shareJSON{Participant: participant, Amount: share.Amount.StringFixed(2)}
		if share.Percentage != nil {
			sj.Percentage = share.Percentage.String()
		}
		resp.Shares = append(resp.Shares, sj)
	}

	writeJSON(w, http.StatusCreated, resp)
}

type shareStatusRequest struct {
	Participant string `json:"participant"`
	Status      string `json:"status"`
}

// handleShareStatus serves POST /api/shares/{id}/status.
func (s *Server) handleShareStatus(w http.ResponseWriter, r *http.Request) {
	shareID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid share id")
		return
	}

	var body shareStatusRequest
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	status := core.ShareStatus(strings.ToUpper(strings.TrimSpace(body.Status)))
	err = s.shares.UpdateStatus(r.Context(), shareID, body.Participant, status)
	switch {
	case errors.Is(err, services.ErrInvalidSplit):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "share not found")
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "Failed to update share status",
			"share_id", shareID,
			"error", err)
		writeError(w, http.StatusInternalServerError, "failed to update share status")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

// handleBalances serves GET /api/balances?email.
func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "missing \"email\" parameter")
		return
	}

	balances, err := s.shares.Balances(r.Context(), email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to compute balances",
			"email", email,
			"error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute balances")
		return
	}

	out := make([]balanceJSON, 0, len(balances))
	for _, b := range balances {
		out = append(out, balanceJSON{
			Counterparty: b.CounterpartyID,
			Currency:     string(b.Currency),
			TheyOwe:      b.TheyOwe.StringFixed(2),
			YouOwe:       b.YouOwe.StringFixed(2),
			Net:          b.Net.StringFixed(2),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"balances": out})
}
