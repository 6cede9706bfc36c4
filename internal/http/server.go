// Package http exposes the aggregation engine as a small JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"tally/internal/core"
	applog "tally/internal/log"
	"tally/internal/services"
)

// DashboardBuilder is the single read operation behind the dashboard route.
type DashboardBuilder interface {
	Build(ctx context.Context, accountID int64, month core.MonthKey, currency core.CurrencyCode) (*core.Dashboard, error)
}

// ShareManager is the sharing workflow behind the shares routes.
type ShareManager interface {
	CreateSplit(ctx context.Context, req services.SplitRequest) (int64, map[string]core.Share, error)
	UpdateStatus(ctx context.Context, shareID int64, participantEmail string, status core.ShareStatus) error
	Balances(ctx context.Context, email string) ([]core.SettlementBalance, error)
}

type Server struct {
	http.Server
	dashboards  DashboardBuilder
	shares      ShareManager
	rateLimiter *rateLimiter
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, dashboards DashboardBuilder, shares ShareManager, requestsPerMinute int, logger *applog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		dashboards:  dashboards,
		shares:      shares,
		rateLimiter: newRateLimiter(requestsPerMinute),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/balances", s.handleBalances)
	mux.HandleFunc("POST /api/shares", s.handleCreateShare)
	mux.HandleFunc("POST /api/shares/{id}/status", s.handleShareStatus)

	handler := applog.RequestMiddleware(logger)(s.withRateLimit(mux))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.stop()
	return s.Server.Shutdown(ctx)
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.allow(clientIP(r)) {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				"client_ip", clientIP(r),
				"path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
