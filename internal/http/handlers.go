package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bendahara/internal/core"
	applog "bendahara/internal/log"
)

const dashboardCacheKey = "dashboard"

func chartCacheKey(windowDays int) string {
	return "chart-" + strconv.Itoa(windowDays)
}

// errorResponse is the wire shape of every failure.
type errorResponse struct {
	Success   bool   `json:"success"`
	ErrorKind string `json:"errorKind"`
	Message   string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Success: false, ErrorKind: kind, Message: message})
}

// writeServiceError maps a service-layer error to its wire kind and status.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := core.ErrorKind(err)
	status := http.StatusInternalServerError
	switch kind {
	case "NotFound", "RecordNotFound":
		status = http.StatusNotFound
	case "ValidationFailed":
		status = http.StatusBadRequest
	case "StorageUnavailable":
		status = http.StatusServiceUnavailable
	}
	if status >= 500 {
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err,
			"url", r.URL.Path,
			applog.FieldRequestID, requestIDFromContext(r.Context()))
	}
	writeJSON(w, status, errorResponse{Success: false, ErrorKind: kind, Message: err.Error()})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleReady checks that the read path works end to end.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	totals, err := s.reports.DashboardTotals(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ready",
		"ledgerGapCents": totals.LedgerGap().Cents,
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed", "use GET")
		return
	}

	if totals, found := s.dashboardCache.Get(dashboardCacheKey); found {
		slog.DebugContext(r.Context(), "Dashboard cache hit")
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": totals})
		return
	}

	totals, err := s.reports.DashboardTotals(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.dashboardCache.Set(dashboardCacheKey, totals)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": totals})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed", "use GET")
		return
	}

	windowDays := s.chartWindow
	if v := strings.TrimSpace(r.URL.Query().Get("days")); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d < 1 || d > 366 {
			writeError(w, r, http.StatusBadRequest, "ValidationFailed", "days must be between 1 and 366")
			return
		}
		windowDays = d
	}

	key := chartCacheKey(windowDays)
	if series, found := s.chartCache.Get(key); found {
		slog.DebugContext(r.Context(), "Chart cache hit", "window_days", windowDays)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": series})
		return
	}

	series, err := s.reports.ChartSeries(r.Context(), windowDays)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if series == nil {
		series = []core.ChartPoint{}
	}
	s.chartCache.Set(key, series)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": series})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListTransactions(w, r)
	case http.MethodPost:
		s.handleCreateTransaction(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed", "use GET or POST")
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	var (
		txs []core.Transaction
		err error
	)
	if v := strings.TrimSpace(r.URL.Query().Get("recent")); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 1 || n > 1000 {
			writeError(w, r, http.StatusBadRequest, "ValidationFailed", "recent must be between 1 and 1000")
			return
		}
		txs, err = s.reports.RecentTransactions(r.Context(), n)
	} else {
		txs, err = s.reports.AllTransactions(r.Context())
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": txs})
}

// createTransactionRequest accepts the amount either as an integer cents field
// or as a decimal string.
type createTransactionRequest struct {
	AmountCents int64  `json:"amountCents"`
	Amount      string `json:"amount"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"` // YYYY-MM-DD, optional
	PocketID    string `json:"pocketId"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "ValidationFailed", "malformed JSON body")
		return
	}

	cents := req.AmountCents
	if cents == 0 && strings.TrimSpace(req.Amount) != "" {
		parsed, err := core.ParseDecimalToCents(req.Amount)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "ValidationFailed", "invalid amount")
			return
		}
		cents = parsed
	}

	txn := core.Transaction{
		Amount:      core.Money{Cents: cents},
		Type:        core.TransactionType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
	}
	if v := strings.TrimSpace(req.Date); v != "" {
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "ValidationFailed", "date must be YYYY-MM-DD")
			return
		}
		txn.Date = d
	}
	if v := strings.TrimSpace(req.PocketID); v != "" {
		txn.PocketID = &v
	}

	created, err := s.entry.RecordTransaction(r.Context(), txn)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateReadCaches()
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": created})
}

// sanitizeInput removes potentially dangerous characters and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}
