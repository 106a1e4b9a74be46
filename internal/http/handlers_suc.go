package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"bendahara/internal/core"
)

// resolveEventID returns the eventId query parameter, falling back to the
// latest event when absent. The 400/404 is already written on error.
func (s *Server) resolveEventID(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, error) {
	if v := strings.TrimSpace(r.URL.Query().Get("eventId")); v != "" {
		return v, nil
	}
	event, err := s.collection.LatestEvent(ctx)
	if err != nil {
		writeServiceError(w, r, err)
		return "", err
	}
	return event.ID, nil
}

func (s *Server) handleSucProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed", "use GET")
		return
	}

	eventID, err := s.resolveEventID(r.Context(), w, r)
	if err != nil {
		return
	}

	progress, err := s.collection.Progress(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": progress})
}

func (s *Server) handleSucDetails(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed", "use GET")
		return
	}

	eventID, err := s.resolveEventID(r.Context(), w, r)
	if err != nil {
		return
	}

	details, err := s.collection.EventDetails(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if details == nil {
		details = []core.SucRecordDetail{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": details})
}

type sucPayRequest struct {
	MemberID string `json:"memberId"`
	EventID  string `json:"eventId"`
}

// handleSucPay marks one member's due as paid and logs the matching income
// transaction. Paying an already-paid record succeeds without effect.
func (s *Server) handleSucPay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed", "use POST")
		return
	}

	var req sucPayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "ValidationFailed", "malformed JSON body")
		return
	}
	req.MemberID = strings.TrimSpace(req.MemberID)
	req.EventID = strings.TrimSpace(req.EventID)
	if req.MemberID == "" || req.EventID == "" {
		writeError(w, r, http.StatusBadRequest, "ValidationFailed", "memberId and eventId are required")
		return
	}

	if err := s.collection.MarkAsPaid(r.Context(), req.MemberID, req.EventID); err != nil {
		if errors.Is(err, core.ErrRecordNotFound) {
			// Distinguish the seeding gap from an unknown member or event.
			writeError(w, r, http.StatusNotFound, "RecordNotFound",
				"no billing record for this member and event; run the seeding step first")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	s.invalidateReadCaches()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
