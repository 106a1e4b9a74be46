package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"bendahara/internal/core"
)

func (s *Server) handlePockets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListPockets(w, r)
	case http.MethodPost:
		s.handleCreatePocket(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed", "use GET or POST")
	}
}

func (s *Server) handleListPockets(w http.ResponseWriter, r *http.Request) {
	pockets, err := s.ledger.ListPockets(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if pockets == nil {
		pockets = []core.Pocket{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": pockets})
}

type createPocketRequest struct {
	Name                string `json:"name"`
	InitialBalanceCents int64  `json:"initialBalanceCents"`
}

func (s *Server) handleCreatePocket(w http.ResponseWriter, r *http.Request) {
	var req createPocketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "ValidationFailed", "malformed JSON body")
		return
	}

	pocket, err := s.ledger.CreatePocket(r.Context(), sanitizeInput(req.Name), req.InitialBalanceCents)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateReadCaches()
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": pocket})
}

// handlePocketByID serves /api/pockets/{id}.
func (s *Server) handlePocketByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/pockets/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "NotFound", "pocket not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		details, err := s.ledger.PocketDetails(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": details})
	case http.MethodDelete:
		if err := s.ledger.DeletePocket(r.Context(), id); err != nil {
			writeServiceError(w, r, err)
			return
		}
		slog.InfoContext(r.Context(), "Pocket deleted", "pocket_id", id)
		s.invalidateReadCaches()
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	default:
		w.Header().Set("Allow", "GET, DELETE")
		writeError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed", "use GET or DELETE")
	}
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed", "use POST")
		return
	}

	corrected, err := s.ledger.Reconcile(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateReadCaches()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "corrected": corrected})
}
