package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const defaultHistoryLimit = 100

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "history recording is disabled")
		return
	}

	entityID := chi.URLParam(r, "entity_id")

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.history.History(r.Context(), entityID, limit)
	if err != nil {
		s.logger.Error("history query failed", "entity_id", entityID, "error", err)
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
