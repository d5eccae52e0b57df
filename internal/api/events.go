package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Hatles/rx-home/internal/core"
)

func (s *Server) handlePublishEvent(w http.ResponseWriter, r *http.Request) {
	eventType := chi.URLParam(r, "event_type")
	if eventType == "" {
		writeBadRequest(w, "event type is required")
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "failed to read body")
		return
	}

	var data map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}

	ev := s.hub.Bus.Publish(eventType, data, core.OriginRemote, core.NewContext())
	writeJSON(w, http.StatusOK, ev)
}
