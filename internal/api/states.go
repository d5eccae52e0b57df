package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Hatles/rx-home/internal/core"
)

// setStateRequest is the body accepted by PUT /api/v1/states/{entity_id}.
type setStateRequest struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func (s *Server) handleListStates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.States.All())
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entity_id")

	state := s.hub.States.Get(entityID)
	if state == nil {
		writeNotFound(w, "entity not found: "+entityID)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleSetState(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entity_id")

	var req setStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	existed := s.hub.States.Get(entityID) != nil

	state, err := s.hub.States.Set(entityID, req.State, req.Attributes, core.NewContext())
	if err != nil {
		if errors.Is(err, core.ErrInvalidEntityID) || errors.Is(err, core.ErrInvalidStateTransition) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("state set failed", "entity_id", entityID, "error", err)
		writeInternalError(w)
		return
	}

	status := http.StatusOK
	if !existed {
		status = http.StatusCreated
	}
	writeJSON(w, status, state)
}

func (s *Server) handleRemoveState(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entity_id")

	if !s.hub.States.Remove(entityID, core.NewContext()) {
		writeNotFound(w, "entity not found: "+entityID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
