package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Hatles/rx-home/internal/core"
)

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.Services.Services())
}

func (s *Server) handleCallService(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	service := chi.URLParam(r, "service")
	blocking := r.URL.Query().Get("blocking") == "1"

	data, err := decodeServiceData(r.Body)
	if err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	err = s.hub.Services.Call(r.Context(), domain, service, data, blocking, core.NewContext())
	if err != nil {
		switch {
		case errors.Is(err, core.ErrServiceNotFound):
			writeNotFound(w, err.Error())
		case errors.Is(err, core.ErrInvalidServiceData):
			writeBadRequest(w, err.Error())
		case errors.Is(err, core.ErrLoopStopped):
			writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "hub is not running")
		default:
			// Blocking calls surface the handler's own error.
			s.logger.Error("service call failed",
				"domain", domain,
				"service", service,
				"error", err,
			)
			writeInternalError(w)
		}
		return
	}

	status := http.StatusOK
	if !blocking {
		status = http.StatusAccepted
	}
	writeJSON(w, status, map[string]string{"result": "ok"})
}

// decodeServiceData reads an optional JSON object body. An empty body
// means no service data.
func decodeServiceData(body io.Reader) (map[string]any, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}
