package controllers

import (
	"encoding/json"
	"net/http"
)

type HealthController struct {
	backend interface{ BaseURL() string }
	state   interface{ SessionID() string }
}

func NewHealthController(backend interface{ BaseURL() string }, state interface{ SessionID() string }) *HealthController {
	return &HealthController{backend: backend, state: state}
}

func (h *HealthController) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":     "ok",
		"backend":    h.backend.BaseURL(),
		"session_id": h.state.SessionID(),
	})
}
