package handlers

import (
	"net/http"
)

type HealthHandler struct {
	Engine Engine
}

// Health provides a minimal liveness check endpoint.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	res := map[string]any{
		"status":   "ok",
		"subjects": len(h.Engine.Subjects()),
	}
	writeJSON(w, r, http.StatusOK, res)
}
