package handlers

import (
	"delivery-trajectory-service/internal/api/dto"
	"net/http"
	"strings"
)

type CameraHandler struct {
	Engine Engine
}

// Gesture applies a user camera gesture: pan-start, pan-end or recenter.
func (h *CameraHandler) Gesture(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.PathValue("key"))

	var err error
	switch r.PathValue("action") {
	case "pan-start":
		err = h.Engine.ManualPanStarted(key)
	case "pan-end":
		err = h.Engine.ManualPanEnded(key)
	case "recenter":
		err = h.Engine.ResumeFollowing(key)
	default:
		writeError(w, r, http.StatusNotFound, "unknown camera action")
		return
	}
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	h.State(w, r)
}

func (h *CameraHandler) State(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.PathValue("key"))
	fs, err := h.Engine.FollowState(key)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FollowStateResponse{
		SubjectKey:    key,
		Following:     fs.IsFollowing,
		OverrideUntil: fs.UserOverrideUntil,
	})
}
