package handlers

import (
	"delivery-trajectory-service/internal/api/dto"
	"delivery-trajectory-service/internal/domain"
	"delivery-trajectory-service/internal/geo"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// decodeBody reads exactly one JSON object into v.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return errors.New("invalid json body")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain only one JSON object")
	}
	return nil
}

// parseLocation accepts a JSON string in any format geo.ParseCoordinate
// understands, or a raw JSON array / GeoJSON object.
func parseLocation(raw json.RawMessage) (domain.Coordinates, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return domain.Coordinates{}, errors.New("location is required")
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return domain.Coordinates{}, fmt.Errorf("location: %w", err)
		}
		s = str
	}
	return geo.ParseCoordinate(s)
}

func summarize(st domain.AnimationState, follow domain.FollowState) dto.StateSummary {
	out := dto.StateSummary{
		SubjectKey:      st.SubjectKey,
		Generation:      st.Generation,
		IsPlaying:       st.IsPlaying,
		PendingLegs:     len(st.PendingLegs),
		CompletedPoints: len(st.CompletedPath),
		Following:       follow.IsFollowing,
		OverrideUntil:   follow.UserOverrideUntil,
	}
	if st.CurrentPosition != nil {
		out.CurrentPosition = st.CurrentPosition.CoordsToList()
	}
	if st.EpisodeStart != nil {
		out.EpisodeStart = st.EpisodeStart.CoordsToList()
	}
	return out
}
