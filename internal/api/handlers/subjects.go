package handlers

import (
	"context"
	"delivery-trajectory-service/internal/api/dto"
	"delivery-trajectory-service/internal/domain"
	"delivery-trajectory-service/internal/geo"
	"delivery-trajectory-service/internal/platform/obs"
	"delivery-trajectory-service/internal/ports"
	"delivery-trajectory-service/internal/services"
	"errors"
	"log"
	"net/http"
	"strings"
)

// Engine is the slice of services.Engine the HTTP layer depends on.
type Engine interface {
	Ingest(ctx context.Context, subjectKey string, reports []domain.PositionReport, opts ...services.IngestOption) error
	ResetEpisode(subjectKey string, anchor domain.Coordinates) error
	Remove(subjectKey string) bool
	State(subjectKey string) (domain.AnimationState, bool)
	Subjects() []string
	ManualPanStarted(subjectKey string) error
	ManualPanEnded(subjectKey string) error
	ResumeFollowing(subjectKey string) error
	FollowState(subjectKey string) (domain.FollowState, error)
}

type SubjectHandler struct {
	Engine Engine
	// Writer, when set, persists accepted reports so the poll feed and
	// restarts see them.
	Writer ports.ReportWriter
}

func (h *SubjectHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, dto.ListSubjectsResponse{Subjects: h.Engine.Subjects()})
}

// Ingest accepts a batch of raw reports for one subject. Reports whose
// location cannot be parsed are rejected individually; the rest are
// reconciled. Batches are cumulative unless the request sets append; see
// dto.IngestRequest.
func (h *SubjectHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.PathValue("key"))
	if key == "" {
		writeError(w, r, http.StatusBadRequest, services.ErrMissingSubjectKey.Error())
		return
	}

	var req dto.IngestRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var opts []services.IngestOption
	if len(req.Origin) > 0 {
		origin, err := parseLocation(req.Origin)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "origin: "+err.Error())
			return
		}
		opts = append(opts, services.WithOrigin(origin))
	}
	if req.Append {
		opts = append(opts, services.WithAppend())
	}

	reports := make([]domain.PositionReport, 0, len(req.Reports))
	rejected := make([]dto.RejectedReport, 0)
	for i, rr := range req.Reports {
		c, err := parseLocation(rr.Location)
		if err != nil {
			rejected = append(rejected, dto.RejectedReport{Index: i, ID: rr.ID, Error: err.Error()})
			obs.ReportsDropped.WithLabelValues("unparseable").Inc()
			continue
		}
		reports = append(reports, domain.PositionReport{
			ID:         strings.TrimSpace(rr.ID),
			SubjectKey: key,
			Coordinate: c,
			Timestamp:  rr.Timestamp,
			Status:     domain.ReportStatus(rr.Status),
		})
	}

	ctx := obs.WithSubject(r.Context(), key)

	if h.Writer != nil && len(reports) > 0 {
		if err := h.Writer.InsertReports(ctx, reports); err != nil {
			log.Printf("ingest: subject=%s persist reports: %v", key, err)
		}
	}

	if err := h.Engine.Ingest(ctx, key, reports, opts...); err != nil {
		writeEngineError(w, r, err)
		return
	}

	st, _ := h.Engine.State(key)
	follow, _ := h.Engine.FollowState(key)
	writeJSON(w, r, http.StatusAccepted, dto.IngestResponse{
		SubjectKey: key,
		Accepted:   len(reports),
		Rejected:   rejected,
		State:      summarize(st, follow),
	})
}

// Get renders the subject as a GeoJSON FeatureCollection.
func (h *SubjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.PathValue("key"))
	st, ok := h.Engine.State(key)
	if !ok {
		writeError(w, r, http.StatusNotFound, "subject not found")
		return
	}

	fc := geo.StateFeatureCollection(st)
	b, err := fc.MarshalJSON()
	if err != nil {
		log.Printf("state: subject=%s marshal geojson: %v", key, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *SubjectHandler) Summary(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.PathValue("key"))
	st, ok := h.Engine.State(key)
	if !ok {
		writeError(w, r, http.StatusNotFound, "subject not found")
		return
	}
	follow, _ := h.Engine.FollowState(key)
	writeJSON(w, r, http.StatusOK, summarize(st, follow))
}

func (h *SubjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.Engine.Remove(r.PathValue("key")) {
		writeError(w, r, http.StatusNotFound, "subject not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetEpisode starts a new episode at the given anchor.
func (h *SubjectHandler) ResetEpisode(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.PathValue("key"))

	var req dto.ResetEpisodeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	anchor, err := parseLocation(req.Anchor)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "anchor: "+err.Error())
		return
	}

	if err := h.Engine.ResetEpisode(key, anchor); err != nil {
		writeEngineError(w, r, err)
		return
	}

	st, _ := h.Engine.State(key)
	follow, _ := h.Engine.FollowState(key)
	writeJSON(w, r, http.StatusOK, summarize(st, follow))
}

func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrMissingSubjectKey), errors.Is(err, domain.ErrInvalidCoordinate):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrUnknownSubject):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrEngineClosed):
		writeError(w, r, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send.
		return
	default:
		log.Printf("engine call failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}
