package api

import (
	"delivery-trajectory-service/internal/api/handlers"
	"delivery-trajectory-service/internal/ports"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
// writer and hub may be nil.
func NewRouter(engine handlers.Engine, writer ports.ReportWriter, hub *handlers.StreamHub) http.Handler {
	mux := http.NewServeMux()

	health := &handlers.HealthHandler{Engine: engine}
	subjects := &handlers.SubjectHandler{Engine: engine, Writer: writer}
	camera := &handlers.CameraHandler{Engine: engine}

	mux.HandleFunc("/health", health.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /subjects", subjects.List)
	mux.HandleFunc("GET /subjects/{key}", subjects.Get)
	mux.HandleFunc("GET /subjects/{key}/summary", subjects.Summary)
	mux.HandleFunc("DELETE /subjects/{key}", subjects.Delete)
	mux.HandleFunc("POST /subjects/{key}/reports", subjects.Ingest)
	mux.HandleFunc("POST /subjects/{key}/episode", subjects.ResetEpisode)

	mux.HandleFunc("GET /subjects/{key}/camera", camera.State)
	mux.HandleFunc("POST /subjects/{key}/camera/{action}", camera.Gesture)

	if hub != nil {
		mux.HandleFunc("GET /subjects/{key}/stream", hub.ServeWS)
	}

	return requestIDMiddleware(loggingMiddleware(mux))
}
