package dto

import (
	"encoding/json"
	"time"
)

// ReportRequest is one raw position report. Location accepts a
// "lon,lat" string, WKT/EWKT, hex EWKB, a [lon, lat] array, or a
// GeoJSON Point object.
type ReportRequest struct {
	ID        string          `json:"id"`
	Location  json.RawMessage `json:"location"`
	Timestamp time.Time       `json:"timestamp"`
	Status    string          `json:"status"`
}

// IngestRequest is a batch of reports for one subject.
//
// By default Reports is the subject's full feed so far, oldest first or in
// any order: resending earlier reports is expected and harmless, and the
// earliest report (or Origin) identifies the episode. A batch whose
// earliest report lies more than the new-episode threshold from the
// current episode start replaces the trajectory. Clients that push only
// new reports set Append, which extends the current episode instead.
type IngestRequest struct {
	Reports []ReportRequest `json:"reports"`
	// Origin is the shipment's sender location, same formats as Location.
	Origin json.RawMessage `json:"origin,omitempty"`
	Append bool            `json:"append,omitempty"`
}

type RejectedReport struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

type IngestResponse struct {
	SubjectKey string           `json:"subject_key"`
	Accepted   int              `json:"accepted"`
	Rejected   []RejectedReport `json:"rejected"`
	State      StateSummary     `json:"state"`
}

type ResetEpisodeRequest struct {
	Anchor json.RawMessage `json:"anchor"`
}
