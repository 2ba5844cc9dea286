package domain

import (
	"strings"
	"time"
)

// Delivery stage carried by a report; empty when the source does not label it.
type ReportStatus string

const (
	StatusPickup         ReportStatus = "pickup"
	StatusInTransit      ReportStatus = "in_transit"
	StatusOutForDelivery ReportStatus = "out_for_delivery"
	StatusDelivered      ReportStatus = "delivered"
)

// PositionReport is a single raw position observation for a subject.
// Reports are produced by an external data source and never mutated
// once they have been ingested.
type PositionReport struct {
	ID         string
	SubjectKey string
	Coordinate Coordinates
	Timestamp  time.Time
	Status     ReportStatus
}

// ReportKey returns the identity used for de-duplication.
//
// Sources that do not supply a stable ID fall back to the rounded
// coordinate string, so two ID-less reports at the same spot collapse
// into one.
func ReportKey(r PositionReport) string {
	if id := strings.TrimSpace(r.ID); id != "" {
		return id
	}
	return r.Coordinate.Key()
}
