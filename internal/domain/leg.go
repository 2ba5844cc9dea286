package domain

// Leg is one planned, animatable movement between two consecutive known
// positions. Path always starts near From and ends at To.
type Leg struct {
	ID  string
	Seq int
	// Generation is the episode the leg was planned in.
	Generation int
	From       Coordinates
	To         Coordinates
	Path       Path
	Status     ReportStatus
	Degraded   bool
}
