package dto

import "time"

type StateSummary struct {
	SubjectKey      string     `json:"subject_key"`
	Generation      int        `json:"generation"`
	IsPlaying       bool       `json:"is_playing"`
	PendingLegs     int        `json:"pending_legs"`
	CompletedPoints int        `json:"completed_points"`
	CurrentPosition []float64  `json:"current_position,omitempty"`
	EpisodeStart    []float64  `json:"episode_start,omitempty"`
	Following       bool       `json:"following"`
	OverrideUntil   *time.Time `json:"override_until,omitempty"`
}

type ListSubjectsResponse struct {
	Subjects []string `json:"subjects"`
}

type FollowStateResponse struct {
	SubjectKey    string     `json:"subject_key"`
	Following     bool       `json:"following"`
	OverrideUntil *time.Time `json:"override_until,omitempty"`
}

// StreamMessage is pushed to WebSocket clients. Type is "frame" or "camera".
// CompletedPath arrives with the first frame of each leg; clients keep it
// and draw it followed by PartialPath.
type StreamMessage struct {
	Type          string      `json:"type"`
	SubjectKey    string      `json:"subject_key"`
	LegID         string      `json:"leg_id,omitempty"`
	Position      []float64   `json:"position"`
	PartialPath   [][]float64 `json:"partial_path,omitempty"`
	CompletedPath [][]float64 `json:"completed_path,omitempty"`
	Heading       float64     `json:"heading,omitempty"`
	IsAnimating   bool        `json:"is_animating,omitempty"`
	Status        string      `json:"status,omitempty"`
	AnimatePan    bool        `json:"animate_pan,omitempty"`
}
