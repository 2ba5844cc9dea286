package domain

import "time"

// AnimationState is a point-in-time copy of a subject's playback state.
type AnimationState struct {
	SubjectKey         string
	CurrentPosition    *Coordinates
	CompletedPath      Path
	PendingLegs        []Leg
	ProcessedReportIDs map[string]struct{}
	IsPlaying          bool
	EpisodeStart       *Coordinates
	Generation         int
}

// Frame is emitted once per animation tick. PartialPath covers the
// current leg only. CompletedPath is set on the first frame of each leg
// and holds the committed path up to the leg's start; a renderer draws
// CompletedPath followed by PartialPath.
type Frame struct {
	SubjectKey    string
	LegID         string
	Position      Coordinates
	PartialPath   Path
	CompletedPath Path
	Heading       float64
	IsAnimating   bool
	Status        ReportStatus
}

// CameraEvent asks the renderer to move the view.
type CameraEvent struct {
	SubjectKey       string
	Center           Coordinates
	ShouldAnimatePan bool
}

// FollowState describes whether the camera tracks the subject.
type FollowState struct {
	IsFollowing       bool
	UserOverrideUntil *time.Time
}
