package services

import "time"

// Options tunes the animation engine. Zero fields fall back to the
// defaults returned by DefaultOptions, except PlanningBackoff and
// CameraThrottle where zero disables the delay.
type Options struct {
	RouteCacheCapacity  int
	PlanningTimeout     time.Duration
	PlanningMaxAttempts int
	PlanningBackoff     time.Duration
	MaxConcurrentRoutes int

	SamePlaceThresholdMeters  float64
	NewEpisodeThresholdMeters float64

	FollowResumeDelay time.Duration
	CameraThrottle    time.Duration

	MinLegDuration    time.Duration
	MaxLegDuration    time.Duration
	LegMillisPerMeter float64
	FrameInterval     time.Duration
}

func DefaultOptions() Options {
	return Options{
		RouteCacheCapacity:        50,
		PlanningTimeout:           5 * time.Second,
		PlanningMaxAttempts:       3,
		PlanningBackoff:           300 * time.Millisecond,
		MaxConcurrentRoutes:       4,
		SamePlaceThresholdMeters:  10,
		NewEpisodeThresholdMeters: 100,
		FollowResumeDelay:         5 * time.Second,
		CameraThrottle:            100 * time.Millisecond,
		MinLegDuration:            500 * time.Millisecond,
		MaxLegDuration:            3 * time.Second,
		LegMillisPerMeter:         10,
		FrameInterval:             16 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.RouteCacheCapacity <= 0 {
		o.RouteCacheCapacity = d.RouteCacheCapacity
	}
	if o.PlanningTimeout <= 0 {
		o.PlanningTimeout = d.PlanningTimeout
	}
	if o.PlanningMaxAttempts <= 0 {
		o.PlanningMaxAttempts = d.PlanningMaxAttempts
	}
	if o.PlanningBackoff < 0 {
		o.PlanningBackoff = 0
	}
	if o.MaxConcurrentRoutes <= 0 {
		o.MaxConcurrentRoutes = d.MaxConcurrentRoutes
	}
	if o.SamePlaceThresholdMeters <= 0 {
		o.SamePlaceThresholdMeters = d.SamePlaceThresholdMeters
	}
	if o.NewEpisodeThresholdMeters <= 0 {
		o.NewEpisodeThresholdMeters = d.NewEpisodeThresholdMeters
	}
	if o.FollowResumeDelay <= 0 {
		o.FollowResumeDelay = d.FollowResumeDelay
	}
	if o.CameraThrottle < 0 {
		o.CameraThrottle = 0
	}
	if o.MinLegDuration <= 0 {
		o.MinLegDuration = d.MinLegDuration
	}
	if o.MaxLegDuration <= 0 {
		o.MaxLegDuration = d.MaxLegDuration
	}
	if o.MaxLegDuration < o.MinLegDuration {
		o.MaxLegDuration = o.MinLegDuration
	}
	if o.LegMillisPerMeter <= 0 {
		o.LegMillisPerMeter = d.LegMillisPerMeter
	}
	if o.FrameInterval <= 0 {
		o.FrameInterval = d.FrameInterval
	}
	return o
}
