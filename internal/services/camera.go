package services

import (
	"delivery-trajectory-service/internal/domain"
	"sync"
	"time"
)

// Camera decides when the view should follow the subject.
//
// It starts Following. Any manual gesture moves it to Overridden and
// (re)arms a resume timer; if the timer fires with no further gesture the
// camera follows again and recenters on the last known position. While
// Following, recenters are throttled, except for the last frame of a leg.
type Camera struct {
	subjectKey  string
	resumeDelay time.Duration
	throttle    time.Duration
	move        func(domain.CameraEvent)

	mu            sync.Mutex
	following     bool
	overrideUntil *time.Time
	timer         *time.Timer
	gen           int
	lastPos       *domain.Coordinates
	lastCenter    *domain.Coordinates
	lastMove      time.Time
	stopped       bool
}

func NewCamera(subjectKey string, resumeDelay, throttle time.Duration, move func(domain.CameraEvent)) *Camera {
	return &Camera{
		subjectKey:  subjectKey,
		resumeDelay: resumeDelay,
		throttle:    throttle,
		move:        move,
		following:   true,
	}
}

// OnFrame records the subject position and recenters when following.
func (c *Camera) OnFrame(f domain.Frame) {
	c.mu.Lock()
	pos := f.Position
	c.lastPos = &pos

	if !c.following || c.stopped {
		c.mu.Unlock()
		return
	}
	if c.lastCenter != nil && *c.lastCenter == pos {
		c.mu.Unlock()
		return
	}
	now := time.Now()
	if f.IsAnimating && !c.lastMove.IsZero() && now.Sub(c.lastMove) < c.throttle {
		c.mu.Unlock()
		return
	}

	ev := c.recenterLocked(now)
	c.mu.Unlock()

	c.move(ev)
}

func (c *Camera) ManualPanStarted() { c.override() }

func (c *Camera) ManualPanEnded() { c.override() }

func (c *Camera) override() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}

	c.following = false
	until := time.Now().Add(c.resumeDelay)
	c.overrideUntil = &until

	c.gen++
	gen := c.gen
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.resumeDelay, func() { c.resume(gen) })
}

// ResumeFollowing switches back to following at once and recenters.
func (c *Camera) ResumeFollowing() {
	c.mu.Lock()
	c.gen++
	c.resumeLocked()
	ev, ok := c.recenterOnLastLocked()
	c.mu.Unlock()

	if ok {
		c.move(ev)
	}
}

func (c *Camera) resume(gen int) {
	c.mu.Lock()
	if gen != c.gen || c.stopped {
		c.mu.Unlock()
		return
	}
	c.resumeLocked()
	ev, ok := c.recenterOnLastLocked()
	c.mu.Unlock()

	if ok {
		c.move(ev)
	}
}

func (c *Camera) resumeLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.following = true
	c.overrideUntil = nil
}

func (c *Camera) recenterOnLastLocked() (domain.CameraEvent, bool) {
	if c.lastPos == nil || c.stopped {
		return domain.CameraEvent{}, false
	}
	return c.recenterLocked(time.Now()), true
}

func (c *Camera) recenterLocked(now time.Time) domain.CameraEvent {
	center := *c.lastPos
	c.lastCenter = &center
	c.lastMove = now
	return domain.CameraEvent{
		SubjectKey:       c.subjectKey,
		Center:           center,
		ShouldAnimatePan: true,
	}
}

// State returns the current follow state.
func (c *Camera) State() domain.FollowState {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := domain.FollowState{IsFollowing: c.following}
	if c.overrideUntil != nil {
		until := *c.overrideUntil
		st.UserOverrideUntil = &until
	}
	return st
}

// Stop cancels the resume timer. The camera emits nothing afterwards.
func (c *Camera) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
