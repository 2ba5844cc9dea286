package services

import (
	"context"
	"delivery-trajectory-service/internal/domain"
	"delivery-trajectory-service/internal/platform/obs"
	"delivery-trajectory-service/internal/ports"
	"errors"
	"sort"
	"strings"
	"sync"
)

var (
	ErrMissingSubjectKey = errors.New("subject key is required")
	ErrUnknownSubject    = errors.New("unknown subject")
	ErrEngineClosed      = errors.New("engine is closed")
)

// Engine keeps one animation session per subject and fans their frames
// and camera moves out to subscribed render sinks.
//
// Sinks are called synchronously from a session's playback goroutine and
// must not block.
type Engine struct {
	planner *Planner
	interp  *Interpolator
	opts    Options

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool

	sinksMu  sync.RWMutex
	sinks    map[int]ports.RenderSink
	nextSink int
}

func NewEngine(planner *Planner, opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		planner:  planner,
		interp:   NewInterpolator(opts),
		opts:     opts,
		sessions: make(map[string]*session),
		sinks:    make(map[int]ports.RenderSink),
	}
}

// Ingest reconciles a subject's reports into animated legs. The subject
// session is created on first use.
func (e *Engine) Ingest(
	ctx context.Context,
	subjectKey string,
	reports []domain.PositionReport,
	opts ...IngestOption,
) error {
	s, err := e.session(subjectKey, true)
	if err != nil {
		return err
	}

	var o IngestOptions
	for _, fn := range opts {
		fn(&o)
	}
	return s.ingest(ctx, reports, o)
}

// ResetEpisode forces a new episode anchored at anchor, regardless of
// how far it is from the current one.
func (e *Engine) ResetEpisode(subjectKey string, anchor domain.Coordinates) error {
	if err := anchor.Validate(); err != nil {
		return err
	}
	s, err := e.session(subjectKey, true)
	if err != nil {
		return err
	}
	return s.resetEpisode(anchor)
}

// Remove cancels playback and drops the subject. It reports whether the
// subject existed.
func (e *Engine) Remove(subjectKey string) bool {
	key := strings.TrimSpace(subjectKey)

	e.mu.Lock()
	s, ok := e.sessions[key]
	if ok {
		delete(e.sessions, key)
		obs.ActiveSubjects.Dec()
	}
	e.mu.Unlock()

	if ok {
		s.dispose()
	}
	return ok
}

// State returns a copy of the subject's animation state.
func (e *Engine) State(subjectKey string) (domain.AnimationState, bool) {
	s, err := e.session(subjectKey, false)
	if err != nil {
		return domain.AnimationState{}, false
	}
	return s.snapshot(), true
}

// Subjects lists live subjects in key order.
func (e *Engine) Subjects() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys := make([]string, 0, len(e.sessions))
	for k := range e.sessions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WaitIdle blocks until the subject has no legs left to play.
func (e *Engine) WaitIdle(ctx context.Context, subjectKey string) error {
	s, err := e.session(subjectKey, false)
	if err != nil {
		return err
	}
	return s.queue.WaitIdle(ctx)
}

func (e *Engine) ManualPanStarted(subjectKey string) error {
	return e.withCamera(subjectKey, (*Camera).ManualPanStarted)
}

func (e *Engine) ManualPanEnded(subjectKey string) error {
	return e.withCamera(subjectKey, (*Camera).ManualPanEnded)
}

func (e *Engine) ResumeFollowing(subjectKey string) error {
	return e.withCamera(subjectKey, (*Camera).ResumeFollowing)
}

func (e *Engine) FollowState(subjectKey string) (domain.FollowState, error) {
	s, err := e.session(subjectKey, false)
	if err != nil {
		return domain.FollowState{}, err
	}
	return s.camera.State(), nil
}

func (e *Engine) withCamera(subjectKey string, fn func(*Camera)) error {
	s, err := e.session(subjectKey, false)
	if err != nil {
		return err
	}
	fn(s.camera)
	return nil
}

// Subscribe registers a render sink and returns a func that removes it.
func (e *Engine) Subscribe(sink ports.RenderSink) func() {
	e.sinksMu.Lock()
	id := e.nextSink
	e.nextSink++
	e.sinks[id] = sink
	e.sinksMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.sinksMu.Lock()
			delete(e.sinks, id)
			e.sinksMu.Unlock()
		})
	}
}

// Close disposes every session. Further calls fail with ErrEngineClosed.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	sessions := e.sessions
	e.sessions = make(map[string]*session)
	e.mu.Unlock()

	for _, s := range sessions {
		s.dispose()
		obs.ActiveSubjects.Dec()
	}
}

func (e *Engine) session(subjectKey string, create bool) (*session, error) {
	key := strings.TrimSpace(subjectKey)
	if key == "" {
		return nil, ErrMissingSubjectKey
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	if s, ok := e.sessions[key]; ok {
		return s, nil
	}
	if !create {
		return nil, ErrUnknownSubject
	}

	s := newSession(key, e)
	e.sessions[key] = s
	obs.ActiveSubjects.Inc()
	return s, nil
}

func (e *Engine) renderFrame(f domain.Frame) {
	e.sinksMu.RLock()
	defer e.sinksMu.RUnlock()
	for _, sink := range e.sinks {
		sink.RenderFrame(f)
	}
}

func (e *Engine) moveCamera(ev domain.CameraEvent) {
	e.sinksMu.RLock()
	defer e.sinksMu.RUnlock()
	for _, sink := range e.sinks {
		sink.MoveCamera(ev)
	}
}
