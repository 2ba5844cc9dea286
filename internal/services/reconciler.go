package services

import (
	"context"
	"delivery-trajectory-service/internal/domain"
	"delivery-trajectory-service/internal/geo"
	"delivery-trajectory-service/internal/platform/obs"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// IngestOptions carries optional context for one Ingest call.
type IngestOptions struct {
	// Origin is where the shipment started, e.g. the sender address. When
	// it is clearly apart from the first report the path is drawn from it.
	Origin *domain.Coordinates

	// Append marks the batch as holding only new reports. It continues
	// the active episode from its head instead of re-deriving the episode
	// from the batch's first report.
	Append bool
}

type IngestOption func(*IngestOptions)

func WithOrigin(c domain.Coordinates) IngestOption {
	return func(o *IngestOptions) { o.Origin = &c }
}

// WithAppend treats the batch as incremental rather than cumulative.
func WithAppend() IngestOption {
	return func(o *IngestOptions) { o.Append = true }
}

// session owns the animation state of one subject.
type session struct {
	key    string
	engine *Engine

	// ingestMu serializes Ingest, ResetEpisode and dispose.
	ingestMu sync.Mutex

	life       context.Context
	lifeCancel context.CancelFunc

	queue  *Queue
	camera *Camera

	mu           sync.Mutex
	current      *domain.Coordinates
	head         *domain.Coordinates
	completed    domain.Path
	processed    map[string]struct{}
	episodeStart *domain.Coordinates
	generation   int
	seq          int

	// episodeOrigin and episodeFirstID remember how the episode was
	// anchored, so a replay of the same feed without its origin is
	// recognised as the same episode.
	episodeOrigin  *domain.Coordinates
	episodeFirstID string
}

func newSession(key string, e *Engine) *session {
	life, cancel := context.WithCancel(context.Background())
	s := &session{
		key:        key,
		engine:     e,
		life:       life,
		lifeCancel: cancel,
		processed:  make(map[string]struct{}),
	}
	s.queue = NewQueue(s.playLeg)
	s.camera = NewCamera(key, e.opts.FollowResumeDelay, e.opts.CameraThrottle, e.moveCamera)
	return s
}

type plannedPair struct {
	from   domain.Coordinates
	to     domain.Coordinates
	status domain.ReportStatus
}

// ingest reconciles a batch of reports into legs and hands them to the
// queue. By default a batch is the subject's cumulative feed: its first
// report decides the episode, and reports already seen in this episode
// are ignored, so replaying the feed is harmless. An Append batch holds
// only new reports and extends the active episode.
func (s *session) ingest(ctx context.Context, reports []domain.PositionReport, opts IngestOptions) error {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	if s.life.Err() != nil {
		return ErrUnknownSubject
	}

	valid := make([]domain.PositionReport, 0, len(reports))
	for _, r := range reports {
		if err := r.Coordinate.Validate(); err != nil {
			log.Printf("reconciler: subject=%s drop report id=%q err=%v", s.key, r.ID, err)
			obs.ReportsDropped.WithLabelValues("invalid").Inc()
			continue
		}
		valid = append(valid, r)
	}

	s.mu.Lock()
	active := s.episodeStart != nil
	s.mu.Unlock()

	if len(valid) == 0 {
		if opts.Append && active {
			return nil
		}
		s.clear()
		return nil
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Timestamp.Before(valid[j].Timestamp)
	})

	samePlace := s.engine.opts.SamePlaceThresholdMeters
	firstID := domain.ReportKey(valid[0])

	if !(opts.Append && active) {
		s.mu.Lock()
		origin := opts.Origin
		if origin == nil && s.episodeOrigin != nil && s.episodeFirstID == firstID {
			origin = s.episodeOrigin
		}
		if origin != nil && (origin.Validate() != nil ||
			geo.DistanceMeters(*origin, valid[0].Coordinate) <= samePlace) {
			origin = nil
		}

		anchor := valid[0].Coordinate
		if origin != nil {
			anchor = *origin
		}
		isNew := s.episodeStart == nil ||
			geo.DistanceMeters(anchor, *s.episodeStart) > s.engine.opts.NewEpisodeThresholdMeters
		s.mu.Unlock()

		if isNew {
			s.reset(anchor)
			s.mu.Lock()
			if origin != nil {
				o := *origin
				s.episodeOrigin = &o
			}
			s.episodeFirstID = firstID
			s.mu.Unlock()
		}
	}

	s.mu.Lock()
	gen := s.generation
	head := *s.head
	seen := make(map[string]struct{}, len(valid))
	pairs := make([]plannedPair, 0, len(valid))
	for _, r := range valid {
		id := domain.ReportKey(r)
		if _, ok := s.processed[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		if geo.DistanceMeters(head, r.Coordinate) <= samePlace {
			obs.ReportsDropped.WithLabelValues("same_place").Inc()
			continue
		}
		pairs = append(pairs, plannedPair{from: head, to: r.Coordinate, status: r.Status})
		head = r.Coordinate
	}
	s.mu.Unlock()

	paths := make([]domain.Path, len(pairs))
	degraded := make([]bool, len(pairs))

	if len(pairs) > 0 {
		pctx, cancel := context.WithCancel(obs.WithSubject(ctx, s.key))
		defer cancel()
		stop := context.AfterFunc(s.life, cancel)
		defer stop()

		g, gctx := errgroup.WithContext(pctx)
		for i := range pairs {
			g.Go(func() error {
				paths[i], degraded[i] = s.engine.planner.PlanSegment(gctx, pairs[i].from, pairs[i].to)
				return nil
			})
		}
		_ = g.Wait()

		if err := pctx.Err(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return nil
	}
	for id := range seen {
		s.processed[id] = struct{}{}
	}
	s.head = &head

	legs := make([]domain.Leg, 0, len(pairs))
	for i, p := range pairs {
		s.seq++
		legs = append(legs, domain.Leg{
			ID:         uuid.NewString(),
			Seq:        s.seq,
			Generation: gen,
			From:       p.from,
			To:         p.to,
			Path:       paths[i],
			Status:     p.status,
			Degraded:   degraded[i],
		})
	}
	s.mu.Unlock()

	s.queue.Enqueue(legs...)
	return nil
}

// reset starts a new episode at anchor. Caller holds ingestMu.
func (s *session) reset(anchor domain.Coordinates) {
	if n := s.queue.Cancel(); n > 0 {
		obs.LegsCancelled.Add(float64(n))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, hd, start := anchor, anchor, anchor
	s.current = &cur
	s.head = &hd
	s.episodeStart = &start
	s.completed = domain.Path{anchor}
	s.processed = make(map[string]struct{})
	s.episodeOrigin = nil
	s.episodeFirstID = ""
	s.generation++

	obs.EpisodeResets.Inc()
	log.Printf("reconciler: subject=%s new episode generation=%d anchor=%s", s.key, s.generation, anchor.Key())
}

// clear drops all state but keeps the session. Caller holds ingestMu.
func (s *session) clear() {
	if n := s.queue.Cancel(); n > 0 {
		obs.LegsCancelled.Add(float64(n))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	s.head = nil
	s.episodeStart = nil
	s.episodeOrigin = nil
	s.episodeFirstID = ""
	s.completed = nil
	s.processed = make(map[string]struct{})
	s.generation++
}

func (s *session) resetEpisode(anchor domain.Coordinates) error {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	if s.life.Err() != nil {
		return ErrUnknownSubject
	}
	s.reset(anchor)
	return nil
}

func (s *session) dispose() {
	s.lifeCancel()

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	if n := s.queue.Cancel(); n > 0 {
		obs.LegsCancelled.Add(float64(n))
	}
	s.camera.Stop()
}

// playLeg runs on the queue's drain goroutine.
func (s *session) playLeg(ctx context.Context, leg domain.Leg) error {
	start := time.Now()

	first := true
	err := s.engine.interp.Run(ctx, leg, func(f domain.Frame) {
		f.SubjectKey = s.key

		s.mu.Lock()
		if leg.Generation == s.generation {
			pos := f.Position
			s.current = &pos
		}
		if first {
			// The leg's opening frame carries the line drawn so far.
			f.CompletedPath = s.completed.Clone()
			first = false
		}
		s.mu.Unlock()

		s.engine.renderFrame(f)
		s.camera.OnFrame(f)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil || leg.Generation != s.generation {
		return ctx.Err()
	}

	for i, c := range leg.Path {
		if i == 0 && len(s.completed) > 0 && s.completed[len(s.completed)-1] == c {
			continue
		}
		s.completed = append(s.completed, c)
	}
	if n := len(s.completed); n == 0 || s.completed[n-1] != leg.To {
		s.completed = append(s.completed, leg.To)
	}
	to := leg.To
	s.current = &to

	obs.LegsCompleted.Inc()
	obs.ObserveLegDuration(start)
	return nil
}

func (s *session) snapshot() domain.AnimationState {
	pending := s.queue.Pending()
	playing := s.queue.Draining()

	s.mu.Lock()
	defer s.mu.Unlock()

	st := domain.AnimationState{
		SubjectKey:         s.key,
		CompletedPath:      s.completed.Clone(),
		PendingLegs:        pending,
		ProcessedReportIDs: make(map[string]struct{}, len(s.processed)),
		IsPlaying:          playing,
		Generation:         s.generation,
	}
	for id := range s.processed {
		st.ProcessedReportIDs[id] = struct{}{}
	}
	if s.current != nil {
		c := *s.current
		st.CurrentPosition = &c
	}
	if s.episodeStart != nil {
		c := *s.episodeStart
		st.EpisodeStart = &c
	}
	return st
}
