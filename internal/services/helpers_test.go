package services

import (
	"context"
	"delivery-trajectory-service/internal/domain"
	"errors"
	"sync"
	"time"
)

var (
	pointA = domain.Coordinates{Lon: 114.000, Lat: 22.500}
	pointB = domain.Coordinates{Lon: 114.001, Lat: 22.501}
	pointC = domain.Coordinates{Lon: 114.002, Lat: 22.502}
)

// fastOptions keeps legs and retries short enough for unit tests.
func fastOptions() Options {
	o := DefaultOptions()
	o.PlanningTimeout = 200 * time.Millisecond
	o.PlanningBackoff = 0
	o.MinLegDuration = 20 * time.Millisecond
	o.MaxLegDuration = 40 * time.Millisecond
	o.FrameInterval = 2 * time.Millisecond
	o.CameraThrottle = 0
	o.FollowResumeDelay = 50 * time.Millisecond
	return o
}

func report(id string, c domain.Coordinates, at int) domain.PositionReport {
	return domain.PositionReport{
		ID:         id,
		SubjectKey: "order-1",
		Coordinate: c,
		Timestamp:  time.Date(2026, 3, 1, 9, 0, at, 0, time.UTC),
	}
}

// north returns a point the given number of meters north of c.
func north(c domain.Coordinates, meters float64) domain.Coordinates {
	return domain.Coordinates{Lon: c.Lon, Lat: c.Lat + meters/111195.0}
}

type memStore struct {
	mu      sync.Mutex
	routes  map[string]domain.Path
	gets    int
	puts    int
	failPut bool
}

func newMemStore() *memStore {
	return &memStore{routes: make(map[string]domain.Path)}
}

func (m *memStore) GetRoute(ctx context.Context, key string) (domain.Path, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	p, ok := m.routes[key]
	return p.Clone(), ok, nil
}

func (m *memStore) PutRoute(ctx context.Context, key string, path domain.Path) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.failPut {
		return errors.New("store unavailable")
	}
	m.routes[key] = path.Clone()
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	frames []domain.Frame
	moves  []domain.CameraEvent
}

func (r *recordingSink) RenderFrame(f domain.Frame) {
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.mu.Unlock()
}

func (r *recordingSink) MoveCamera(ev domain.CameraEvent) {
	r.mu.Lock()
	r.moves = append(r.moves, ev)
	r.mu.Unlock()
}

func (r *recordingSink) Frames() []domain.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Frame(nil), r.frames...)
}

func (r *recordingSink) Moves() []domain.CameraEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.CameraEvent(nil), r.moves...)
}

func legIDs(frames []domain.Frame) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, f := range frames {
		if !seen[f.LegID] {
			seen[f.LegID] = true
			ids = append(ids, f.LegID)
		}
	}
	return ids
}
