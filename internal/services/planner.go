package services

import (
	"context"
	"delivery-trajectory-service/internal/adapters/cache"
	"delivery-trajectory-service/internal/domain"
	"delivery-trajectory-service/internal/geo"
	"delivery-trajectory-service/internal/platform/obs"
	"delivery-trajectory-service/internal/ports"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

var errShortPath = errors.New("route provider returned fewer than two points")

// Planner turns two positions into a drivable path.
//
// Lookups go through a bounded in-memory cache, then the optional
// persistent store, then the routing provider. Provider calls are
// limited to MaxConcurrentRoutes at a time and identical in-flight
// lookups share one call. The planner never fails: once every attempt
// is exhausted it returns the straight line between the two points.
//
// The planner is safe for concurrent use.
type Planner struct {
	provider ports.RouteProvider
	store    ports.RouteStore
	memory   *cache.MemoryRouteCache

	sem   *semaphore.Weighted
	group singleflight.Group

	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
	samePlace   float64

	mu       sync.Mutex
	degraded map[string]struct{}
}

// NewPlanner builds a planner. store may be nil.
func NewPlanner(provider ports.RouteProvider, store ports.RouteStore, opts Options) *Planner {
	opts = opts.withDefaults()

	p := &Planner{
		provider:    provider,
		store:       store,
		memory:      cache.NewMemoryRouteCache(opts.RouteCacheCapacity),
		sem:         semaphore.NewWeighted(int64(opts.MaxConcurrentRoutes)),
		timeout:     opts.PlanningTimeout,
		maxAttempts: opts.PlanningMaxAttempts,
		backoff:     opts.PlanningBackoff,
		samePlace:   opts.SamePlaceThresholdMeters,
		degraded:    make(map[string]struct{}),
	}

	p.memory.OnEvict(func(key string) {
		obs.RouteCacheEvictions.Inc()
		p.mu.Lock()
		delete(p.degraded, key)
		p.mu.Unlock()
	})

	return p
}

// PlanSegment returns a path from origin to destination and whether it is
// the straight-line fallback. Points within the same-place threshold
// produce a single-point path without consulting any cache or provider.
func (p *Planner) PlanSegment(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (domain.Path, bool) {
	if geo.DistanceMeters(origin, destination) <= p.samePlace {
		return domain.Path{origin}, false
	}

	key := domain.RouteKey(origin, destination)

	if path, ok := p.memory.Get(key); ok {
		obs.RouteCacheHits.WithLabelValues("memory").Inc()
		return path, p.isDegraded(key)
	}

	if path, ok := p.fromStore(ctx, key); ok {
		obs.RouteCacheHits.WithLabelValues("store").Inc()
		p.memory.Put(key, path)
		return path.Clone(), false
	}

	obs.RouteCacheMisses.Inc()

	path, err := p.resolve(ctx, key, origin, destination)
	if err == nil {
		p.memory.Put(key, path)
		p.toStore(ctx, key, path)
		return path.Clone(), false
	}

	fallback := domain.Path{origin, destination}

	if ctx.Err() != nil {
		// Caller gave up; don't poison the cache with a line it never needed.
		return fallback, true
	}

	log.Printf("route planner: degraded key=%s attempts=%d err=%v", key, p.maxAttempts, err)
	obs.RouteFallbacks.Inc()

	p.memory.Put(key, fallback)
	p.mu.Lock()
	p.degraded[key] = struct{}{}
	p.mu.Unlock()

	return fallback.Clone(), true
}

// CacheLen reports the number of routes held in memory.
func (p *Planner) CacheLen() int { return p.memory.Len() }

func (p *Planner) isDegraded(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.degraded[key]
	return ok
}

func (p *Planner) fromStore(ctx context.Context, key string) (domain.Path, bool) {
	if p.store == nil {
		return nil, false
	}

	path, ok, err := p.store.GetRoute(ctx, key)
	if err != nil {
		log.Printf("route planner: store read failed key=%s err=%v", key, err)
		return nil, false
	}
	if !ok || len(path) < 2 {
		return nil, false
	}
	return path, true
}

func (p *Planner) toStore(ctx context.Context, key string, path domain.Path) {
	if p.store == nil {
		return
	}
	if err := p.store.PutRoute(ctx, key, path); err != nil {
		log.Printf("route planner: store write failed key=%s err=%v", key, err)
	}
}

// resolve collapses concurrent lookups for the same key into one
// provider round. A follower whose leader was cancelled retries alone.
func (p *Planner) resolve(
	ctx context.Context,
	key string,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (domain.Path, error) {
	ch := p.group.DoChan(key, func() (any, error) {
		return p.fetch(ctx, key, origin, destination)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			if res.Shared && errors.Is(res.Err, context.Canceled) && ctx.Err() == nil {
				return p.fetch(ctx, key, origin, destination)
			}
			return nil, res.Err
		}
		return res.Val.(domain.Path), nil
	}
}

// fetch calls the provider with bounded retries. Each attempt gets its
// own deadline and attempts are spaced by backoff*attempt.
func (p *Planner) fetch(
	ctx context.Context,
	key string,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (domain.Path, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	var lastErr error

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path, err := p.attempt(ctx, origin, destination)
		if err == nil {
			obs.ProviderAttempts.WithLabelValues("ok").Inc()
			return path, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		obs.ProviderAttempts.WithLabelValues(outcome).Inc()
		log.Printf("route planner: attempt=%d/%d key=%s outcome=%s err=%v", attempt, p.maxAttempts, key, outcome, err)

		if attempt == p.maxAttempts || p.backoff == 0 {
			continue
		}

		timer := time.NewTimer(p.backoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, lastErr
}

type routeResult struct {
	path domain.Path
	err  error
}

// attempt runs one provider call bounded by the planning timeout, even
// if the provider ignores its context.
func (p *Planner) attempt(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (domain.Path, error) {
	actx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan routeResult, 1)
	go func() {
		path, err := p.provider.Route(actx, origin, destination)
		done <- routeResult{path: path, err: err}
	}()

	select {
	case <-actx.Done():
		return nil, actx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		if len(res.path) < 2 {
			return nil, fmt.Errorf("route %s: %w", domain.RouteKey(origin, destination), errShortPath)
		}
		return res.path, nil
	}
}
