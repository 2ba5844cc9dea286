package services

import (
	"context"
	"delivery-trajectory-service/internal/domain"
	"errors"
	"log"
	"sync"
)

// PlayFunc animates and commits one leg. It must return promptly once
// ctx is cancelled.
type PlayFunc func(ctx context.Context, leg domain.Leg) error

// Queue plays legs strictly one at a time in the order they were
// enqueued. It is Idle until the first Enqueue, Draining while a
// background goroutine works through pending legs, and Idle again once
// the queue runs dry.
type Queue struct {
	play PlayFunc

	mu       sync.Mutex
	pending  []domain.Leg
	active   *domain.Leg
	draining bool
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewQueue(play PlayFunc) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{play: play, ctx: ctx, cancel: cancel}
}

// Enqueue appends legs and starts draining if the queue was idle.
func (q *Queue) Enqueue(legs ...domain.Leg) {
	if len(legs) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = append(q.pending, legs...)
	if q.draining {
		return
	}

	q.draining = true
	q.done = make(chan struct{})
	go q.drain(q.ctx, q.done)
}

func (q *Queue) drain(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		q.mu.Lock()
		if ctx.Err() != nil || len(q.pending) == 0 {
			if q.done == done {
				q.draining = false
				q.done = nil
			}
			q.mu.Unlock()
			return
		}
		leg := q.pending[0]
		q.pending[0] = domain.Leg{}
		q.pending = q.pending[1:]
		q.active = &leg
		q.mu.Unlock()

		err := q.play(ctx, leg)

		q.mu.Lock()
		q.active = nil
		q.mu.Unlock()

		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("animation queue: leg=%s seq=%d err=%v", leg.ID, leg.Seq, err)
		}
	}
}

// Cancel stops the active leg, drops everything pending and waits for
// the drain goroutine to exit. It returns how many legs were abandoned.
// Cancel is idempotent and leaves the queue ready for new legs.
//
// Cancel must not be called from inside a PlayFunc.
func (q *Queue) Cancel() int {
	q.mu.Lock()
	dropped := len(q.pending)
	if q.active != nil {
		dropped++
	}
	q.cancel()
	q.pending = nil
	done := q.done
	q.draining = false
	q.done = nil
	q.ctx, q.cancel = context.WithCancel(context.Background())
	q.mu.Unlock()

	if done != nil {
		<-done
	}
	return dropped
}

// Pending returns legs waiting to be played, not counting the active one.
func (q *Queue) Pending() []domain.Leg {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.Leg, len(q.pending))
	copy(out, q.pending)
	return out
}

// Draining reports whether a leg is being played or waiting to be.
func (q *Queue) Draining() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.draining
}

// WaitIdle blocks until the queue has nothing left to play.
func (q *Queue) WaitIdle(ctx context.Context) error {
	for {
		q.mu.Lock()
		done := q.done
		q.mu.Unlock()

		if done == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
		}
	}
}
