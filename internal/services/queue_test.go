package services

import (
	"context"
	"delivery-trajectory-service/internal/domain"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePlaysLegsInOrderOneAtATime(t *testing.T) {
	var (
		mu       sync.Mutex
		order    []int
		inFlight atomic.Int32
		overlap  atomic.Bool
	)

	q := NewQueue(func(ctx context.Context, leg domain.Leg) error {
		if inFlight.Add(1) > 1 {
			overlap.Store(true)
		}
		defer inFlight.Add(-1)

		// Earlier legs take longer.
		time.Sleep(time.Duration(6-leg.Seq) * 3 * time.Millisecond)

		mu.Lock()
		order = append(order, leg.Seq)
		mu.Unlock()
		return nil
	})

	require.False(t, q.Draining())
	for seq := 1; seq <= 5; seq++ {
		q.Enqueue(domain.Leg{Seq: seq})
	}
	require.True(t, q.Draining())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.WaitIdle(ctx))

	assert.False(t, q.Draining())
	assert.False(t, overlap.Load())
	assert.Equal(t, []int{1, 2, 3, 4, 5}, order)
}

func TestQueueCancelDropsPendingAndWaits(t *testing.T) {
	started := make(chan struct{}, 10)
	var played atomic.Int32

	q := NewQueue(func(ctx context.Context, leg domain.Leg) error {
		started <- struct{}{}
		<-ctx.Done()
		played.Add(1)
		return ctx.Err()
	})

	q.Enqueue(domain.Leg{Seq: 1}, domain.Leg{Seq: 2}, domain.Leg{Seq: 3})
	<-started

	dropped := q.Cancel()
	assert.Equal(t, 3, dropped)
	assert.False(t, q.Draining())
	assert.Empty(t, q.Pending())
	assert.Equal(t, int32(1), played.Load())

	// Idempotent.
	assert.Equal(t, 0, q.Cancel())

	assert.Never(t, func() bool { return len(started) > 0 }, 30*time.Millisecond, 5*time.Millisecond)
}

func TestQueueAcceptsLegsAfterCancel(t *testing.T) {
	var played atomic.Int32
	q := NewQueue(func(ctx context.Context, leg domain.Leg) error {
		played.Add(1)
		return nil
	})

	q.Cancel()
	q.Enqueue(domain.Leg{Seq: 1})

	require.Eventually(t, func() bool { return played.Load() == 1 && !q.Draining() }, time.Second, time.Millisecond)
}
