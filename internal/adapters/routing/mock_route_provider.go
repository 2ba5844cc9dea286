package routing

import (
	"context"
	"delivery-trajectory-service/internal/domain"
	"sync"
	"sync/atomic"
)

// MockRouteProvider answers from a scripted function and counts calls.
// A nil Fn returns a straight two-point path.
type MockRouteProvider struct {
	Fn    func(ctx context.Context, origin, destination domain.Coordinates) (domain.Path, error)
	calls atomic.Int64

	mu    sync.Mutex
	pairs []string
}

func NewMockRouteProvider(fn func(ctx context.Context, origin, destination domain.Coordinates) (domain.Path, error)) *MockRouteProvider {
	return &MockRouteProvider{Fn: fn}
}

func (m *MockRouteProvider) Route(ctx context.Context, origin, destination domain.Coordinates) (domain.Path, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.pairs = append(m.pairs, domain.RouteKey(origin, destination))
	m.mu.Unlock()

	if m.Fn == nil {
		return domain.Path{origin, destination}, nil
	}
	return m.Fn(ctx, origin, destination)
}

func (m *MockRouteProvider) Calls() int { return int(m.calls.Load()) }

// Pairs returns route keys in call order.
func (m *MockRouteProvider) Pairs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.pairs...)
}
