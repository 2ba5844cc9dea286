package ports

import (
	"context"
	"delivery-trajectory-service/internal/domain"
)

// Persistent second-level store for planned routes, keyed by domain.RouteKey.
type RouteStore interface {
	// Return the cached path and whether it was found.
	GetRoute(ctx context.Context, key string) (domain.Path, bool, error)
	PutRoute(ctx context.Context, key string, path domain.Path) error
}
