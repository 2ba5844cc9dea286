package ports

import (
	"context"
	"delivery-trajectory-service/internal/domain"
)

// Contract for converting two points into a drivable polyline.
type RouteProvider interface {
	// Return the planned path from origin to destination. Implementations
	// should honour ctx cancellation; any error is treated as a failed attempt.
	Route(ctx context.Context, origin, destination domain.Coordinates) (domain.Path, error)
}
