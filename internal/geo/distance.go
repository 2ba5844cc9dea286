// Package geo holds the pure geometry helpers used by the animation engine.
package geo

import (
	"delivery-trajectory-service/internal/domain"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

func toPoint(c domain.Coordinates) orb.Point { return orb.Point{c.Lon, c.Lat} }

// DistanceMeters returns the haversine great-circle distance between a and b.
func DistanceMeters(a, b domain.Coordinates) float64 {
	if a == b {
		return 0
	}
	return orbgeo.DistanceHaversine(toPoint(a), toPoint(b))
}

// Bearing returns the initial bearing from a to b in degrees, clockwise from north.
func Bearing(a, b domain.Coordinates) float64 {
	if a == b {
		return 0
	}
	return orbgeo.Bearing(toPoint(a), toPoint(b))
}

// PathLength sums the haversine length of every segment of p.
func PathLength(p domain.Path) float64 {
	total := 0.0
	for i := 1; i < len(p); i++ {
		total += DistanceMeters(p[i-1], p[i])
	}
	return total
}

// Lerp interpolates linearly between a and b. t is not clamped.
func Lerp(a, b domain.Coordinates, t float64) domain.Coordinates {
	return domain.Coordinates{
		Lon: a.Lon + (b.Lon-a.Lon)*t,
		Lat: a.Lat + (b.Lat-a.Lat)*t,
	}
}
