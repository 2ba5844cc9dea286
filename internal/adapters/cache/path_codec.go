package cache

import (
	"encoding/json"
	"fmt"

	"delivery-trajectory-service/internal/domain"
)

// Paths are stored as a JSON array of [lon, lat] pairs.
func encodePath(p domain.Path) (string, error) {
	pairs := make([][]float64, 0, len(p))
	for _, c := range p {
		pairs = append(pairs, c.CoordsToList())
	}
	b, err := json.Marshal(pairs)
	if err != nil {
		return "", fmt.Errorf("encode path: %w", err)
	}
	return string(b), nil
}

func decodePath(s string) (domain.Path, error) {
	var pairs [][]float64
	if err := json.Unmarshal([]byte(s), &pairs); err != nil {
		return nil, fmt.Errorf("decode path: %w", err)
	}
	out := make(domain.Path, 0, len(pairs))
	for i, p := range pairs {
		if len(p) != 2 {
			return nil, fmt.Errorf("decode path: point %d has %d values", i, len(p))
		}
		out = append(out, domain.Coordinates{Lon: p[0], Lat: p[1]})
	}
	return out, nil
}
