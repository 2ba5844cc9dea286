package geo

import (
	"sort"

	"delivery-trajectory-service/internal/domain"
)

// MeasuredPath caches cumulative arc lengths so per-frame lookups
// do not re-measure the whole polyline.
type MeasuredPath struct {
	path domain.Path
	cum  []float64
}

func NewMeasuredPath(p domain.Path) *MeasuredPath {
	cum := make([]float64, len(p))
	for i := 1; i < len(p); i++ {
		cum[i] = cum[i-1] + DistanceMeters(p[i-1], p[i])
	}
	return &MeasuredPath{path: p, cum: cum}
}

// Length is the total arc length in meters.
func (m *MeasuredPath) Length() float64 {
	if len(m.cum) == 0 {
		return 0
	}
	return m.cum[len(m.cum)-1]
}

// At maps an arc position onto the path. It returns the point reached
// after travelling meters from the start, and the traversed prefix
// ending at that point.
func (m *MeasuredPath) At(meters float64) (domain.Coordinates, domain.Path) {
	n := len(m.path)
	switch {
	case n == 0:
		return domain.Coordinates{}, nil
	case n == 1 || meters <= 0:
		return m.path[0], domain.Path{m.path[0]}
	case meters >= m.Length():
		return m.path[n-1], m.path.Clone()
	}

	// First vertex at or beyond the requested distance.
	j := sort.SearchFloat64s(m.cum, meters)
	if j < n && m.cum[j] == meters {
		return m.path[j], m.path[:j+1].Clone()
	}
	i := j - 1

	seg := m.cum[j] - m.cum[i]
	t := 0.0
	if seg > 0 {
		t = (meters - m.cum[i]) / seg
	}
	pt := Lerp(m.path[i], m.path[j], t)

	prefix := make(domain.Path, 0, i+2)
	prefix = append(prefix, m.path[:i+1]...)
	if pt != m.path[i] {
		prefix = append(prefix, pt)
	}
	return pt, prefix
}

// HeadingAt returns the bearing of the segment containing the arc position.
func (m *MeasuredPath) HeadingAt(meters float64) float64 {
	n := len(m.path)
	if n < 2 {
		return 0
	}
	j := sort.SearchFloat64s(m.cum, meters)
	if j <= 0 {
		j = 1
	}
	if j >= n {
		j = n - 1
	}
	return Bearing(m.path[j-1], m.path[j])
}
