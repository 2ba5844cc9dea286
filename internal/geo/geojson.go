package geo

import (
	"delivery-trajectory-service/internal/domain"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func ToLineString(p domain.Path) orb.LineString {
	ls := make(orb.LineString, 0, len(p))
	for _, c := range p {
		ls = append(ls, toPoint(c))
	}
	return ls
}

func FromLineString(ls orb.LineString) domain.Path {
	out := make(domain.Path, 0, len(ls))
	for _, pt := range ls {
		out = append(out, fromPoint(pt))
	}
	return out
}

// FromGeometry extracts a path from a routing response geometry.
// Multi-part lines are joined in order.
func FromGeometry(g orb.Geometry) (domain.Path, error) {
	switch v := g.(type) {
	case orb.LineString:
		return FromLineString(v), nil
	case orb.MultiLineString:
		var out domain.Path
		for _, ls := range v {
			out = append(out, FromLineString(ls)...)
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("geometry is empty")
	default:
		return nil, fmt.Errorf("unexpected geometry type %s", v.GeoJSONType())
	}
}

// StateFeatureCollection renders a subject snapshot as GeoJSON: the
// completed path as a LineString and the animated position as a Point.
func StateFeatureCollection(s domain.AnimationState) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	line := geojson.NewFeature(ToLineString(s.CompletedPath))
	line.Properties["kind"] = "completed_path"
	line.Properties["subject"] = s.SubjectKey
	line.Properties["generation"] = s.Generation
	fc.Append(line)

	if s.CurrentPosition != nil {
		pos := geojson.NewFeature(toPoint(*s.CurrentPosition))
		pos.Properties["kind"] = "current_position"
		pos.Properties["subject"] = s.SubjectKey
		pos.Properties["playing"] = s.IsPlaying
		pos.Properties["pending_legs"] = len(s.PendingLegs)
		fc.Append(pos)
	}

	return fc
}
