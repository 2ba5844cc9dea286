package geo

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"delivery-trajectory-service/internal/domain"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/ewkb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
)

// ParseCoordinate normalizes the location encodings seen from report sources:
//
//	"114.05,22.54"                              lon,lat text
//	"[114.05, 22.54]"                           JSON array
//	"POINT(114.05 22.54)", "SRID=4326;POINT(...)" WKT / EWKT
//	"0101000020E6100000..."                     hex EWKB (PostGIS geography)
//	{"type":"Point","coordinates":[...]}        GeoJSON geometry
//
// The result is validated before it is returned.
func ParseCoordinate(raw string) (domain.Coordinates, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return domain.Coordinates{}, fmt.Errorf("parse coordinate: %w: empty input", domain.ErrInvalidCoordinate)
	}

	var (
		c   domain.Coordinates
		err error
	)
	switch {
	case strings.HasPrefix(s, "{"):
		c, err = parseGeoJSON(s)
	case strings.HasPrefix(s, "["):
		c, err = parseList(s)
	case strings.Contains(strings.ToUpper(s), "POINT"):
		c, err = parseWKT(s)
	case isHex(s):
		c, err = parseEWKB(s)
	default:
		c, err = parsePair(s)
	}
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("parse coordinate %q: %w", raw, err)
	}

	if err := c.Validate(); err != nil {
		return domain.Coordinates{}, fmt.Errorf("parse coordinate %q: %w", raw, err)
	}
	return c, nil
}

// FromList converts a [lon, lat] pair.
func FromList(v []float64) (domain.Coordinates, error) {
	if len(v) < 2 {
		return domain.Coordinates{}, fmt.Errorf("%w: expected [lon, lat], got %d values", domain.ErrInvalidCoordinate, len(v))
	}
	c := domain.Coordinates{Lon: v[0], Lat: v[1]}
	return c, c.Validate()
}

func fromPoint(p orb.Point) domain.Coordinates {
	return domain.Coordinates{Lon: p.Lon(), Lat: p.Lat()}
}

func parsePair(s string) (domain.Coordinates, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return domain.Coordinates{}, fmt.Errorf("%w: expected \"lon,lat\"", domain.ErrInvalidCoordinate)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("latitude: %w", err)
	}
	return domain.Coordinates{Lon: lon, Lat: lat}, nil
}

func parseList(s string) (domain.Coordinates, error) {
	var v []float64
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return domain.Coordinates{}, fmt.Errorf("decode json pair: %w", err)
	}
	return FromList(v)
}

func parseWKT(s string) (domain.Coordinates, error) {
	if i := strings.Index(s, ";"); i >= 0 && strings.HasPrefix(strings.ToUpper(s), "SRID=") {
		s = s[i+1:]
	}
	p, err := wkt.UnmarshalPoint(s)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("decode wkt: %w", err)
	}
	return fromPoint(p), nil
}

func parseEWKB(s string) (domain.Coordinates, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("decode hex: %w", err)
	}
	g, _, err := ewkb.Unmarshal(b)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("decode ewkb: %w", err)
	}
	p, ok := g.(orb.Point)
	if !ok {
		return domain.Coordinates{}, fmt.Errorf("%w: ewkb geometry is %s, want Point", domain.ErrInvalidCoordinate, g.GeoJSONType())
	}
	return fromPoint(p), nil
}

func parseGeoJSON(s string) (domain.Coordinates, error) {
	g, err := geojson.UnmarshalGeometry([]byte(s))
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("decode geojson: %w", err)
	}
	p, ok := g.Geometry().(orb.Point)
	if !ok {
		return domain.Coordinates{}, fmt.Errorf("%w: geojson geometry is %s, want Point", domain.ErrInvalidCoordinate, g.Type)
	}
	return fromPoint(p), nil
}

func isHex(s string) bool {
	if len(s) < 42 || len(s)%2 != 0 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
