package geo

import (
	"math"
	"testing"

	"delivery-trajectory-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceMetersSymmetricAndZero(t *testing.T) {
	t.Parallel()

	pairs := [][2]domain.Coordinates{
		{{Lon: 114.0, Lat: 22.5}, {Lon: 114.001, Lat: 22.501}},
		{{Lon: -179.9, Lat: -45}, {Lon: 179.9, Lat: 45}},
		{{Lon: 0, Lat: 0}, {Lon: 0, Lat: 0.00135}},
		{{Lon: 12.5, Lat: 89.9}, {Lon: -12.5, Lat: -89.9}},
	}

	for _, p := range pairs {
		a, b := p[0], p[1]
		assert.InDelta(t, DistanceMeters(a, b), DistanceMeters(b, a), 1e-9)
		assert.Zero(t, DistanceMeters(a, a))
		assert.Greater(t, DistanceMeters(a, b), 0.0)
	}
}

func TestDistanceMetersKnownScale(t *testing.T) {
	t.Parallel()

	// 0.00135 degrees of latitude is roughly 150 m.
	d := DistanceMeters(domain.Coordinates{}, domain.Coordinates{Lat: 0.00135})
	assert.InDelta(t, 150, d, 2)
}

func TestEaseOutQuad(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, EaseOutQuad(0))
	assert.Equal(t, 1.0, EaseOutQuad(1))
	assert.Equal(t, 0.0, EaseOutQuad(-3))
	assert.Equal(t, 1.0, EaseOutQuad(7))

	prev := EaseOutQuad(0)
	for i := 1; i <= 1000; i++ {
		v := EaseOutQuad(float64(i) / 1000)
		if v < prev {
			t.Fatalf("ease not monotonic at %d: %v < %v", i, v, prev)
		}
		prev = v
	}
}

func TestMeasuredPathAt(t *testing.T) {
	t.Parallel()

	a := domain.Coordinates{Lon: 0, Lat: 0}
	b := domain.Coordinates{Lon: 0, Lat: 0.001}
	c := domain.Coordinates{Lon: 0.001, Lat: 0.001}
	m := NewMeasuredPath(domain.Path{a, b, c})

	ab := DistanceMeters(a, b)
	require.InDelta(t, ab+DistanceMeters(b, c), m.Length(), 1e-6)

	pt, prefix := m.At(0)
	assert.Equal(t, a, pt)
	assert.Equal(t, domain.Path{a}, prefix)

	pt, prefix = m.At(ab / 2)
	assert.InDelta(t, 0.0005, pt.Lat, 1e-9)
	assert.Equal(t, domain.Path{a, pt}, prefix)

	// Past the corner the prefix follows the route instead of cutting across.
	pt, prefix = m.At(ab + 1)
	require.Len(t, prefix, 3)
	assert.Equal(t, b, prefix[1])
	assert.Greater(t, pt.Lon, 0.0)

	pt, prefix = m.At(m.Length() + 50)
	assert.Equal(t, c, pt)
	assert.Equal(t, domain.Path{a, b, c}, prefix)
}

func TestMeasuredPathDegenerate(t *testing.T) {
	t.Parallel()

	pt, prefix := NewMeasuredPath(nil).At(10)
	assert.Equal(t, domain.Coordinates{}, pt)
	assert.Nil(t, prefix)

	only := domain.Coordinates{Lon: 1, Lat: 1}
	m := NewMeasuredPath(domain.Path{only})
	assert.Zero(t, m.Length())
	pt, prefix = m.At(5)
	assert.Equal(t, only, pt)
	assert.Equal(t, domain.Path{only}, prefix)
}

func TestBearing(t *testing.T) {
	t.Parallel()

	north := Bearing(domain.Coordinates{}, domain.Coordinates{Lat: 1})
	east := Bearing(domain.Coordinates{}, domain.Coordinates{Lon: 1})
	assert.InDelta(t, 0, north, 1e-6)
	assert.InDelta(t, 90, math.Abs(east), 1e-6)
}

func TestParseCoordinate(t *testing.T) {
	t.Parallel()

	want := domain.Coordinates{Lon: 114.057868, Lat: 22.543099}
	tests := []struct {
		name string
		in   string
	}{
		{"pair", "114.057868,22.543099"},
		{"pair with spaces", " 114.057868 , 22.543099 "},
		{"json list", "[114.057868, 22.543099]"},
		{"wkt", "POINT(114.057868 22.543099)"},
		{"ewkt", "SRID=4326;POINT(114.057868 22.543099)"},
		{"geojson", `{"type":"Point","coordinates":[114.057868,22.543099]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCoordinate(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, want.Lon, got.Lon, 1e-9)
			assert.InDelta(t, want.Lat, got.Lat, 1e-9)
		})
	}
}

func TestParseCoordinateRejects(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "abc", "1,2,3", "200,10", "10,-95", "[1]", `{"type":"LineString","coordinates":[[0,0],[1,1]]}`} {
		_, err := ParseCoordinate(in)
		assert.Error(t, err, "input %q", in)
	}

	_, err := ParseCoordinate("200,10")
	assert.ErrorIs(t, err, domain.ErrInvalidCoordinate)
}
