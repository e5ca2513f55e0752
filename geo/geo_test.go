package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestHaversineFixture(t *testing.T) {
	busan := Point{Lat: 35.1796, Lon: 129.0756}
	losAngeles := Point{Lat: 33.7175, Lon: -118.2699}

	d := Distance(busan, losAngeles)
	assert.InDelta(t, 9607000.0, d, 5000.0)

	b := Bearing(busan, losAngeles)
	assert.InDelta(t, 56.0, b, 2.0)
}

func TestDistanceSamePoint(t *testing.T) {
	p := Point{Lat: 12.3, Lon: 45.6}
	assert.Equal(t, 0.0, Distance(p, p))
}

func TestForwardZeroDistance(t *testing.T) {
	p := Point{Lat: 10, Lon: 20}
	got := Forward(p, 90, 0)
	assert.InDelta(t, p.Lat, got.Lat, 1e-9)
	assert.InDelta(t, p.Lon, got.Lon, 1e-9)
}

func TestForwardThenDistanceRoundTrip(t *testing.T) {
	p := Point{Lat: 10, Lon: 20}
	d := 123456.0
	p2 := Forward(p, 37, d)
	require.False(t, math.IsNaN(p2.Lat))
	require.False(t, math.IsNaN(p2.Lon))
	assert.InDelta(t, d, Distance(p, p2), 1.0)
}

func TestIntermediateEndpoints(t *testing.T) {
	p1 := Point{Lat: 10, Lon: 20}
	p2 := Point{Lat: 30, Lon: -40}
	got1 := Intermediate(p1, p2, 0)
	got2 := Intermediate(p1, p2, 1)
	assert.InDelta(t, p1.Lat, got1.Lat, 1e-9)
	assert.InDelta(t, p1.Lon, got1.Lon, 1e-9)
	assert.InDelta(t, p2.Lat, got2.Lat, 1e-9)
	assert.InDelta(t, p2.Lon, got2.Lon, 1e-9)
}

func TestAntipodalDistanceNoNaN(t *testing.T) {
	p1 := Point{Lat: 10, Lon: 20}
	p2 := Point{Lat: -10, Lon: -160}
	d := Distance(p1, p2)
	require.False(t, math.IsNaN(d))
	assert.InDelta(t, math.Pi*EarthRadiusM, d, 50000.0)

	b := Bearing(p1, p2)
	require.False(t, math.IsNaN(b))
}

func TestLongitudeWrapNormalised(t *testing.T) {
	p := Point{Lat: 0, Lon: 179.9}
	got := Forward(p, 90, 50000)
	assert.GreaterOrEqual(t, got.Lon, -180.0)
	assert.LessOrEqual(t, got.Lon, 180.0)
}

func genLat() *rapid.Generator[float64] {
	return rapid.Float64Range(-89, 89)
}

func genLon() *rapid.Generator[float64] {
	return rapid.Float64Range(-179, 179)
}

func TestPropertyDistanceNonNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p1 := Point{Lat: genLat().Draw(rt, "lat1"), Lon: genLon().Draw(rt, "lon1")}
		p2 := Point{Lat: genLat().Draw(rt, "lat2"), Lon: genLon().Draw(rt, "lon2")}
		d := Distance(p1, p2)
		if d < 0 || math.IsNaN(d) {
			rt.Fatalf("distance %v out of range for %v -> %v", d, p1, p2)
		}
	})
}

func TestPropertyBearingSymmetry(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p1 := Point{Lat: genLat().Draw(rt, "lat1"), Lon: genLon().Draw(rt, "lon1")}
		p2 := Point{Lat: genLat().Draw(rt, "lat2"), Lon: genLon().Draw(rt, "lon2")}
		if math.Abs(p1.Lat) > 80 || math.Abs(p2.Lat) > 80 {
			return
		}
		if Distance(p1, p2) < 1000 || Distance(p1, p2) > math.Pi*EarthRadiusM*0.99 {
			return
		}
		fwd := Bearing(p1, p2)
		back := Bearing(p2, p1)
		diff := math.Abs(fwd - math.Mod(back+180, 360))
		if diff > 180 {
			diff = 360 - diff
		}
		if diff > 2.0 {
			rt.Fatalf("bearing symmetry violated: fwd=%v back=%v diff=%v", fwd, back, diff)
		}
	})
}

func TestPropertyForwardRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := Point{Lat: genLat().Draw(rt, "lat"), Lon: genLon().Draw(rt, "lon")}
		course := rapid.Float64Range(0, 359.999).Draw(rt, "course")
		dist := rapid.Float64Range(0, 2000000).Draw(rt, "dist")

		got := Forward(p, course, dist)
		if math.IsNaN(got.Lat) || math.IsNaN(got.Lon) {
			rt.Fatalf("forward produced NaN for p=%v course=%v dist=%v", p, course, dist)
		}
		if got.Lon < -180 || got.Lon > 180 {
			rt.Fatalf("longitude not normalised: %v", got.Lon)
		}
		back := Distance(p, got)
		if math.Abs(back-dist) > 1.0+dist*0.001 {
			rt.Fatalf("round trip distance mismatch: want %v got %v", dist, back)
		}
	})
}
