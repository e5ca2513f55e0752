package simulate

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/projectqai/fleetwatch/geo"
)

// toOrbPoint converts a geo.Point (lat,lon) to orb's (lon,lat) convention.
func toOrbPoint(p geo.Point) orb.Point { return orb.Point{p.Lon, p.Lat} }
func fromOrbPoint(p orb.Point) geo.Point { return geo.Point{Lat: p[1], Lon: p[0]} }

// PointInRing reports whether p lies inside ring using the even-odd
// ray-cast test. Ring is expected closed (first point == last point).
func PointInRing(p geo.Point, ring orb.Ring) bool {
	inside := false
	n := len(ring)
	if n < 3 {
		return false
	}
	px, py := p.Lon, p.Lat
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > py) != (yj > py) {
			xIntersect := xi + (py-yi)/(yj-yi)*(xj-xi)
			if px < xIntersect {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// PointInPolygon reports whether p lies inside polygon's outer ring and
// outside every hole ring.
func PointInPolygon(p geo.Point, poly orb.Polygon) bool {
	if len(poly) == 0 {
		return false
	}
	if !PointInRing(p, poly[0]) {
		return false
	}
	for _, hole := range poly[1:] {
		if PointInRing(p, hole) {
			return false
		}
	}
	return true
}

// NearestOnPolyline returns the nearest point on the polyline (a sequence
// of >=2 points) to p, the cross-track distance in metres, and a sign (+1
// left of travel direction, -1 right) for path-following correction.
// Computed segment by segment via projection and clamping.
func NearestOnPolyline(p geo.Point, line []geo.Point) (nearest geo.Point, distM float64, sign float64) {
	if len(line) == 0 {
		return p, 0, 1
	}
	if len(line) == 1 {
		return line[0], geo.Distance(p, line[0]), 1
	}

	best := math.MaxFloat64
	bestPoint := line[0]
	bestSign := 1.0

	for i := 0; i < len(line)-1; i++ {
		a, b := line[i], line[i+1]
		np, d, s := nearestOnSegment(p, a, b)
		if d < best {
			best = d
			bestPoint = np
			bestSign = s
		}
	}
	return bestPoint, best, bestSign
}

// nearestOnSegment projects p onto segment a->b using a local equirectangular
// approximation (longitude scaled by cos of mean latitude), clamps the
// projection to the segment, and reports the cross-track distance and
// which side of the segment p falls on.
func nearestOnSegment(p, a, b geo.Point) (geo.Point, float64, float64) {
	lat0 := (a.Lat + b.Lat) / 2
	cosLat := math.Cos(lat0 * math.Pi / 180)

	ax, ay := 0.0, 0.0
	bx := (b.Lon - a.Lon) * cosLat * metresPerDegree
	by := (b.Lat - a.Lat) * metresPerDegree
	px := (p.Lon - a.Lon) * cosLat * metresPerDegree
	py := (p.Lat - a.Lat) * metresPerDegree

	dx, dy := bx-ax, by-ay
	segLenSq := dx*dx + dy*dy

	var t float64
	if segLenSq > 0 {
		t = ((px-ax)*dx + (py-ay)*dy) / segLenSq
	}
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}

	projX := ax + t*dx
	projY := ay + t*dy

	nearestLat := a.Lat + (projY)/metresPerDegree
	nearestLon := a.Lon + (projX)/(cosLat*metresPerDegree)
	nearest := geo.Point{Lat: nearestLat, Lon: geo.NormalizeLon(nearestLon)}

	dist := geo.Distance(p, nearest)

	// Cross product sign (of a->b and a->p) determines which side p is on.
	cross := dx*py - dy*px
	sign := 1.0
	if cross < 0 {
		sign = -1.0
	}

	return nearest, dist, sign
}

const metresPerDegree = 111320.0
