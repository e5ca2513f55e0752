// Package geo implements spherical-Earth geodesy primitives shared by the
// dead-reckoning engine and the route/corridor simulators.
package geo

import "math"

// EarthRadiusM is the mean Earth radius used by every formula in this
// package.
const EarthRadiusM = 6371000.0

// Point is a geographic coordinate in degrees. Latitude is in [-90,90],
// longitude in (-180,180] once normalised by Normalize.
type Point struct {
	Lat float64
	Lon float64
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
func toDeg(rad float64) float64 { return rad * 180 / math.Pi }

// NormalizeLon wraps a longitude into (-180, 180].
func NormalizeLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon <= 0 {
		lon += 360
	}
	return lon - 180
}

// NormalizeCourse wraps a course into [0, 360).
func NormalizeCourse(course float64) float64 {
	course = math.Mod(course, 360)
	if course < 0 {
		course += 360
	}
	return course
}

// Distance returns the great-circle distance between p1 and p2 in metres
// via the haversine formula. Co-located points return exactly 0.
func Distance(p1, p2 Point) float64 {
	phi1, phi2 := toRad(p1.Lat), toRad(p2.Lat)
	dPhi := toRad(p2.Lat - p1.Lat)
	dLambda := toRad(p2.Lon - p1.Lon)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusM * c
}

// Bearing returns the initial forward azimuth from p1 to p2 in [0,360).
// Co-located points return 0 rather than NaN.
func Bearing(p1, p2 Point) float64 {
	if p1.Lat == p2.Lat && p1.Lon == p2.Lon {
		return 0
	}
	phi1, phi2 := toRad(p1.Lat), toRad(p2.Lat)
	dLambda := toRad(p2.Lon - p1.Lon)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	theta := math.Atan2(y, x)
	return NormalizeCourse(toDeg(theta))
}

// Forward computes the position reached from p travelling on course
// (degrees) for distance (metres) along a great circle.
func Forward(p Point, course, distance float64) Point {
	if distance == 0 {
		return Point{Lat: p.Lat, Lon: NormalizeLon(p.Lon)}
	}
	delta := distance / EarthRadiusM
	theta := toRad(course)
	phi1 := toRad(p.Lat)
	lambda1 := toRad(p.Lon)

	sinPhi2 := math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta)
	sinPhi2 = clamp(sinPhi2, -1, 1)
	phi2 := math.Asin(sinPhi2)

	y := math.Sin(theta) * math.Sin(delta) * math.Cos(phi1)
	x := math.Cos(delta) - math.Sin(phi1)*sinPhi2
	lambda2 := lambda1 + math.Atan2(y, x)

	return Point{
		Lat: toDeg(phi2),
		Lon: NormalizeLon(toDeg(lambda2)),
	}
}

// Intermediate returns the point a fraction f (0..1) of the way along the
// great-circle arc from p1 to p2 via spherical linear interpolation.
// Intermediate(p1, p2, 0) == p1 and Intermediate(p1, p2, 1) == p2.
func Intermediate(p1, p2 Point, f float64) Point {
	if f <= 0 {
		return Point{Lat: p1.Lat, Lon: NormalizeLon(p1.Lon)}
	}
	if f >= 1 {
		return Point{Lat: p2.Lat, Lon: NormalizeLon(p2.Lon)}
	}

	phi1, lambda1 := toRad(p1.Lat), toRad(p1.Lon)
	phi2, lambda2 := toRad(p2.Lat), toRad(p2.Lon)

	d := Distance(p1, p2) / EarthRadiusM
	if d == 0 {
		return Point{Lat: p1.Lat, Lon: NormalizeLon(p1.Lon)}
	}

	a := math.Sin((1-f)*d) / math.Sin(d)
	b := math.Sin(f*d) / math.Sin(d)

	x := a*math.Cos(phi1)*math.Cos(lambda1) + b*math.Cos(phi2)*math.Cos(lambda2)
	y := a*math.Cos(phi1)*math.Sin(lambda1) + b*math.Cos(phi2)*math.Sin(lambda2)
	z := a*math.Sin(phi1) + b*math.Sin(phi2)

	phi3 := math.Atan2(z, math.Sqrt(x*x+y*y))
	lambda3 := math.Atan2(y, x)

	return Point{
		Lat: toDeg(phi3),
		Lon: NormalizeLon(toDeg(lambda3)),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
