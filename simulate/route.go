// Package simulate implements the synthetic vessel simulators: the
// waypoint-route simulator, the corridor simulator, geofence and
// polyline geometry helpers, and the predicted-transit sequence.
package simulate

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/projectqai/fleetwatch/geo"
	"github.com/projectqai/fleetwatch/reckon"
	"github.com/projectqai/fleetwatch/vessel"
)

// Waypoint is a named point on a Route with a target arrival speed.
type Waypoint struct {
	Point          geo.Point
	Label          string
	ArrivalSpeedKn float64
}

// Route is an ordered, cyclic-on-exhaustion waypoint sequence. A Route
// must have at least two waypoints.
type Route struct {
	Name      string
	Waypoints []Waypoint
}

// Dimensions carries a vessel's length/width/draught and performance
// envelope. Ammonia and SMR vessels carry different defaults.
type Dimensions struct {
	LengthM  float64
	WidthM   float64
	DraughtM float64

	MaxSpeedKn    float64
	CruiseSpeedKn float64
	MinSpeedKn    float64
}

// AmmoniaDimensions returns the default dimensions/performance envelope
// for a simulated ammonia-fuel carrier.
func AmmoniaDimensions() Dimensions {
	return Dimensions{
		LengthM: 230.0, WidthM: 36.0, DraughtM: 12.5,
		MaxSpeedKn: 19.5, CruiseSpeedKn: 16.0, MinSpeedKn: 10.0,
	}
}

// BlackoutProfile configures the per-tick probability and duration range
// of a stochastic signal blackout.
type BlackoutProfile struct {
	ProbabilityPerTick float64
	MinDurationSec     float64
	MaxDurationSec     float64
}

// DefaultBlackoutProfile returns the ammonia-carrier blackout defaults.
func DefaultBlackoutProfile() BlackoutProfile {
	return BlackoutProfile{ProbabilityPerTick: 0.05, MinDurationSec: 60, MaxDurationSec: 600}
}

// BlackoutStatus reports elapsed/remaining seconds of an active
// blackout, not just the boolean flag.
type BlackoutStatus struct {
	InBlackout       bool
	ElapsedSec       float64
	RemainingSec     float64
	TotalDurationSec float64
}

const (
	decelerationDistanceM = 5000.0
	waypointArrivalM      = 500.0
	maxAccelKnPerSec      = 0.05
	maxTurnRateDegPerSec  = 2.0
)

// RouteVessel drives a single synthetic vessel along a cyclic Route with
// bounded turn/acceleration and stochastic blackouts.
type RouteVessel struct {
	Id   vessel.Id
	Name string

	route Route
	dims  Dimensions
	blk   BlackoutProfile
	rng   *rand.Rand

	waypointIdx int
	pos         geo.Point
	course      float64
	speed       float64

	inBlackout         bool
	blackoutElapsedSec float64
	blackoutDurSec     float64

	elapsedSec float64
}

// NewRouteVessel constructs a waypoint-route simulator. Returns an error
// (kind route-invalid) if the route has fewer than two waypoints.
func NewRouteVessel(id vessel.Id, name string, route Route, dims Dimensions, blk BlackoutProfile, seed int64) (*RouteVessel, error) {
	if len(route.Waypoints) < 2 {
		return nil, fmt.Errorf("route-invalid: route %q needs at least two waypoints, got %d", route.Name, len(route.Waypoints))
	}

	start := route.Waypoints[0].Point
	next := route.Waypoints[1].Point
	initialCourse := geo.Bearing(start, next)

	return &RouteVessel{
		Id:          id,
		Name:        name,
		route:       route,
		dims:        dims,
		blk:         blk,
		rng:         rand.New(rand.NewSource(seed)),
		waypointIdx: 1,
		pos:         start,
		course:      initialCourse,
		speed:       dims.CruiseSpeedKn,
	}, nil
}

// Tick advances the vessel by dtSec and returns the resulting vessel
// state patch along with whether the vessel is currently in blackout.
func (v *RouteVessel) Tick(dtSec float64, amb reckon.Ambient) vessel.Patch {
	v.elapsedSec += dtSec

	v.updateBlackout(dtSec)

	if v.waypointIdx >= len(v.route.Waypoints) {
		v.waypointIdx = 0
	}
	target := v.route.Waypoints[v.waypointIdx]

	targetCourse := geo.Bearing(v.pos, target.Point)
	distToTarget := geo.Distance(v.pos, target.Point)

	targetSpeed := v.dims.CruiseSpeedKn
	if distToTarget < decelerationDistanceM {
		factor := distToTarget / decelerationDistanceM
		targetSpeed = v.dims.MinSpeedKn + (target.ArrivalSpeedKn-v.dims.MinSpeedKn)*factor
	}
	v.speed = applyRateLimit(v.speed, targetSpeed, maxAccelKnPerSec*dtSec)

	v.course = applyCourseLimit(v.course, targetCourse, maxTurnRateDegPerSec*dtSec)

	pred := reckon.PredictPosition(v.pos, v.course, v.speed, dtSec, amb, reckon.DefaultCoefficients())
	v.pos = pred.Position

	if distToTarget < waypointArrivalM {
		v.waypointIdx++
	}

	course, speed, pos, blackout := v.course, v.speed, v.pos, v.inBlackout
	return vessel.Patch{
		Lat:        &pos.Lat,
		Lon:        &pos.Lon,
		Course:     &course,
		Speed:      &speed,
		IsBlackout: &blackout,
	}
}

func (v *RouteVessel) updateBlackout(dtSec float64) {
	if v.inBlackout {
		v.blackoutElapsedSec += dtSec
		if v.blackoutElapsedSec >= v.blackoutDurSec {
			v.inBlackout = false
			v.blackoutElapsedSec = 0
			v.blackoutDurSec = 0
		}
		return
	}
	if v.rng.Float64() < v.blk.ProbabilityPerTick {
		v.inBlackout = true
		v.blackoutElapsedSec = 0
		v.blackoutDurSec = v.blk.MinDurationSec + v.rng.Float64()*(v.blk.MaxDurationSec-v.blk.MinDurationSec)
	}
}

// BlackoutStatus reports the vessel's current blackout telemetry.
func (v *RouteVessel) BlackoutStatus() BlackoutStatus {
	if !v.inBlackout {
		return BlackoutStatus{InBlackout: false}
	}
	remaining := v.blackoutDurSec - v.blackoutElapsedSec
	if remaining < 0 {
		remaining = 0
	}
	return BlackoutStatus{
		InBlackout:       true,
		ElapsedSec:       v.blackoutElapsedSec,
		RemainingSec:     remaining,
		TotalDurationSec: v.blackoutDurSec,
	}
}

func applyRateLimit(current, target, maxChange float64) float64 {
	diff := target - current
	if math.Abs(diff) > maxChange {
		if diff > 0 {
			return current + maxChange
		}
		return current - maxChange
	}
	return target
}

// applyCourseLimit turns current toward target on the shortest-sign
// rotation, bounded by maxChange degrees, and normalises to [0,360).
func applyCourseLimit(current, target, maxChange float64) float64 {
	diff := math.Mod(target-current+180, 360) - 180
	if diff < -180 {
		diff += 360
	}
	var next float64
	if math.Abs(diff) > maxChange {
		if diff > 0 {
			next = current + maxChange
		} else {
			next = current - maxChange
		}
	} else {
		next = target
	}
	return geo.NormalizeCourse(next)
}
