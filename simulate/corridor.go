package simulate

import (
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/projectqai/fleetwatch/geo"
	"github.com/projectqai/fleetwatch/reckon"
	"github.com/projectqai/fleetwatch/vessel"
)

// Corridor is a polyline centreline with a half-width and a speed limit.
type Corridor struct {
	Name       string
	Centerline []geo.Point
	HalfWidthM float64
	MaxSpeedKn float64
}

// ZoneType tags a GeofenceZone's traversal policy.
type ZoneType string

const (
	ZoneAllowed    ZoneType = "ALLOWED"
	ZoneRestricted ZoneType = "RESTRICTED"
	ZoneProhibited ZoneType = "PROHIBITED"
)

// GeofenceZone is a closed polygon tagged with a traversal policy, an
// optional speed limit, and a mandatory-reporting flag.
type GeofenceZone struct {
	Id                 string
	Name               string
	Type               ZoneType
	Boundary           orb.Ring // first point == last point
	MaxSpeedKn         float64  // 0 means unset
	MandatoryReporting bool
}

// SMRDimensions returns the default dimensions/performance envelope for
// the simulated SMR-powered vessel.
func SMRDimensions() Dimensions {
	return Dimensions{
		LengthM: 400.0, WidthM: 59.0, DraughtM: 16.0,
		MaxSpeedKn: 25.0, CruiseSpeedKn: 22.0, MinSpeedKn: 22.0,
	}
}

const (
	corridorDeviationThresholdM = 2000.0
	corridorKp                  = 0.05
	corridorMaxCorrectionDeg    = 10.0
	corridorMaxTurnRateDegSec   = 1.5
)

// CorridorVessel drives a single synthetic vessel along a corridor
// centreline with cross-track correction, evaluating geofence and
// speed-limit predicates each tick.
type CorridorVessel struct {
	Id   vessel.Id
	Name string

	corridor Corridor
	zones    []GeofenceZone
	dims     Dimensions

	centerlineIdx int
	pos           geo.Point
	course        float64
	speed         float64

	wasDeviating bool
	violations   []ViolationEvent
	simTime      time.Time
}

// NewCorridorVessel constructs a corridor simulator. Returns an error
// (kind route-invalid) if the centreline has fewer than two points.
func NewCorridorVessel(id vessel.Id, name string, corridor Corridor, zones []GeofenceZone, dims Dimensions, startTime time.Time) (*CorridorVessel, error) {
	if len(corridor.Centerline) < 2 {
		return nil, fmt.Errorf("route-invalid: corridor %q needs at least two centreline points, got %d", corridor.Name, len(corridor.Centerline))
	}
	for _, z := range zones {
		if len(z.Boundary) < 4 || z.Boundary[0] != z.Boundary[len(z.Boundary)-1] {
			return nil, fmt.Errorf("geofence-invalid: zone %q boundary must be a closed ring (first point == last point, at least 4 points)", z.Id)
		}
	}

	start := corridor.Centerline[0]
	next := corridor.Centerline[1]
	initialCourse := geo.Bearing(start, next)

	return &CorridorVessel{
		Id:            id,
		Name:          name,
		corridor:      corridor,
		zones:         zones,
		dims:          dims,
		centerlineIdx: 1,
		pos:           start,
		course:        initialCourse,
		speed:         dims.CruiseSpeedKn,
		simTime:       startTime,
	}, nil
}

// Tick advances the vessel by dtSec, applies cross-track correction,
// evaluates geofence/deviation predicates, and returns the resulting
// vessel state patch.
func (v *CorridorVessel) Tick(dtSec float64, amb reckon.Ambient) vessel.Patch {
	v.simTime = v.simTime.Add(time.Duration(dtSec * float64(time.Second)))

	if v.centerlineIdx >= len(v.corridor.Centerline) {
		v.centerlineIdx = 0
	}
	target := v.corridor.Centerline[v.centerlineIdx]

	targetCourse := geo.Bearing(v.pos, target)
	distToTarget := geo.Distance(v.pos, target)

	_, crossTrackM, sign := NearestOnPolyline(v.pos, v.corridor.Centerline)

	correction := math.Min(corridorKp*crossTrackM, corridorMaxCorrectionDeg)
	desiredCourse := targetCourse + sign*correction

	v.course = applyCourseLimit(v.course, desiredCourse, corridorMaxTurnRateDegSec*dtSec)

	targetSpeed := v.dims.CruiseSpeedKn
	if v.corridor.MaxSpeedKn > 0 && v.corridor.MaxSpeedKn < targetSpeed {
		targetSpeed = v.corridor.MaxSpeedKn
	}
	v.speed = targetSpeed

	pred := reckon.PredictPosition(v.pos, v.course, v.speed, dtSec, amb, reckon.DefaultCoefficients())
	v.pos = pred.Position

	v.evaluatePredicates()

	if distToTarget < waypointArrivalM {
		v.centerlineIdx++
	}

	course, speed, pos := v.course, v.speed, v.pos
	return vessel.Patch{
		Lat:    &pos.Lat,
		Lon:    &pos.Lon,
		Course: &course,
		Speed:  &speed,
	}
}

// evaluatePredicates checks the deviation threshold and every geofence
// zone against the vessel's new position, appending any violations.
func (v *CorridorVessel) evaluatePredicates() {
	_, crossTrackM, _ := NearestOnPolyline(v.pos, v.corridor.Centerline)

	deviating := crossTrackM > corridorDeviationThresholdM
	if deviating && !v.wasDeviating {
		v.logViolation(ViolationCorridorDeviation, SeverityCritical, map[string]any{
			"cross_track_m": crossTrackM,
			"threshold_m":   corridorDeviationThresholdM,
		})
	}
	v.wasDeviating = deviating

	for _, zone := range v.zones {
		inZone := PointInPolygon(v.pos, orb.Polygon{zone.Boundary})
		if !inZone {
			continue
		}
		switch zone.Type {
		case ZoneProhibited:
			v.logViolation(ViolationGeofence, SeverityCritical, map[string]any{
				"zone_id": zone.Id, "zone_name": zone.Name, "zone_type": string(zone.Type),
			})
		case ZoneRestricted:
			if zone.MaxSpeedKn > 0 && v.speed > zone.MaxSpeedKn {
				v.logViolation(ViolationSpeed, SeverityWarning, map[string]any{
					"zone_id": zone.Id, "zone_name": zone.Name,
					"current_speed_kn": v.speed, "max_speed_kn": zone.MaxSpeedKn,
				})
			}
		}
	}
}

func (v *CorridorVessel) logViolation(kind ViolationKind, sev Severity, details map[string]any) {
	v.violations = append(v.violations, ViolationEvent{
		Timestamp: v.simTime,
		Kind:      kind,
		Severity:  sev,
		Position:  v.pos,
		Details:   details,
	})
}

// Violations returns the append-only violation log accumulated so far.
func (v *CorridorVessel) Violations() []ViolationEvent { return v.violations }
