package simulate

import (
	"fmt"

	"github.com/projectqai/fleetwatch/geo"
)

// TransitLeg is one named waypoint of a TransitRoute; each leg runs from
// one entry to the next.
type TransitLeg struct {
	Point geo.Point
	Name  string
}

// TransitRoute is an ordered list of legs a predicted-transit vessel
// travels at a constant speed, without live position reports.
type TransitRoute struct {
	Legs    []TransitLeg
	SpeedKn float64
}

// TransitPosition is the result of PredictedTransit: a pure function of
// elapsed time, restartable without a long-lived actor, per the design
// note on lazy sequences.
type TransitPosition struct {
	Position geo.Point
	Bearing  float64
	LegLabel string
	Arrived  bool
}

const nmPerMetre = 1.0 / 1852.0

// PredictedTransit computes the position of a vessel elapsedHours after
// departure along route, assuming constant speed and no live updates.
// route must have at least one leg; if it has exactly one point the
// vessel is considered arrived immediately.
func PredictedTransit(route TransitRoute, elapsedHours float64) TransitPosition {
	if len(route.Legs) == 0 {
		return TransitPosition{}
	}
	if len(route.Legs) == 1 {
		return TransitPosition{
			Position: route.Legs[0].Point,
			Arrived:  true,
			LegLabel: fmt.Sprintf("Arrived at %s", route.Legs[0].Name),
		}
	}

	distanceTraveledNm := route.SpeedKn * elapsedHours
	cumulativeNm := 0.0

	for i := 0; i < len(route.Legs)-1; i++ {
		from := route.Legs[i]
		to := route.Legs[i+1]

		legDistNm := geo.Distance(from.Point, to.Point) * nmPerMetre

		if cumulativeNm+legDistNm >= distanceTraveledNm {
			distInLeg := distanceTraveledNm - cumulativeNm
			fraction := 0.0
			if legDistNm > 0 {
				fraction = distInLeg / legDistNm
			}

			pos := geo.Intermediate(from.Point, to.Point, fraction)
			bearing := geo.Bearing(from.Point, to.Point)

			return TransitPosition{
				Position: pos,
				Bearing:  bearing,
				LegLabel: fmt.Sprintf("%s -> %s", from.Name, to.Name),
			}
		}
		cumulativeNm += legDistNm
	}

	last := route.Legs[len(route.Legs)-1]
	return TransitPosition{
		Position: last.Point,
		Arrived:  true,
		LegLabel: fmt.Sprintf("Arrived at %s", last.Name),
	}
}
