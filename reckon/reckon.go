// Package reckon implements the dead-reckoning position-propagation
// engine: great-circle advance plus wind/current drift and a closed-form
// error-growth model.
package reckon

import (
	"math"

	"github.com/projectqai/fleetwatch/geo"
)

// Coefficients are the configurable drift and uncertainty knobs.
// PredictPosition replaces each zero field with its DefaultCoefficients
// value, so a factor cannot be set to zero through this struct.
type Coefficients struct {
	WindFactor    float64 // k_w, default 0.03
	CurrentFactor float64 // k_c, default 1.0

	SensorAccuracyM   float64 // sigma_sensor, default 10 m (AIS class-A)
	CourseUncertainty float64 // degrees, default 2
	SpeedUncertainty  float64 // knots, default 0.1

	DecayLambda float64 // confidence decay per minute, default 0.1
}

// DefaultCoefficients returns the default drift/uncertainty
// coefficients.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		WindFactor:        0.03,
		CurrentFactor:     1.0,
		SensorAccuracyM:   10.0,
		CourseUncertainty: 2.0,
		SpeedUncertainty:  0.1,
		DecayLambda:       0.1,
	}
}

func (c Coefficients) withDefaults() Coefficients {
	d := DefaultCoefficients()
	if c.WindFactor == 0 {
		c.WindFactor = d.WindFactor
	}
	if c.CurrentFactor == 0 {
		c.CurrentFactor = d.CurrentFactor
	}
	if c.SensorAccuracyM == 0 {
		c.SensorAccuracyM = d.SensorAccuracyM
	}
	if c.CourseUncertainty == 0 {
		c.CourseUncertainty = d.CourseUncertainty
	}
	if c.SpeedUncertainty == 0 {
		c.SpeedUncertainty = d.SpeedUncertainty
	}
	if c.DecayLambda == 0 {
		c.DecayLambda = d.DecayLambda
	}
	return c
}

// Ambient carries the optional wind/current forcing for a prediction.
// A nil Wind or Current means "no forcing from that source".
type Ambient struct {
	Wind    *VectorKn
	Current *VectorKn
}

// VectorKn is a speed (knots) and direction (degrees, "from" for wind in
// meteorological convention, "toward" for current) pair.
type VectorKn struct {
	SpeedKn      float64
	DirectionDeg float64
}

// Prediction is the result of PredictPosition.
type Prediction struct {
	Position    geo.Point
	DriftEastM  float64
	DriftNorthM float64
	R50M        float64 // CEP, 0.67 sigma
	R95M        float64 // 2.45 sigma
	Confidence  float64 // exp(-lambda * t_minutes)
}

// PredictPosition advances a fix by course/speed over elapsedSec, applying
// optional wind/current drift and computing the confidence radii.
func PredictPosition(last geo.Point, courseDeg, speedKn, elapsedSec float64, amb Ambient, coef Coefficients) Prediction {
	coef = coef.withDefaults()

	distM := speedKn * 0.514444 * elapsedSec
	baseline := geo.Forward(last, courseDeg, distM)

	eastM, northM := driftComponents(amb, coef, elapsedSec)

	dLat := northM / geo.EarthRadiusM * 180 / math.Pi
	cosPhi := math.Cos(baseline.Lat * math.Pi / 180)
	var dLon float64
	if math.Abs(cosPhi) > 1e-9 {
		dLon = eastM / (geo.EarthRadiusM * cosPhi) * 180 / math.Pi
	}

	predicted := geo.Point{
		Lat: baseline.Lat + dLat,
		Lon: geo.NormalizeLon(baseline.Lon + dLon),
	}

	sigmaSensor := coef.SensorAccuracyM
	sigmaCourse := distM * math.Sin(coef.CourseUncertainty*math.Pi/180)
	sigmaSpeed := coef.SpeedUncertainty * 0.514444 * elapsedSec
	sigma := math.Sqrt(sigmaSensor*sigmaSensor + sigmaCourse*sigmaCourse + sigmaSpeed*sigmaSpeed)

	elapsedMin := elapsedSec / 60
	confidence := math.Exp(-coef.DecayLambda * elapsedMin)

	return Prediction{
		Position:    predicted,
		DriftEastM:  eastM,
		DriftNorthM: northM,
		R50M:        0.67 * sigma,
		R95M:        2.45 * sigma,
		Confidence:  confidence,
	}
}

func driftComponents(amb Ambient, coef Coefficients, elapsedSec float64) (eastM, northM float64) {
	if amb.Wind != nil && amb.Wind.SpeedKn != 0 {
		dirRad := (amb.Wind.DirectionDeg + 180) * math.Pi / 180
		vw := amb.Wind.SpeedKn * 0.514444 * coef.WindFactor
		eastM += vw * math.Sin(dirRad) * elapsedSec
		northM += vw * math.Cos(dirRad) * elapsedSec
	}
	if amb.Current != nil && amb.Current.SpeedKn != 0 {
		dirRad := amb.Current.DirectionDeg * math.Pi / 180
		vc := amb.Current.SpeedKn * 0.514444 * coef.CurrentFactor
		eastM += vc * math.Sin(dirRad) * elapsedSec
		northM += vc * math.Cos(dirRad) * elapsedSec
	}
	return eastM, northM
}

// Validation is the result of Validate: scoring a past prediction against
// a later, observed fix, useful for offline accuracy scoring of the
// engine against subsequent AIS corrections.
type Validation struct {
	ErrorDistanceM float64
	WithinR95      bool
	ErrorRatio     float64 // error distance / r95, unitless
}

// Validate compares a Prediction against the actual fix that was later
// observed.
func Validate(pred Prediction, actual geo.Point) Validation {
	errDist := geo.Distance(pred.Position, actual)
	ratio := 0.0
	if pred.R95M > 0 {
		ratio = errDist / pred.R95M
	}
	return Validation{
		ErrorDistanceM: errDist,
		WithinR95:      errDist <= pred.R95M,
		ErrorRatio:     ratio,
	}
}
