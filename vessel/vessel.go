// Package vessel defines the canonical vessel-state record shared by the
// AIS ingest client, the synthetic simulators, and the fleet store.
package vessel

import (
	"reflect"
	"time"
)

// Id is a 9-digit Maritime Mobile Service Identity. Identity is immutable
// for the life of a record once assigned.
type Id string

// Simulated identity ranges, disjoint from the real-world (arbitrary)
// range.
const (
	AmmoniaMMSIBase = 900000000
	SMRMMSI         = "999999999"
)

// Classification tags a record's origin and regulatory posture.
type Classification string

const (
	ClassAutonomous      Classification = "autonomous"
	ClassCargoTanker     Classification = "cargo-tanker"
	ClassAmmoniaSim      Classification = "ammonia-sim"
	ClassSMRSim          Classification = "smr-sim"
	ClassPredictedTransit Classification = "predicted-transit"
)

// DataSource tags where a field value last came from.
type DataSource string

const (
	SourceAIS              DataSource = "ais"
	SourceSimulatedAmmonia DataSource = "simulated-ammonia"
	SourceSimulatedSMR     DataSource = "simulated-smr"
	SourcePredicted        DataSource = "predicted"
)

// ETA is a month/day/hour/minute estimated time of arrival, encoded
// relative to the current year the way an AIS static-data message does.
type ETA struct {
	Month  int
	Day    int
	Hour   int
	Minute int
}

// State is the canonical per-vessel record. Every field is independently
// last-writer-wins: see Merge.
type State struct {
	Id             Id
	Name           string
	Classification Classification

	Lat              float64
	Lon              float64
	Course           float64 // course over ground, degrees [0,360)
	Speed            float64 // speed over ground, knots, >= 0
	Heading          *float64
	PositionAccurate bool

	Length      float64
	Width       float64
	Draught     float64
	Destination string
	Eta         *ETA

	Timestamp   time.Time
	DataSource  DataSource
	IsSimulated bool
	IsBlackout  bool
}

// NullIsland reports whether lat/lon is the (0,0) sentinel that must never
// be stored as a valid fix.
func NullIsland(lat, lon float64) bool {
	return lat == 0 && lon == 0
}

// ValidPosition reports whether lat/lon is an acceptable fix: within
// coordinate range and not the null-island sentinel.
func ValidPosition(lat, lon float64) bool {
	if NullIsland(lat, lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Patch describes a per-field update to a State. Every field is a pointer;
// a nil field means "leave unchanged". AIS position reports and
// static-data messages each populate only the fields they carry, and a
// simulator tick populates only the fields it computed.
type Patch struct {
	Name             *string
	Classification   *Classification
	Lat              *float64
	Lon              *float64
	Course           *float64
	Speed            *float64
	Heading          *float64
	PositionAccurate *bool
	Length           *float64
	Width            *float64
	Draught          *float64
	Destination      *string
	Eta              *ETA
	Timestamp        *time.Time
	DataSource       *DataSource
	IsSimulated      *bool
	IsBlackout       *bool
}

// Merge applies every non-nil field of p onto a copy of dst (or a fresh
// zero-value State tagged with id if dst is nil) and returns the result.
// Last-writer-wins per field; the timestamp monotonicity invariant is
// enforced by the caller (the fleet store), not here.
func Merge(dst *State, id Id, p Patch) *State {
	var out State
	if dst != nil {
		out = *dst
	} else {
		out.Id = id
	}

	dstV := reflect.ValueOf(&out).Elem()
	patchV := reflect.ValueOf(p)

	for i := 0; i < patchV.NumField(); i++ {
		pf := patchV.Field(i)
		if pf.IsNil() {
			continue
		}
		name := patchV.Type().Field(i).Name
		target := dstV.FieldByName(name)
		if target.Kind() == reflect.Pointer {
			v := reflect.New(pf.Elem().Type())
			v.Elem().Set(pf.Elem())
			target.Set(v)
			continue
		}
		target.Set(pf.Elem())
	}
	return &out
}
