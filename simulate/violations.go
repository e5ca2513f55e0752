package simulate

import (
	"encoding/json"
	"io"
	"time"

	"github.com/projectqai/fleetwatch/geo"
)

// ViolationKind tags the category of a ViolationEvent.
type ViolationKind string

const (
	ViolationCorridorDeviation ViolationKind = "corridor-deviation"
	ViolationGeofence          ViolationKind = "geofence-violation"
	ViolationSpeed             ViolationKind = "speed-violation"
)

// Severity tags how serious a ViolationEvent is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ViolationEvent is an append-only corridor/geofence/speed violation
// record.
type ViolationEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Kind      ViolationKind  `json:"kind"`
	Severity  Severity       `json:"severity"`
	Position  geo.Point      `json:"position"`
	Details   map[string]any `json:"details,omitempty"`
}

// WriteViolations encodes events as an indented JSON array.
func WriteViolations(w io.Writer, events []ViolationEvent) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(events)
}
