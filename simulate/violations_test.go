package simulate

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/projectqai/fleetwatch/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteViolationsRoundTrips(t *testing.T) {
	events := []ViolationEvent{
		{
			Timestamp: time.Unix(0, 0).UTC(),
			Kind:      ViolationGeofence,
			Severity:  SeverityCritical,
			Position:  geo.Point{Lat: 1, Lon: 2},
			Details:   map[string]any{"zone_id": "Z1"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteViolations(&buf, events))

	var got []ViolationEvent
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Len(t, got, 1)
	assert.Equal(t, ViolationGeofence, got[0].Kind)
}
