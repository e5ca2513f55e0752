package fleet

import (
	"sync"
	"testing"
	"time"

	"github.com/projectqai/fleetwatch/vessel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertCreatesThenMergesRecord(t *testing.T) {
	s := New()
	lat, lon := 12.3, 45.6
	ts1 := time.Unix(100, 0).UTC()
	cls := vessel.ClassAutonomous

	got := s.UpsertFromMessage("440326000", vessel.Patch{Lat: &lat, Lon: &lon, Classification: &cls, Timestamp: &ts1})
	require.NotNil(t, got)
	assert.Equal(t, cls, got.Classification)

	name := "MV TEST"
	ts2 := time.Unix(200, 0).UTC()
	got2 := s.UpsertFromMessage("440326000", vessel.Patch{Name: &name, Timestamp: &ts2})
	require.NotNil(t, got2)
	assert.Equal(t, lat, got2.Lat, "unspecified fields survive the merge")
	assert.Equal(t, name, got2.Name)
}

func TestUpsertDropsStaleTimestamp(t *testing.T) {
	s := New()
	lat := 1.0
	newer := time.Unix(200, 0).UTC()
	older := time.Unix(100, 0).UTC()

	s.UpsertFromMessage("1", vessel.Patch{Lat: &lat, Timestamp: &newer})

	staleLat := 99.0
	got := s.UpsertFromMessage("1", vessel.Patch{Lat: &staleLat, Timestamp: &older})
	assert.Nil(t, got)

	current := s.GetById("1")
	require.NotNil(t, current)
	assert.Equal(t, 1.0, current.Lat)
}

func TestUpsertNormalisesCourseAndClampsSpeed(t *testing.T) {
	s := New()
	course := 725.0
	speed := -4.0
	ts := time.Unix(100, 0).UTC()

	got := s.UpsertFromMessage("1", vessel.Patch{Course: &course, Speed: &speed, Timestamp: &ts})
	require.NotNil(t, got)
	assert.InDelta(t, 5.0, got.Course, 1e-9)
	assert.Equal(t, 0.0, got.Speed)
}

func TestGetByIdReturnsSnapshotCopy(t *testing.T) {
	s := New()
	lat := 1.0
	ts := time.Now().UTC()
	s.UpsertFromMessage("1", vessel.Patch{Lat: &lat, Timestamp: &ts})

	snap := s.GetById("1")
	snap.Lat = 999

	fresh := s.GetById("1")
	assert.Equal(t, 1.0, fresh.Lat, "mutating a snapshot must not affect the store")
}

func TestSnapshotAllAndIterateByClassification(t *testing.T) {
	s := New()
	ts := time.Now().UTC()
	cls1 := vessel.ClassAutonomous
	cls2 := vessel.ClassCargoTanker

	lat1, lat2 := 1.0, 2.0
	s.UpsertFromMessage("1", vessel.Patch{Lat: &lat1, Classification: &cls1, Timestamp: &ts})
	s.UpsertFromMessage("2", vessel.Patch{Lat: &lat2, Classification: &cls2, Timestamp: &ts})

	all := s.SnapshotAll()
	assert.Len(t, all, 2)

	autonomous := s.IterateByClassification(vessel.ClassAutonomous)
	assert.Len(t, autonomous, 1)
	assert.Equal(t, vessel.Id("1"), autonomous[0].Id)
}

func TestStoreConcurrentAccessDoesNotRace(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			lat := float64(n)
			ts := time.Now().UTC()
			s.UpsertFromMessage(vessel.Id("1"), vessel.Patch{Lat: &lat, Timestamp: &ts})
			_ = s.SnapshotAll()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, s.Count())
}
