package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func geoProfile() Profile {
	p := DefaultProfile(KindGeostationary)
	p.LatencyMeanMs = 500
	p.LatencyStdMs = 100
	return p
}

func TestChannelSmokeLowDegradation(t *testing.T) {
	sim := New(Config{Profile: geoProfile(), Seed: 1, Degradation: 0.0})

	for i := 0; i < 10000; i++ {
		sim.Transmit(5)
	}

	stats := sim.Stats()
	assert.GreaterOrEqual(t, stats.SAI(), 99.0)
	assert.InDelta(t, 500.0, stats.MeanLatencyMs(), 20.0)
}

func TestChannelSmokeHighDegradation(t *testing.T) {
	low := New(Config{Profile: geoProfile(), Seed: 1, Degradation: 0.0})
	for i := 0; i < 10000; i++ {
		low.Transmit(5)
	}
	lowStats := low.Stats()

	high := New(Config{Profile: geoProfile(), Seed: 1, Degradation: 0.9})
	for i := 0; i < 10000; i++ {
		high.Transmit(5)
	}
	highStats := high.Stats()

	assert.LessOrEqual(t, highStats.SAI(), lowStats.SAI()-20.0)
	assert.GreaterOrEqual(t, highStats.MeanLatencyMs(), lowStats.MeanLatencyMs()*1.3)
}

func TestSAIZeroPacketsIsFull(t *testing.T) {
	s := Stats{}
	assert.Equal(t, 100.0, s.SAI())
}

func TestReliabilityIndexFormula(t *testing.T) {
	s := Stats{TotalPackets: 100, LostPackets: 13}
	assert.InDelta(t, 87.0, s.SAI(), 0.0001)
}

func TestForcedBlackoutDoesNotStepGEAndAlwaysFails(t *testing.T) {
	sim := New(Config{Profile: geoProfile(), Seed: 7})
	startState := sim.State()

	sim.ForceBlackout(100)
	for i := 0; i < 5; i++ {
		out := sim.Transmit(10)
		require.False(t, out.Success)
		require.Equal(t, "blackout", out.Reason)
	}
	assert.Equal(t, startState, sim.State(), "GE state must not move during forced blackout")
}

func TestForcedBlackoutEndsAndResumesGE(t *testing.T) {
	sim := New(Config{Profile: geoProfile(), Seed: 7})
	sim.ForceBlackout(20)

	sim.Transmit(10)
	out := sim.Transmit(15) // crosses the 20s window
	assert.NotEqual(t, "blackout", out.Reason)
}

func TestPropertySAIBounded(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Int64Range(0, 1<<30).Draw(rt, "seed")
		degradation := rapid.Float64Range(0, 1).Draw(rt, "d")
		n := rapid.IntRange(1, 500).Draw(rt, "n")

		sim := New(Config{Profile: geoProfile(), Seed: seed, Degradation: degradation})
		for i := 0; i < n; i++ {
			sim.Transmit(5)
		}
		sai := sim.Stats().SAI()
		if sai < 0 || sai > 100 {
			rt.Fatalf("SAI out of range: %v", sai)
		}
	})
}
