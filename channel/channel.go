// Package channel implements the communication-channel simulator: a
// Gilbert-Elliott burst-loss model combined with a sea-state/degradation
// conditioned latency distribution, a forced-blackout facility, and a
// reliability-metric aggregator.
package channel

import (
	"math"
	"math/rand"
)

// Kind names a communication medium; each has a concrete default Profile.
type Kind string

const (
	KindTerrestrialAIS Kind = "terrestrial-ais"
	KindGeostationary  Kind = "geostationary" // VSAT
	KindLEO            Kind = "leo"
)

// Profile is a communication profile: latency distribution, per-state loss
// probabilities, Gilbert-Elliott transition probabilities, and the update
// interval ladder for normal/degraded/critical regimes.
type Profile struct {
	Kind Kind

	LatencyMeanMs float64
	LatencyStdMs  float64

	LossGood float64
	LossBad  float64

	ProbGoodToBad float64
	ProbBadToGood float64

	NormalIntervalSec   int
	DegradedIntervalSec int
	CriticalIntervalSec int
}

// DefaultProfile returns the named default communication profile for
// kind, falling back to terrestrial AIS for unknown kinds.
func DefaultProfile(kind Kind) Profile {
	switch kind {
	case KindTerrestrialAIS:
		return Profile{
			Kind:                KindTerrestrialAIS,
			LatencyMeanMs:       2000,
			LatencyStdMs:        500,
			LossGood:            0.01,
			LossBad:             0.30,
			ProbGoodToBad:       0.05,
			ProbBadToGood:       0.15,
			NormalIntervalSec:   10,
			DegradedIntervalSec: 30,
			CriticalIntervalSec: 120,
		}
	case KindGeostationary:
		return Profile{
			Kind:                KindGeostationary,
			LatencyMeanMs:       500,
			LatencyStdMs:        100,
			LossGood:            0.005,
			LossBad:             0.20,
			ProbGoodToBad:       0.03,
			ProbBadToGood:       0.20,
			NormalIntervalSec:   5,
			DegradedIntervalSec: 20,
			CriticalIntervalSec: 60,
		}
	case KindLEO:
		return Profile{
			Kind:                KindLEO,
			LatencyMeanMs:       30,
			LatencyStdMs:        10,
			LossGood:            0.002,
			LossBad:             0.15,
			ProbGoodToBad:       0.02,
			ProbBadToGood:       0.30,
			NormalIntervalSec:   2,
			DegradedIntervalSec: 10,
			CriticalIntervalSec: 30,
		}
	default:
		return DefaultProfile(KindTerrestrialAIS)
	}
}

// State is the Gilbert-Elliott channel state.
type State int

const (
	Good State = iota
	Bad
)

func (s State) String() string {
	if s == Good {
		return "GOOD"
	}
	return "BAD"
}

// SeaState is the Douglas sea-state scale, used to bias latency.
type SeaState int

const (
	SeaCalm SeaState = iota
	SeaSmooth
	SeaSlight
	SeaModerate
	SeaRough
	SeaVeryRough
	SeaHigh
)

var seaStateFactor = map[SeaState]float64{
	SeaCalm:      0.00,
	SeaSmooth:    0.05,
	SeaSlight:    0.10,
	SeaModerate:  0.20,
	SeaRough:     0.40,
	SeaVeryRough: 0.70,
	SeaHigh:      1.20,
}

// TransmissionOutcome is the result of one transmission attempt.
type TransmissionOutcome struct {
	Success   bool
	Reason    string // "blackout", "packet-loss", "" on success
	LatencyMs float64
	State     State
}

// Stats aggregates transmission outcomes over the life of a Simulator (or
// since the last Reset).
type Stats struct {
	TotalPackets        int
	LostPackets         int
	TotalLatencyMs      float64
	BlackoutEvents      int
	TotalBlackoutDurSec float64
}

// PacketLossRate returns LostPackets/TotalPackets, or 0 if no packets yet.
func (s Stats) PacketLossRate() float64 {
	if s.TotalPackets == 0 {
		return 0
	}
	return float64(s.LostPackets) / float64(s.TotalPackets)
}

// MeanLatencyMs returns the mean latency of delivered packets, or 0 if
// none were delivered.
func (s Stats) MeanLatencyMs() float64 {
	delivered := s.TotalPackets - s.LostPackets
	if delivered == 0 {
		return 0
	}
	return s.TotalLatencyMs / float64(delivered)
}

// SAI is the Signal Availability Index: 100 * delivered/total, or 100 if no
// packets have been observed yet.
func (s Stats) SAI() float64 {
	if s.TotalPackets == 0 {
		return 100.0
	}
	delivered := s.TotalPackets - s.LostPackets
	return 100.0 * float64(delivered) / float64(s.TotalPackets)
}

// Simulator drives the Gilbert-Elliott channel model for one logical link.
// Random draws are seeded per-instance so §8's scenarios are reproducible.
type Simulator struct {
	profile     Profile
	rng         *rand.Rand
	geState     State
	sea         SeaState
	degradation float64 // d in [0,1]

	forcedBlackoutActive   bool
	forcedBlackoutStartSec float64
	forcedBlackoutEndSec   float64
	clockSec               float64

	stats Stats
}

// Config configures a new Simulator.
type Config struct {
	Profile     Profile
	Seed        int64
	SeaState    SeaState
	Degradation float64 // d in [0,1]
}

// New constructs a channel Simulator starting in the GOOD state.
func New(cfg Config) *Simulator {
	return &Simulator{
		profile:     cfg.Profile,
		rng:         rand.New(rand.NewSource(cfg.Seed)),
		geState:     Good,
		sea:         cfg.SeaState,
		degradation: clamp01(cfg.Degradation),
	}
}

func clamp01(d float64) float64 {
	if d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}

// SetDegradation updates the degradation scalar d in [0,1].
func (s *Simulator) SetDegradation(d float64) { s.degradation = clamp01(d) }

// SetSeaState updates the ambient sea state used to bias latency.
func (s *Simulator) SetSeaState(st SeaState) { s.sea = st }

// ForceBlackout opens a forced-blackout window of durationSec, starting
// now, unless one is already active.
func (s *Simulator) ForceBlackout(durationSec float64) {
	if s.forcedBlackoutActive {
		return
	}
	s.forcedBlackoutActive = true
	s.forcedBlackoutStartSec = s.clockSec
	s.forcedBlackoutEndSec = s.clockSec + durationSec
	s.stats.BlackoutEvents++
}

// Transmit advances the simulator's internal clock by elapsedSec and
// processes one transmission attempt.
func (s *Simulator) Transmit(elapsedSec float64) TransmissionOutcome {
	s.clockSec += elapsedSec
	s.stats.TotalPackets++

	if s.forcedBlackoutActive {
		if s.clockSec >= s.forcedBlackoutEndSec {
			s.stats.TotalBlackoutDurSec += s.forcedBlackoutEndSec - s.forcedBlackoutStartSec
			s.forcedBlackoutActive = false
		} else {
			// Forced-blackout transmissions never step the GE channel.
			s.stats.LostPackets++
			return TransmissionOutcome{Success: false, Reason: "blackout", State: s.geState}
		}
	}

	lost := s.stepGilbertElliott()
	if lost {
		s.stats.LostPackets++
		return TransmissionOutcome{Success: false, Reason: "packet-loss", State: s.geState}
	}

	latency := s.sampleLatency()
	s.stats.TotalLatencyMs += latency

	return TransmissionOutcome{Success: true, LatencyMs: latency, State: s.geState}
}

// stepGilbertElliott transitions the GE state and samples a loss, with
// the degradation-scaled loss probabilities. The cap (0.5 GOOD, 0.9 BAD)
// is always applied.
func (s *Simulator) stepGilbertElliott() bool {
	switch s.geState {
	case Good:
		if s.rng.Float64() < s.profile.ProbGoodToBad {
			s.geState = Bad
		}
	case Bad:
		if s.rng.Float64() < s.profile.ProbBadToGood {
			s.geState = Good
		}
	}

	factor := 1.0 + s.degradation*2.0
	var pLoss float64
	if s.geState == Good {
		pLoss = math.Min(s.profile.LossGood*factor, 0.5)
	} else {
		pLoss = math.Min(s.profile.LossBad*factor, 0.9)
	}
	return s.rng.Float64() < pLoss
}

func (s *Simulator) sampleLatency() float64 {
	base := s.rng.NormFloat64()*s.profile.LatencyStdMs + s.profile.LatencyMeanMs
	seaBias := s.profile.LatencyMeanMs * seaStateFactor[s.sea]
	degradationBias := s.profile.LatencyMeanMs * s.degradation * 0.5

	total := base + seaBias + degradationBias
	if total < 0 {
		total = 0
	}
	return total
}

// UpdateInterval returns the recommended next-transmission spacing given
// the current degradation level.
func (s *Simulator) UpdateInterval() int {
	switch {
	case s.degradation < 0.3:
		return s.profile.NormalIntervalSec
	case s.degradation < 0.7:
		return s.profile.DegradedIntervalSec
	default:
		return s.profile.CriticalIntervalSec
	}
}

// Stats returns a copy of the current aggregate statistics.
func (s *Simulator) Stats() Stats { return s.stats }

// State returns the current Gilbert-Elliott state.
func (s *Simulator) State() State { return s.geState }

// Reset clears the aggregate statistics (but not channel/blackout state).
func (s *Simulator) Reset() { s.stats = Stats{} }
