// Package driver implements the fleet tick driver: each tick it
// advances every synthetic simulator, merges the results into the
// canonical store respecting timestamp monotonicity, drains the AIS
// ingest queue, and optionally gates visibility of the newest update
// through the channel simulator.
package driver

import (
	"context"
	"log/slog"
	"time"

	"github.com/projectqai/fleetwatch/ais"
	"github.com/projectqai/fleetwatch/channel"
	"github.com/projectqai/fleetwatch/fleet"
	"github.com/projectqai/fleetwatch/reckon"
	"github.com/projectqai/fleetwatch/vessel"
)

// Simulator is the subset of simulate.RouteVessel / simulate.CorridorVessel
// the driver depends on, so either synthetic simulator type can be
// registered interchangeably.
type Simulator interface {
	Tick(dtSec float64, amb reckon.Ambient) vessel.Patch
}

// Entry registers one synthetic vessel with the driver: its identity,
// display name, classification, and the simulator driving it.
type Entry struct {
	Id             vessel.Id
	Name           string
	Classification vessel.Classification
	Source         vessel.DataSource
	Sim            Simulator
}

// AmbientSource supplies the wind/current forcing for a tick. Returning a
// zero-value reckon.Ambient means "no ambient forcing this tick".
type AmbientSource func() reckon.Ambient

// Config configures a Driver.
type Config struct {
	Store   *fleet.Store
	AIS     *ais.Client        // optional; nil disables AIS drain
	Channel *channel.Simulator // optional; nil disables visibility gating
	Entries []Entry

	TickInterval    time.Duration // wall-clock tick period, default 1s
	SpeedFactor     float64       // simulated-seconds per wall-clock tick multiplier, default 1
	MaxDrainPerTick int           // max AIS messages merged into the store per tick, default 100
	Ambient         AmbientSource
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.SpeedFactor <= 0 {
		c.SpeedFactor = 1
	}
	if c.MaxDrainPerTick <= 0 {
		c.MaxDrainPerTick = 100
	}
	if c.Ambient == nil {
		c.Ambient = func() reckon.Ambient { return reckon.Ambient{} }
	}
	return c
}

// Driver advances simulated vessels, drains the AIS queue, and publishes
// both into the shared fleet.Store on a periodic tick.
type Driver struct {
	cfg Config
}

// New constructs a Driver. Store must be non-nil.
func New(cfg Config) *Driver {
	return &Driver{cfg: cfg.withDefaults()}
}

// TickResult summarises the work performed by one call to Tick, useful
// for logging and tests.
type TickResult struct {
	SimulatorUpdates    int
	AISDrained          int
	SuppressedByChannel int
}

// Tick advances every registered simulator by one simulated step, derived
// from wallClockDt scaled by the configured speed factor, then drains up
// to MaxDrainPerTick AIS messages into the store. now is the timestamp
// stamped on every simulator-produced patch this tick.
func (d *Driver) Tick(now time.Time, wallClockDt time.Duration) TickResult {
	var result TickResult
	dtSec := wallClockDt.Seconds() * d.cfg.SpeedFactor
	amb := d.cfg.Ambient()

	for _, entry := range d.cfg.Entries {
		patch := entry.Sim.Tick(dtSec, amb)
		patch.Timestamp = &now
		cls := entry.Classification
		patch.Classification = &cls
		src := entry.Source
		patch.DataSource = &src
		simulated := true
		patch.IsSimulated = &simulated
		if d.cfg.Store.GetById(entry.Id) == nil {
			name := entry.Name
			patch.Name = &name
		}

		if d.gated() {
			result.SuppressedByChannel++
			continue
		}

		d.cfg.Store.UpsertFromMessage(entry.Id, patch)
		result.SimulatorUpdates++
	}

	if d.cfg.AIS != nil {
		drained := d.cfg.AIS.Drain(d.cfg.MaxDrainPerTick)
		for _, item := range drained {
			if d.gated() {
				result.SuppressedByChannel++
				continue
			}
			d.cfg.Store.UpsertFromMessage(item.Id, item.Patch)
			result.AISDrained++
		}
	}

	return result
}

// gated samples the channel simulator, if configured, to decide whether
// the update being applied this tick is externally visible. A nil
// Channel means every update is visible (no channel model in effect).
func (d *Driver) gated() bool {
	if d.cfg.Channel == nil {
		return false
	}
	outcome := d.cfg.Channel.Transmit(d.cfg.TickInterval.Seconds())
	return !outcome.Success
}

// Run drives Tick on a ticker scaled by Config.TickInterval until ctx is
// cancelled. It completes the in-flight tick before returning.
func (d *Driver) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.TickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			dt := t.Sub(last)
			last = t
			res := d.Tick(t.UTC(), dt)
			slog.Debug("fleet tick", "module", "driver",
				"simulator_updates", res.SimulatorUpdates,
				"ais_drained", res.AISDrained,
				"suppressed_by_channel", res.SuppressedByChannel)
		}
	}
}
