package metrics

import (
	"context"
	"math"
	"runtime"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	cachedVesselCount atomic.Int64
	queueDepth        atomic.Int64
	blackoutEvents    atomic.Int64
	violationCount    atomic.Int64
	sai               atomic.Uint64 // float64 bits, 0.0 until SetSAI is called

	meter metric.Meter

	// Fleet-domain metrics
	cachedVesselCountGauge metric.Int64ObservableGauge
	queueDepthGauge        metric.Int64ObservableGauge
	saiGauge               metric.Float64ObservableGauge
	blackoutEventsGauge    metric.Int64ObservableGauge
	violationCountGauge    metric.Int64ObservableGauge

	// Go runtime metrics, kept verbatim as the ambient baseline.
	goroutinesGauge     metric.Int64ObservableGauge
	memAllocGauge       metric.Int64ObservableGauge
	memTotalAllocGauge  metric.Int64ObservableGauge
	memSysGauge         metric.Int64ObservableGauge
	memHeapAllocGauge   metric.Int64ObservableGauge
	memHeapSysGauge     metric.Int64ObservableGauge
	memHeapObjectsGauge metric.Int64ObservableGauge
	gcNumGauge          metric.Int64ObservableGauge
	gcPauseTotalGauge   metric.Int64ObservableGauge
	numCPUGauge         metric.Int64ObservableGauge
)

func Init() error {
	meter = otel.Meter("fleetwatch.metrics")
	sai.Store(0)

	var err error
	cachedVesselCountGauge, err = meter.Int64ObservableGauge(
		"fleetwatch.vessels.cached",
		metric.WithDescription("Number of vessel records currently held by the fleet store"),
		metric.WithUnit("{vessels}"),
	)
	if err != nil {
		return err
	}

	queueDepthGauge, err = meter.Int64ObservableGauge(
		"fleetwatch.ais.queue_depth",
		metric.WithDescription("Current depth of the AIS ingest client's bounded queue"),
		metric.WithUnit("{messages}"),
	)
	if err != nil {
		return err
	}

	saiGauge, err = meter.Float64ObservableGauge(
		"fleetwatch.channel.sai",
		metric.WithDescription("Signal Availability Index of the channel simulator"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return err
	}

	blackoutEventsGauge, err = meter.Int64ObservableGauge(
		"fleetwatch.channel.blackout_events",
		metric.WithDescription("Cumulative forced-blackout events observed by the channel simulator"),
		metric.WithUnit("{events}"),
	)
	if err != nil {
		return err
	}

	violationCountGauge, err = meter.Int64ObservableGauge(
		"fleetwatch.corridor.violations",
		metric.WithDescription("Cumulative corridor/geofence/speed violations logged by corridor simulators"),
		metric.WithUnit("{events}"),
	)
	if err != nil {
		return err
	}

	goroutinesGauge, err = meter.Int64ObservableGauge(
		"go.goroutines",
		metric.WithDescription("Number of goroutines"),
		metric.WithUnit("{goroutines}"),
	)
	if err != nil {
		return err
	}

	memAllocGauge, err = meter.Int64ObservableGauge(
		"go.memory.allocated",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	memTotalAllocGauge, err = meter.Int64ObservableGauge(
		"go.memory.total_allocated",
		metric.WithDescription("Cumulative bytes allocated for heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	memSysGauge, err = meter.Int64ObservableGauge(
		"go.memory.sys",
		metric.WithDescription("Total bytes of memory obtained from the OS"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	memHeapAllocGauge, err = meter.Int64ObservableGauge(
		"go.memory.heap.allocated",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	memHeapSysGauge, err = meter.Int64ObservableGauge(
		"go.memory.heap.sys",
		metric.WithDescription("Bytes of heap memory obtained from the OS"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	memHeapObjectsGauge, err = meter.Int64ObservableGauge(
		"go.memory.heap.objects",
		metric.WithDescription("Number of allocated heap objects"),
		metric.WithUnit("{objects}"),
	)
	if err != nil {
		return err
	}

	gcNumGauge, err = meter.Int64ObservableGauge(
		"go.gc.count",
		metric.WithDescription("Number of completed GC cycles"),
		metric.WithUnit("{cycles}"),
	)
	if err != nil {
		return err
	}

	gcPauseTotalGauge, err = meter.Int64ObservableGauge(
		"go.gc.pause_total_ns",
		metric.WithDescription("Cumulative nanoseconds in GC stop-the-world pauses"),
		metric.WithUnit("ns"),
	)
	if err != nil {
		return err
	}

	numCPUGauge, err = meter.Int64ObservableGauge(
		"go.cpu.count",
		metric.WithDescription("Number of logical CPUs"),
		metric.WithUnit("{cpus}"),
	)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(cachedVesselCountGauge, cachedVesselCount.Load())
			o.ObserveInt64(queueDepthGauge, queueDepth.Load())
			o.ObserveFloat64(saiGauge, GetSAI())
			o.ObserveInt64(blackoutEventsGauge, blackoutEvents.Load())
			o.ObserveInt64(violationCountGauge, violationCount.Load())

			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			o.ObserveInt64(goroutinesGauge, int64(runtime.NumGoroutine()))
			o.ObserveInt64(memAllocGauge, int64(m.Alloc))
			o.ObserveInt64(memTotalAllocGauge, int64(m.TotalAlloc))
			o.ObserveInt64(memSysGauge, int64(m.Sys))
			o.ObserveInt64(memHeapAllocGauge, int64(m.HeapAlloc))
			o.ObserveInt64(memHeapSysGauge, int64(m.HeapSys))
			o.ObserveInt64(memHeapObjectsGauge, int64(m.HeapObjects))
			o.ObserveInt64(gcNumGauge, int64(m.NumGC))
			o.ObserveInt64(gcPauseTotalGauge, int64(m.PauseTotalNs))
			o.ObserveInt64(numCPUGauge, int64(runtime.NumCPU()))

			return nil
		},
		cachedVesselCountGauge,
		queueDepthGauge,
		saiGauge,
		blackoutEventsGauge,
		violationCountGauge,
		goroutinesGauge,
		memAllocGauge,
		memTotalAllocGauge,
		memSysGauge,
		memHeapAllocGauge,
		memHeapSysGauge,
		memHeapObjectsGauge,
		gcNumGauge,
		gcPauseTotalGauge,
		numCPUGauge,
	)

	return err
}

// SetCachedVesselCount records the current number of vessel records held
// by the fleet store.
func SetCachedVesselCount(count int) { cachedVesselCount.Store(int64(count)) }

// SetQueueDepth records the current depth of the AIS ingest client's
// bounded queue.
func SetQueueDepth(depth int) { queueDepth.Store(int64(depth)) }

// SetSAI records the channel simulator's current Signal Availability
// Index (0-100).
func SetSAI(value float64) { sai.Store(math.Float64bits(value)) }

// GetSAI returns the last recorded SAI, or 0 if SetSAI has never been
// called.
func GetSAI() float64 { return math.Float64frombits(sai.Load()) }

// SetBlackoutEvents records the channel simulator's cumulative
// forced-blackout event count.
func SetBlackoutEvents(count int) { blackoutEvents.Store(int64(count)) }

// SetViolationCount records the cumulative corridor/geofence/speed
// violation count across every corridor simulator.
func SetViolationCount(count int) { violationCount.Store(int64(count)) }
