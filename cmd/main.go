// Package cmd wires the Cobra root command and the "run" subcommand that
// starts the fleet simulator: the AIS ingest client, the synthetic
// simulators, the channel model, and the tick driver, plus a small HTTP
// server exposing /healthz and /metrics.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/projectqai/fleetwatch/ais"
	"github.com/projectqai/fleetwatch/channel"
	"github.com/projectqai/fleetwatch/config"
	"github.com/projectqai/fleetwatch/driver"
	"github.com/projectqai/fleetwatch/fleet"
	"github.com/projectqai/fleetwatch/logging"
	"github.com/projectqai/fleetwatch/metrics"
	"github.com/projectqai/fleetwatch/simulate"
	"github.com/projectqai/fleetwatch/vessel"
	"github.com/projectqai/fleetwatch/version"
)

const DefaultPort = "8090"

// CMD is the root command for the fleet simulator binary.
var CMD = &cobra.Command{
	Use:   "fleetwatch",
	Short: "maritime situational-awareness simulator",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		godotenv.Load()
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "start the fleet simulator: AIS ingest, synthetic vessels, and the tick driver",
	RunE:  runE,
}

func init() {
	runCmd.Flags().String("fixtures", "", "path to a routes/corridors/geofence YAML fixture file")
	runCmd.Flags().String("port", DefaultPort, "HTTP port for /healthz and /metrics")
	CMD.AddCommand(runCmd)
	CMD.AddCommand(version.CMD)
}

func runE(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config-invalid: %w", err)
	}
	logging.SetLevel(cfg.LogLevel)

	fixturesPath, _ := cmd.Flags().GetString("fixtures")
	fixtures, err := config.LoadFixtures(fixturesPath)
	if err != nil {
		return err
	}

	store := fleet.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var aisClient *ais.Client
	if cfg.EnableRealAIS {
		aisClient = ais.New(ais.Config{APIKey: cfg.AISStreamAPIKey})
		aisClient.Start(ctx)
		slog.Info("AIS ingest started", "module", "cmd")
	} else {
		slog.Info("AIS ingest disabled by ENABLE_REAL_AIS=false", "module", "cmd")
	}

	entries, corridorVessels, err := buildSyntheticFleet(fixtures)
	if err != nil {
		return err
	}

	chanSim := channel.New(channel.Config{
		Profile: channel.DefaultProfile(channel.Kind(cfg.DefaultChannelProfile)),
		Seed:    time.Now().UnixNano(),
	})

	drv := driver.New(driver.Config{
		Store:           store,
		AIS:             aisClient,
		Channel:         chanSim,
		Entries:         entries,
		TickInterval:    time.Duration(cfg.SimulationUpdateIntervalSec) * time.Second,
		MaxDrainPerTick: 100,
	})

	if err := metrics.Init(); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	promHandler, err := metrics.InitPrometheus()
	if err != nil {
		return fmt.Errorf("failed to initialize prometheus: %w", err)
	}
	startMetricsUpdater(ctx, store, aisClient, chanSim, corridorVessels)

	port, _ := cmd.Flags().GetString("port")
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promHandler)

	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", port, err)
	}

	printBanner(port)

	httpServer := &http.Server{Handler: mux}
	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "module", "cmd", "error", err)
		}
	}()

	go drv.Run(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down", "module", "cmd")
	cancel()
	if aisClient != nil {
		aisClient.Stop()
	}
	_ = httpServer.Close()
	return nil
}

// buildSyntheticFleet constructs the default synthetic vessels from
// loaded fixtures: every route becomes an ammonia-sim waypoint vessel,
// every corridor (checked against every loaded geofence zone) becomes
// an smr-sim corridor vessel.
func buildSyntheticFleet(f config.Fixtures) ([]driver.Entry, []*simulate.CorridorVessel, error) {
	var entries []driver.Entry
	var corridorVessels []*simulate.CorridorVessel

	for i, route := range f.Routes {
		id := vessel.Id(fmt.Sprintf("90000%04d", i+1))
		rv, err := simulate.NewRouteVessel(id, route.Name, route, simulate.AmmoniaDimensions(), simulate.DefaultBlackoutProfile(), int64(i+1))
		if err != nil {
			return nil, nil, err
		}
		entries = append(entries, driver.Entry{
			Id: id, Name: route.Name,
			Classification: vessel.ClassAmmoniaSim, Source: vessel.SourceSimulatedAmmonia,
			Sim: rv,
		})
	}

	for _, corridor := range f.Corridors {
		cv, err := simulate.NewCorridorVessel(vessel.Id(vessel.SMRMMSI), corridor.Name, corridor, f.Zones, simulate.SMRDimensions(), time.Now().UTC())
		if err != nil {
			return nil, nil, err
		}
		entries = append(entries, driver.Entry{
			Id: vessel.Id(vessel.SMRMMSI), Name: corridor.Name,
			Classification: vessel.ClassSMRSim, Source: vessel.SourceSimulatedSMR,
			Sim: cv,
		})
		corridorVessels = append(corridorVessels, cv)
	}

	return entries, corridorVessels, nil
}

func startMetricsUpdater(ctx context.Context, store *fleet.Store, aisClient *ais.Client, chanSim *channel.Simulator, corridorVessels []*simulate.CorridorVessel) {
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.SetCachedVesselCount(store.Count())
				if aisClient != nil {
					s := aisClient.Stats()
					metrics.SetQueueDepth(s.QueueDepth)
				}
				if chanSim != nil {
					cs := chanSim.Stats()
					metrics.SetSAI(cs.SAI())
					metrics.SetBlackoutEvents(cs.BlackoutEvents)
				}
				violations := 0
				for _, cv := range corridorVessels {
					violations += len(cv.Violations())
				}
				metrics.SetViolationCount(violations)
			}
		}
	}()
}

func printBanner(port string) {
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	bold := color.New(color.Bold)

	fmt.Println()
	_, _ = green.Print("  ➤ ")
	_, _ = bold.Print("Fleetwatch Simulator ")
	fmt.Printf("(%s)", version.Version)
	fmt.Println(" running at:")
	_, _ = green.Print("  ➤ ")
	fmt.Print("Local:   ")
	_, _ = cyan.Printf("http://localhost:%s\n", port)
	fmt.Println()
}
