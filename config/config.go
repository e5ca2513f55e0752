// Package config loads process-local configuration from the environment,
// plus optional multi-document YAML fixtures for routes, corridors, and
// geofence zones.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the fleet simulator's process-local configuration, loaded
// from the environment (optionally seeded from a .env file).
type Config struct {
	AISStreamAPIKey string
	EnableRealAIS   bool

	SimulationUpdateIntervalSec int
	LogLevel                    string

	// Dead-reckoning knobs read from the environment (0 when unset). They
	// are not passed to the simulators, which always use
	// reckon.DefaultCoefficients().
	CourseUncertaintyDeg float64
	SpeedUncertaintyKn   float64
	WindFactor           float64
	CurrentFactor        float64

	// DefaultChannelProfile names the channel.Kind whose default profile
	// the run command's channel simulator uses.
	DefaultChannelProfile string
}

// Load reads a .env file (if present, silently ignored otherwise) and
// then populates a Config from the environment, applying defaults for
// any unset variable.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg := Config{
		AISStreamAPIKey:             os.Getenv("AISSTREAM_API_KEY"),
		EnableRealAIS:               getBoolEnv("ENABLE_REAL_AIS", true),
		SimulationUpdateIntervalSec: getIntEnv("SIMULATION_UPDATE_INTERVAL_SEC", 10),
		LogLevel:                    getStringEnv("LOG_LEVEL", "info"),
		CourseUncertaintyDeg:        getFloatEnv("COURSE_UNCERTAINTY_DEG", 0),
		SpeedUncertaintyKn:          getFloatEnv("SPEED_UNCERTAINTY_KN", 0),
		WindFactor:                  getFloatEnv("WIND_DRIFT_FACTOR", 0),
		CurrentFactor:               getFloatEnv("CURRENT_DRIFT_FACTOR", 0),
		DefaultChannelProfile:       getStringEnv("DEFAULT_CHANNEL_PROFILE", "geostationary"),
	}

	if cfg.EnableRealAIS && cfg.AISStreamAPIKey == "" {
		return cfg, fmt.Errorf("config-invalid: AISSTREAM_API_KEY is required when ENABLE_REAL_AIS is true")
	}
	if cfg.SimulationUpdateIntervalSec <= 0 {
		return cfg, fmt.Errorf("config-invalid: SIMULATION_UPDATE_INTERVAL_SEC must be positive, got %d", cfg.SimulationUpdateIntervalSec)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return cfg, fmt.Errorf("config-invalid: LOG_LEVEL must be one of debug,info,warn,error, got %q", cfg.LogLevel)
	}

	return cfg, nil
}

func getStringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getFloatEnv(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
