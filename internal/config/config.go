// Package config loads RuggedBuilder options from a YAML file, with secrets
// (e.g. a tile-storage credential an updater implementation needs) layered
// in from the environment via .env files — the same YAML-plus-godotenv
// pattern this corpus uses for application configuration.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/CS-SI/rugged-go/internal/rerr"
)

// AlgorithmName is the raw algorithm selector string from config, matching
// spec.md §6.2's `algorithm` option.
type AlgorithmName string

const (
	AlgoDuvenhage         AlgorithmName = "DUVENHAGE"
	AlgoBasicScan         AlgorithmName = "BASIC_SCAN"
	AlgoConstantElevation AlgorithmName = "CONSTANT_ELEVATION"
	AlgoIgnoreDem         AlgorithmName = "IGNORE_DEM"
)

// TimeSpan is spec.md §6.2's time_span(min, max, tStep, tolerance) option.
type TimeSpan struct {
	MinDate   float64 `yaml:"min_date"`
	MaxDate   float64 `yaml:"max_date"`
	Step      float64 `yaml:"step"`
	Tolerance float64 `yaml:"tolerance"`
}

// Config is the on-disk shape of a RuggedBuilder configuration.
type Config struct {
	Algorithm          AlgorithmName `yaml:"algorithm"`
	ConstantElevationH float64       `yaml:"constant_elevation_h"`
	Ellipsoid          string        `yaml:"ellipsoid"`
	BodyFrame          string        `yaml:"body_frame"`
	InertialFrame      string        `yaml:"inertial_frame"`
	TimeSpan           TimeSpan      `yaml:"time_span"`
	MaxCachedTiles     int           `yaml:"max_cached_tiles"`
	MaxEntryRetries    int           `yaml:"max_entry_retries"`
	MaxEval            int           `yaml:"max_eval"`
	Accuracy           float64       `yaml:"accuracy"`
	Aberration         bool          `yaml:"aberration"`
	LightTime          bool          `yaml:"light_time"`
}

// DefaultConfig returns the baseline configuration; Load merges a YAML file
// on top of it.
func DefaultConfig() *Config {
	return &Config{
		Algorithm:       AlgoDuvenhage,
		Ellipsoid:       "WGS84",
		BodyFrame:       "ITRF",
		InertialFrame:   "EME2000",
		MaxCachedTiles:  8,
		MaxEntryRetries: 5,
		MaxEval:         50,
		Accuracy:        1e-6,
	}
}

// Load reads path as YAML over the defaults, then loads .env/.env.local (if
// present) so environment-supplied overrides (e.g. a tile storage endpoint
// a TileUpdater reads via os.Getenv) are available to the caller. A missing
// config file is not an error: the defaults are returned as-is.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, rerr.Wrap(rerr.InternalError, err, "failed to parse config file %s", path)
		}
	} else if !os.IsNotExist(err) {
		return nil, rerr.Wrap(rerr.InternalError, err, "failed to read config file %s", path)
	}

	_ = godotenv.Load(".env.local", ".env")

	if cfg.TimeSpan.Step < 0 {
		return nil, rerr.New(rerr.InvalidStep, "time_span.step must be non-negative, got %g", cfg.TimeSpan.Step)
	}
	return cfg, nil
}

// Save writes cfg as YAML to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
