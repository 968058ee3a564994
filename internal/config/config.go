// Package config holds all swarmdyn configuration, loaded from YAML with
// sensible defaults for every section. A missing config file is not an
// error; the defaults describe a working system.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"swarmdyn/internal/controller"
	"swarmdyn/internal/dynamics"
)

// Config holds all swarmdyn configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store"`
	Estimator  EstimatorConfig  `yaml:"estimator"`
	Analyzer   AnalyzerConfig   `yaml:"analyzer"`
	Controller ControllerConfig `yaml:"controller"`
	Mutation   MutationConfig   `yaml:"mutation"`
	Selection  SelectionConfig  `yaml:"selection"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// StoreConfig configures the transition store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
	ReportPath   string `yaml:"report_path"`
}

// EstimatorConfig configures the potential fit.
type EstimatorConfig struct {
	SmoothingAlpha float64 `yaml:"smoothing_alpha"`
	Tolerance      float64 `yaml:"tolerance"`
	LearningRate   float64 `yaml:"learning_rate"`
	MaxIterations  int     `yaml:"max_iterations"`
}

// Options converts to the dynamics estimator options.
func (c EstimatorConfig) Options() dynamics.EstimatorOptions {
	return dynamics.EstimatorOptions{
		Alpha:        c.SmoothingAlpha,
		Tolerance:    c.Tolerance,
		LearningRate: c.LearningRate,
		MaxIter:      c.MaxIterations,
	}
}

// AnalyzerConfig configures trap detection.
type AnalyzerConfig struct {
	MinOutgoing int64   `yaml:"min_outgoing"`
	ActionLow   float64 `yaml:"action_low"`
	DeltaVLow   float64 `yaml:"delta_v_low"`
}

// Options converts to the dynamics analyzer options.
func (c AnalyzerConfig) Options() dynamics.AnalyzerOptions {
	return dynamics.AnalyzerOptions{
		MinOutgoing: c.MinOutgoing,
		ActionLow:   c.ActionLow,
		DeltaVLow:   c.DeltaVLow,
	}
}

// ControllerConfig configures the exploration controller.
type ControllerConfig struct {
	Enabled            bool    `yaml:"enabled"`
	ActionLow          float64 `yaml:"action_low"`
	ActionHigh         float64 `yaml:"action_high"`
	DefaultParallelism int     `yaml:"default_parallelism"`
	MaxParallelism     int     `yaml:"max_parallelism"`
	ParallelismStep    int     `yaml:"parallelism_step"`
	BaseTemperature    float64 `yaml:"base_temperature"`
	TemperatureStep    float64 `yaml:"temperature_step"`
	TemperatureMin     float64 `yaml:"temperature_min"`
	TemperatureMax     float64 `yaml:"temperature_max"`
	BaseTopP           float64 `yaml:"base_top_p"`
}

// Options converts to the controller options.
func (c ControllerConfig) Options() controller.Options {
	return controller.Options{
		Enabled:            c.Enabled,
		ActionLow:          c.ActionLow,
		ActionHigh:         c.ActionHigh,
		DefaultParallelism: c.DefaultParallelism,
		MaxParallelism:     c.MaxParallelism,
		ParallelismStep:    c.ParallelismStep,
		BaseTemperature:    c.BaseTemperature,
		TemperatureStep:    c.TemperatureStep,
		TemperatureMin:     c.TemperatureMin,
		TemperatureMax:     c.TemperatureMax,
		BaseTopP:           c.BaseTopP,
	}
}

// MutationConfig configures genome mutation.
type MutationConfig struct {
	Strength   float64 `yaml:"strength"`
	ArchiveDir string  `yaml:"archive_dir"`
}

// SelectionConfig configures survivor selection.
type SelectionConfig struct {
	Survivors      int `yaml:"survivors"`
	PopulationSize int `yaml:"population_size"`
}

// LoggingConfig configures the categorized logger.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// Default returns the standard configuration.
func Default() Config {
	est := dynamics.DefaultEstimatorOptions()
	ana := dynamics.DefaultAnalyzerOptions()
	ctl := controller.DefaultOptions()
	return Config{
		Store: StoreConfig{
			DatabasePath: ".swarmdyn/transitions.db",
			ReportPath:   ".swarmdyn/dynamics_report.json",
		},
		Estimator: EstimatorConfig{
			SmoothingAlpha: est.Alpha,
			Tolerance:      est.Tolerance,
			LearningRate:   est.LearningRate,
			MaxIterations:  est.MaxIter,
		},
		Analyzer: AnalyzerConfig{
			MinOutgoing: ana.MinOutgoing,
			ActionLow:   ana.ActionLow,
			DeltaVLow:   ana.DeltaVLow,
		},
		Controller: ControllerConfig{
			Enabled:            ctl.Enabled,
			ActionLow:          ctl.ActionLow,
			ActionHigh:         ctl.ActionHigh,
			DefaultParallelism: ctl.DefaultParallelism,
			MaxParallelism:     ctl.MaxParallelism,
			ParallelismStep:    ctl.ParallelismStep,
			BaseTemperature:    ctl.BaseTemperature,
			TemperatureStep:    ctl.TemperatureStep,
			TemperatureMin:     ctl.TemperatureMin,
			TemperatureMax:     ctl.TemperatureMax,
			BaseTopP:           ctl.BaseTopP,
		},
		Mutation: MutationConfig{
			Strength:   1.0,
			ArchiveDir: ".swarmdyn/genomes",
		},
		Selection: SelectionConfig{
			Survivors:      4,
			PopulationSize: 12,
		},
		Logging: LoggingConfig{Debug: false},
	}
}

// Load reads a config file, layering it over the defaults. A missing file
// returns the defaults; a malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
