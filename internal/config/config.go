// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables on top of New().
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Config contains process configuration for the server and the training CLI.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// ArtifactDir holds the model and feature schema files.
	ArtifactDir string `koanf:"artifact_dir"`
	ModelFile   string `koanf:"model_file"`
	SchemaFile  string `koanf:"schema_file"`

	// WorkerCount sets the number of featurization workers.
	WorkerCount int `koanf:"worker_count"`

	// MaxBatchSize caps records per batch prediction request.
	MaxBatchSize int `koanf:"max_batch_size"`

	// Data loading.
	SampleFraction float64 `koanf:"sample_fraction"`
	SampleSeed     int64   `koanf:"sample_seed"`
	ValidFraction  float64 `koanf:"valid_fraction"`
	SplitSeed      int64   `koanf:"split_seed"`

	// Gradient boosting hyperparameters.
	Estimators      int     `koanf:"estimators"`
	LearningRate    float64 `koanf:"learning_rate"`
	MaxDepth        int     `koanf:"max_depth"`
	MinChildSamples int     `koanf:"min_child_samples"`
	Subsample       float64 `koanf:"subsample"`
	MinSplitGain    float64 `koanf:"min_split_gain"`
	ModelSeed       int64   `koanf:"model_seed"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		ShutdownTimeout: 10 * time.Second,
		ArtifactDir:     "artifacts",
		ModelFile:       "model.json",
		SchemaFile:      "features.json",
		WorkerCount:     runtime.NumCPU(),
		MaxBatchSize:    10_000,
		SampleFraction:  1.0,
		SampleSeed:      42,
		ValidFraction:   0.2,
		SplitSeed:       42,
		Estimators:      500,
		LearningRate:    0.1,
		MaxDepth:        6,
		MinChildSamples: 10,
		Subsample:       0.8,
		MinSplitGain:    0.5,
		ModelSeed:       42,
	}
}

// Validate checks value ranges. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("addr must not be empty: %w", ErrInvalidConfig)
	case c.ArtifactDir == "":
		return fmt.Errorf("artifact_dir must not be empty: %w", ErrInvalidConfig)
	case c.ModelFile == "" || c.SchemaFile == "":
		return fmt.Errorf("model_file and schema_file must not be empty: %w", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("worker_count %d must be positive: %w", c.WorkerCount, ErrInvalidConfig)
	case c.MaxBatchSize <= 0:
		return fmt.Errorf("max_batch_size %d must be positive: %w", c.MaxBatchSize, ErrInvalidConfig)
	case c.SampleFraction <= 0 || c.SampleFraction > 1:
		return fmt.Errorf("sample_fraction %v outside (0, 1]: %w", c.SampleFraction, ErrInvalidConfig)
	case c.ValidFraction <= 0 || c.ValidFraction >= 1:
		return fmt.Errorf("valid_fraction %v outside (0, 1): %w", c.ValidFraction, ErrInvalidConfig)
	case c.Estimators <= 0:
		return fmt.Errorf("estimators %d must be positive: %w", c.Estimators, ErrInvalidConfig)
	case c.LearningRate <= 0 || c.LearningRate > 1:
		return fmt.Errorf("learning_rate %v outside (0, 1]: %w", c.LearningRate, ErrInvalidConfig)
	case c.MaxDepth <= 0:
		return fmt.Errorf("max_depth %d must be positive: %w", c.MaxDepth, ErrInvalidConfig)
	case c.MinChildSamples <= 0:
		return fmt.Errorf("min_child_samples %d must be positive: %w", c.MinChildSamples, ErrInvalidConfig)
	case c.Subsample <= 0 || c.Subsample > 1:
		return fmt.Errorf("subsample %v outside (0, 1]: %w", c.Subsample, ErrInvalidConfig)
	case c.MinSplitGain < 0:
		return fmt.Errorf("min_split_gain %v must not be negative: %w", c.MinSplitGain, ErrInvalidConfig)
	}
	return nil
}
