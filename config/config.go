// Package config holds the immutable run configuration and the
// per-dataset class configs. A Config is built once at startup, validated,
// and passed by reference into each component's constructor; nothing
// mutates it afterwards.
package config

import (
	"fmt"
)

// Config is the full set of run parameters for an active-learning
// training run.
type Config struct {
	// Experiment identity
	Name    string
	Dataset string
	Method  string // sampling method name, or "pseudo_label"
	Seed    int64

	// Training loop
	Epochs     int
	StartEpoch int
	BatchSize  int
	NumWorkers int
	BaseLR     float64
	PrintFreq  int

	// Cycle control
	LabeledWarmupEpochs int  // epochs before sampling may trigger
	AddLabeledEpochs    int  // patience: epochs without a new best recall
	StopLabeledRatio    float64 // stop once labeled fraction exceeds this
	ResetModel          bool // recreate model/optimizer after each sampling
	Weighted            bool // class-weighted loss

	// Strategy knobs
	MCDropoutIterations     int
	AugmentationRounds      int
	PseudoLabelingThreshold float64

	// Persistence
	CheckpointPath string
	LogPath        string
	Resume         bool
}

// Default returns the baseline configuration, mirroring the original
// training defaults.
func Default() Config {
	return Config{
		Dataset:                 "cifar10",
		Method:                  "least_confidence",
		Seed:                    9999,
		Epochs:                  1000,
		BatchSize:               128,
		NumWorkers:              4,
		BaseLR:                  0.001,
		PrintFreq:               10,
		LabeledWarmupEpochs:     15,
		AddLabeledEpochs:        20,
		StopLabeledRatio:        0.25,
		ResetModel:              true,
		MCDropoutIterations:     25,
		AugmentationRounds:      5,
		PseudoLabelingThreshold: 0.3,
		CheckpointPath:          "runs",
		LogPath:                 "logs",
	}
}

// Validate checks the configuration for values no run can proceed with.
func (c *Config) Validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive, got %d", c.Epochs)
	}
	if c.StartEpoch < 0 || c.StartEpoch >= c.Epochs {
		return fmt.Errorf("start epoch %d out of range [0, %d)", c.StartEpoch, c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.LabeledWarmupEpochs < 0 {
		return fmt.Errorf("labeled warmup epochs must be non-negative, got %d", c.LabeledWarmupEpochs)
	}
	if c.AddLabeledEpochs < 0 {
		return fmt.Errorf("add labeled epochs must be non-negative, got %d", c.AddLabeledEpochs)
	}
	if c.StopLabeledRatio <= 0 || c.StopLabeledRatio > 1 {
		return fmt.Errorf("stop labeled ratio must be in (0, 1], got %f", c.StopLabeledRatio)
	}
	if c.PseudoLabelingThreshold < 0 || c.PseudoLabelingThreshold > 1 {
		return fmt.Errorf("pseudo labeling threshold must be in [0, 1], got %f", c.PseudoLabelingThreshold)
	}
	if _, err := DatasetByName(c.Dataset); err != nil {
		return err
	}
	return nil
}

// ModelName derives the experiment name from the dataset and method when
// none was given explicitly.
func (c *Config) ModelName() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("%s@%s", c.Dataset, c.Method)
}
