package training

import (
	"math"
)

// LRScheduler defines the interface for learning rate scheduling strategies.
// Schedulers are pure functions of the epoch/step so the controller can
// recreate them freely on a model reset.
type LRScheduler interface {
	// GetLR returns the learning rate for the current epoch/step.
	GetLR(epoch int, step int, baseLR float64) float64

	// GetName returns the scheduler name for logging
	GetName() string
}

// StepLRScheduler reduces learning rate by a factor every stepSize epochs.
type StepLRScheduler struct {
	StepSize int     // Epochs between LR reductions
	Gamma    float64 // Multiplicative factor of LR decay
}

// NewStepLRScheduler creates a step learning rate scheduler.
func NewStepLRScheduler(stepSize int, gamma float64) *StepLRScheduler {
	if stepSize <= 0 {
		stepSize = 50
	}
	if gamma <= 0 || gamma >= 1 {
		gamma = 0.2
	}
	return &StepLRScheduler{
		StepSize: stepSize,
		Gamma:    gamma,
	}
}

func (s *StepLRScheduler) GetLR(epoch int, step int, baseLR float64) float64 {
	times := epoch / s.StepSize
	return baseLR * math.Pow(s.Gamma, float64(times))
}

func (s *StepLRScheduler) GetName() string {
	return "StepLR"
}

// WarmupCosineScheduler ramps the learning rate linearly over the warmup
// steps, then follows a partial cosine decay to zero over the remaining
// training steps.
type WarmupCosineScheduler struct {
	WarmupSteps   int
	TrainingSteps int
	NumCycles     float64 // Fraction of the cosine period covered by the decay
}

// NewWarmupCosineScheduler creates a warmup-then-cosine scheduler over a
// fixed training horizon.
func NewWarmupCosineScheduler(warmupSteps, trainingSteps int) *WarmupCosineScheduler {
	if trainingSteps <= 0 {
		trainingSteps = 1
	}
	return &WarmupCosineScheduler{
		WarmupSteps:   warmupSteps,
		TrainingSteps: trainingSteps,
		NumCycles:     7.0 / 16.0,
	}
}

func (s *WarmupCosineScheduler) GetLR(epoch int, step int, baseLR float64) float64 {
	if step < s.WarmupSteps {
		return baseLR * float64(step) / float64(max(1, s.WarmupSteps))
	}
	progress := float64(step-s.WarmupSteps) / float64(max(1, s.TrainingSteps-s.WarmupSteps))
	scale := math.Cos(math.Pi * s.NumCycles * progress)
	if scale < 0 {
		scale = 0
	}
	return baseLR * scale
}

func (s *WarmupCosineScheduler) GetName() string {
	return "WarmupCosine"
}

// ConstantLRScheduler keeps the base learning rate unchanged. Useful as the
// default when no schedule is configured.
type ConstantLRScheduler struct{}

func (s *ConstantLRScheduler) GetLR(epoch int, step int, baseLR float64) float64 {
	return baseLR
}

func (s *ConstantLRScheduler) GetName() string {
	return "ConstantLR"
}
