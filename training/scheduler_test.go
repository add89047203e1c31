package training

import (
	"math"
	"testing"
)

func TestStepLRScheduler(t *testing.T) {
	s := NewStepLRScheduler(10, 0.5)

	tests := []struct {
		epoch int
		want  float64
	}{
		{0, 1.0},
		{9, 1.0},
		{10, 0.5},
		{20, 0.25},
	}

	for _, tt := range tests {
		if got := s.GetLR(tt.epoch, 0, 1.0); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("GetLR(epoch=%d) = %v, want %v", tt.epoch, got, tt.want)
		}
	}
}

func TestStepLRSchedulerDefaults(t *testing.T) {
	s := NewStepLRScheduler(0, 2.0)
	if s.StepSize != 50 {
		t.Errorf("StepSize = %d, want default 50", s.StepSize)
	}
	if s.Gamma != 0.2 {
		t.Errorf("Gamma = %v, want default 0.2", s.Gamma)
	}
}

func TestWarmupCosineScheduler(t *testing.T) {
	s := NewWarmupCosineScheduler(10, 110)

	// Linear ramp during warmup.
	if got := s.GetLR(0, 0, 1.0); got != 0 {
		t.Errorf("warmup start = %v, want 0", got)
	}
	if got := s.GetLR(0, 5, 1.0); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("mid warmup = %v, want 0.5", got)
	}

	// Full rate right at the end of warmup.
	if got := s.GetLR(0, 10, 1.0); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("end of warmup = %v, want 1.0", got)
	}

	// Monotone decay afterwards, never negative.
	prev := s.GetLR(0, 10, 1.0)
	for step := 11; step <= 110; step++ {
		got := s.GetLR(0, step, 1.0)
		if got > prev+1e-12 {
			t.Fatalf("decay must be monotone: step %d gives %v after %v", step, got, prev)
		}
		if got < 0 {
			t.Fatalf("learning rate must not go negative, got %v at step %d", got, step)
		}
		prev = got
	}
}

func TestConstantLRScheduler(t *testing.T) {
	s := &ConstantLRScheduler{}
	if got := s.GetLR(100, 5000, 0.01); got != 0.01 {
		t.Errorf("GetLR = %v, want 0.01", got)
	}
}

func TestSchedulerNames(t *testing.T) {
	tests := []struct {
		scheduler LRScheduler
		want      string
	}{
		{NewStepLRScheduler(10, 0.5), "StepLR"},
		{NewWarmupCosineScheduler(10, 100), "WarmupCosine"},
		{&ConstantLRScheduler{}, "ConstantLR"},
	}

	for _, tt := range tests {
		if got := tt.scheduler.GetName(); got != tt.want {
			t.Errorf("GetName = %q, want %q", got, tt.want)
		}
	}
}
