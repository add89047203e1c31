package cycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldSample(t *testing.T) {
	tests := []struct {
		name            string
		epoch           int
		warmupEpochs    int
		epochsSinceBest int
		patience        int
		want            bool
	}{
		{"stagnant past warmup", 16, 15, 21, 20, true},
		{"still in warmup", 10, 15, 21, 20, false},
		{"warmup boundary is exclusive", 15, 15, 21, 20, false},
		{"patience boundary is exclusive", 16, 15, 20, 20, false},
		{"improving model never samples", 100, 15, 0, 20, false},
		{"zero warmup zero patience", 1, 0, 1, 0, true},
		{"epoch zero never samples", 0, 0, 5, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shouldSample(tt.epoch, tt.warmupEpochs, tt.epochsSinceBest, tt.patience)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateWarmup, "WARMUP"},
		{StateTraining, "TRAINING"},
		{StateEvaluating, "EVALUATING"},
		{StateStable, "STABLE"},
		{StateSampling, "SAMPLING"},
		{StateDone, "DONE"},
		{State(99), "Unknown(99)"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}
