package cycle

import (
	"fmt"
)

// State identifies where the controller is in its epoch loop. Transitions:
// WARMUP → TRAINING → EVALUATING → (STABLE | SAMPLING) → TRAINING … until
// the labeled fraction crosses the stop threshold (DONE).
type State int

const (
	StateWarmup State = iota
	StateTraining
	StateEvaluating
	StateStable
	StateSampling
	StateDone
)

func (s State) String() string {
	switch s {
	case StateWarmup:
		return "WARMUP"
	case StateTraining:
		return "TRAINING"
	case StateEvaluating:
		return "EVALUATING"
	case StateStable:
		return "STABLE"
	case StateSampling:
		return "SAMPLING"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// shouldSample is the sampling transition predicate: the epoch index must
// exceed the warmup threshold AND the number of epochs without a new best
// recall must exceed the patience window. Stagnation alone never skips a
// cycle; it is exactly what triggers one.
func shouldSample(epoch, warmupEpochs, epochsSinceBest, patience int) bool {
	return epoch > warmupEpochs && epochsSinceBest > patience
}
