package sampling

import (
	"fmt"

	"github.com/activepool/go-activelearn/training"
)

// BatchBaldStrategy scores examples by the mutual information between the
// prediction and the model posterior, estimated with stochastic forward
// passes: I = H(mean over passes) - mean over passes of H. Examples whose
// passes disagree (high expected information gain) score highest and are
// selected. The joint-batch term of full BatchBALD is approximated by the
// per-example information gain with greedy top-k selection.
type BatchBaldStrategy struct {
	iterations int
}

// NewBatchBaldStrategy creates the strategy with the given number of
// stochastic passes.
func NewBatchBaldStrategy(iterations int) *BatchBaldStrategy {
	if iterations <= 0 {
		iterations = 25
	}
	return &BatchBaldStrategy{iterations: iterations}
}

// Method returns BatchBald.
func (s *BatchBaldStrategy) Method() Method {
	return BatchBald
}

// GetSamples requires the dropout-active evaluation capability.
func (s *BatchBaldStrategy) GetSamples(epoch int, model training.Model, trainLoader, unlabeledLoader *training.DataLoader, number int) ([]int, error) {
	sampler, ok := model.(training.DropoutSampler)
	if !ok {
		return nil, fmt.Errorf("model does not support dropout-active evaluation")
	}

	model.Eval()
	sampler.SetDropoutActive(true)
	defer sampler.SetDropoutActive(false)

	// sums accumulates the mean posterior, entropySums the per-pass
	// entropies, both indexed by position in unlabeled enumeration order.
	var sums [][]float64
	var entropySums []float64

	for t := 0; t < s.iterations; t++ {
		pos := 0
		unlabeledLoader.Reset()
		for unlabeledLoader.HasNext() {
			batch, err := unlabeledLoader.Next()
			if err != nil {
				return nil, fmt.Errorf("stochastic pass %d failed: %v", t, err)
			}
			if batch == nil {
				break
			}

			logits, _, err := model.Forward(batch.Inputs)
			if err != nil {
				return nil, fmt.Errorf("stochastic pass %d forward failed: %v", t, err)
			}

			probs := training.SoftmaxBatch(logits)
			for _, row := range probs {
				if pos >= len(sums) {
					sums = append(sums, make([]float64, len(row)))
					entropySums = append(entropySums, 0)
				}
				for c, p := range row {
					sums[pos][c] += float64(p)
				}
				entropySums[pos] += entropy(row)
				pos++
			}
		}
	}

	scores := make([]float64, len(sums))
	for i, row := range sums {
		mean := make([]float32, len(row))
		for c, v := range row {
			mean[c] = float32(v / float64(s.iterations))
		}
		// Mutual information: entropy of the mean minus mean entropy.
		scores[i] = entropy(mean) - entropySums[i]/float64(s.iterations)
	}

	return argsortDescending(scores, number), nil
}
