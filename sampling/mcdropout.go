package sampling

import (
	"fmt"

	"github.com/activepool/go-activelearn/training"
)

// MCDropoutStrategy estimates uncertainty with repeated stochastic forward
// passes: the model runs in evaluation mode but with dropout layers kept
// active, the softmax outputs of the passes are averaged, and the entropy
// of the averaged distribution is the score. Higher entropy means more
// uncertain, so selection takes the highest scores.
type MCDropoutStrategy struct {
	iterations int
}

// NewMCDropoutStrategy creates the strategy with the given number of
// stochastic passes (default 25, matching the usual configuration).
func NewMCDropoutStrategy(iterations int) *MCDropoutStrategy {
	if iterations <= 0 {
		iterations = 25
	}
	return &MCDropoutStrategy{iterations: iterations}
}

// Method returns MCDropout.
func (s *MCDropoutStrategy) Method() Method {
	return MCDropout
}

// GetSamples requires the model to expose the DropoutSampler capability.
func (s *MCDropoutStrategy) GetSamples(epoch int, model training.Model, trainLoader, unlabeledLoader *training.DataLoader, number int) ([]int, error) {
	meanProbs, err := stochasticMeanProbs(model, unlabeledLoader, s.iterations)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(meanProbs))
	for i, probs := range meanProbs {
		scores[i] = entropy(probs)
	}
	return argsortDescending(scores, number), nil
}

// stochasticMeanProbs runs the unlabeled loader through the model for the
// given number of dropout-active evaluation passes and returns the
// per-example mean softmax output. The loader enumeration order is fixed
// (no shuffling on the unlabeled view), so pass t and pass t+1 score the
// same example at the same position.
func stochasticMeanProbs(model training.Model, loader *training.DataLoader, iterations int) ([][]float32, error) {
	sampler, ok := model.(training.DropoutSampler)
	if !ok {
		return nil, fmt.Errorf("model does not support dropout-active evaluation")
	}

	model.Eval()
	sampler.SetDropoutActive(true)
	defer sampler.SetDropoutActive(false)

	var sums [][]float64
	for t := 0; t < iterations; t++ {
		pos := 0
		loader.Reset()
		for loader.HasNext() {
			batch, err := loader.Next()
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
				}
				for c, p := range row {
					sums[pos][c] += float64(p)
				}
				pos++
			}
		}
	}

	mean := make([][]float32, len(sums))
	for i, row := range sums {
		mean[i] = make([]float32, len(row))
		for c, v := range row {
			mean[i][c] = float32(v / float64(iterations))
		}
	}
	return mean, nil
}
