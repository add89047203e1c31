package sampling

import (
	"fmt"

	"github.com/activepool/go-activelearn/training"
)

// Augmenter is the external collaborator that perturbs an input for the
// augmentations-based strategy. Round identifies the perturbation pass, so
// deterministic augmenters can vary per round.
type Augmenter interface {
	Augment(input []float32, round int) []float32
}

// AugmentationsStrategy measures how much the model's prediction moves
// under input perturbations: each example is scored by the summed
// per-class variance of the softmax outputs across the clean pass and the
// augmented passes. Unstable predictions score highest and are selected.
type AugmentationsStrategy struct {
	augmenter Augmenter
	rounds    int
}

// NewAugmentationsStrategy creates the strategy with the given number of
// augmented passes per example.
func NewAugmentationsStrategy(augmenter Augmenter, rounds int) *AugmentationsStrategy {
	if rounds <= 0 {
		rounds = 5
	}
	return &AugmentationsStrategy{
		augmenter: augmenter,
		rounds:    rounds,
	}
}

// Method returns AugmentationsBased.
func (s *AugmentationsStrategy) Method() Method {
	return AugmentationsBased
}

// GetSamples runs the clean pass plus the augmented passes over the
// unlabeled window, all in evaluation mode.
func (s *AugmentationsStrategy) GetSamples(epoch int, model training.Model, trainLoader, unlabeledLoader *training.DataLoader, number int) ([]int, error) {
	model.Eval()

	// sum and sumSq accumulate per-class first and second moments across
	// the passes, indexed by position in unlabeled enumeration order.
	var sum, sumSq [][]float64
	passes := s.rounds + 1

	for round := 0; round < passes; round++ {
		pos := 0
		unlabeledLoader.Reset()
		for unlabeledLoader.HasNext() {
			batch, err := unlabeledLoader.Next()
			if err != nil {
				return nil, fmt.Errorf("augmentation pass %d failed: %v", round, err)
			}
			if batch == nil {
				break
			}

			inputs := batch.Inputs
			if round > 0 {
				inputs = make([][]float32, len(batch.Inputs))
				for i, in := range batch.Inputs {
					inputs[i] = s.augmenter.Augment(in, round)
				}
			}

			logits, _, err := model.Forward(inputs)
			if err != nil {
				return nil, fmt.Errorf("augmentation pass %d forward failed: %v", round, err)
			}

			probs := training.SoftmaxBatch(logits)
			for _, row := range probs {
				if pos >= len(sum) {
					sum = append(sum, make([]float64, len(row)))
					sumSq = append(sumSq, make([]float64, len(row)))
				}
				for c, p := range row {
					sum[pos][c] += float64(p)
					sumSq[pos][c] += float64(p) * float64(p)
				}
				pos++
			}
		}
	}

	n := float64(passes)
	scores := make([]float64, len(sum))
	for i := range sum {
		var variance float64
		for c := range sum[i] {
			mean := sum[i][c] / n
			variance += sumSq[i][c]/n - mean*mean
		}
		scores[i] = variance
	}

	return argsortDescending(scores, number), nil
}
