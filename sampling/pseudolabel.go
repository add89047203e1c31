package sampling

import (
	"fmt"

	"github.com/activepool/go-activelearn/training"
)

// PseudoLabeler is the semi-supervised counterpart of the uncertainty
// strategies: same pass shape over the unlabeled window, but it selects
// the MOST confident examples and hands back the model's predicted class
// for each as a pseudo-label. Agreement with the hidden ground truth is
// tracked by the caller for diagnostics only; it never gates promotion.
type PseudoLabeler struct {
	// Threshold is the minimum top-class probability for an example to be
	// eligible. Zero disables the filter; with a positive threshold fewer
	// than number examples may be returned.
	Threshold float64
}

// NewPseudoLabeler creates a pseudo-labeling selector.
func NewPseudoLabeler(threshold float64) *PseudoLabeler {
	return &PseudoLabeler{Threshold: threshold}
}

// GetSamples scores the unlabeled window with one evaluation pass and
// returns the positions of the number most-confident examples along with
// the predicted class assigned to each, both in descending confidence
// order (stable on ties).
func (p *PseudoLabeler) GetSamples(epoch int, model training.Model, unlabeledLoader *training.DataLoader, number int) (positions []int, labels []int, err error) {
	model.Eval()

	confidences := make([]float64, 0, unlabeledLoader.NumExamples())
	predictions := make([]int, 0, unlabeledLoader.NumExamples())

	unlabeledLoader.Reset()
	for unlabeledLoader.HasNext() {
		batch, err := unlabeledLoader.Next()
		if err != nil {
			return nil, nil, fmt.Errorf("pseudo-label pass failed: %v", err)
		}
		if batch == nil {
			break
		}

		logits, _, err := model.Forward(batch.Inputs)
		if err != nil {
			return nil, nil, fmt.Errorf("pseudo-label forward failed: %v", err)
		}

		probs := training.SoftmaxBatch(logits)
		for _, row := range probs {
			pred := training.Argmax(row)
			predictions = append(predictions, pred)
			confidences = append(confidences, float64(row[pred]))
		}
	}

	order := argsortDescending(confidences, len(confidences))
	positions = make([]int, 0, number)
	labels = make([]int, 0, number)
	for _, pos := range order {
		if len(positions) == number {
			break
		}
		if p.Threshold > 0 && confidences[pos] < p.Threshold {
			break // order is descending; nothing below passes either
		}
		positions = append(positions, pos)
		labels = append(labels, predictions[pos])
	}

	return positions, labels, nil
}
