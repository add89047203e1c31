package training

import (
	"fmt"
	"math"
)

// Softmax converts one logit vector into a probability distribution using
// the max-shifted formulation for numerical stability.
func Softmax(logits []float32) []float32 {
	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}

	probs := make([]float32, len(logits))
	var sum float64
	for i, l := range logits {
		e := math.Exp(float64(l - maxLogit))
		probs[i] = float32(e)
		sum += e
	}
	for i := range probs {
		probs[i] = float32(float64(probs[i]) / sum)
	}
	return probs
}

// SoftmaxBatch applies Softmax row-wise.
func SoftmaxBatch(logits [][]float32) [][]float32 {
	probs := make([][]float32, len(logits))
	for i, row := range logits {
		probs[i] = Softmax(row)
	}
	return probs
}

// Argmax returns the index of the largest value, first occurrence winning
// ties.
func Argmax(values []float32) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

// Criterion computes per-example cross-entropy losses, optionally scaled by
// per-class weights. Only the forward value is computed here; the backward
// pass belongs to the Trainer collaborator. The per-example reduction (the
// "none" form) is what the LossPerClassMeter consumes.
type Criterion struct {
	weights []float64
}

// NewCriterion creates an unweighted criterion.
func NewCriterion() *Criterion {
	return &Criterion{}
}

// NewWeightedCriterion creates a criterion with the given class weights.
func NewWeightedCriterion(weights []float64) *Criterion {
	w := make([]float64, len(weights))
	copy(w, weights)
	return &Criterion{weights: w}
}

// Weights returns the class weights, or nil for the unweighted form.
func (c *Criterion) Weights() []float64 {
	return c.weights
}

// PerExample returns the cross-entropy loss of each example in the batch.
func (c *Criterion) PerExample(logits [][]float32, labels []int) ([]float32, error) {
	if len(logits) != len(labels) {
		return nil, fmt.Errorf("logits and labels must have the same length: got %d and %d", len(logits), len(labels))
	}

	losses := make([]float32, len(logits))
	for i, row := range logits {
		label := labels[i]
		if label < 0 || label >= len(row) {
			return nil, fmt.Errorf("label %d at example %d out of range [0, %d)", label, i, len(row))
		}

		// Cross entropy via log-sum-exp, max-shifted for stability.
		maxLogit := row[0]
		for _, l := range row[1:] {
			if l > maxLogit {
				maxLogit = l
			}
		}
		var sumExp float64
		for _, l := range row {
			sumExp += math.Exp(float64(l - maxLogit))
		}
		loss := math.Log(sumExp) - float64(row[label]-maxLogit)

		if c.weights != nil {
			loss *= c.weights[label]
		}
		losses[i] = float32(loss)
	}
	return losses, nil
}

// Mean returns the average of a per-example loss vector.
func Mean(losses []float32) float64 {
	if len(losses) == 0 {
		return 0
	}
	var sum float64
	for _, l := range losses {
		sum += float64(l)
	}
	return sum / float64(len(losses))
}

// ClassWeights computes inverse-frequency class weights over the labels at
// the given dataset indices: weight(c) = n / count(c). A class absent from
// the view yields +Inf, same as the source formulation; callers using
// weighted loss are expected to seed every class (the stratified initial
// split guarantees this).
func ClassWeights(dataset Dataset, indices []int, numClasses int) ([]float64, error) {
	counts := make([]float64, numClasses)
	for _, idx := range indices {
		_, label, err := dataset.Get(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to read label at index %d: %v", idx, err)
		}
		if label < 0 || label >= numClasses {
			return nil, fmt.Errorf("label %d at index %d out of range [0, %d)", label, idx, numClasses)
		}
		counts[label]++
	}

	n := float64(len(indices))
	weights := make([]float64, numClasses)
	for c := range weights {
		weights[c] = n / counts[c]
	}
	return weights, nil
}
