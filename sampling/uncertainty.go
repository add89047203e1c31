package sampling

import (
	"fmt"
	"time"

	"github.com/activepool/go-activelearn/training"
)

// ScoreFunc computes one example's uncertainty score from its class
// probabilities, its feature embedding, and the reference feature bank of
// the currently labeled training set.
type ScoreFunc func(probs, feat []float32, bank [][]float32) float64

// Uncertainty scores every example of the unlabeled window with a single
// deterministic forward pass and one of the classic confidence measures.
type Uncertainty struct {
	method  Method
	score   ScoreFunc
	verbose bool
}

// NewUncertainty builds an uncertainty strategy for one of the
// single-pass methods.
func NewUncertainty(method Method, verbose bool) (*Uncertainty, error) {
	var score ScoreFunc
	switch method {
	case LeastConfidence:
		score = leastConfidence
	case MarginConfidence:
		score = marginConfidence
	case RatioConfidence:
		score = ratioConfidence
	case EntropyBased:
		score = entropyBased
	case DensityWeighted:
		score = densityWeighted
	default:
		return nil, fmt.Errorf("%w: %v is not a single-pass uncertainty method", ErrUnknownMethod, method)
	}
	return &Uncertainty{
		method:  method,
		score:   score,
		verbose: verbose,
	}, nil
}

// Method returns the configured method.
func (u *Uncertainty) Method() Method {
	return u.method
}

// leastConfidence scores each example by its top class probability: the
// lower the most confident prediction, the more uncertain the example.
func leastConfidence(probs, _ []float32, _ [][]float32) float64 {
	maxProb := probs[0]
	for _, p := range probs[1:] {
		if p > maxProb {
			maxProb = p
		}
	}
	return float64(maxProb)
}

// marginConfidence scores by the gap between the top two probabilities;
// a small margin means the model hesitates between two classes.
func marginConfidence(probs, _ []float32, _ [][]float32) float64 {
	sorted := sortedCopy(probs)
	return float64(sorted[len(sorted)-1] - sorted[len(sorted)-2])
}

// ratioConfidence scores by the ratio of the top two probabilities.
func ratioConfidence(probs, _ []float32, _ [][]float32) float64 {
	sorted := sortedCopy(probs)
	return float64(sorted[len(sorted)-1]) / float64(sorted[len(sorted)-2])
}

// entropyBased scores by prediction entropy. Unlike the other measures,
// HIGHER means more uncertain, so selection takes the highest scores.
func entropyBased(probs, _ []float32, _ [][]float32) float64 {
	return entropy(probs)
}

// densityWeighted scales least-confidence by how dissimilar the example is
// to the labeled training set in feature space: score * (1 - mean cosine
// similarity to the bank). With zero similarity everywhere it reduces to
// plain least-confidence.
func densityWeighted(probs, feat []float32, bank [][]float32) float64 {
	return leastConfidence(probs, nil, nil) * (1 - meanCosineSimilarity(feat, bank))
}

// GetSamples builds the labeled feature bank, scores the unlabeled window
// in loader order, and returns the positions of the number most-uncertain
// examples. Entropy selects highest scores, everything else lowest.
func (u *Uncertainty) GetSamples(epoch int, model training.Model, trainLoader, unlabeledLoader *training.DataLoader, number int) ([]int, error) {
	batchTime := training.NewAverageMeter()

	var bank [][]float32
	if u.method == DensityWeighted {
		var err error
		bank, err = collectFeatures(model, trainLoader)
		if err != nil {
			return nil, fmt.Errorf("failed to build reference features: %v", err)
		}
	}

	model.Eval()

	scores := make([]float64, 0, unlabeledLoader.NumExamples())
	end := time.Now()

	unlabeledLoader.Reset()
	for i := 0; unlabeledLoader.HasNext(); i++ {
		batch, err := unlabeledLoader.Next()
		if err != nil {
			return nil, fmt.Errorf("scoring pass failed: %v", err)
		}
		if batch == nil {
			break
		}

		logits, feats, err := model.Forward(batch.Inputs)
		if err != nil {
			return nil, fmt.Errorf("scoring forward failed: %v", err)
		}

		probs := training.SoftmaxBatch(logits)
		for j := range probs {
			scores = append(scores, u.score(probs[j], feats[j], bank))
		}

		batchTime.Update(time.Since(end).Seconds(), 1)
		end = time.Now()

		if u.verbose {
			fmt.Printf("%s\tEpoch: [%d][%d/%d]\tTime %.3f (%.3f)\n",
				u.method, epoch, i, unlabeledLoader.Len(), batchTime.Val, batchTime.Avg)
		}
	}

	if u.method == EntropyBased {
		return argsortDescending(scores, number), nil
	}
	return argsortAscending(scores, number), nil
}
