package sampling

import (
	"fmt"

	"github.com/activepool/go-activelearn/training"
)

// LossPredictor is the auxiliary loss-prediction collaborator: a small
// network trained alongside the classifier to estimate the target loss of
// an example from its feature embedding.
type LossPredictor interface {
	PredictLoss(features [][]float32) ([]float32, error)
}

// LearningLossStrategy selects the examples whose predicted loss is
// highest: a high estimated loss marks an example the model would learn
// the most from.
type LearningLossStrategy struct {
	predictor LossPredictor
}

// NewLearningLossStrategy creates the strategy around a loss predictor.
func NewLearningLossStrategy(predictor LossPredictor) *LearningLossStrategy {
	return &LearningLossStrategy{predictor: predictor}
}

// Method returns LearningLoss.
func (s *LearningLossStrategy) Method() Method {
	return LearningLoss
}

// GetSamples scores the unlabeled window with one evaluation pass through
// the model followed by the loss predictor.
func (s *LearningLossStrategy) GetSamples(epoch int, model training.Model, trainLoader, unlabeledLoader *training.DataLoader, number int) ([]int, error) {
	model.Eval()

	scores := make([]float64, 0, unlabeledLoader.NumExamples())

	unlabeledLoader.Reset()
	for unlabeledLoader.HasNext() {
		batch, err := unlabeledLoader.Next()
		if err != nil {
			return nil, fmt.Errorf("scoring pass failed: %v", err)
		}
		if batch == nil {
			break
		}

		_, feats, err := model.Forward(batch.Inputs)
		if err != nil {
			return nil, fmt.Errorf("scoring forward failed: %v", err)
		}

		predicted, err := s.predictor.PredictLoss(feats)
		if err != nil {
			return nil, fmt.Errorf("loss prediction failed: %v", err)
		}
		if len(predicted) != len(feats) {
			return nil, fmt.Errorf("loss predictor returned %d scores for %d examples", len(predicted), len(feats))
		}

		for _, p := range predicted {
			scores = append(scores, float64(p))
		}
	}

	return argsortDescending(scores, number), nil
}
