package main

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"

	"github.com/activepool/go-activelearn/training"
)

// linearModel is a softmax regression classifier used by the demo runner.
// It implements the full capability surface the controller and the
// samplers probe for: forward passes with feature output, SGD steps with
// optional class weighting and a tunable learning rate, JSON state
// snapshots, and input dropout for stochastic scoring passes.
type linearModel struct {
	weights      [][]float64 // [numClasses][inputSize]
	bias         []float64
	lr           float64
	classWeights []float64

	dropoutRate   float64
	dropoutActive bool
	training      bool
	rng           *rand.Rand
}

type linearState struct {
	Weights [][]float64 `json:"weights"`
	Bias    []float64   `json:"bias"`
}

func newLinearModel(inputSize, numClasses int, lr float64, seed int64) *linearModel {
	rng := rand.New(rand.NewSource(seed))
	weights := make([][]float64, numClasses)
	scale := 1.0 / math.Sqrt(float64(inputSize))
	for c := range weights {
		weights[c] = make([]float64, inputSize)
		for i := range weights[c] {
			weights[c][i] = rng.NormFloat64() * scale
		}
	}
	return &linearModel{
		weights:     weights,
		bias:        make([]float64, numClasses),
		lr:          lr,
		dropoutRate: 0.25,
		rng:         rng,
	}
}

func (m *linearModel) Train() { m.training = true }
func (m *linearModel) Eval()  { m.training = false }

// SetDropoutActive keeps input dropout on during evaluation passes.
func (m *linearModel) SetDropoutActive(active bool) { m.dropoutActive = active }

func (m *linearModel) SetLearningRate(lr float64) { m.lr = lr }

func (m *linearModel) SetClassWeights(weights []float64) { m.classWeights = weights }

// Forward computes logits for a batch. The input vectors double as the
// feature embeddings, which is all density weighting needs from a linear
// model.
func (m *linearModel) Forward(inputs [][]float32) (logits, features [][]float32, err error) {
	logits = make([][]float32, len(inputs))
	features = make([][]float32, len(inputs))
	for i, input := range inputs {
		if len(input) != len(m.weights[0]) {
			return nil, nil, fmt.Errorf("input size %d does not match model size %d", len(input), len(m.weights[0]))
		}
		x := input
		if m.training || m.dropoutActive {
			x = m.dropout(input)
		}
		row := make([]float32, len(m.weights))
		for c := range m.weights {
			sum := m.bias[c]
			for j, w := range m.weights[c] {
				sum += w * float64(x[j])
			}
			row[c] = float32(sum)
		}
		logits[i] = row
		features[i] = input
	}
	return logits, features, nil
}

// Step performs one SGD update on the batch using the cross-entropy
// gradient and returns the pre-update logits.
func (m *linearModel) Step(inputs [][]float32, labels []int) ([][]float32, error) {
	if len(inputs) != len(labels) {
		return nil, fmt.Errorf("batch size mismatch: %d inputs, %d labels", len(inputs), len(labels))
	}
	logits, _, err := m.Forward(inputs)
	if err != nil {
		return nil, err
	}

	n := float64(len(inputs))
	for i, input := range inputs {
		probs := training.Softmax(logits[i])
		weight := 1.0
		if m.classWeights != nil && labels[i] < len(m.classWeights) {
			weight = m.classWeights[labels[i]]
		}
		for c := range m.weights {
			grad := float64(probs[c])
			if c == labels[i] {
				grad -= 1
			}
			grad *= weight / n
			for j := range m.weights[c] {
				m.weights[c][j] -= m.lr * grad * float64(input[j])
			}
			m.bias[c] -= m.lr * grad
		}
	}
	return logits, nil
}

func (m *linearModel) StateDict() ([]byte, error) {
	return json.Marshal(linearState{Weights: m.weights, Bias: m.bias})
}

func (m *linearModel) LoadStateDict(data []byte) error {
	var state linearState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to decode model state: %v", err)
	}
	if len(state.Weights) != len(m.weights) {
		return fmt.Errorf("state has %d classes, model has %d", len(state.Weights), len(m.weights))
	}
	m.weights = state.Weights
	m.bias = state.Bias
	return nil
}

func (m *linearModel) dropout(input []float32) []float32 {
	out := make([]float32, len(input))
	keep := float32(1 / (1 - m.dropoutRate))
	for i, v := range input {
		if m.rng.Float64() >= m.dropoutRate {
			out[i] = v * keep
		}
	}
	return out
}

// featureSpreadPredictor is a stand-in loss predictor for the demo: it
// scores an example by the spread of its feature vector, so examples far
// from the axis-aligned cluster structure rank as harder.
type featureSpreadPredictor struct{}

func (featureSpreadPredictor) PredictLoss(features [][]float32) ([]float32, error) {
	out := make([]float32, len(features))
	for i, feat := range features {
		if len(feat) == 0 {
			continue
		}
		var mean float64
		for _, v := range feat {
			mean += float64(v)
		}
		mean /= float64(len(feat))
		var variance float64
		for _, v := range feat {
			d := float64(v) - mean
			variance += d * d
		}
		out[i] = float32(variance / float64(len(feat)))
	}
	return out, nil
}

// noiseAugmenter perturbs inputs with seeded Gaussian noise, giving the
// augmentations-based strategy deterministic disagreement rounds.
type noiseAugmenter struct {
	scale float64
	seed  int64
}

func (a noiseAugmenter) Augment(input []float32, round int) []float32 {
	rng := rand.New(rand.NewSource(a.seed + int64(round)))
	out := make([]float32, len(input))
	for i, v := range input {
		out[i] = v + float32(rng.NormFloat64()*a.scale)
	}
	return out
}
