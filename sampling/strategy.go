package sampling

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/activepool/go-activelearn/training"
)

// Strategy is the contract every sampler fulfills regardless of its
// internal mechanism. GetSamples iterates the full training loader once to
// build whatever reference it needs, then iterates the unlabeled loader
// once, computing a score per example in loader order, and returns the
// positions (within the unlabeled enumeration order) of the number
// most-uncertain examples, ties broken by stable sort order.
//
// Returned values are positions into the current unlabeled view, not raw
// dataset indices; the caller translates before promotion. Scoring runs
// the model in evaluation mode with no gradient updates, and the pass is
// fully drained before any index mutation happens.
type Strategy interface {
	Method() Method
	GetSamples(epoch int, model training.Model, trainLoader, unlabeledLoader *training.DataLoader, number int) ([]int, error)
}

// Options carries the strategy-specific knobs used by New.
type Options struct {
	// Iterations is the number of stochastic forward passes for MC-Dropout
	// and BatchBALD.
	Iterations int
	// Augmenter perturbs inputs for the augmentations-based strategy.
	Augmenter Augmenter
	// Rounds is the number of augmented passes per example.
	Rounds int
	// Predictor scores examples for the learning-loss strategy.
	Predictor LossPredictor
	// Seed fixes the random baseline.
	Seed int64
	// Verbose enables per-batch progress output during scoring.
	Verbose bool
}

// New builds the strategy for a method by explicit dispatch.
func New(method Method, opts Options) (Strategy, error) {
	switch method {
	case LeastConfidence, MarginConfidence, RatioConfidence, EntropyBased, DensityWeighted:
		return NewUncertainty(method, opts.Verbose)
	case MCDropout:
		return NewMCDropoutStrategy(opts.Iterations), nil
	case AugmentationsBased:
		if opts.Augmenter == nil {
			return nil, fmt.Errorf("augmentations_based requires an Augmenter")
		}
		return NewAugmentationsStrategy(opts.Augmenter, opts.Rounds), nil
	case BatchBald:
		return NewBatchBaldStrategy(opts.Iterations), nil
	case LearningLoss:
		if opts.Predictor == nil {
			return nil, fmt.Errorf("learning_loss requires a LossPredictor")
		}
		return NewLearningLossStrategy(opts.Predictor), nil
	case RandomSampling:
		return NewRandomStrategy(opts.Seed), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownMethod, method)
	}
}

// argsortAscending returns positions ordered by ascending score, stable on
// ties, truncated to n.
func argsortAscending(scores []float64, n int) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] < scores[order[j]]
	})
	if n > len(order) {
		n = len(order)
	}
	return order[:n]
}

// argsortDescending returns positions ordered by descending score, stable
// on ties, truncated to n.
func argsortDescending(scores []float64, n int) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})
	if n > len(order) {
		n = len(order)
	}
	return order[:n]
}

// collectFeatures drains the loader once in eval mode and concatenates the
// feature embeddings in loader order. This is the reference feature bank
// for density weighting, rebuilt fresh each cycle.
func collectFeatures(model training.Model, loader *training.DataLoader) ([][]float32, error) {
	model.Eval()

	features := make([][]float32, 0, loader.NumExamples())
	loader.Reset()
	for loader.HasNext() {
		batch, err := loader.Next()
		if err != nil {
			return nil, fmt.Errorf("feature pass failed: %v", err)
		}
		if batch == nil {
			break
		}
		_, feats, err := model.Forward(batch.Inputs)
		if err != nil {
			return nil, fmt.Errorf("feature pass forward failed: %v", err)
		}
		features = append(features, feats...)
	}
	return features, nil
}

// entropy computes -sum(p*log(p)) over one probability vector. Zero
// probabilities are not special-cased; inputs are softmax outputs, which
// are strictly positive.
func entropy(probs []float32) float64 {
	var h float64
	for _, p := range probs {
		h += -float64(p) * math.Log(float64(p))
	}
	return h
}

// meanCosineSimilarity returns the mean cosine similarity between a feature
// vector and every vector of the bank.
func meanCosineSimilarity(feat []float32, bank [][]float32) float64 {
	if len(bank) == 0 {
		return 0
	}
	var sum float64
	fn := vectorNorm(feat)
	for _, ref := range bank {
		denom := fn * vectorNorm(ref)
		if denom > 0 {
			sum += dot(feat, ref) / denom
		}
	}
	return sum / float64(len(bank))
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func vectorNorm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}

// sortedCopy returns the probabilities of one example in ascending order.
func sortedCopy(probs []float32) []float32 {
	out := make([]float32, len(probs))
	copy(out, probs)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// randFromSeed builds a deterministic source for strategies that draw.
func randFromSeed(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
