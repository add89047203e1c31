package sampling

import (
	"math/rand"

	"github.com/activepool/go-activelearn/pool"
	"github.com/activepool/go-activelearn/training"
)

// RandomStrategy is the uniform baseline: it ignores the model entirely
// and draws distinct positions from the unlabeled window without
// replacement. Reproducible under a fixed seed.
type RandomStrategy struct {
	rng *rand.Rand
}

// NewRandomStrategy creates the baseline with a fixed seed.
func NewRandomStrategy(seed int64) *RandomStrategy {
	return &RandomStrategy{rng: randFromSeed(seed)}
}

// Method returns RandomSampling.
func (s *RandomStrategy) Method() Method {
	return RandomSampling
}

// GetSamples draws number distinct positions from the unlabeled view.
func (s *RandomStrategy) GetSamples(epoch int, model training.Model, trainLoader, unlabeledLoader *training.DataLoader, number int) ([]int, error) {
	return pool.RandomSubsample(s.rng, unlabeledLoader.NumExamples(), number)
}
