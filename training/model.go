package training

// Model is the external collaborator producing class logits and a feature
// embedding for a batch of inputs. Training math lives behind this
// interface; the library only orchestrates around it.
type Model interface {
	// Forward runs inference on a batch. logits is [batch][numClasses],
	// features is [batch][featureDim]. No gradient state may be touched.
	Forward(inputs [][]float32) (logits [][]float32, features [][]float32, err error)

	// Train switches the model to training mode (stochastic layers active,
	// gradient updates allowed).
	Train()

	// Eval switches the model to evaluation mode with stochastic layers
	// frozen. All scoring passes run in this mode.
	Eval()
}

// DropoutSampler is the optional capability required by MC-Dropout
// sampling: evaluation mode with dropout layers kept active so repeated
// forward passes differ stochastically.
type DropoutSampler interface {
	SetDropoutActive(active bool)
}

// Snapshotter is the optional capability for checkpoint support. The state
// blob is opaque to the library.
type Snapshotter interface {
	StateDict() ([]byte, error)
	LoadStateDict(state []byte) error
}

// Trainer is the external collaborator performing one gradient update on a
// batch. Step returns the logits of the forward pass so the caller can
// derive diagnostic losses and accuracy without a second pass.
type Trainer interface {
	Step(inputs [][]float32, labels []int) (logits [][]float32, err error)
}

// WeightedTrainer is the optional capability for class-weighted training.
// The controller pushes freshly computed weights whenever the labeled class
// distribution shifts after a promotion.
type WeightedTrainer interface {
	SetClassWeights(weights []float64)
}

// TunableTrainer is the optional capability for learning-rate scheduling.
type TunableTrainer interface {
	SetLearningRate(lr float64)
}
