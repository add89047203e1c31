// Package sampling implements the selection strategies that decide which
// unlabeled examples are promoted into the labeled pool each cycle:
// uncertainty scoring in several flavors, stochastic-ensemble methods,
// a random baseline, and the pseudo-labeling selector.
package sampling

import (
	"fmt"
)

// Method identifies a sampling strategy. Strategies are selected by an
// explicit mapping from this enum; an unknown method name is a fatal
// configuration error at startup.
type Method int

const (
	LeastConfidence Method = iota
	MarginConfidence
	RatioConfidence
	EntropyBased
	DensityWeighted
	MCDropout
	AugmentationsBased
	BatchBald
	LearningLoss
	RandomSampling
)

func (m Method) String() string {
	switch m {
	case LeastConfidence:
		return "least_confidence"
	case MarginConfidence:
		return "margin_confidence"
	case RatioConfidence:
		return "ratio_confidence"
	case EntropyBased:
		return "entropy_based"
	case DensityWeighted:
		return "density_weighted"
	case MCDropout:
		return "mc_dropout"
	case AugmentationsBased:
		return "augmentations_based"
	case BatchBald:
		return "batch_bald"
	case LearningLoss:
		return "learning_loss"
	case RandomSampling:
		return "random_sampling"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ErrUnknownMethod is returned when a method name does not match any
// strategy. Callers treat it as fatal configuration.
var ErrUnknownMethod = fmt.Errorf("unknown sampling method")

var methods = []Method{
	LeastConfidence, MarginConfidence, RatioConfidence, EntropyBased,
	DensityWeighted, MCDropout, AugmentationsBased, BatchBald,
	LearningLoss, RandomSampling,
}

// ParseMethod maps a method name onto its Method value.
func ParseMethod(name string) (Method, error) {
	for _, m := range methods {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
}

// MethodNames lists every method name in declaration order.
func MethodNames() []string {
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = m.String()
	}
	return names
}
