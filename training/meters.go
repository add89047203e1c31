package training

// AverageMeter tracks a running average of a scalar value, in the usual
// value/sum/count shape training loops expect.
type AverageMeter struct {
	Val   float64
	Avg   float64
	Sum   float64
	Count int
}

// NewAverageMeter creates a zeroed AverageMeter.
func NewAverageMeter() *AverageMeter {
	return &AverageMeter{}
}

// Reset clears the meter.
func (m *AverageMeter) Reset() {
	m.Val = 0
	m.Avg = 0
	m.Sum = 0
	m.Count = 0
}

// Update records a value observed over n examples.
func (m *AverageMeter) Update(val float64, n int) {
	m.Val = val
	m.Sum += val * float64(n)
	m.Count += n
	m.Avg = m.Sum / float64(m.Count)
}

// LossPerClassMeter accumulates per-example losses keyed by class index.
// A fresh meter is created per epoch; there is no implicit reset. The
// averages feed per-class diagnostic reports, never the promotion decision.
type LossPerClassMeter struct {
	sums   []float64
	counts []int
}

// NewLossPerClassMeter creates a meter for the given number of classes.
func NewLossPerClassMeter(numClasses int) *LossPerClassMeter {
	return &LossPerClassMeter{
		sums:   make([]float64, numClasses),
		counts: make([]int, numClasses),
	}
}

// Update records one per-example loss vector with its label vector.
// The two slices must be the same length.
func (m *LossPerClassMeter) Update(losses []float32, labels []int) {
	for i, label := range labels {
		m.sums[label] += float64(losses[i])
		m.counts[label]++
	}
}

// NumClasses returns the number of tracked classes.
func (m *LossPerClassMeter) NumClasses() int {
	return len(m.sums)
}

// Avg returns the average loss for a class, or 0 when the class was never
// observed this epoch.
func (m *LossPerClassMeter) Avg(class int) float64 {
	if m.counts[class] == 0 {
		return 0
	}
	return m.sums[class] / float64(m.counts[class])
}

// Averages returns the per-class average losses as a slice indexed by class.
func (m *LossPerClassMeter) Averages() []float64 {
	out := make([]float64, len(m.sums))
	for i := range out {
		out[i] = m.Avg(i)
	}
	return out
}
