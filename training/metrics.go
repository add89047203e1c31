package training

import (
	"fmt"
)

// ConfusionMatrix accumulates classification outcomes for evaluation.
type ConfusionMatrix struct {
	NumClasses   int
	Matrix       [][]int // [true_class][predicted_class]
	TotalSamples int
}

// NewConfusionMatrix creates a confusion matrix for the given class count.
func NewConfusionMatrix(numClasses int) *ConfusionMatrix {
	matrix := make([][]int, numClasses)
	for i := range matrix {
		matrix[i] = make([]int, numClasses)
	}
	return &ConfusionMatrix{
		NumClasses: numClasses,
		Matrix:     matrix,
	}
}

// Add records a single prediction outcome.
func (cm *ConfusionMatrix) Add(trueClass, predClass int) error {
	if trueClass < 0 || trueClass >= cm.NumClasses {
		return fmt.Errorf("true class %d out of range [0, %d)", trueClass, cm.NumClasses)
	}
	if predClass < 0 || predClass >= cm.NumClasses {
		return fmt.Errorf("predicted class %d out of range [0, %d)", predClass, cm.NumClasses)
	}
	cm.Matrix[trueClass][predClass]++
	cm.TotalSamples++
	return nil
}

// AddBatch records a mini-batch of logits against its labels, taking the
// argmax of each row as the prediction.
func (cm *ConfusionMatrix) AddBatch(logits [][]float32, labels []int) error {
	if len(logits) != len(labels) {
		return fmt.Errorf("logits and labels must have the same length: got %d and %d", len(logits), len(labels))
	}
	for i, row := range logits {
		if err := cm.Add(labels[i], Argmax(row)); err != nil {
			return err
		}
	}
	return nil
}

// Accuracy returns the overall fraction of correct predictions.
func (cm *ConfusionMatrix) Accuracy() float64 {
	if cm.TotalSamples == 0 {
		return 0
	}
	correct := 0
	for i := range cm.Matrix {
		correct += cm.Matrix[i][i]
	}
	return float64(correct) / float64(cm.TotalSamples)
}

// ClassMetrics holds the per-class slice of a classification report.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report is a classification report in the macro-averaged shape the cycle
// controller consumes: its MacroRecall is the improvement signal.
type Report struct {
	PerClass       []ClassMetrics `json:"per_class"`
	ClassNames     []string       `json:"class_names,omitempty"`
	MacroPrecision float64        `json:"macro_precision"`
	MacroRecall    float64        `json:"macro_recall"`
	MacroF1        float64        `json:"macro_f1"`
	Accuracy       float64        `json:"accuracy"`
}

// GetReport computes a classification report from the accumulated matrix.
// Classes with zero support or zero predictions score zero on the affected
// metric (no division by zero).
func (cm *ConfusionMatrix) GetReport(classNames []string) *Report {
	report := &Report{
		PerClass:   make([]ClassMetrics, cm.NumClasses),
		ClassNames: classNames,
		Accuracy:   cm.Accuracy(),
	}

	for c := 0; c < cm.NumClasses; c++ {
		tp := cm.Matrix[c][c]
		support := 0
		predicted := 0
		for j := 0; j < cm.NumClasses; j++ {
			support += cm.Matrix[c][j]
			predicted += cm.Matrix[j][c]
		}

		var precision, recall, f1 float64
		if predicted > 0 {
			precision = float64(tp) / float64(predicted)
		}
		if support > 0 {
			recall = float64(tp) / float64(support)
		}
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}

		report.PerClass[c] = ClassMetrics{
			Precision: precision,
			Recall:    recall,
			F1:        f1,
			Support:   support,
		}

		report.MacroPrecision += precision
		report.MacroRecall += recall
		report.MacroF1 += f1
	}

	if cm.NumClasses > 0 {
		report.MacroPrecision /= float64(cm.NumClasses)
		report.MacroRecall /= float64(cm.NumClasses)
		report.MacroF1 /= float64(cm.NumClasses)
	}

	return report
}

// TopKAccuracy returns the fraction of examples whose true label appears in
// the k highest-scoring predictions.
func TopKAccuracy(logits [][]float32, labels []int, k int) (float64, error) {
	if len(logits) != len(labels) {
		return 0, fmt.Errorf("logits and labels must have the same length: got %d and %d", len(logits), len(labels))
	}
	if len(logits) == 0 {
		return 0, nil
	}

	correct := 0
	for i, row := range logits {
		if k > len(row) {
			return 0, fmt.Errorf("k=%d exceeds class count %d", k, len(row))
		}
		label := labels[i]
		// Count how many classes strictly beat the true label; the label is
		// in the top k iff fewer than k do.
		better := 0
		for c, v := range row {
			if v > row[label] || (v == row[label] && c < label) {
				better++
			}
		}
		if better < k {
			correct++
		}
	}
	return float64(correct) / float64(len(logits)), nil
}
