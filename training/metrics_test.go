package training

import (
	"math"
	"testing"
)

func TestConfusionMatrixAccuracy(t *testing.T) {
	cm := NewConfusionMatrix(3)

	outcomes := []struct{ trueClass, predClass int }{
		{0, 0}, {0, 0}, {0, 1},
		{1, 1}, {1, 1},
		{2, 0},
	}
	for _, o := range outcomes {
		if err := cm.Add(o.trueClass, o.predClass); err != nil {
			t.Fatalf("Add(%d, %d) failed: %v", o.trueClass, o.predClass, err)
		}
	}

	if cm.TotalSamples != 6 {
		t.Errorf("expected 6 samples, got %d", cm.TotalSamples)
	}
	if math.Abs(cm.Accuracy()-4.0/6.0) > 1e-9 {
		t.Errorf("Accuracy = %v, want 4/6", cm.Accuracy())
	}
}

func TestConfusionMatrixAddValidation(t *testing.T) {
	cm := NewConfusionMatrix(2)
	if err := cm.Add(2, 0); err == nil {
		t.Error("expected error for out-of-range true class")
	}
	if err := cm.Add(0, -1); err == nil {
		t.Error("expected error for out-of-range predicted class")
	}
}

func TestConfusionMatrixAddBatch(t *testing.T) {
	cm := NewConfusionMatrix(2)

	logits := [][]float32{
		{2, 1}, // pred 0
		{0, 3}, // pred 1
		{1, 5}, // pred 1
	}
	labels := []int{0, 1, 0}

	if err := cm.AddBatch(logits, labels); err != nil {
		t.Fatalf("AddBatch failed: %v", err)
	}

	if cm.Matrix[0][0] != 1 || cm.Matrix[0][1] != 1 || cm.Matrix[1][1] != 1 {
		t.Errorf("unexpected matrix: %v", cm.Matrix)
	}

	if err := cm.AddBatch(logits, []int{0}); err == nil {
		t.Error("expected error for length mismatch")
	}
}

func TestGetReport(t *testing.T) {
	cm := NewConfusionMatrix(2)
	// Class 0: 3 examples, 2 correct. Class 1: 1 example, 1 correct.
	cm.Add(0, 0)
	cm.Add(0, 0)
	cm.Add(0, 1)
	cm.Add(1, 1)

	report := cm.GetReport([]string{"a", "b"})

	if report.PerClass[0].Support != 3 {
		t.Errorf("class 0 support = %d, want 3", report.PerClass[0].Support)
	}
	if math.Abs(report.PerClass[0].Recall-2.0/3.0) > 1e-9 {
		t.Errorf("class 0 recall = %v, want 2/3", report.PerClass[0].Recall)
	}
	if math.Abs(report.PerClass[0].Precision-1.0) > 1e-9 {
		t.Errorf("class 0 precision = %v, want 1", report.PerClass[0].Precision)
	}
	if math.Abs(report.PerClass[1].Precision-0.5) > 1e-9 {
		t.Errorf("class 1 precision = %v, want 0.5", report.PerClass[1].Precision)
	}

	wantMacroRecall := (2.0/3.0 + 1.0) / 2.0
	if math.Abs(report.MacroRecall-wantMacroRecall) > 1e-9 {
		t.Errorf("macro recall = %v, want %v", report.MacroRecall, wantMacroRecall)
	}
	if math.Abs(report.Accuracy-0.75) > 1e-9 {
		t.Errorf("accuracy = %v, want 0.75", report.Accuracy)
	}
	if report.ClassNames[1] != "b" {
		t.Errorf("class names not carried: %v", report.ClassNames)
	}
}

func TestGetReportZeroSupport(t *testing.T) {
	cm := NewConfusionMatrix(3)
	cm.Add(0, 0)

	report := cm.GetReport(nil)

	// Classes 1 and 2 never appear: all their metrics are zero, no NaN.
	for c := 1; c < 3; c++ {
		m := report.PerClass[c]
		if m.Precision != 0 || m.Recall != 0 || m.F1 != 0 || m.Support != 0 {
			t.Errorf("class %d metrics must be zero, got %+v", c, m)
		}
	}
	if math.IsNaN(report.MacroRecall) {
		t.Error("macro recall must not be NaN")
	}
}

func TestTopKAccuracy(t *testing.T) {
	logits := [][]float32{
		{5, 2, 1}, // label 0: top-1 hit
		{2, 5, 1}, // label 0: top-2 hit only
		{1, 2, 5}, // label 0: top-3 hit only
	}
	labels := []int{0, 0, 0}

	top1, err := TopKAccuracy(logits, labels, 1)
	if err != nil {
		t.Fatalf("TopKAccuracy failed: %v", err)
	}
	if math.Abs(top1-1.0/3.0) > 1e-9 {
		t.Errorf("top-1 = %v, want 1/3", top1)
	}

	top2, _ := TopKAccuracy(logits, labels, 2)
	if math.Abs(top2-2.0/3.0) > 1e-9 {
		t.Errorf("top-2 = %v, want 2/3", top2)
	}

	top3, _ := TopKAccuracy(logits, labels, 3)
	if top3 != 1 {
		t.Errorf("top-3 = %v, want 1", top3)
	}

	if _, err := TopKAccuracy(logits, labels, 4); err == nil {
		t.Error("expected error for k beyond class count")
	}
	if _, err := TopKAccuracy(logits, []int{0}, 1); err == nil {
		t.Error("expected error for length mismatch")
	}
}
