package cycle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/activepool/go-activelearn/training"
)

// EpochRecord is one row of the epoch-wise metric log.
type EpochRecord struct {
	Epoch            int              `json:"epoch"`
	TrainLoss        float64          `json:"train_loss"`
	TrainAccuracy    float64          `json:"train_accuracy"`
	ValLoss          float64          `json:"val_loss"`
	TrainLossByClass []float64        `json:"train_loss_by_class"`
	ValLossByClass   []float64        `json:"val_loss_by_class"`
	Report           *training.Report `json:"report"`
	LabeledCount     int              `json:"labeled_count"`
	EpochsSinceBest  int              `json:"epochs_since_best"`
}

// CycleRecord is one row of the cycle-wise log, written whenever a
// sampling event fires.
type CycleRecord struct {
	Epoch        int              `json:"epoch"`
	LabeledCount int              `json:"labeled_count"`
	LabeledRatio float64          `json:"labeled_ratio"`
	BestReport   *training.Report `json:"best_report"`
	// ClassCounts holds the labeled example count per class after the
	// promotion, for novel-class accounting.
	ClassCounts []int `json:"class_counts"`
	// PseudoAccuracy is the fraction of pseudo-labels agreeing with the
	// hidden ground truth, -1 when the cycle did not pseudo-label.
	PseudoAccuracy float64 `json:"pseudo_accuracy"`
}

// History collects the evolution of one run: epoch metrics, cycle
// summaries, and enough identity to name the log file.
type History struct {
	Name    string        `json:"name"`
	Dataset string        `json:"dataset"`
	Seed    int64         `json:"seed"`
	Time    time.Time     `json:"time"`
	Epochs  []EpochRecord `json:"epochs"`
	Cycles  []CycleRecord `json:"cycles"`
}

// NewHistory creates an empty history for a named run.
func NewHistory(name, dataset string, seed int64) *History {
	return &History{
		Name:    name,
		Dataset: dataset,
		Seed:    seed,
		Time:    time.Now(),
	}
}

// RecordEpoch appends one epoch row.
func (h *History) RecordEpoch(rec EpochRecord) {
	h.Epochs = append(h.Epochs, rec)
}

// RecordCycle appends one cycle row.
func (h *History) RecordCycle(rec CycleRecord) {
	h.Cycles = append(h.Cycles, rec)
}

// Store writes the history as an indented JSON file under dir, named by
// date, run name, and seed.
func (h *History) Store(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %v", err)
	}

	filename := fmt.Sprintf("%s-%s-seed_%d.json", h.Time.Format("02.01.2006"), h.Name, h.Seed)
	file, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return fmt.Errorf("failed to create log file: %v", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(h); err != nil {
		return fmt.Errorf("failed to encode history: %v", err)
	}
	return nil
}
