package training

import (
	"fmt"
)

// Dataset is an immutable base dataset of classified examples.
// Implementations must be safe for concurrent Get calls: the DataLoader
// may load the samples of a batch in parallel.
type Dataset interface {
	Len() int                                             // Total number of samples
	Get(idx int) (input []float32, label int, err error)  // Returns a single sample
	Classes() []string                                    // Ordered class names
}

// Relabelable is the optional capability for pseudo-labeling: Relabel
// returns a new dataset view with the given index-to-label assignments
// applied, leaving the receiver untouched. The base targets and any
// derived view must never alias.
type Relabelable interface {
	Dataset
	Relabel(assignments map[int]int) (Dataset, error)
}

// SliceDataset is an in-memory Dataset backed by slices. It is the
// reference implementation used by tests and the demo CLI; real datasets
// (disk-backed image folders) implement Dataset themselves.
type SliceDataset struct {
	inputs  [][]float32
	labels  []int
	classes []string
}

// NewSliceDataset creates a SliceDataset from parallel input/label slices.
func NewSliceDataset(inputs [][]float32, labels []int, classes []string) (*SliceDataset, error) {
	if len(inputs) != len(labels) {
		return nil, fmt.Errorf("inputs and labels must have the same length: got %d and %d", len(inputs), len(labels))
	}
	for i, label := range labels {
		if label < 0 || label >= len(classes) {
			return nil, fmt.Errorf("label %d at sample %d out of range [0, %d)", label, i, len(classes))
		}
	}
	return &SliceDataset{
		inputs:  inputs,
		labels:  labels,
		classes: classes,
	}, nil
}

// Len returns the number of samples in the dataset.
func (ds *SliceDataset) Len() int {
	return len(ds.inputs)
}

// Get returns the sample at the given index.
func (ds *SliceDataset) Get(idx int) (input []float32, label int, err error) {
	if idx < 0 || idx >= len(ds.inputs) {
		return nil, 0, fmt.Errorf("index %d out of range [0, %d)", idx, len(ds.inputs))
	}
	return ds.inputs[idx], ds.labels[idx], nil
}

// Classes returns the ordered class names.
func (ds *SliceDataset) Classes() []string {
	return ds.classes
}

// Labels returns a copy of the label sequence. Used for class-weight
// computation and stratified splitting.
func (ds *SliceDataset) Labels() []int {
	out := make([]int, len(ds.labels))
	copy(out, ds.labels)
	return out
}

// WithLabels returns a new dataset sharing the input storage but with the
// given label assignments applied on a copied label slice. The receiver is
// left untouched, so labeled and unlabeled views derived from the same base
// never alias through a shared target list.
func (ds *SliceDataset) WithLabels(assignments map[int]int) (*SliceDataset, error) {
	labels := make([]int, len(ds.labels))
	copy(labels, ds.labels)
	for idx, label := range assignments {
		if idx < 0 || idx >= len(labels) {
			return nil, fmt.Errorf("assignment index %d out of range [0, %d)", idx, len(labels))
		}
		if label < 0 || label >= len(ds.classes) {
			return nil, fmt.Errorf("assignment label %d for index %d out of range [0, %d)", label, idx, len(ds.classes))
		}
		labels[idx] = label
	}
	return &SliceDataset{
		inputs:  ds.inputs,
		labels:  labels,
		classes: ds.classes,
	}, nil
}

// Relabel implements Relabelable.
func (ds *SliceDataset) Relabel(assignments map[int]int) (Dataset, error) {
	return ds.WithLabels(assignments)
}
