package pool

import (
	"fmt"
)

// LabelMap tracks pseudo-label assignments: dataset index to assigned class.
// Assignments may differ from the hidden ground truth; the map exists so
// that agreement can be audited for diagnostics. Updates are copy-on-write,
// so a snapshot handed to one cycle is never mutated by the next.
type LabelMap struct {
	assignments map[int]int
}

// NewLabelMap creates an empty label map.
func NewLabelMap() *LabelMap {
	return &LabelMap{assignments: make(map[int]int)}
}

// With returns a new LabelMap extended with the given parallel index/label
// assignments. The receiver is left untouched.
func (m *LabelMap) With(indices []int, labels []int) (*LabelMap, error) {
	if len(indices) != len(labels) {
		return nil, fmt.Errorf("indices and labels must have the same length: got %d and %d", len(indices), len(labels))
	}

	next := make(map[int]int, len(m.assignments)+len(indices))
	for idx, label := range m.assignments {
		next[idx] = label
	}
	for i, idx := range indices {
		next[idx] = labels[i]
	}
	return &LabelMap{assignments: next}, nil
}

// Get returns the assigned label for a dataset index.
func (m *LabelMap) Get(idx int) (label int, ok bool) {
	label, ok = m.assignments[idx]
	return label, ok
}

// Len returns the number of assignments.
func (m *LabelMap) Len() int {
	return len(m.assignments)
}

// Assignments returns a copy of the assignment map, suitable for applying
// to a dataset view without aliasing the tracker.
func (m *LabelMap) Assignments() map[int]int {
	out := make(map[int]int, len(m.assignments))
	for idx, label := range m.assignments {
		out[idx] = label
	}
	return out
}

// Agreement counts how many assignments match the ground-truth label
// sequence. Purely diagnostic: agreement never gates a promotion.
func (m *LabelMap) Agreement(truth []int) (matches, total int) {
	for idx, label := range m.assignments {
		if idx >= 0 && idx < len(truth) {
			total++
			if truth[idx] == label {
				matches++
			}
		}
	}
	return matches, total
}
