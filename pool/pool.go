// Package pool owns the partition of dataset indices into labeled and
// unlabeled sets and the promotion of indices from one to the other. The
// two sequences are disjoint at all times; promotion is the only mutation,
// and it returns fresh slices so no caller retains a view across cycles.
package pool

import (
	"fmt"
	"math/rand"
)

// Promote moves the unlabeled entries at the selected positions into the
// labeled sequence. Positions are relative to the unlabeled sequence, not
// raw dataset indices. A keep-mask over the unlabeled sequence is cleared
// at each selected position; cleared entries are appended to labeled in
// unlabeled-sequence order and the survivors become the new unlabeled
// sequence. Promoted entries keep their original dataset index identity.
//
// The inputs must be disjoint and the selected positions distinct and in
// range; this is a caller contract, not validated here (duplicates would
// silently promote fewer than len(selected) entries, and out-of-range
// positions panic). Use Validate to audit the result where it matters.
func Promote(labeled, unlabeled, selected []int) (newLabeled, newUnlabeled []int) {
	keep := make([]bool, len(unlabeled))
	for i := range keep {
		keep[i] = true
	}
	for _, pos := range selected {
		keep[pos] = false
	}

	newLabeled = make([]int, 0, len(labeled)+len(selected))
	newLabeled = append(newLabeled, labeled...)
	newUnlabeled = make([]int, 0, len(unlabeled)-len(selected))

	for i, idx := range unlabeled {
		if keep[i] {
			newUnlabeled = append(newUnlabeled, idx)
		} else {
			newLabeled = append(newLabeled, idx)
		}
	}

	return newLabeled, newUnlabeled
}

// RandomSubsample draws k distinct positions from a sequence of length n,
// uniformly without replacement. It serves both as the random-sampling
// baseline strategy and to cap the unlabeled pool evaluated per cycle.
// With k = n the result is a permutation of all positions.
func RandomSubsample(rng *rand.Rand, n, k int) ([]int, error) {
	if k < 0 {
		return nil, fmt.Errorf("sample size must be non-negative, got %d", k)
	}
	if k > n {
		return nil, fmt.Errorf("sample size %d exceeds population %d", k, n)
	}
	return rng.Perm(n)[:k], nil
}

// Window reshuffles a copy of the unlabeled sequence and returns it along
// with its leading subset of at most subsetNum entries. The window is the
// portion of the unlabeled pool scored during one cycle; positions into the
// window are also valid positions into the returned shuffled sequence, so
// promotion after scoring needs no extra translation.
func Window(rng *rand.Rand, unlabeled []int, subsetNum int) (shuffled, window []int) {
	shuffled = make([]int, len(unlabeled))
	copy(shuffled, unlabeled)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if subsetNum > len(shuffled) || subsetNum < 0 {
		subsetNum = len(shuffled)
	}
	return shuffled, shuffled[:subsetNum]
}

// StratifiedSplit draws the initial labeled set of the given size from the
// label sequence, proportionally per class, and returns the remaining
// indices as the unlabeled set in dataset order. Every class present in the
// data contributes at least one labeled example when size allows.
func StratifiedSplit(rng *rand.Rand, labels []int, numClasses, size int) (labeled, unlabeled []int, err error) {
	if size <= 0 || size > len(labels) {
		return nil, nil, fmt.Errorf("split size %d out of range (0, %d]", size, len(labels))
	}

	perClass := make([][]int, numClasses)
	for idx, label := range labels {
		if label < 0 || label >= numClasses {
			return nil, nil, fmt.Errorf("label %d at index %d out of range [0, %d)", label, idx, numClasses)
		}
		perClass[label] = append(perClass[label], idx)
	}

	total := float64(len(labels))
	take := make([]int, numClasses)
	taken := 0
	for c, members := range perClass {
		if len(members) == 0 {
			continue
		}
		n := int(float64(size) * float64(len(members)) / total)
		if n < 1 {
			n = 1
		}
		if n > len(members) {
			n = len(members)
		}
		take[c] = n
		taken += n
	}

	// Distribute the rounding remainder one index at a time, largest
	// classes first so the draw stays close to proportional.
	for taken != size {
		adjusted := false
		for c := range perClass {
			if taken < size && take[c] < len(perClass[c]) {
				take[c]++
				taken++
				adjusted = true
			} else if taken > size && take[c] > 1 {
				take[c]--
				taken--
				adjusted = true
			}
			if taken == size {
				break
			}
		}
		if !adjusted {
			return nil, nil, fmt.Errorf("cannot draw %d stratified samples from %d examples over %d classes", size, len(labels), numClasses)
		}
	}

	picked := make(map[int]bool, size)
	labeled = make([]int, 0, size)
	for c, members := range perClass {
		order := rng.Perm(len(members))
		for _, p := range order[:take[c]] {
			labeled = append(labeled, members[p])
			picked[members[p]] = true
		}
	}

	unlabeled = make([]int, 0, len(labels)-size)
	for idx := range labels {
		if !picked[idx] {
			unlabeled = append(unlabeled, idx)
		}
	}

	return labeled, unlabeled, nil
}
