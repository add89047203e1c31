package pool

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// bitmapOf builds a bitmap over an index sequence.
func bitmapOf(indices []int) *roaring.Bitmap {
	bm := roaring.New()
	for _, idx := range indices {
		bm.Add(uint32(idx))
	}
	return bm
}

// Disjoint reports whether the two index sequences share no entry.
func Disjoint(labeled, unlabeled []int) bool {
	return !bitmapOf(labeled).Intersects(bitmapOf(unlabeled))
}

// Validate audits a labeled/unlabeled partition: both sequences must be
// duplicate-free and disjoint from each other. The controller runs it after
// every promotion; the promotion itself does not validate (caller
// contract).
func Validate(labeled, unlabeled []int) error {
	lb := bitmapOf(labeled)
	if int(lb.GetCardinality()) != len(labeled) {
		return fmt.Errorf("labeled sequence contains duplicates: %d entries, %d distinct", len(labeled), lb.GetCardinality())
	}

	ub := bitmapOf(unlabeled)
	if int(ub.GetCardinality()) != len(unlabeled) {
		return fmt.Errorf("unlabeled sequence contains duplicates: %d entries, %d distinct", len(unlabeled), ub.GetCardinality())
	}

	if lb.Intersects(ub) {
		inter := roaring.And(lb, ub)
		return fmt.Errorf("labeled and unlabeled sequences overlap on %d indices", inter.GetCardinality())
	}

	return nil
}

// SameUnion reports whether two partitions cover exactly the same set of
// dataset indices. Used to check that promotion neither loses nor invents
// indices.
func SameUnion(aLabeled, aUnlabeled, bLabeled, bUnlabeled []int) bool {
	a := roaring.Or(bitmapOf(aLabeled), bitmapOf(aUnlabeled))
	b := roaring.Or(bitmapOf(bLabeled), bitmapOf(bUnlabeled))
	return a.Equals(b)
}
