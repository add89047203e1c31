package training

import (
	"testing"
)

func testDataset(t *testing.T, n int) *SliceDataset {
	t.Helper()
	inputs := make([][]float32, n)
	labels := make([]int, n)
	for i := range inputs {
		inputs[i] = []float32{float32(i)}
		labels[i] = i % 2
	}
	ds, err := NewSliceDataset(inputs, labels, []string{"even", "odd"})
	if err != nil {
		t.Fatalf("failed to create dataset: %v", err)
	}
	return ds
}

func TestDataLoaderBatching(t *testing.T) {
	ds := testDataset(t, 10)

	loader, err := NewDataLoader(ds, nil, 4, false, 2, 0)
	if err != nil {
		t.Fatalf("failed to create loader: %v", err)
	}

	if loader.Len() != 3 {
		t.Errorf("expected 3 batches, got %d", loader.Len())
	}
	if loader.NumExamples() != 10 {
		t.Errorf("expected 10 examples, got %d", loader.NumExamples())
	}

	sizes := []int{}
	total := 0
	for loader.HasNext() {
		batch, err := loader.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if batch == nil {
			break
		}
		sizes = append(sizes, batch.Size())
		total += batch.Size()
	}

	if total != 10 {
		t.Errorf("expected 10 examples over all batches, got %d", total)
	}
	if len(sizes) != 3 || sizes[2] != 2 {
		t.Errorf("expected batch sizes [4 4 2], got %v", sizes)
	}
}

func TestDataLoaderViewOrder(t *testing.T) {
	ds := testDataset(t, 10)

	view := []int{7, 3, 5}
	loader, err := NewDataLoader(ds, view, 2, false, 1, 0)
	if err != nil {
		t.Fatalf("failed to create loader: %v", err)
	}

	var indices []int
	var inputs []float32
	for loader.HasNext() {
		batch, err := loader.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		indices = append(indices, batch.Indices...)
		for _, in := range batch.Inputs {
			inputs = append(inputs, in[0])
		}
	}

	want := []int{7, 3, 5}
	for i, idx := range indices {
		if idx != want[i] {
			t.Errorf("batch index %d: expected %d, got %d", i, want[i], idx)
		}
		if inputs[i] != float32(want[i]) {
			t.Errorf("batch input %d: expected %v, got %v", i, float32(want[i]), inputs[i])
		}
	}
}

func TestDataLoaderViewIsCopied(t *testing.T) {
	ds := testDataset(t, 10)

	view := []int{0, 1, 2}
	loader, err := NewDataLoader(ds, view, 2, false, 1, 0)
	if err != nil {
		t.Fatalf("failed to create loader: %v", err)
	}

	view[0] = 9
	got := loader.Indices()
	if got[0] != 0 {
		t.Errorf("loader view must not alias the caller's slice, got %v", got)
	}
}

func TestDataLoaderShuffleReproducibility(t *testing.T) {
	ds := testDataset(t, 20)

	order := func(seed int64) []int {
		loader, err := NewDataLoader(ds, nil, 5, true, 1, seed)
		if err != nil {
			t.Fatalf("failed to create loader: %v", err)
		}
		loader.Reset()
		var got []int
		for loader.HasNext() {
			batch, err := loader.Next()
			if err != nil {
				t.Fatalf("Next failed: %v", err)
			}
			got = append(got, batch.Indices...)
		}
		return got
	}

	a := order(42)
	b := order(42)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed must give the same order: %v vs %v", a, b)
		}
	}

	seen := make(map[int]bool)
	for _, idx := range a {
		if seen[idx] {
			t.Fatalf("index %d enumerated twice", idx)
		}
		seen[idx] = true
	}
	if len(seen) != 20 {
		t.Errorf("expected all 20 indices, got %d", len(seen))
	}
}

func TestDataLoaderNoShuffleKeepsOrder(t *testing.T) {
	ds := testDataset(t, 6)

	loader, err := NewDataLoader(ds, nil, 2, false, 1, 0)
	if err != nil {
		t.Fatalf("failed to create loader: %v", err)
	}

	for epoch := 0; epoch < 2; epoch++ {
		loader.Reset()
		var got []int
		for loader.HasNext() {
			batch, err := loader.Next()
			if err != nil {
				t.Fatalf("Next failed: %v", err)
			}
			got = append(got, batch.Indices...)
		}
		for i, idx := range got {
			if idx != i {
				t.Errorf("epoch %d: expected identity order, got %v", epoch, got)
				break
			}
		}
	}
}

func TestDataLoaderIterator(t *testing.T) {
	ds := testDataset(t, 7)

	loader, err := NewDataLoader(ds, nil, 3, false, 2, 0)
	if err != nil {
		t.Fatalf("failed to create loader: %v", err)
	}

	total := 0
	batches := 0
	for batch := range loader.Iterator() {
		total += batch.Size()
		batches++
	}

	if total != 7 {
		t.Errorf("expected 7 examples, got %d", total)
	}
	if batches != 3 {
		t.Errorf("expected 3 batches, got %d", batches)
	}
}

func TestNewDataLoaderRejectsBadBatchSize(t *testing.T) {
	ds := testDataset(t, 4)
	if _, err := NewDataLoader(ds, nil, 0, false, 1, 0); err == nil {
		t.Error("expected error for zero batch size")
	}
}
