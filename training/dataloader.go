package training

import (
	"fmt"
	"math/rand"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DataLoader provides batching, shuffling, and parallel sample loading over
// an index view of a Dataset. The view (the indices slice) decides which
// samples of the base dataset the loader exposes and in which enumeration
// order; labeled and unlabeled loaders over the same base dataset differ
// only in their views.
type DataLoader struct {
	dataset    Dataset
	indices    []int
	batchSize  int
	shuffle    bool
	numWorkers int
	rng        *rand.Rand
	position   int
	mutex      sync.Mutex
}

// NewDataLoader creates a DataLoader over the given index view. The indices
// are copied, so the caller keeps ownership of its slice. A nil indices
// slice means the identity view over the whole dataset. The seed fixes the
// shuffle order for reproducible runs.
func NewDataLoader(dataset Dataset, indices []int, batchSize int, shuffle bool, numWorkers int, seed int64) (*DataLoader, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}

	if indices == nil {
		indices = make([]int, dataset.Len())
		for i := range indices {
			indices[i] = i
		}
	} else {
		view := make([]int, len(indices))
		copy(view, indices)
		indices = view
	}

	return &DataLoader{
		dataset:    dataset,
		indices:    indices,
		batchSize:  batchSize,
		shuffle:    shuffle,
		numWorkers: numWorkers,
		rng:        rand.New(rand.NewSource(seed)),
		position:   0,
	}, nil
}

// Batch represents a batch of inputs and labels in loader order.
type Batch struct {
	Inputs [][]float32
	Labels []int
	// Indices holds the dataset indices the batch was loaded from, in
	// batch order. Samplers use them to relate scores back to examples.
	Indices []int
}

// Size returns the number of examples in the batch.
func (b *Batch) Size() int {
	return len(b.Inputs)
}

// Len returns the number of batches in an epoch.
func (dl *DataLoader) Len() int {
	return (len(dl.indices) + dl.batchSize - 1) / dl.batchSize
}

// NumExamples returns the number of examples the current view exposes.
func (dl *DataLoader) NumExamples() int {
	return len(dl.indices)
}

// Dataset returns the underlying base dataset.
func (dl *DataLoader) Dataset() Dataset {
	return dl.dataset
}

// Indices returns a copy of the current index view in enumeration order.
func (dl *DataLoader) Indices() []int {
	dl.mutex.Lock()
	defer dl.mutex.Unlock()
	out := make([]int, len(dl.indices))
	copy(out, dl.indices)
	return out
}

// Reset rewinds the loader for a new epoch, reshuffling the view when the
// loader was created with shuffle enabled.
func (dl *DataLoader) Reset() {
	dl.mutex.Lock()
	defer dl.mutex.Unlock()

	dl.position = 0

	if dl.shuffle {
		dl.rng.Shuffle(len(dl.indices), func(i, j int) {
			dl.indices[i], dl.indices[j] = dl.indices[j], dl.indices[i]
		})
	}
}

// Next returns the next batch or nil when the epoch is complete.
func (dl *DataLoader) Next() (*Batch, error) {
	dl.mutex.Lock()
	defer dl.mutex.Unlock()

	if dl.position >= len(dl.indices) {
		return nil, nil // End of epoch
	}

	batchEnd := dl.position + dl.batchSize
	if batchEnd > len(dl.indices) {
		batchEnd = len(dl.indices)
	}

	batchIndices := dl.indices[dl.position:batchEnd]
	dl.position = batchEnd

	batch, err := dl.loadBatch(batchIndices)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %v", err)
	}

	return batch, nil
}

// HasNext returns true if there are more batches in the current epoch.
func (dl *DataLoader) HasNext() bool {
	dl.mutex.Lock()
	defer dl.mutex.Unlock()
	return dl.position < len(dl.indices)
}

// loadBatch loads the samples for a batch, fanning the Get calls out over
// the configured number of workers.
func (dl *DataLoader) loadBatch(indices []int) (*Batch, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("empty batch indices")
	}

	batch := &Batch{
		Inputs:  make([][]float32, len(indices)),
		Labels:  make([]int, len(indices)),
		Indices: make([]int, len(indices)),
	}
	copy(batch.Indices, indices)

	var g errgroup.Group
	g.SetLimit(dl.numWorkers)

	for i, idx := range indices {
		i, idx := i, idx
		g.Go(func() error {
			input, label, err := dl.dataset.Get(idx)
			if err != nil {
				return fmt.Errorf("failed to load sample %d: %v", idx, err)
			}
			batch.Inputs[i] = input
			batch.Labels[i] = label
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return batch, nil
}

// Iterator returns a channel-based iterator for use in training loops. The
// loader is reset before iteration starts; the channel is closed at the end
// of the epoch or on the first load error.
func (dl *DataLoader) Iterator() <-chan *Batch {
	batchChan := make(chan *Batch, 1)

	go func() {
		defer close(batchChan)

		dl.Reset()

		for dl.HasNext() {
			batch, err := dl.Next()
			if err != nil {
				fmt.Printf("DataLoader error: %v\n", err)
				return
			}

			if batch == nil {
				break
			}

			batchChan <- batch
		}
	}()

	return batchChan
}
