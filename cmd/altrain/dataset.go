package main

import (
	"math/rand"

	"github.com/activepool/go-activelearn/config"
	"github.com/activepool/go-activelearn/training"
)

// blobDataset generates a deterministic Gaussian-blob classification
// problem shaped like the named dataset config: one cluster center per
// class, examples drawn around it. It stands in for real image features
// so every sampling method and the full cycle can run end to end.
func blobDataset(dsCfg config.DatasetConfig, size, inputSize int, noise float64, seed int64) (*training.SliceDataset, error) {
	rng := rand.New(rand.NewSource(seed))
	numClasses := dsCfg.NumClasses()

	centers := make([][]float64, numClasses)
	for c := range centers {
		centers[c] = make([]float64, inputSize)
		for j := range centers[c] {
			centers[c][j] = rng.NormFloat64() * 2
		}
	}

	inputs := make([][]float32, size)
	labels := make([]int, size)
	for i := range inputs {
		class := rng.Intn(numClasses)
		row := make([]float32, inputSize)
		for j := range row {
			row[j] = float32(centers[class][j] + rng.NormFloat64()*noise)
		}
		inputs[i] = row
		labels[i] = class
	}

	return training.NewSliceDataset(inputs, labels, dsCfg.Classes)
}
