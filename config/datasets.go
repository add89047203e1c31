package config

import (
	"fmt"
	"sort"
)

// DatasetConfig is the read-only per-dataset class configuration consumed
// by the cycle controller: class list, input geometry, and the pool sizing
// parameters that drive promotion.
type DatasetConfig struct {
	Name      string
	Classes   []string
	InputSize int

	// StartLabeled is the size of the initial stratified labeled set.
	StartLabeled int
	// AddLabeledNum is the promotion batch size per sampling cycle.
	AddLabeledNum int
	// UnlabeledSubsetNum caps how much of the unlabeled pool is scored per
	// cycle; the window is reshuffled on every loader rebuild.
	UnlabeledSubsetNum int
}

// NumClasses returns the class count.
func (d DatasetConfig) NumClasses() int {
	return len(d.Classes)
}

var datasetConfigs = map[string]DatasetConfig{
	"cifar10": {
		Name: "cifar10",
		Classes: []string{
			"airplane", "automobile", "bird", "cat", "deer",
			"dog", "frog", "horse", "ship", "truck",
		},
		InputSize:          32,
		StartLabeled:       2500,
		AddLabeledNum:      1250,
		UnlabeledSubsetNum: 10000,
	},
	"matek": {
		Name: "matek",
		Classes: []string{
			"BAS", "EBO", "EOS", "KSC", "LYA", "LYT", "MMZ", "MOB",
			"MON", "MYB", "MYO", "NGB", "NGS", "PMB", "PMO",
		},
		InputSize:          128,
		StartLabeled:       730,
		AddLabeledNum:      365,
		UnlabeledSubsetNum: 5000,
	},
	"jurkat": {
		Name: "jurkat",
		Classes: []string{
			"Anaphase", "G1", "G2", "Metaphase", "Prophase", "S", "Telophase",
		},
		InputSize:          64,
		StartLabeled:       1600,
		AddLabeledNum:      800,
		UnlabeledSubsetNum: 8000,
	},
	"plasmodium": {
		Name:               "plasmodium",
		Classes:            []string{"infected", "uninfected"},
		InputSize:          100,
		StartLabeled:       1375,
		AddLabeledNum:      690,
		UnlabeledSubsetNum: 8000,
	},
	"isic": {
		Name: "isic",
		Classes: []string{
			"AKIEC", "BCC", "BKL", "DF", "MEL", "NV", "VASC",
		},
		InputSize:          128,
		StartLabeled:       500,
		AddLabeledNum:      250,
		UnlabeledSubsetNum: 4000,
	},
	"retinopathy": {
		Name: "retinopathy",
		Classes: []string{
			"No DR", "Mild", "Moderate", "Severe", "Proliferative DR",
		},
		InputSize:          128,
		StartLabeled:       1750,
		AddLabeledNum:      875,
		UnlabeledSubsetNum: 6000,
	},
}

// DatasetByName returns the class config for a dataset name.
func DatasetByName(name string) (DatasetConfig, error) {
	cfg, ok := datasetConfigs[name]
	if !ok {
		return DatasetConfig{}, fmt.Errorf("unknown dataset %q (have %v)", name, DatasetNames())
	}
	return cfg, nil
}

// DatasetNames lists the registered dataset names, sorted.
func DatasetNames() []string {
	names := make([]string, 0, len(datasetConfigs))
	for name := range datasetConfigs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
