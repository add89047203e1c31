package cycle

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/activepool/go-activelearn/config"
	"github.com/activepool/go-activelearn/pool"
	"github.com/activepool/go-activelearn/sampling"
	"github.com/activepool/go-activelearn/training"
)

// constModel always predicts class 0. Its validation recall plateaus
// immediately, so the patience window controls exactly when sampling
// fires.
type constModel struct{}

func (constModel) Train() {}
func (constModel) Eval()  {}

func (constModel) Forward(inputs [][]float32) (logits, features [][]float32, err error) {
	logits = make([][]float32, len(inputs))
	features = make([][]float32, len(inputs))
	for i, in := range inputs {
		logits[i] = []float32{1, 0}
		features[i] = in
	}
	return logits, features, nil
}

func (m constModel) Step(inputs [][]float32, labels []int) ([][]float32, error) {
	logits, _, err := m.Forward(inputs)
	return logits, err
}

// oracleModel reads the prediction straight from the input, which the test
// dataset encodes as a scaled one-hot of the true label.
type oracleModel struct{}

func (oracleModel) Train() {}
func (oracleModel) Eval()  {}

func (oracleModel) Forward(inputs [][]float32) (logits, features [][]float32, err error) {
	logits = make([][]float32, len(inputs))
	features = make([][]float32, len(inputs))
	for i, in := range inputs {
		logits[i] = in
		features[i] = in
	}
	return logits, features, nil
}

func (m oracleModel) Step(inputs [][]float32, labels []int) ([][]float32, error) {
	logits, _, err := m.Forward(inputs)
	return logits, err
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Dataset = "cifar10"
	cfg.Epochs = 50
	cfg.BatchSize = 8
	cfg.NumWorkers = 1
	cfg.Seed = 1
	cfg.PrintFreq = 0
	cfg.LabeledWarmupEpochs = 0
	cfg.AddLabeledEpochs = 2
	cfg.StopLabeledRatio = 0.5
	cfg.ResetModel = false
	cfg.CheckpointPath = ""
	cfg.LogPath = ""
	return cfg
}

func testDatasetConfig() config.DatasetConfig {
	return config.DatasetConfig{
		Name:               "toy",
		Classes:            []string{"a", "b"},
		InputSize:          2,
		StartLabeled:       8,
		AddLabeledNum:      4,
		UnlabeledSubsetNum: 20,
	}
}

// twoClassDataset builds 2n examples with balanced classes, each input the
// true label as a scaled one-hot.
func twoClassDataset(t *testing.T, n int) *training.SliceDataset {
	t.Helper()
	inputs := make([][]float32, 2*n)
	labels := make([]int, 2*n)
	for i := range inputs {
		label := i % 2
		row := []float32{0, 0}
		row[label] = 5
		inputs[i] = row
		labels[i] = label
	}
	ds, err := training.NewSliceDataset(inputs, labels, []string{"a", "b"})
	require.NoError(t, err)
	return ds
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestControllerSamplesAfterPatienceAndStops(t *testing.T) {
	cfg := testConfig()
	trainDS := twoClassDataset(t, 10) // 20 examples, stop threshold 10
	valDS := twoClassDataset(t, 4)

	factory := func() (training.Model, training.Trainer, error) {
		m := constModel{}
		return m, m, nil
	}

	controller, err := NewController(&cfg, testDatasetConfig(), trainDS, valDS, factory,
		WithStrategy(sampling.NewRandomStrategy(cfg.Seed)),
		WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	require.Len(t, controller.Labeled(), 8)
	require.Len(t, controller.Unlabeled(), 12)

	result, err := controller.Run()
	require.NoError(t, err)

	// Recall plateaus at epoch 0, so with patience 2 the counter exceeds it
	// at epoch 3, one promotion crosses the stop threshold, and the run
	// ends there.
	assert.Equal(t, 3, result.LastEpoch)
	assert.Equal(t, 12, result.LabeledCount)
	assert.InDelta(t, 0.5, result.BestRecall, 1e-9, "always predicting one of two classes")
	assert.Equal(t, StateDone, controller.State())

	require.Len(t, result.History.Cycles, 1)
	cycle := result.History.Cycles[0]
	assert.Equal(t, 3, cycle.Epoch)
	assert.Equal(t, 12, cycle.LabeledCount)
	assert.InDelta(t, 0.6, cycle.LabeledRatio, 1e-9)
	assert.Equal(t, -1.0, cycle.PseudoAccuracy)
	assert.Len(t, result.History.Epochs, 4)

	labeled := controller.Labeled()
	unlabeled := controller.Unlabeled()
	assert.NoError(t, pool.Validate(labeled, unlabeled))
	assert.Len(t, unlabeled, 8)
}

func TestControllerBestNotUpdatedOnSamplingEpochs(t *testing.T) {
	// The best report is only refreshed on stable epochs; after the single
	// sampling epoch the stored best still reflects the pre-sampling
	// plateau.
	cfg := testConfig()
	trainDS := twoClassDataset(t, 10)
	valDS := twoClassDataset(t, 4)

	factory := func() (training.Model, training.Trainer, error) {
		m := constModel{}
		return m, m, nil
	}

	controller, err := NewController(&cfg, testDatasetConfig(), trainDS, valDS, factory,
		WithStrategy(sampling.NewRandomStrategy(cfg.Seed)),
		WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	result, err := controller.Run()
	require.NoError(t, err)

	require.NotNil(t, result.BestReport)
	assert.InDelta(t, 0.5, result.BestReport.MacroRecall, 1e-9)
}

func TestControllerPseudoLabeling(t *testing.T) {
	cfg := testConfig()
	cfg.Method = "pseudo_label"
	trainDS := twoClassDataset(t, 10)
	valDS := twoClassDataset(t, 4)

	factory := func() (training.Model, training.Trainer, error) {
		m := oracleModel{}
		return m, m, nil
	}

	controller, err := NewController(&cfg, testDatasetConfig(), trainDS, valDS, factory,
		WithPseudoLabeler(sampling.NewPseudoLabeler(0)),
		WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	result, err := controller.Run()
	require.NoError(t, err)

	// The oracle model predicts every true label, so all pseudo-labels
	// agree with the hidden truth.
	require.Len(t, result.History.Cycles, 1)
	assert.InDelta(t, 1.0, result.History.Cycles[0].PseudoAccuracy, 1e-9)
	assert.Equal(t, 12, result.LabeledCount)
}

func TestControllerRequiresExactlyOneSelector(t *testing.T) {
	cfg := testConfig()
	trainDS := twoClassDataset(t, 10)
	valDS := twoClassDataset(t, 4)

	factory := func() (training.Model, training.Trainer, error) {
		m := constModel{}
		return m, m, nil
	}

	_, err := NewController(&cfg, testDatasetConfig(), trainDS, valDS, factory,
		WithLogger(quietLogger()),
	)
	assert.Error(t, err, "no selector configured")

	_, err = NewController(&cfg, testDatasetConfig(), trainDS, valDS, factory,
		WithStrategy(sampling.NewRandomStrategy(1)),
		WithPseudoLabeler(sampling.NewPseudoLabeler(0)),
		WithLogger(quietLogger()),
	)
	assert.Error(t, err, "both selectors configured")
}

func TestControllerStratifiedStart(t *testing.T) {
	cfg := testConfig()
	trainDS := twoClassDataset(t, 10)
	valDS := twoClassDataset(t, 4)

	factory := func() (training.Model, training.Trainer, error) {
		m := constModel{}
		return m, m, nil
	}

	controller, err := NewController(&cfg, testDatasetConfig(), trainDS, valDS, factory,
		WithStrategy(sampling.NewRandomStrategy(cfg.Seed)),
		WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	counts := make([]int, 2)
	for _, idx := range controller.Labeled() {
		_, label, err := trainDS.Get(idx)
		require.NoError(t, err)
		counts[label]++
	}
	assert.Equal(t, []int{4, 4}, counts, "balanced classes give a balanced draw")
}
