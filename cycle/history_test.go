package cycle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/activepool/go-activelearn/training"
)

func TestHistoryStoreRoundTrip(t *testing.T) {
	h := NewHistory("cifar10@entropy_based", "cifar10", 9999)
	h.RecordEpoch(EpochRecord{
		Epoch:        0,
		TrainLoss:    1.2,
		ValLoss:      1.5,
		Report:       &training.Report{MacroRecall: 0.4},
		LabeledCount: 2500,
	})
	h.RecordCycle(CycleRecord{
		Epoch:          36,
		LabeledCount:   3750,
		LabeledRatio:   0.075,
		ClassCounts:    []int{375, 375},
		PseudoAccuracy: -1,
	})

	dir := t.TempDir()
	require.NoError(t, h.Store(dir))

	filename := fmt.Sprintf("%s-cifar10@entropy_based-seed_9999.json", h.Time.Format("02.01.2006"))
	data, err := os.ReadFile(filepath.Join(dir, filename))
	require.NoError(t, err)

	var got History
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "cifar10", got.Dataset)
	assert.Equal(t, int64(9999), got.Seed)
	require.Len(t, got.Epochs, 1)
	assert.InDelta(t, 0.4, got.Epochs[0].Report.MacroRecall, 1e-12)
	require.Len(t, got.Cycles, 1)
	assert.Equal(t, 3750, got.Cycles[0].LabeledCount)
	assert.Equal(t, -1.0, got.Cycles[0].PseudoAccuracy)
}

func TestHistoryStoreCreatesDirectory(t *testing.T) {
	h := NewHistory("run", "matek", 1)
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	require.NoError(t, h.Store(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
