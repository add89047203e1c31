package checkpoints

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaverRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatJSONGzip} {
		t.Run(format.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "checkpoint"+format.extension())

			saved := &Checkpoint{
				Epoch:      42,
				BestRecall: 0.87,
				ModelState: []byte(`{"weights":[1,2,3]}`),
			}
			require.NoError(t, NewSaver(format).Save(saved, path))

			loaded, err := NewSaver(format).Load(path)
			require.NoError(t, err)

			assert.Equal(t, 42, loaded.Epoch)
			assert.InDelta(t, 0.87, loaded.BestRecall, 1e-12)
			assert.Equal(t, saved.ModelState, loaded.ModelState)
			assert.Equal(t, "go-activelearn", loaded.Metadata.Framework)
			assert.False(t, loaded.Metadata.CreatedAt.IsZero())
		})
	}
}

func TestSaverLoadMissingFile(t *testing.T) {
	_, err := NewSaver(FormatJSON).Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreSaveKeepsBestCopy(t *testing.T) {
	store, err := NewStore(t.TempDir(), "cifar10@entropy_based", FormatJSON)
	require.NoError(t, err)

	require.NoError(t, store.Save(&Checkpoint{Epoch: 1, BestRecall: 0.5}, true))
	require.NoError(t, store.Save(&Checkpoint{Epoch: 2, BestRecall: 0.5}, false))

	latest, err := store.LoadLatest()
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Epoch)

	// The best copy stays at the last improving epoch.
	best, err := store.LoadBest()
	require.NoError(t, err)
	assert.Equal(t, 1, best.Epoch)
}

func TestStoreLoadBestBeforeAnySave(t *testing.T) {
	store, err := NewStore(t.TempDir(), "fresh", FormatJSON)
	require.NoError(t, err)

	_, err = store.LoadBest()
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStoreGzipFormat(t *testing.T) {
	store, err := NewStore(t.TempDir(), "compressed", FormatJSONGzip)
	require.NoError(t, err)

	require.NoError(t, store.Save(&Checkpoint{Epoch: 3, BestRecall: 0.9}, true))

	best, err := store.LoadBest()
	require.NoError(t, err)
	assert.Equal(t, 3, best.Epoch)
}

func TestFormatExtension(t *testing.T) {
	assert.Equal(t, ".json", FormatJSON.extension())
	assert.Equal(t, ".json.gz", FormatJSONGzip.extension())
}
