package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelMapWith(t *testing.T) {
	base := NewLabelMap()
	require.Equal(t, 0, base.Len())

	first, err := base.With([]int{3, 7}, []int{1, 0})
	require.NoError(t, err)
	assert.Equal(t, 0, base.Len(), "base map must be untouched")
	assert.Equal(t, 2, first.Len())

	label, ok := first.Get(3)
	assert.True(t, ok)
	assert.Equal(t, 1, label)

	_, ok = first.Get(4)
	assert.False(t, ok)

	// A later assignment overrides an earlier one in the derived map only.
	second, err := first.With([]int{3}, []int{2})
	require.NoError(t, err)
	label, _ = second.Get(3)
	assert.Equal(t, 2, label)
	label, _ = first.Get(3)
	assert.Equal(t, 1, label)
}

func TestLabelMapWithLengthMismatch(t *testing.T) {
	_, err := NewLabelMap().With([]int{1, 2}, []int{0})
	assert.Error(t, err)
}

func TestLabelMapAssignmentsIsACopy(t *testing.T) {
	m, err := NewLabelMap().With([]int{1}, []int{5})
	require.NoError(t, err)

	got := m.Assignments()
	got[1] = 9
	label, _ := m.Get(1)
	assert.Equal(t, 5, label)
}

func TestLabelMapAgreement(t *testing.T) {
	truth := []int{0, 1, 2, 1}
	m, err := NewLabelMap().With([]int{0, 2, 3}, []int{0, 1, 1})
	require.NoError(t, err)

	matches, total := m.Agreement(truth)
	assert.Equal(t, 2, matches)
	assert.Equal(t, 3, total)
}
