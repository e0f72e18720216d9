package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWeightsWithinBounds(t *testing.T) {
	weights := DefaultWeights()
	bounds := DefaultWeightBounds()

	require.NoError(t, weights.Validate(bounds))
	for _, key := range WeightKeys {
		_, ok := weights.Values[key]
		assert.True(t, ok, "missing default for %s", key)
		_, ok = bounds[key]
		assert.True(t, ok, "missing bound for %s", key)
	}
}

func TestWeightBoundClamp(t *testing.T) {
	bound := WeightBound{Min: 10, Max: 25}

	assert.Equal(t, 10.0, bound.Clamp(9))
	assert.Equal(t, 25.0, bound.Clamp(26))
	assert.Equal(t, 18.0, bound.Clamp(18))
	assert.True(t, bound.Contains(10))
	assert.True(t, bound.Contains(25))
	assert.False(t, bound.Contains(25.1))
}

func TestWeightsCopyIsIndependent(t *testing.T) {
	original := DefaultWeights()
	copied := original.Copy()
	copied.Values[WeightSweetSpot] = 99

	assert.Equal(t, 30.0, original.Get(WeightSweetSpot))
	assert.Equal(t, 99.0, copied.Get(WeightSweetSpot))
}

func TestWithVersionIsMonotonicWithTime(t *testing.T) {
	weights := DefaultWeights()

	earlier := weights.WithVersion(time.Date(2026, time.June, 10, 12, 0, 0, 0, time.UTC))
	later := weights.WithVersion(time.Date(2026, time.June, 10, 12, 0, 1, 0, time.UTC))

	assert.Equal(t, "20260610T120000Z", earlier.Version)
	assert.Less(t, earlier.Version, later.Version)
}

func TestValidateRejectsOutOfBoundsWeight(t *testing.T) {
	weights := DefaultWeights()
	weights.Values[WeightSweetSpot] = 99

	err := weights.Validate(DefaultWeightBounds())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvariantViolation)
}
