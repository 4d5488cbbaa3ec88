package harness

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeRewardZeroErrorOneRound(t *testing.T) {
	r := computeReward(3.0, 3.0, 1)
	assert.InDelta(t, 1.0, r, 1e-9)
}

func TestComputeRewardHighErrorZeroAccuracy(t *testing.T) {
	r := computeReward(0.0, 2.5, 1)
	assert.InDelta(t, 0.0, r, 1e-9)
}

func TestComputeRewardPenalizesExtraRounds(t *testing.T) {
	r1 := computeReward(4.0, 4.0, 1)
	r2 := computeReward(4.0, 4.0, 2)
	assert.InDelta(t, r1-0.05, r2, 1e-9)
}

func TestComputeRewardSentinelOnEmptyFinalRound(t *testing.T) {
	r := computeReward(math.NaN(), 3.0, 1)
	assert.Equal(t, -1.0, r)
}

func TestComputeRewardBoundedAboveByOne(t *testing.T) {
	r := computeReward(3.0, 3.0, 1)
	assert.LessOrEqual(t, r, 1.0)
}

func TestMeanOverallEmptyIsNaN(t *testing.T) {
	assert.True(t, math.IsNaN(meanOverall(nil)))
}

func TestMeanOverall(t *testing.T) {
	assert.InDelta(t, 3.0, meanOverall([]float64{2, 3, 4}), 1e-9)
}
