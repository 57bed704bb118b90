package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shinertx/memev1/internal/domain"
)

func TestComputeSharpeProxyNeedsTwoSamples(t *testing.T) {
	assert.Equal(t, sharpeProxy{}, computeSharpeProxy(nil))
	assert.Equal(t, sharpeProxy{}, computeSharpeProxy([]float64{5}))
}

func TestComputeSharpeProxyZeroStdDevYieldsZeroSharpe(t *testing.T) {
	p := computeSharpeProxy([]float64{3, 3, 3})
	assert.Equal(t, 3.0, p.mean)
	assert.Equal(t, 0.0, p.sharpe)
}

func TestAllocateSortsBySharpeDescThenMean(t *testing.T) {
	specs := []domain.StrategySpec{{ID: "low"}, {ID: "high"}, {ID: "new"}}
	metrics := map[string]sharpeProxy{
		"low":  {mean: 1, sharpe: 0.2},
		"high": {mean: 10, sharpe: 2.0},
		"new":  {mean: 0, sharpe: 0},
	}

	allocations := allocate(specs, metrics)
	assert.Equal(t, "high", allocations[0].ID)
	assert.Equal(t, "low", allocations[1].ID)
	assert.Equal(t, "new", allocations[2].ID)
}

func TestAllocateWeightsSumToOne(t *testing.T) {
	specs := []domain.StrategySpec{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	metrics := map[string]sharpeProxy{
		"a": {sharpe: 1.5},
		"b": {sharpe: 0.5},
		"c": {sharpe: 0}, // floored to minWeightFactor
	}

	allocations := allocate(specs, metrics)
	sum := 0.0
	for _, a := range allocations {
		sum += a.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestAllocateSplitsEquallyWhenAllSharpeZero(t *testing.T) {
	// With no metrics every sharpe is 0, so each weight factor is floored to
	// minWeightFactor and the normalised weights come out equal.
	specs := []domain.StrategySpec{{ID: "a"}, {ID: "b"}}
	allocations := allocate(specs, map[string]sharpeProxy{})
	assert.Len(t, allocations, 2)
	for _, a := range allocations {
		assert.Greater(t, a.Weight, 0.0)
		assert.InDelta(t, 0.5, a.Weight, 1e-9)
	}
}
