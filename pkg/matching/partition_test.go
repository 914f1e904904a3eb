package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionCoverage(t *testing.T) {
	for n := 0; n <= 60; n++ {
		for workers := 1; workers <= 12; workers++ {
			ranges := Partition(n, workers)
			require.NotEmpty(t, ranges, "n=%d workers=%d", n, workers)

			assert.Equal(t, 0, ranges[0].Start, "n=%d workers=%d", n, workers)
			assert.Equal(t, max(n, 0), ranges[len(ranges)-1].End, "n=%d workers=%d", n, workers)

			total := 0
			for i, rr := range ranges {
				if i > 0 {
					assert.Equal(t, ranges[i-1].End, rr.Start, "gap or overlap n=%d workers=%d", n, workers)
				}
				assert.LessOrEqual(t, rr.Start, rr.End)
				total += rr.Comparisons(n)
			}
			assert.Equal(t, TotalComparisons(n), total, "n=%d workers=%d", n, workers)
		}
	}
}

func TestPartitionNoEmptyWorker(t *testing.T) {
	for n := 2; n <= 60; n++ {
		for workers := 1; workers <= 12; workers++ {
			if TotalComparisons(n) < workers {
				continue
			}
			for _, rr := range Partition(n, workers) {
				assert.Positive(t, rr.Comparisons(n), "n=%d workers=%d range=%v", n, workers, rr)
			}
		}
	}
}

func TestPartitionTenEntitiesFourWorkers(t *testing.T) {
	ranges := Partition(10, 4)

	assert.Equal(t, []RowRange{
		{Start: 0, End: 1},
		{Start: 1, End: 3},
		{Start: 3, End: 5},
		{Start: 5, End: 10},
	}, ranges)

	counts := make([]int, len(ranges))
	for i, rr := range ranges {
		counts[i] = rr.Comparisons(10)
	}
	assert.Equal(t, []int{9, 15, 11, 10}, counts)
}

func TestPartitionCapsWorkers(t *testing.T) {
	assert.Len(t, Partition(3, 8), 2)
	assert.Equal(t, []RowRange{{Start: 0, End: 2}}, Partition(2, 4))
	assert.Equal(t, []RowRange{{Start: 0, End: 1}}, Partition(1, 4))
	assert.Equal(t, []RowRange{{Start: 0, End: 0}}, Partition(0, 4))
	assert.Len(t, Partition(100, 0), 1)
}

func TestPartitionBalance(t *testing.T) {
	n, workers := 1000, 8
	ideal := float64(TotalComparisons(n)) / float64(workers)
	for _, rr := range Partition(n, workers) {
		assert.InEpsilon(t, ideal, float64(rr.Comparisons(n)), 0.05, "range %v", rr)
	}
}
