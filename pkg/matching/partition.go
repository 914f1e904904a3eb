package matching

import "math"

// RowRange is a half-open range of rows [Start, End) of the upper comparison triangle
type RowRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Comparisons counts the (i, j), i < j pairs owned by the rows of r in an n entity triangle
func (r RowRange) Comparisons(n int) int {
	return triangle(n-r.Start) - triangle(n-r.End)
}

// TotalComparisons is n(n-1)/2
func TotalComparisons(n int) int {
	return triangle(n)
}

func triangle(k int) int {
	if k < 2 {
		return 0
	}
	return k * (k - 1) / 2
}

// Partition splits rows [0, n) into contiguous ranges holding roughly equal
// comparison counts. Row i owns n-1-i comparisons, so each range ends where
// the rows still unassigned hold about the share left for the remaining
// workers: end = n - ceil(sqrt(2 * remainingAfter)).
//
// The worker count is capped at n-1 so every range owns at least one
// comparison, and the ranges always tile [0, n) exactly.
func Partition(n, workers int) []RowRange {
	if n < 2 {
		return []RowRange{{Start: 0, End: max(n, 0)}}
	}
	workers = max(workers, 1)
	workers = min(workers, n-1)

	ranges := make([]RowRange, 0, workers)
	remaining := TotalComparisons(n)
	start := 0
	for w := 0; w < workers; w++ {
		left := workers - w
		end := n
		if left > 1 {
			after := remaining - remaining/left
			end = n - int(math.Ceil(math.Sqrt(float64(2*after))))
			// leave one row with comparisons for each later worker
			end = min(end, n-left)
			end = max(end, start+1)
		}

		rr := RowRange{Start: start, End: end}
		ranges = append(ranges, rr)
		remaining -= rr.Comparisons(n)
		start = end
	}
	return ranges
}
