package trigalign

import "sort"

// Diff returns the first difference of the series: out[i] = x[i+1] − x[i].
// Applied to a timestamp column it exposes the sampling jitter of a
// recording; a clean recording is a flat line at the sample period.
func Diff(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}
	out := make([]float64, len(x)-1)
	for i := range out {
		out[i] = x[i+1] - x[i]
	}
	return out
}

// FindSpikes locates local maxima in the series that reach at least height,
// keeping only peaks separated by more than distance samples. When two
// peaks are closer than that, the taller one wins. Indices are returned in
// ascending order.
func FindSpikes(x []float64, height float64, distance int) []int {
	var peaks []int
	for i := 1; i < len(x)-1; i++ {
		if x[i] >= height && x[i] > x[i-1] && x[i] > x[i+1] {
			peaks = append(peaks, i)
		}
	}
	if distance <= 1 || len(peaks) < 2 {
		return peaks
	}

	// Process tallest first; a kept peak suppresses shorter neighbors.
	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return x[peaks[order[a]]] > x[peaks[order[b]]]
	})
	suppressed := make([]bool, len(peaks))
	for _, oi := range order {
		if suppressed[oi] {
			continue
		}
		for j := oi - 1; j >= 0 && peaks[oi]-peaks[j] < distance; j-- {
			suppressed[j] = true
		}
		for j := oi + 1; j < len(peaks) && peaks[j]-peaks[oi] < distance; j++ {
			suppressed[j] = true
		}
	}
	var kept []int
	for i, p := range peaks {
		if !suppressed[i] {
			kept = append(kept, p)
		}
	}
	return kept
}
