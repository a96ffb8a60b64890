package trigalign

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// OffsetStats summarizes one channel pair's offset series. Std is the
// population standard deviation (every observed trial is the population,
// not a sample from one). When Trimmed is set, Min/Max/Range come from the
// series with one extreme dropped at each end while Mean and Std still
// cover the full series; that asymmetry is the tool's long-standing
// behavior and downstream reports depend on it.
type OffsetStats struct {
	Label   string
	N       int
	Mean    float64
	Std     float64
	Min     float64
	Max     float64
	Range   float64
	Trimmed bool
}

// Summarize computes untrimmed statistics over the offsets.
func Summarize(offsets []float64, label string) OffsetStats {
	s := OffsetStats{Label: label, N: len(offsets)}
	if len(offsets) == 0 {
		return s
	}
	s.Mean = stat.Mean(offsets, nil)
	s.Std = math.Sqrt(stat.Moment(2, offsets, nil))
	s.Min = floats.Min(offsets)
	s.Max = floats.Max(offsets)
	s.Range = s.Max - s.Min
	return s
}

// SummarizeTrimmed computes statistics with the single most extreme value
// dropped from each end of the range: the reported Min is the second
// smallest offset and the reported Max the second largest. Mean and Std are
// not trimmed. With fewer than 2 offsets there is nothing to drop and the
// untrimmed figures are returned.
func SummarizeTrimmed(offsets []float64, label string) OffsetStats {
	s := Summarize(offsets, label)
	if len(offsets) < 2 {
		return s
	}
	sorted := make([]float64, len(offsets))
	copy(sorted, offsets)
	sort.Float64s(sorted)
	s.Min = sorted[1]
	s.Max = sorted[len(sorted)-2]
	s.Range = s.Max - s.Min
	s.Trimmed = true
	return s
}

// Report renders the statistics as the annotated text block shown to users.
// An empty series is a valid terminal state, not an error: it means no
// events were observed on this pair.
func (s OffsetStats) Report() string {
	if s.N == 0 {
		return fmt.Sprintf("%s: not found", s.Label)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (n=%d", s.Label, s.N)
	if s.Trimmed {
		b.WriteString(", trimmed range")
	}
	b.WriteString(")\n")
	fmt.Fprintf(&b, "  Mean:    %.6fs\n", s.Mean)
	fmt.Fprintf(&b, "  Std Dev: %.6fs\n", s.Std)
	fmt.Fprintf(&b, "  Range:   %.6fs\n", s.Range)
	fmt.Fprintf(&b, "  Min:     %.6fs\n", s.Min)
	fmt.Fprintf(&b, "  Max:     %.6fs", s.Max)
	return b.String()
}
