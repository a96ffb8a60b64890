package trigalign

import (
	"fmt"
	"math"
	"sort"
)

// DefaultMergeTolerance is the largest backward time gap (in source clock
// units) the as-of merge will bridge when attaching a marker row to a
// primary-stream row.
const DefaultMergeTolerance = 0.5

// ReshapeConfig controls the long-to-wide pivot.
type ReshapeConfig struct {
	// Tolerance bounds the as-of merge gap. Zero means DefaultMergeTolerance.
	Tolerance float64
}

// streamPartition is one stream's slice of the long table, pivoted to
// columns and renamed.
type streamPartition struct {
	name       string
	timestamps []float64
	columns    []string // semantic names, in channel order
	values     [][]float64
	valid      [][]bool
}

// Reshape pivots a long-format recording into one wide, time-aligned table.
//
// Rows are partitioned by stream identity. In each partition the generic
// value_chK columns that are empty throughout are dropped, and the rest are
// renamed "{stream}_{label}" from the label map; if the label list is
// shorter than the surviving columns the extras keep their generic names.
// The widest partition becomes the primary (headset) stream and the
// narrowest the secondary (marker) stream: reshaping requires exactly these
// two roles, and any further partitions are dropped with a warning. Each
// primary row then receives the most recent secondary row at or before its
// timestamp, if that row is within the tolerance; unmatched marker cells are
// filled with 0 and the marker columns coerced to integer values.
func Reshape(rows []LongRow, labels map[string][]string, cfg ReshapeConfig) (*Table, error) {
	tolerance := cfg.Tolerance
	if tolerance == 0 {
		tolerance = DefaultMergeTolerance
	}
	parts := partitionStreams(rows, labels)
	if len(parts) < 2 {
		return nil, fmt.Errorf("reshape requires a primary and a secondary stream, found %d stream(s)", len(parts))
	}

	// Widest partition is the sensor headset, narrowest is the marker stream.
	primary, secondary := parts[0], parts[0]
	for _, p := range parts[1:] {
		if len(p.columns) > len(primary.columns) {
			primary = p
		}
		if len(p.columns) <= len(secondary.columns) {
			secondary = p
		}
	}
	if len(primary.columns) == len(secondary.columns) {
		return nil, fmt.Errorf("cannot tell primary from secondary: streams %q and %q both have %d channels",
			primary.name, secondary.name, len(primary.columns))
	}
	if len(parts) > 2 {
		for _, p := range parts {
			if p != primary && p != secondary {
				ProblemLogger.Printf("reshape keeps only primary %q and secondary %q; dropping stream %q",
					primary.name, secondary.name, p.name)
			}
		}
	}

	primary.sortAscending()
	secondary.sortAscending()

	out := NewTable()
	if err := out.SetColumn(TimestampColumn, primary.timestamps, nil); err != nil {
		return nil, err
	}
	for j, name := range primary.columns {
		if err := setMergedColumn(out, name, primary.values[j], primary.valid[j]); err != nil {
			return nil, err
		}
	}

	// As-of merge: for each primary timestamp, the latest secondary row at or
	// before it, within tolerance.
	n := len(primary.timestamps)
	match := make([]int, n)
	for i, ts := range primary.timestamps {
		k := sort.SearchFloat64s(secondary.timestamps, ts)
		// k is the first index with timestamp > ts once we step past equals.
		for k < len(secondary.timestamps) && secondary.timestamps[k] <= ts {
			k++
		}
		k--
		if k >= 0 && ts-secondary.timestamps[k] <= tolerance {
			match[i] = k
		} else {
			match[i] = -1
		}
	}
	for j, name := range secondary.columns {
		col := make([]float64, n)
		valid := make([]bool, n)
		for i, k := range match {
			if k >= 0 && secondary.valid[j][k] {
				col[i] = secondary.values[j][k]
				valid[i] = true
			}
		}
		if err := setMergedColumn(out, name, col, valid); err != nil {
			return nil, err
		}
		// Markers are discrete; absence means no marker active.
		if err := out.FillAbsent(name, 0); err != nil {
			return nil, err
		}
		if err := out.CoerceInt(name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// setMergedColumn guards against two partitions contributing the same column
// name, which can only happen when both retained generic value_chK names.
func setMergedColumn(t *Table, name string, values []float64, valid []bool) error {
	if t.HasColumn(name) {
		return fmt.Errorf("column name %q appears in both streams; provide channel labels to disambiguate", name)
	}
	return t.SetColumn(name, values, valid)
}

// partitionStreams splits long rows by stream identity, dropping generic
// columns that are empty across the whole partition and renaming the
// survivors from the label map. Partition order follows first appearance.
func partitionStreams(rows []LongRow, labels map[string][]string) []*streamPartition {
	var order []string
	byStream := make(map[string][]LongRow)
	for _, row := range rows {
		if _, seen := byStream[row.Stream]; !seen {
			order = append(order, row.Stream)
		}
		byStream[row.Stream] = append(byStream[row.Stream], row)
	}

	var parts []*streamPartition
	for _, name := range order {
		srows := byStream[name]
		width := 0
		for _, row := range srows {
			if len(row.Values) > width {
				width = len(row.Values)
			}
		}
		// Which generic columns hold at least one real value?
		occupied := make([]bool, width)
		for _, row := range srows {
			for j, v := range row.Values {
				if !math.IsNaN(v) {
					occupied[j] = true
				}
			}
		}
		p := &streamPartition{name: name, timestamps: make([]float64, len(srows))}
		for i, row := range srows {
			p.timestamps[i] = row.Timestamp
		}
		slabels := labels[name]
		kept := 0
		for j := 0; j < width; j++ {
			if !occupied[j] {
				continue
			}
			colname := fmt.Sprintf("value_ch%d", j+1)
			if kept < len(slabels) {
				colname = fmt.Sprintf("%s_%s", name, slabels[kept])
			}
			kept++
			col := make([]float64, len(srows))
			valid := make([]bool, len(srows))
			for i, row := range srows {
				if j < len(row.Values) && !math.IsNaN(row.Values[j]) {
					col[i] = row.Values[j]
					valid[i] = true
				}
			}
			p.columns = append(p.columns, colname)
			p.values = append(p.values, col)
			p.valid = append(p.valid, valid)
		}
		parts = append(parts, p)
	}
	return parts
}

// sortAscending orders the partition rows by timestamp, stably.
func (p *streamPartition) sortAscending() {
	perm := make([]int, len(p.timestamps))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return p.timestamps[perm[a]] < p.timestamps[perm[b]]
	})
	p.timestamps = permuteFloats(p.timestamps, perm)
	for j := range p.values {
		p.values[j] = permuteFloats(p.values[j], perm)
		p.valid[j] = permuteBools(p.valid[j], perm)
	}
}

func permuteFloats(x []float64, perm []int) []float64 {
	out := make([]float64, len(x))
	for i, p := range perm {
		out[i] = x[p]
	}
	return out
}

func permuteBools(x []bool, perm []int) []bool {
	out := make([]bool, len(x))
	for i, p := range perm {
		out[i] = x[p]
	}
	return out
}
