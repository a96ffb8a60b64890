package trigalign

// PairOffsets pairs source rises with target rises by ordinal position and
// returns the signed time offsets target−source, minus the fixed correction.
// When the two rise counts differ the extra events are discarded from the
// long side with a logged warning; pairing is by trial order, not by nearest
// timestamp, which assumes no spurious or missed events on either channel.
// Zero common events yields an empty result, not an error.
func PairOffsets(t *Table, timestampColumn string, source, target []int, correction float64) ([]float64, error) {
	timestamps, err := t.Column(timestampColumn)
	if err != nil {
		return nil, err
	}
	n := len(source)
	if len(target) < n {
		n = len(target)
	}
	if len(source) != len(target) {
		ProblemLogger.Printf("event count mismatch: %d source rises vs %d target rises; pairing the first %d",
			len(source), len(target), n)
	}
	if n == 0 {
		return nil, nil
	}
	offsets := make([]float64, n)
	for k := 0; k < n; k++ {
		offsets[k] = timestamps[target[k]] - timestamps[source[k]] - correction
	}
	return offsets, nil
}
