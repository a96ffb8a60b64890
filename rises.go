package trigalign

// FindRises returns, in order, every row index where the named channel's
// value strictly increases over the immediately preceding row. The first row
// is never a rise (it has no predecessor), and a comparison against an
// absent cell is not a rise. There is no debouncing: consecutive one-sample
// spikes each count if each exceeds its predecessor.
func FindRises(t *Table, channel string) ([]int, error) {
	col, err := t.Column(channel)
	if err != nil {
		return nil, err
	}
	valid, err := t.Valid(channel)
	if err != nil {
		return nil, err
	}
	var rises []int
	for i := 1; i < len(col); i++ {
		if valid[i] && valid[i-1] && col[i]-col[i-1] > 0 {
			rises = append(rises, i)
		}
	}
	return rises, nil
}

// ActiveIndices returns every row index where the named channel is present
// and strictly positive. Trial segmentation starts from this set.
func ActiveIndices(t *Table, channel string) ([]int, error) {
	col, err := t.Column(channel)
	if err != nil {
		return nil, err
	}
	valid, err := t.Valid(channel)
	if err != nil {
		return nil, err
	}
	var active []int
	for i := range col {
		if valid[i] && col[i] > 0 {
			active = append(active, i)
		}
	}
	return active, nil
}
