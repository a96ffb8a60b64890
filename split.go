package trigalign

import (
	"fmt"
	"math"
)

// SplitConfig names one integer composite channel and the boolean trigger
// lines packed into it. Values must be the power-of-two bit value each new
// channel represents, parallel to Names.
type SplitConfig struct {
	Channel string
	Names   []string
	Values  []int
}

// SplitComposite decomposes a composite trigger column into one column per
// bit line and drops the original. Each new column holds its bit value where
// the bit is set in the composite and 0 elsewhere, so a composite value that
// is the sum of several active bits lights up all of them. The operation is
// not idempotent: once the composite column is gone, a second split fails.
func SplitComposite(t *Table, cfg SplitConfig) error {
	if len(cfg.Names) != len(cfg.Values) {
		return fmt.Errorf("split config: %d channel names but %d bit values",
			len(cfg.Names), len(cfg.Values))
	}
	composite, err := t.Column(cfg.Channel)
	if err != nil {
		return err
	}
	valid, err := t.Valid(cfg.Channel)
	if err != nil {
		return err
	}

	ints := make([]int, len(composite))
	for i, v := range composite {
		if valid[i] {
			ints[i] = int(math.Round(v))
		}
	}
	for j, name := range cfg.Names {
		bit := cfg.Values[j]
		col := make([]float64, len(ints))
		for i, c := range ints {
			if c&bit != 0 {
				col[i] = float64(bit)
			}
		}
		if err := t.SetColumn(name, col, nil); err != nil {
			return err
		}
	}
	return t.DropColumn(cfg.Channel)
}
