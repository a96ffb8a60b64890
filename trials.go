package trigalign

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
)

// Trial is one stimulus presentation window, in row indices of the wide
// table: Start rows before the trigger onset through End rows after it.
type Trial struct {
	Start int
	End   int
}

// TrialConfig controls how trigger activity is cut into trials.
type TrialConfig struct {
	Buffer int // quiescent rows included before each onset
	Length int // rows from onset to the end of the display window
}

// SegmentTrials cuts the active-sample indices of the ground-truth channel
// into trial windows. A new trial begins wherever consecutive active
// indices are more than one row apart. The first trial is discarded (its
// leading buffer usually predates the recording) and windows that would
// run past either edge of the table are dropped with a warning.
func SegmentTrials(active []int, cfg TrialConfig, nrow int) []Trial {
	var starts []int
	for i, idx := range active {
		if i == 0 || idx-active[i-1] > 1 {
			starts = append(starts, idx-cfg.Buffer)
		}
	}
	var trials []Trial
	for i, start := range starts {
		if i == 0 {
			continue
		}
		end := start + cfg.Length + cfg.Buffer
		if start < 0 || end > nrow {
			ProblemLogger.Printf("trial window [%d, %d) runs outside the table (%d rows); dropping it", start, end, nrow)
			continue
		}
		trials = append(trials, Trial{Start: start, End: end})
	}
	return trials
}

// ValidateTrials checks that every trial is quiescent at both edges and
// active in between on each of the given trigger channels: the first and
// last row must be 0 and some interior row must exceed 0. Violations are
// returned (and logged) per trial; they do not stop validation of the
// remaining trials.
func ValidateTrials(t *Table, trials []Trial, channels []string) []error {
	var problems []error
	for _, ch := range channels {
		col, err := t.Column(ch)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		for ti, trial := range trials {
			if col[trial.Start] != 0 || col[trial.End-1] != 0 {
				err := fmt.Errorf("trial %d: channel %q not quiescent at window edges", ti, ch)
				ProblemLogger.Printf("%v\n%s", err, spew.Sdump(trial))
				problems = append(problems, err)
				continue
			}
			activeInside := false
			for i := trial.Start + 1; i < trial.End-1; i++ {
				if col[i] > 0 {
					activeInside = true
					break
				}
			}
			if !activeInside {
				err := fmt.Errorf("trial %d: channel %q never active inside the window", ti, ch)
				ProblemLogger.Printf("%v\n%s", err, spew.Sdump(trial))
				problems = append(problems, err)
			}
		}
	}
	return problems
}
