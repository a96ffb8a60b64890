package trigalign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentTrials(t *testing.T) {
	// Active runs at 20..22, 50..52, 80. First trial is discarded.
	active := []int{20, 21, 22, 50, 51, 52, 80}
	trials := SegmentTrials(active, TrialConfig{Buffer: 5, Length: 10}, 200)
	require.Len(t, trials, 2)
	assert.Equal(t, Trial{Start: 45, End: 60}, trials[0])
	assert.Equal(t, Trial{Start: 75, End: 90}, trials[1])
}

func TestSegmentTrialsClamps(t *testing.T) {
	// The second run would end past the table edge and is dropped.
	active := []int{20, 90}
	trials := SegmentTrials(active, TrialConfig{Buffer: 5, Length: 10}, 100)
	assert.Len(t, trials, 1)
	assert.Equal(t, Trial{Start: 85, End: 100}, trials[0])

	trials = SegmentTrials(active, TrialConfig{Buffer: 5, Length: 10}, 99)
	assert.Empty(t, trials)

	assert.Empty(t, SegmentTrials(nil, TrialConfig{Buffer: 5, Length: 10}, 100))
}

func TestValidateTrials(t *testing.T) {
	tab := NewTable()
	col := make([]float64, 40)
	col[10], col[11] = 1, 1 // one clean excursion inside [5, 20)
	require.NoError(t, tab.SetColumn("lightdiode", col, nil))

	quiet := make([]float64, 40)
	require.NoError(t, tab.SetColumn("mmbts", quiet, nil))

	trials := []Trial{{Start: 5, End: 20}}
	problems := ValidateTrials(tab, trials, []string{"lightdiode"})
	assert.Empty(t, problems)

	// mmbts never goes active inside the window.
	problems = ValidateTrials(tab, trials, []string{"lightdiode", "mmbts"})
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0].Error(), "mmbts")

	// An excursion still active at the window edge is a violation.
	edge := make([]float64, 40)
	edge[5] = 1
	require.NoError(t, tab.SetColumn("edgecase", edge, nil))
	problems = ValidateTrials(tab, trials, []string{"edgecase"})
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0].Error(), "not quiescent")

	problems = ValidateTrials(tab, trials, []string{"missing"})
	require.Len(t, problems, 1)
}
