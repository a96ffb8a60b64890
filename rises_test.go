package trigalign

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindRises(t *testing.T) {
	var tests = []struct {
		values []float64
		want   []int
	}{
		{[]float64{0, 0, 1, 1, 0, 2, 0}, []int{2, 5}},
		{[]float64{0, 0, 0}, nil},
		{[]float64{5, 4, 3}, nil},
		{[]float64{1, 2, 3}, []int{1, 2}},     // every increase counts, no debouncing
		{[]float64{0, 1, 0, 1, 0, 1}, []int{1, 3, 5}}, // one-sample spikes are separate rises
		{[]float64{9}, nil},                   // a lone first row is never a rise
		{nil, nil},
	}
	for _, test := range tests {
		tab := NewTable()
		require.NoError(t, tab.SetColumn("ch", test.values, nil))
		rises, err := FindRises(tab, "ch")
		require.NoError(t, err)
		if len(rises) != len(test.want) {
			t.Errorf("FindRises(%v) = %v, want %v", test.values, rises, test.want)
			continue
		}
		for i := range rises {
			if rises[i] != test.want[i] {
				t.Errorf("FindRises(%v) = %v, want %v", test.values, rises, test.want)
				break
			}
		}
	}
}

func TestFindRisesAbsentCells(t *testing.T) {
	tab := NewTable()
	// A rise over an absent predecessor is undefined, hence not a rise.
	require.NoError(t, tab.SetColumn("ch", []float64{0, 0, 1, 0, 1}, []bool{true, false, true, true, true}))
	rises, err := FindRises(tab, "ch")
	require.NoError(t, err)
	require.Equal(t, []int{4}, rises)

	_, err = FindRises(tab, "missing")
	require.Error(t, err)
}

func TestActiveIndices(t *testing.T) {
	tab := NewTable()
	require.NoError(t, tab.SetColumn("ch", []float64{0, 1, 1, 0, 2}, []bool{true, true, false, true, true}))
	active, err := ActiveIndices(tab, "ch")
	require.NoError(t, err)
	require.Equal(t, []int{1, 4}, active)
}
