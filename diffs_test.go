package trigalign

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	assert.Equal(t, []float64{1, 2, -3}, Diff([]float64{0, 1, 3, 0}))
	assert.Nil(t, Diff([]float64{5}))
	assert.Nil(t, Diff(nil))
}

func TestFindSpikes(t *testing.T) {
	var tests = []struct {
		name     string
		x        []float64
		height   float64
		distance int
		want     []int
	}{
		{"no spikes", []float64{0.003, 0.003, 0.003}, 0.01, 5, nil},
		{"one spike", []float64{0.003, 0.02, 0.003, 0.003}, 0.01, 5, []int{1}},
		{"below height", []float64{0.003, 0.008, 0.003}, 0.01, 5, nil},
		{"distance keeps taller", []float64{0, 0.02, 0, 0.05, 0, 0, 0, 0, 0}, 0.01, 5, []int{3}},
		{"far apart both kept", []float64{0, 0.02, 0, 0, 0, 0, 0, 0.03, 0}, 0.01, 5, []int{1, 7}},
		{"edges never peak", []float64{0.5, 0, 0, 0.5}, 0.01, 1, nil},
	}
	for _, test := range tests {
		got := FindSpikes(test.x, test.height, test.distance)
		if len(got) != len(test.want) {
			t.Errorf("%s: FindSpikes = %v, want %v", test.name, got, test.want)
			continue
		}
		for i := range got {
			if got[i] != test.want[i] {
				t.Errorf("%s: FindSpikes = %v, want %v", test.name, got, test.want)
				break
			}
		}
	}
}
