package trigalign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitComposite(t *testing.T) {
	tab := NewTable()
	require.NoError(t, tab.SetColumn("triggers", []float64{0, 1, 2, 3}, nil))

	cfg := SplitConfig{Channel: "triggers", Names: []string{"A", "B"}, Values: []int{1, 2}}
	require.NoError(t, SplitComposite(tab, cfg))

	a, err := tab.Column("A")
	require.NoError(t, err)
	b, err := tab.Column("B")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0, 1}, a)
	assert.Equal(t, []float64{0, 0, 2, 2}, b)
	assert.False(t, tab.HasColumn("triggers"), "composite column must be dropped")

	// A second split of the same channel must fail: the composite is gone.
	if err := SplitComposite(tab, cfg); err == nil {
		t.Error("second split of an already-split table should fail")
	}
}

func TestSplitCompositeConfigErrors(t *testing.T) {
	tab := NewTable()
	require.NoError(t, tab.SetColumn("triggers", []float64{0, 3}, nil))

	bad := SplitConfig{Channel: "triggers", Names: []string{"A", "B"}, Values: []int{1}}
	if err := SplitComposite(tab, bad); err == nil {
		t.Error("mismatched name/value lengths should be a configuration error")
	}
	// The failed split must not have touched the table.
	assert.True(t, tab.HasColumn("triggers"))
	assert.False(t, tab.HasColumn("A"))
}

func TestSplitCompositeMultipleBits(t *testing.T) {
	tab := NewTable()
	// Value 7 = 1+2+4 activates all three decomposed lines at once.
	require.NoError(t, tab.SetColumn("trg", []float64{0, 7, 4, 5}, nil))
	cfg := SplitConfig{Channel: "trg",
		Names:  []string{"lightdiode", "mmbts", "software"},
		Values: []int{1, 2, 4}}
	require.NoError(t, SplitComposite(tab, cfg))

	light, _ := tab.Column("lightdiode")
	mmbts, _ := tab.Column("mmbts")
	software, _ := tab.Column("software")
	assert.Equal(t, []float64{0, 1, 0, 1}, light)
	assert.Equal(t, []float64{0, 2, 0, 0}, mmbts)
	assert.Equal(t, []float64{0, 4, 4, 4}, software)
}
