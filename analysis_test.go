package trigalign

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sbinet/npyio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lsltools/trigalign/widecsv"
)

// flashTable builds a wide table with a photodiode channel and two trigger
// channels whose rises lag the diode by one and two rows (10 ms per row).
func flashTable(t *testing.T) *Table {
	t.Helper()
	const nrow = 100
	ts := make([]float64, nrow)
	diode := make([]float64, nrow)
	hardware := make([]float64, nrow)
	software := make([]float64, nrow)
	for i := 0; i < nrow; i++ {
		ts[i] = 50.0 + 0.01*float64(i)
	}
	for _, onset := range []int{10, 40, 70} {
		diode[onset], diode[onset+1] = 1, 1
		hardware[onset+1] = 2
		software[onset+2] = 4
	}
	tab := NewTable()
	require.NoError(t, tab.SetColumn(TimestampColumn, ts, nil))
	require.NoError(t, tab.SetColumn("lightdiode", diode, nil))
	require.NoError(t, tab.SetColumn("mmbts", hardware, nil))
	require.NoError(t, tab.SetColumn("software", software, nil))
	return tab
}

func TestAnalyze(t *testing.T) {
	cfg := AnalysisConfig{
		TimestampColumn: TimestampColumn,
		Source:          "lightdiode",
		Targets:         []string{"mmbts", "software"},
	}
	report, err := Analyze(flashTable(t), cfg)
	require.NoError(t, err)
	require.Len(t, report.Pairs, 2)

	mmbts := report.Pairs[0]
	require.NoError(t, mmbts.Err)
	require.Len(t, mmbts.Offsets, 3)
	assert.InDelta(t, 0.01, mmbts.Stats.Mean, 1e-9)

	software := report.Pairs[1]
	require.Len(t, software.Offsets, 3)
	assert.InDelta(t, 0.02, software.Stats.Mean, 1e-9)
}

func TestAnalyzeWithSplit(t *testing.T) {
	// Same scenario but the two trigger lines arrive packed into one
	// composite channel; rows where both are active carry the bit sum.
	tab := flashTable(t)
	hardware, _ := tab.Column("mmbts")
	software, _ := tab.Column("software")
	composite := make([]float64, len(hardware))
	for i := range composite {
		composite[i] = hardware[i] + software[i]
	}
	require.NoError(t, tab.SetColumn("triggers", composite, nil))
	require.NoError(t, tab.DropColumn("mmbts"))
	require.NoError(t, tab.DropColumn("software"))

	cfg := AnalysisConfig{
		TimestampColumn: TimestampColumn,
		Source:          "lightdiode",
		Targets:         []string{"hw", "sw"},
		Split: &SplitConfig{Channel: "triggers",
			Names: []string{"hw", "sw"}, Values: []int{2, 4}},
	}
	report, err := Analyze(tab, cfg)
	require.NoError(t, err)
	require.Len(t, report.Pairs, 2)
	assert.InDelta(t, 0.01, report.Pairs[0].Stats.Mean, 1e-9)
	assert.InDelta(t, 0.02, report.Pairs[1].Stats.Mean, 1e-9)
}

func TestAnalyzeMissingTargetIsLocal(t *testing.T) {
	cfg := AnalysisConfig{
		TimestampColumn: TimestampColumn,
		Source:          "lightdiode",
		Targets:         []string{"no_such_channel", "mmbts"},
	}
	report, err := Analyze(flashTable(t), cfg)
	require.NoError(t, err, "a missing target must not abort the analysis")
	require.Len(t, report.Pairs, 2)
	assert.Error(t, report.Pairs[0].Err)
	assert.NoError(t, report.Pairs[1].Err)
	assert.Len(t, report.Pairs[1].Offsets, 3)

	text := report.String()
	assert.Contains(t, text, "skipped")
	assert.Contains(t, text, "mmbts")
}

func TestAnalyzeMissingSourceIsFatal(t *testing.T) {
	cfg := AnalysisConfig{
		TimestampColumn: TimestampColumn,
		Source:          "nope",
		Targets:         []string{"mmbts"},
	}
	_, err := Analyze(flashTable(t), cfg)
	require.Error(t, err)
}

func TestAnalyzeFileRoundTrip(t *testing.T) {
	tab := flashTable(t)
	filename := filepath.Join(t.TempDir(), "session.csv")
	meta := widecsv.Metadata{StreamName: "WS-default", DAQType: "ZMQ",
		Units: "seconds", Reference: "none", SampleRate: 100}
	require.NoError(t, widecsv.Write(filename, meta, tab.ColumnNames(), tab.Rows()))

	cfg := AnalysisConfig{
		TimestampColumn: TimestampColumn,
		Source:          "lightdiode",
		Targets:         []string{"mmbts"},
		PreambleLines:   widecsv.PreambleLines,
	}
	report, err := AnalyzeFile(filename, cfg)
	require.NoError(t, err)
	assert.Equal(t, filename, report.Path)
	require.Len(t, report.Pairs, 1)
	assert.InDelta(t, 0.01, report.Pairs[0].Stats.Mean, 1e-9)
}

func TestAnalyzeFileMissingTimestamp(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "bare.csv")
	require.NoError(t, os.WriteFile(filename, []byte("a,b\n1,2\n"), 0644))
	cfg := AnalysisConfig{TimestampColumn: TimestampColumn, Source: "a", Targets: []string{"b"}}
	_, err := AnalyzeFile(filename, cfg)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), TimestampColumn))
}

func TestReportWriteNPY(t *testing.T) {
	cfg := AnalysisConfig{
		TimestampColumn: TimestampColumn,
		Source:          "lightdiode",
		Targets:         []string{"mmbts"},
	}
	report, err := Analyze(flashTable(t), cfg)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, report.WriteNPY(dir))

	f, err := os.Open(filepath.Join(dir, "offsets_mmbts.npy"))
	require.NoError(t, err)
	defer f.Close()
	var back []float64
	require.NoError(t, npyio.Read(f, &back))
	require.Len(t, back, 3)
	assert.InDelta(t, 0.01, back[0], 1e-9)
}
