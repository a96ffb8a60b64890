package trigalign

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sbinet/npyio"

	"github.com/lsltools/trigalign/widecsv"
)

// AnalysisConfig selects the channels of a wide recording to compare and
// how. Source is the ground-truth channel (the photodiode); every target is
// paired against it independently. FixedOffset is subtracted from each raw
// offset, for rigs with a known constant hardware delay. Split, when
// non-nil, decomposes a composite trigger channel before any rises are
// detected. PreambleLines is the metadata line count to skip when reading
// the file; recordings written by this module use widecsv.PreambleLines.
type AnalysisConfig struct {
	TimestampColumn string
	Source          string
	Targets         []string
	FixedOffset     float64
	Split           *SplitConfig
	PreambleLines   int
}

// PairResult is the outcome for one (source, target) channel pair. A target
// whose channel is missing carries Err and empty statistics; that is a
// local failure and does not disturb the other pairs.
type PairResult struct {
	Target       string
	Offsets      []float64
	Stats        OffsetStats
	TrimmedStats OffsetStats
	Err          error
}

// Report is the full outcome of analyzing one recording.
type Report struct {
	Path   string
	Source string
	Pairs  []PairResult
}

// Analyze runs the offset pipeline over an in-memory wide table: optional
// composite split, rise detection on the source and each target, ordinal
// pairing, and summary statistics. Only a missing source channel or a bad
// split configuration is fatal; per-target problems are reported in the
// corresponding PairResult.
func Analyze(t *Table, cfg AnalysisConfig) (*Report, error) {
	if cfg.Split != nil {
		if err := SplitComposite(t, *cfg.Split); err != nil {
			return nil, fmt.Errorf("splitting composite channel: %v", err)
		}
	}
	sourceRises, err := FindRises(t, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("source channel: %v", err)
	}
	UpdateLogger.Printf("found %d rises on source channel %q", len(sourceRises), cfg.Source)

	report := &Report{Source: cfg.Source}
	for _, target := range cfg.Targets {
		result := PairResult{Target: target}
		targetRises, err := FindRises(t, target)
		if err == nil {
			result.Offsets, err = PairOffsets(t, cfg.TimestampColumn, sourceRises, targetRises, cfg.FixedOffset)
		}
		if err != nil {
			ProblemLogger.Printf("pair %s->%s skipped: %v", cfg.Source, target, err)
			result.Err = err
		}
		label := fmt.Sprintf("%s -> %s", cfg.Source, target)
		result.Stats = Summarize(result.Offsets, label)
		result.TrimmedStats = SummarizeTrimmed(result.Offsets, label)
		report.Pairs = append(report.Pairs, result)
	}
	return report, nil
}

// Sampling gaps larger than this (seconds) are worth a warning, provided
// they are spaced out enough not to be one continuous glitch.
const (
	jitterSpikeHeight   = 0.01
	jitterSpikeDistance = 5
)

// AnalyzeFile reads a wide-format CSV and analyzes it.
func AnalyzeFile(path string, cfg AnalysisConfig) (*Report, error) {
	file, err := widecsv.Read(path, cfg.PreambleLines)
	if err != nil {
		return nil, err
	}
	t, err := TableFromRows(file.Header, file.Rows)
	if err != nil {
		return nil, err
	}
	if !t.HasColumn(cfg.TimestampColumn) {
		return nil, fmt.Errorf("file %s has no column %q", path, cfg.TimestampColumn)
	}
	ts, _ := t.Column(cfg.TimestampColumn)
	if gaps := FindSpikes(Diff(ts), jitterSpikeHeight, jitterSpikeDistance); len(gaps) > 0 {
		ProblemLogger.Printf("file %s: %d sampling gap(s) above %.0f ms in column %q",
			path, len(gaps), jitterSpikeHeight*1000, cfg.TimestampColumn)
	}
	report, err := Analyze(t, cfg)
	if err != nil {
		return nil, err
	}
	report.Path = path
	return report, nil
}

// String renders the report as the text shown on the terminal.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Offset analysis of %s (source channel %s)\n", r.Path, r.Source)
	for _, pair := range r.Pairs {
		if pair.Err != nil {
			fmt.Fprintf(&b, "\n%s -> %s: skipped (%v)\n", r.Source, pair.Target, pair.Err)
			continue
		}
		b.WriteString("\n")
		b.WriteString(pair.Stats.Report())
		b.WriteString("\n")
		b.WriteString(pair.TrimmedStats.Report())
		b.WriteString("\n")
	}
	return b.String()
}

// WriteNPY saves each pair's offset series to dir as a numpy file named
// offsets_<target>.npy, for the plotting stage to pick up. Pairs with no
// offsets are skipped.
func (r *Report) WriteNPY(dir string) error {
	for _, pair := range r.Pairs {
		if len(pair.Offsets) == 0 {
			continue
		}
		name := filepath.Join(dir, fmt.Sprintf("offsets_%s.npy", sanitizeName(pair.Target)))
		f, err := os.Create(name)
		if err != nil {
			return err
		}
		if err := npyio.Write(f, pair.Offsets); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %v", name, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		UpdateLogger.Printf("wrote %d offsets to %s", len(pair.Offsets), name)
	}
	return nil
}

func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
