package trigalign

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"
)

// TimestampColumn is the name of the shared time column in every long and
// wide table this package produces.
const TimestampColumn = "lsl_timestamp"

// LongRow is one received sample in long (event-log) form: the source
// timestamp, the identity of the stream it came from, and one value per
// channel. Rows from narrow streams carry fewer values than the table is
// wide; the missing trailing cells are absent, not zero.
type LongRow struct {
	Timestamp float64
	Stream    string
	Values    []float64
}

// Recorder drains several StreamReaders into one long-format CSV for a fixed
// wall-clock duration. Reads are round-robin and non-blocking; a source with
// no sample ready is simply skipped this pass. A source that returns an
// error is dropped with a logged warning while the others continue.
type Recorder struct {
	Sources  []StreamReader
	Duration time.Duration
}

// longHeader builds the long-format CSV header for nchan value columns.
func longHeader(nchan int) []string {
	header := []string{TimestampColumn, "stream_name"}
	for i := 1; i <= nchan; i++ {
		header = append(header, fmt.Sprintf("value_ch%d", i))
	}
	return header
}

// Record polls all sources until the duration elapses or abort is closed,
// writing one CSV row per received sample to filename. On abort the rows
// collected so far are flushed; there are no partial rows. Returns the
// number of sample rows written.
func (r *Recorder) Record(filename string, abort <-chan struct{}) (int, error) {
	if len(r.Sources) == 0 {
		return 0, fmt.Errorf("no sources to record")
	}
	maxChan := 0
	for _, src := range r.Sources {
		if nc := src.Info().ChannelCount; nc > maxChan {
			maxChan = nc
		}
	}

	f, err := os.Create(filename)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	defer bw.Flush()
	w := csv.NewWriter(bw)
	defer w.Flush()

	if err := w.Write(longHeader(maxChan)); err != nil {
		return 0, err
	}

	active := make([]StreamReader, len(r.Sources))
	copy(active, r.Sources)
	deadline := time.After(r.Duration)
	nrows := 0
	row := make([]string, 2+maxChan)
	for {
		select {
		case <-deadline:
			return nrows, nil
		case <-abort:
			UpdateLogger.Printf("recording interrupted after %d rows; flushing", nrows)
			return nrows, nil
		default:
		}
		idle := true
		for i := 0; i < len(active); i++ {
			src := active[i]
			values, timestamp, ok, err := src.PullSample()
			if err != nil {
				ProblemLogger.Printf("source %q failed, dropping it: %v", src.Info().Name, err)
				active = append(active[:i], active[i+1:]...)
				i--
				continue
			}
			if !ok {
				continue
			}
			idle = false
			row[0] = strconv.FormatFloat(timestamp, 'f', -1, 64)
			row[1] = src.Info().Name
			for j := 0; j < maxChan; j++ {
				if j < len(values) {
					row[2+j] = strconv.FormatFloat(values[j], 'f', -1, 64)
				} else {
					row[2+j] = ""
				}
			}
			if err := w.Write(row); err != nil {
				return nrows, err
			}
			nrows++
		}
		if len(active) == 0 {
			return nrows, fmt.Errorf("all %d sources failed during recording", len(r.Sources))
		}
		if idle {
			time.Sleep(200 * time.Microsecond)
		}
	}
}

// ReadLongCSV parses a long-format CSV back into rows. Empty value cells
// become NaN, so a partition can later tell a narrow stream's unused columns
// from real zeros.
func ReadLongCSV(filename string) ([]LongRow, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading long CSV header: %v", err)
	}
	if len(header) < 2 || header[0] != TimestampColumn || header[1] != "stream_name" {
		return nil, fmt.Errorf("unexpected long CSV header %v", header)
	}

	var rows []LongRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		timestamp, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("bad timestamp %q: %v", record[0], err)
		}
		values := make([]float64, len(record)-2)
		for j, cell := range record[2:] {
			if cell == "" {
				values[j] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("bad value %q in row %d: %v", cell, len(rows), err)
			}
			values[j] = v
		}
		rows = append(rows, LongRow{Timestamp: timestamp, Stream: record[1], Values: values})
	}
	return rows, nil
}
