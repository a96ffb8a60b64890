// Package widecsv reads and writes the wide-format recording files: a short
// key-value metadata preamble, a header row naming the timestamp column and
// one column per semantic channel, then one row per sample of the primary
// stream. The preamble is a fixed number of "key,value" lines; readers that
// know the count can skip it blind, and this package parses the known keys
// on the way past.
package widecsv

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// PreambleLines is the number of metadata lines written before the header.
const PreambleLines = 5

// Metadata is the preamble contents, one line per field in this order.
type Metadata struct {
	StreamName string
	DAQType    string
	Units      string
	Reference  string
	SampleRate float64
}

// File is a parsed wide-format recording.
type File struct {
	Meta   Metadata
	Header []string
	Rows   [][]float64 // NaN marks an absent cell
}

// Write creates filename with the metadata preamble, the header, and the
// rows. Absent (NaN) cells are written as empty fields.
func Write(filename string, meta Metadata, header []string, rows [][]float64) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	defer bw.Flush()

	preamble := []struct{ key, value string }{
		{"stream_name", meta.StreamName},
		{"daq_type", meta.DAQType},
		{"units", meta.Units},
		{"reference", meta.Reference},
		{"sample_rate", strconv.FormatFloat(meta.SampleRate, 'f', -1, 64)},
	}
	for _, line := range preamble {
		if _, err := fmt.Fprintf(bw, "%s,%s\n", line.key, line.value); err != nil {
			return err
		}
	}

	w := csv.NewWriter(bw)
	defer w.Flush()
	if err := w.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for i, row := range rows {
		if len(row) != len(header) {
			return fmt.Errorf("row %d has %d cells, header has %d columns", i, len(row), len(header))
		}
		for j, v := range row {
			if math.IsNaN(v) {
				record[j] = ""
			} else {
				record[j] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// Read parses filename, skipping skipLines preamble lines before the header.
// Some producer variants write no preamble; pass 0 for those. Known
// metadata keys found in the skipped lines are collected into Meta.
func Read(filename string, skipLines int) (*File, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	out := &File{}
	for i := 0; i < skipLines; i++ {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("preamble line %d of %d: %v", i+1, skipLines, err)
		}
		out.Meta.parseLine(strings.TrimRight(line, "\r\n"))
	}

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %v", err)
	}
	out.Header = header

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]float64, len(header))
		for j := range row {
			if j >= len(record) || record[j] == "" {
				row[j] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %v", len(out.Rows), header[j], err)
			}
			row[j] = v
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func (m *Metadata) parseLine(line string) {
	key, value, found := strings.Cut(line, ",")
	if !found {
		return
	}
	switch key {
	case "stream_name":
		m.StreamName = value
	case "daq_type":
		m.DAQType = value
	case "units":
		m.Units = value
	case "reference":
		m.Reference = value
	case "sample_rate":
		if rate, err := strconv.ParseFloat(value, 64); err == nil {
			m.SampleRate = rate
		}
	}
}
