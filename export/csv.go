// Package export writes the per-sample table and the summary record.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	fitenergy "github.com/lucasjlepore/fit-energy"
)

const (
	fieldSeparator  = ';'
	decimalMark     = ","
	timestampLayout = "2006-01-02T15:04:05-0700"
)

// TableColumns is the fixed column order of the sample table.
var TableColumns = []string{
	"timestamp_iso",
	"latitude_deg", "longitude_deg", "altitude_m", "speed_m_s",
	"distance_m", "heart_rate_bpm", "cadence_rpm", "power_w", "temperature_c",
}

// ErrBadTable is returned by ReadTable for input it cannot interpret.
var ErrBadTable = errors.New("malformed sample table")

// WriteTableFile writes the sample table to path.
func WriteTableFile(path string, series fitenergy.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTable(f, series); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// MarshalTable renders the sample table in memory.
func MarshalTable(series fitenergy.Series) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteTable(&buf, series); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTable writes one row per sample: semicolon separated, comma decimal,
// local time stamps, empty cells for absent values.
func WriteTable(w io.Writer, series fitenergy.Series) error {
	cw := csv.NewWriter(w)
	cw.Comma = fieldSeparator
	if err := cw.Write(TableColumns); err != nil {
		return err
	}
	for _, s := range series {
		ts := ""
		if s.HasTime() {
			ts = fitenergy.FormatLocal(s.Timestamp)
		}
		row := []string{
			ts,
			formatCell(s.LatitudeDeg),
			formatCell(s.LongitudeDeg),
			formatCell(s.AltitudeM),
			formatCell(s.SpeedMPS),
			formatCell(s.DistanceM),
			formatCell(s.HeartRateBPM),
			formatCell(s.CadenceRPM),
			formatCell(s.PowerW),
			formatCell(s.TemperatureC),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return ""
	}
	return strings.Replace(formatFloat(*v), ".", decimalMark, 1)
}

// formatFloat renders the shortest representation that round-trips, always
// with a fractional part, switching to exponent form outside [1e-4, 1e16).
func formatFloat(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	if math.IsInf(v, -1) {
		return "-inf"
	}
	if v == 0 {
		if math.Signbit(v) {
			return "-0.0"
		}
		return "0.0"
	}

	sci := strconv.FormatFloat(v, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err != nil || exp < -4 || exp >= 16 {
		return sci
	}
	out := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}

// ReadTable parses a table written by WriteTable back into a series. Cells are
// read as written; no reconstruction is applied.
func ReadTable(r io.Reader) (fitenergy.Series, error) {
	cr := csv.NewReader(r)
	cr.Comma = fieldSeparator
	cr.FieldsPerRecord = len(TableColumns)

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrBadTable)
		}
		return nil, fmt.Errorf("%w: %v", ErrBadTable, err)
	}
	for i, col := range TableColumns {
		if header[i] != col {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrBadTable, i, header[i], col)
		}
	}

	var series fitenergy.Series
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadTable, err)
		}
		s, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadTable, line, err)
		}
		series = append(series, s)
	}
	return series, nil
}

// ReadTableFile is ReadTable on the file at path.
func ReadTableFile(path string) (fitenergy.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTable(f)
}

func parseRow(row []string) (fitenergy.Sample, error) {
	var s fitenergy.Sample
	if ts := strings.TrimSpace(row[0]); ts != "" {
		t, err := parseTimestamp(ts)
		if err != nil {
			return s, err
		}
		s.Timestamp = t
	}

	targets := []**float64{
		&s.LatitudeDeg, &s.LongitudeDeg, &s.AltitudeM, &s.SpeedMPS,
		&s.DistanceM, &s.HeartRateBPM, &s.CadenceRPM, &s.PowerW, &s.TemperatureC,
	}
	for i, dst := range targets {
		v, err := parseCell(row[i+1])
		if err != nil {
			return s, fmt.Errorf("%s: %w", TableColumns[i+1], err)
		}
		*dst = v
	}
	return s, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", raw, err)
	}
	return t.UTC(), nil
}

func parseCell(cell string) (*float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.Replace(cell, decimalMark, ".", 1), 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
