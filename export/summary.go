package export

import (
	"bytes"
	"encoding/json"
	"os"

	fitenergy "github.com/lucasjlepore/fit-energy"
)

// MarshalSummary renders the summary as indented JSON. The no-data sentinel
// becomes a single note object.
func MarshalSummary(summary *fitenergy.Summary) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteSummaryFile writes the summary JSON to path.
func WriteSummaryFile(path string, summary *fitenergy.Summary) error {
	data, err := MarshalSummary(summary)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSummaryFile loads a summary written by WriteSummaryFile.
func ReadSummaryFile(path string) (*fitenergy.Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s fitenergy.Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
