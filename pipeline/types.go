package pipeline

import (
	"log/slog"

	fitenergy "github.com/lucasjlepore/fit-energy"
)

// Options configures a file based run.
type Options struct {
	FitPath string
	OutDir  string // defaults to the directory of FitPath
	Format  string // csv|parquet
	Inputs  fitenergy.Inputs
	Logger  *slog.Logger
}

// Result returns generated output paths and the computed summary.
type Result struct {
	TablePath      string                   `json:"table_path"`
	SummaryPath    string                   `json:"summary_path"`
	Summary        *fitenergy.Summary       `json:"summary"`
	Decoder        string                   `json:"decoder"`
	Warnings       []string                 `json:"warnings,omitempty"`
	Reconstruction fitenergy.Reconstruction `json:"-"`
	SampleCount    int                      `json:"sample_count"`
	SessionCount   int                      `json:"session_count"`
	LapCount       int                      `json:"lap_count"`
}

// BytesOptions configures an in-memory run.
type BytesOptions struct {
	SourceFileName string
	FitData        []byte
	Format         string // csv|parquet
	Inputs         fitenergy.Inputs
	Logger         *slog.Logger
}

// BytesResult carries the generated artifacts keyed by file name.
type BytesResult struct {
	Files    map[string][]byte
	Summary  *fitenergy.Summary
	Report   string
	Decoder  string
	Warnings []string
}
