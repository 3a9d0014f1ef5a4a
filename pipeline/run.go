// Package pipeline wires decoding, sample extraction, metrics and export into
// a single run over one activity file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	fitenergy "github.com/lucasjlepore/fit-energy"
	"github.com/lucasjlepore/fit-energy/config"
	"github.com/lucasjlepore/fit-energy/export"
	"github.com/lucasjlepore/fit-energy/fitstream"
)

const outputSuffix = "_analysis"

var (
	// ErrNoInput means no FIT path or data was supplied.
	ErrNoInput = errors.New("no fit file given")
	// ErrNotFound means the FIT path does not exist.
	ErrNotFound = errors.New("fit file not found")
)

type analysis struct {
	series   fitenergy.Series
	rec      fitenergy.Reconstruction
	sessions int
	laps     int
	summary  *fitenergy.Summary
}

// Run decodes the file at opts.FitPath, computes the summary and writes the
// sample table and summary JSON as <stem>_analysis.* next to the input, or
// into opts.OutDir when set.
func Run(ctx context.Context, opts Options) (*Result, error) {
	log := loggerOrDiscard(opts.Logger)

	path := strings.TrimSpace(opts.FitPath)
	if path == "" {
		return nil, ErrNoInput
	}
	format, err := normalizeFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat fit file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("fit path is a directory: %s", path)
	}

	stream, err := fitstream.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	logDecode(log, path, stream)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a := analyze(stream, opts.Inputs, log)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outDir := opts.OutDir
	if strings.TrimSpace(outDir) == "" {
		outDir = filepath.Dir(path)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	stem := outputStem(path)

	tablePath := filepath.Join(outDir, stem+"."+format)
	switch format {
	case config.FormatParquet:
		err = export.WriteParquetFile(tablePath, a.series)
	default:
		err = export.WriteTableFile(tablePath, a.series)
	}
	if err != nil {
		return nil, fmt.Errorf("write table: %w", err)
	}

	summaryPath := filepath.Join(outDir, stem+".json")
	if err := export.WriteSummaryFile(summaryPath, a.summary); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}
	log.Info("outputs written", "table", tablePath, "summary", summaryPath)

	return &Result{
		TablePath:      tablePath,
		SummaryPath:    summaryPath,
		Summary:        a.summary,
		Decoder:        stream.Decoder,
		Warnings:       stream.Warnings,
		Reconstruction: a.rec,
		SampleCount:    len(a.series),
		SessionCount:   a.sessions,
		LapCount:       a.laps,
	}, nil
}

// RunBytes is Run for file contents already in memory. Artifacts are returned
// instead of written.
func RunBytes(opts BytesOptions) (*BytesResult, error) {
	log := loggerOrDiscard(opts.Logger)

	if len(opts.FitData) == 0 {
		return nil, ErrNoInput
	}
	format, err := normalizeFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(opts.SourceFileName)
	if name == "" {
		name = "input.fit"
	}
	stream, err := fitstream.DecodeBytes(opts.FitData)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	logDecode(log, name, stream)

	a := analyze(stream, opts.Inputs, log)
	stem := outputStem(name)

	var table []byte
	switch format {
	case config.FormatParquet:
		table, err = export.MarshalParquet(a.series)
	default:
		table, err = export.MarshalTable(a.series)
	}
	if err != nil {
		return nil, fmt.Errorf("render table: %w", err)
	}
	summary, err := export.MarshalSummary(a.summary)
	if err != nil {
		return nil, fmt.Errorf("render summary: %w", err)
	}

	return &BytesResult{
		Files: map[string][]byte{
			stem + "." + format: table,
			stem + ".json":      summary,
		},
		Summary:  a.summary,
		Report:   fitenergy.BuildReport(a.summary),
		Decoder:  stream.Decoder,
		Warnings: stream.Warnings,
	}, nil
}

func analyze(src fitenergy.MessageSource, in fitenergy.Inputs, log *slog.Logger) analysis {
	series, rec := fitenergy.ExtractSamples(src)
	agg := fitenergy.ExtractAggregates(src)
	log.Debug("samples extracted",
		"samples", len(series),
		"sessions", len(agg.Sessions),
		"laps", len(agg.Laps),
		"rebuilt_distance", rec.Distance,
		"rebuilt_speed", rec.Speed,
		"filled_altitude", rec.Altitude,
	)

	summary := fitenergy.ComputeMetrics(series, agg, in)
	if summary.NoData() {
		log.Warn("no record data found")
	}
	return analysis{
		series:   series,
		rec:      rec,
		sessions: len(agg.Sessions),
		laps:     len(agg.Laps),
		summary:  summary,
	}
}

func logDecode(log *slog.Logger, source string, stream *fitstream.Stream) {
	log.Info("fit decoded",
		"source", source,
		"decoder", stream.Decoder,
		"records", len(stream.Messages(fitenergy.KindRecord)),
	)
	for _, w := range stream.Warnings {
		log.Warn("decode warning", "source", source, "warning", w)
	}
}

func normalizeFormat(format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "":
		return config.FormatCSV, nil
	case config.FormatCSV:
		return format, nil
	case config.FormatParquet:
		if !export.ParquetAvailable {
			return "", fmt.Errorf("%w: parquet is not available in this build", config.ErrUnsupportedFormat)
		}
		return format, nil
	default:
		return "", fmt.Errorf("%w %q (expected csv|parquet)", config.ErrUnsupportedFormat, format)
	}
}

func outputStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + outputSuffix
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
