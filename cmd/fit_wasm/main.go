//go:build js && wasm

package main

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"syscall/js"
	"time"

	fitenergy "github.com/lucasjlepore/fit-energy"
	"github.com/lucasjlepore/fit-energy/export"
	"github.com/lucasjlepore/fit-energy/pipeline"
)

func main() {
	js.Global().Set("analyzeRideEnergy", js.FuncOf(analyzeRideEnergy))
	select {}
}

func analyzeRideEnergy(_ js.Value, args []js.Value) any {
	if len(args) < 2 {
		return map[string]any{
			"ok":    false,
			"error": "expected arguments: fileBytes(Uint8Array), options(object)",
		}
	}
	fileArg := args[0]
	optsArg := args[1]
	if fileArg.IsUndefined() || fileArg.IsNull() || fileArg.Get("length").Int() == 0 {
		return map[string]any{
			"ok":    false,
			"error": "fit file bytes are required",
		}
	}

	fileBytes := make([]byte, fileArg.Get("length").Int())
	if n := js.CopyBytesToGo(fileBytes, fileArg); n == 0 {
		return map[string]any{
			"ok":    false,
			"error": "failed to read FIT bytes from JS input",
		}
	}

	inputs := fitenergy.DefaultInputs()
	inputs.WallEnergyKWh = getFloat(optsArg, "wall_energy_kwh", inputs.WallEnergyKWh)
	inputs.WallToBatteryEffPct = getFloat(optsArg, "wall2battery_eff_pct", inputs.WallToBatteryEffPct)
	inputs.MuscleEffPct = getFloat(optsArg, "muscle_eff_pct", inputs.MuscleEffPct)

	opts := pipeline.BytesOptions{
		SourceFileName: getString(optsArg, "source_file_name", "input.fit"),
		FitData:        fileBytes,
		Format:         getString(optsArg, "format", "csv"),
		Inputs:         inputs,
	}
	result, err := pipeline.RunBytes(opts)
	if err != nil {
		return map[string]any{
			"ok":    false,
			"error": err.Error(),
		}
	}

	summaryJSON, err := export.MarshalSummary(result.Summary)
	if err != nil {
		return map[string]any{
			"ok":    false,
			"error": fmt.Sprintf("render summary: %v", err),
		}
	}

	zipBytes, err := zipArtifacts(result.Files)
	if err != nil {
		return map[string]any{
			"ok":    false,
			"error": fmt.Sprintf("create zip: %v", err),
		}
	}
	payload := js.Global().Get("Uint8Array").New(len(zipBytes))
	js.CopyBytesToJS(payload, zipBytes)

	fileNames := make([]string, 0, len(result.Files))
	for name := range result.Files {
		fileNames = append(fileNames, name)
	}
	sort.Strings(fileNames)

	return map[string]any{
		"ok":       true,
		"zip":      payload,
		"summary":  string(summaryJSON),
		"report":   result.Report,
		"decoder":  result.Decoder,
		"warnings": stringsToAny(result.Warnings),
		"files":    stringsToAny(fileNames),
	}
}

func zipArtifacts(files map[string][]byte) ([]byte, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fixedTime := time.Unix(0, 0).UTC()

	for _, name := range names {
		h := &zip.FileHeader{
			Name:   name,
			Method: zip.Deflate,
		}
		h.SetModTime(fixedTime)
		w, err := zw.CreateHeader(h)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(files[name]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func getString(v js.Value, key, fallback string) string {
	if v.IsUndefined() || v.IsNull() {
		return fallback
	}
	out := v.Get(key)
	if out.IsUndefined() || out.IsNull() {
		return fallback
	}
	s := out.String()
	if s == "" || s == "undefined" || s == "null" {
		return fallback
	}
	return s
}

// getFloat returns fallback when the key is missing and nil when it is
// explicitly null, so callers can switch an input off.
func getFloat(v js.Value, key string, fallback *float64) *float64 {
	if v.IsUndefined() || v.IsNull() {
		return fallback
	}
	out := v.Get(key)
	if out.IsUndefined() {
		return fallback
	}
	if out.IsNull() || out.Type() != js.TypeNumber {
		return nil
	}
	f := out.Float()
	return &f
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
