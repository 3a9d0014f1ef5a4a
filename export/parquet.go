//go:build !js

package export

import (
	"math"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	fitenergy "github.com/lucasjlepore/fit-energy"
)

// ParquetAvailable reports whether this build can write parquet tables.
const ParquetAvailable = true

type sampleParquetRow struct {
	TimestampISO string  `parquet:"name=timestamp_iso, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	LatitudeDeg  float64 `parquet:"name=latitude_deg, type=DOUBLE"`
	LongitudeDeg float64 `parquet:"name=longitude_deg, type=DOUBLE"`
	AltitudeM    float64 `parquet:"name=altitude_m, type=DOUBLE"`
	SpeedMPS     float64 `parquet:"name=speed_m_s, type=DOUBLE"`
	DistanceM    float64 `parquet:"name=distance_m, type=DOUBLE"`
	HeartRateBPM float64 `parquet:"name=heart_rate_bpm, type=DOUBLE"`
	CadenceRPM   float64 `parquet:"name=cadence_rpm, type=DOUBLE"`
	PowerW       float64 `parquet:"name=power_w, type=DOUBLE"`
	TemperatureC float64 `parquet:"name=temperature_c, type=DOUBLE"`
}

// WriteParquetFile writes the sample table as a SNAPPY compressed parquet
// file. Absent values are stored as NaN.
func WriteParquetFile(path string, series fitenergy.Series) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	if err := writeParquet(fw, series); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

// MarshalParquet renders the parquet table in memory.
func MarshalParquet(series fitenergy.Series) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	if err := writeParquet(fw, series); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

func writeParquet(fw source.ParquetFile, series fitenergy.Series) error {
	pw, err := writer.NewParquetWriter(fw, new(sampleParquetRow), 4)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, s := range series {
		row := sampleParquetRow{
			LatitudeDeg:  valueOrNaN(s.LatitudeDeg),
			LongitudeDeg: valueOrNaN(s.LongitudeDeg),
			AltitudeM:    valueOrNaN(s.AltitudeM),
			SpeedMPS:     valueOrNaN(s.SpeedMPS),
			DistanceM:    valueOrNaN(s.DistanceM),
			HeartRateBPM: valueOrNaN(s.HeartRateBPM),
			CadenceRPM:   valueOrNaN(s.CadenceRPM),
			PowerW:       valueOrNaN(s.PowerW),
			TemperatureC: valueOrNaN(s.TemperatureC),
		}
		if s.HasTime() {
			row.TimestampISO = fitenergy.FormatLocal(s.Timestamp)
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return err
		}
	}
	return pw.WriteStop()
}

// ReadParquetFile loads a table written by WriteParquetFile.
func ReadParquetFile(path string) (fitenergy.Series, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, err
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(sampleParquetRow), 4)
	if err != nil {
		return nil, err
	}
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	rows := make([]sampleParquetRow, n)
	if n > 0 {
		if err := pr.Read(&rows); err != nil {
			return nil, err
		}
	}

	series := make(fitenergy.Series, 0, n)
	for _, row := range rows {
		s := fitenergy.Sample{
			LatitudeDeg:  nanToNil(row.LatitudeDeg),
			LongitudeDeg: nanToNil(row.LongitudeDeg),
			AltitudeM:    nanToNil(row.AltitudeM),
			SpeedMPS:     nanToNil(row.SpeedMPS),
			DistanceM:    nanToNil(row.DistanceM),
			HeartRateBPM: nanToNil(row.HeartRateBPM),
			CadenceRPM:   nanToNil(row.CadenceRPM),
			PowerW:       nanToNil(row.PowerW),
			TemperatureC: nanToNil(row.TemperatureC),
		}
		if row.TimestampISO != "" {
			if s.Timestamp, err = parseTimestamp(row.TimestampISO); err != nil {
				return nil, err
			}
		}
		series = append(series, s)
	}
	return series, nil
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func nanToNil(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
