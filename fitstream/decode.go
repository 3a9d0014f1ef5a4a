// Package fitstream turns FIT activity files into the field-name keyed message
// stream consumed by the fitenergy extractors.
package fitstream

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/tormoder/fit"

	fitenergy "github.com/lucasjlepore/fit-energy"
)

// Decoder names reported in Stream.Decoder.
const (
	DecoderStrict  = "strict"
	DecoderLenient = "lenient"
)

// Stream is a decoded activity. It implements fitenergy.MessageSource.
type Stream struct {
	Decoder  string
	Warnings []string

	messages map[fitenergy.MessageKind][]fitenergy.Fields
}

func newStream(decoder string) *Stream {
	return &Stream{
		Decoder:  decoder,
		messages: make(map[fitenergy.MessageKind][]fitenergy.Fields),
	}
}

// Messages implements fitenergy.MessageSource.
func (s *Stream) Messages(kind fitenergy.MessageKind) []fitenergy.Fields {
	if s == nil {
		return nil
	}
	return s.messages[kind]
}

func (s *Stream) add(kind fitenergy.MessageKind, f fitenergy.Fields) {
	s.messages[kind] = append(s.messages[kind], f)
}

// Open reads the file at path once and decodes it, falling back to the
// lenient reader when the strict decoder rejects the file.
func Open(path string) (*Stream, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fit file: %w", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes is Open for in-memory file contents.
func DecodeBytes(data []byte) (*Stream, error) {
	stream, strictErr := Decode(bytes.NewReader(data))
	if strictErr == nil {
		return stream, nil
	}

	stream, err := DecodeLenient(data)
	if err != nil {
		return nil, fmt.Errorf("decode fit file: %v; lenient reader: %w", strictErr, err)
	}
	stream.Warnings = append([]string{fmt.Sprintf("strict decoder rejected file: %v", strictErr)}, stream.Warnings...)
	return stream, nil
}

// Decode decodes an activity file with github.com/tormoder/fit.
func Decode(r io.Reader) (*Stream, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode fit file: %w", err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("activity FIT expected: %w", err)
	}

	s := newStream(DecoderStrict)
	for _, rec := range activity.Records {
		if rec == nil {
			continue
		}
		s.add(fitenergy.KindRecord, recordFields(rec))
	}
	for _, ses := range activity.Sessions {
		if ses == nil {
			continue
		}
		s.add(fitenergy.KindSession, sessionFields(ses))
	}
	for _, lap := range activity.Laps {
		if lap == nil {
			continue
		}
		s.add(fitenergy.KindLap, lapFields(lap))
	}
	return s, nil
}

func recordFields(rec *fit.RecordMsg) fitenergy.Fields {
	f := fitenergy.Fields{}
	putTime(f, "timestamp", rec.Timestamp)
	if !rec.PositionLat.Invalid() {
		f["position_lat"] = rec.PositionLat.Semicircles()
	}
	if !rec.PositionLong.Invalid() {
		f["position_long"] = rec.PositionLong.Semicircles()
	}
	putScaled(f, "altitude", rec.GetAltitudeScaled())
	putScaled(f, "enhanced_altitude", rec.GetEnhancedAltitudeScaled())
	putScaled(f, "speed", rec.GetSpeedScaled())
	putScaled(f, "enhanced_speed", rec.GetEnhancedSpeedScaled())
	putScaled(f, "distance", rec.GetDistanceScaled())
	putUint8(f, "heart_rate", rec.HeartRate)
	putUint8(f, "cadence", rec.Cadence)
	putUint16(f, "power", rec.Power)
	if rec.Temperature != math.MaxInt8 {
		f["temperature"] = rec.Temperature
	}
	return f
}

func sessionFields(s *fit.SessionMsg) fitenergy.Fields {
	f := fitenergy.Fields{
		"sport":     fmt.Sprint(s.Sport),
		"sub_sport": fmt.Sprint(s.SubSport),
	}
	putTime(f, "start_time", s.StartTime)
	putTime(f, "timestamp", s.Timestamp)
	putScaled(f, "total_elapsed_time", s.GetTotalElapsedTimeScaled())
	putScaled(f, "total_timer_time", s.GetTotalTimerTimeScaled())
	putScaled(f, "total_moving_time", s.GetTotalMovingTimeScaled())
	putScaled(f, "total_distance", s.GetTotalDistanceScaled())
	putScaled(f, "avg_speed", s.GetAvgSpeedScaled())
	putScaled(f, "max_speed", s.GetMaxSpeedScaled())
	putUint16(f, "total_ascent", s.TotalAscent)
	putUint16(f, "total_descent", s.TotalDescent)
	putUint16(f, "total_calories", s.TotalCalories)
	putUint8(f, "avg_heart_rate", s.AvgHeartRate)
	putUint8(f, "max_heart_rate", s.MaxHeartRate)
	putUint16(f, "avg_power", s.AvgPower)
	putUint16(f, "max_power", s.MaxPower)
	putUint16(f, "normalized_power", s.NormalizedPower)
	putUint16(f, "threshold_power", s.ThresholdPower)
	if s.TotalWork != math.MaxUint32 {
		f["total_work"] = s.TotalWork
	}
	putAny(f, "avg_cadence", s.GetAvgCadence())
	return f
}

func lapFields(lap *fit.LapMsg) fitenergy.Fields {
	f := fitenergy.Fields{}
	putTime(f, "start_time", lap.StartTime)
	putTime(f, "timestamp", lap.Timestamp)
	putScaled(f, "total_elapsed_time", lap.GetTotalElapsedTimeScaled())
	putScaled(f, "total_timer_time", lap.GetTotalTimerTimeScaled())
	putScaled(f, "total_distance", lap.GetTotalDistanceScaled())
	putUint8(f, "avg_heart_rate", lap.AvgHeartRate)
	putUint8(f, "max_heart_rate", lap.MaxHeartRate)
	putUint16(f, "avg_power", lap.AvgPower)
	putUint16(f, "max_power", lap.MaxPower)
	putAny(f, "avg_cadence", lap.GetAvgCadence())
	return f
}

func putTime(f fitenergy.Fields, key string, t time.Time) {
	if t.IsZero() || fit.IsBaseTime(t) {
		return
	}
	f[key] = t.UTC()
}

func putScaled(f fitenergy.Fields, key string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	f[key] = v
}

func putUint8(f fitenergy.Fields, key string, v uint8) {
	if v == math.MaxUint8 {
		return
	}
	f[key] = v
}

func putUint16(f fitenergy.Fields, key string, v uint16) {
	if v == math.MaxUint16 {
		return
	}
	f[key] = v
}

// putAny stores dynamic field values, dropping the invalid sentinels.
func putAny(f fitenergy.Fields, key string, v any) {
	switch x := v.(type) {
	case uint8:
		putUint8(f, key, x)
	case uint16:
		putUint16(f, key, x)
	case float64:
		putScaled(f, key, x)
	}
}
