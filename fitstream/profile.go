package fitstream

import (
	"time"

	fitenergy "github.com/lucasjlepore/fit-energy"
)

// FIT global message numbers the lenient reader keeps.
const (
	mesgNumSession uint16 = 18
	mesgNumLap     uint16 = 19
	mesgNumRecord  uint16 = 20

	fieldNumTimestamp uint8 = 253
)

var fitEpoch = time.Date(1989, 12, 31, 0, 0, 0, 0, time.UTC)

type fieldSemantic struct {
	name   string
	scaler func(decoded any) (any, bool)
}

var kindByMessage = map[uint16]fitenergy.MessageKind{
	mesgNumSession: fitenergy.KindSession,
	mesgNumLap:     fitenergy.KindLap,
	mesgNumRecord:  fitenergy.KindRecord,
}

var semanticsByMessage = map[uint16]map[uint8]fieldSemantic{
	mesgNumSession: {
		253: {name: "timestamp", scaler: scaleTimestamp},
		2:   {name: "start_time", scaler: scaleTimestamp},
		5:   {name: "sport"},
		6:   {name: "sub_sport"},
		7:   {name: "total_elapsed_time", scaler: scaleBy(1000, 0)},
		8:   {name: "total_timer_time", scaler: scaleBy(1000, 0)},
		9:   {name: "total_distance", scaler: scaleBy(100, 0)},
		11:  {name: "total_calories"},
		14:  {name: "avg_speed", scaler: scaleBy(1000, 0)},
		15:  {name: "max_speed", scaler: scaleBy(1000, 0)},
		16:  {name: "avg_heart_rate"},
		17:  {name: "max_heart_rate"},
		18:  {name: "avg_cadence"},
		19:  {name: "max_cadence"},
		20:  {name: "avg_power"},
		21:  {name: "max_power"},
		22:  {name: "total_ascent"},
		23:  {name: "total_descent"},
		34:  {name: "normalized_power"},
		45:  {name: "threshold_power"},
		48:  {name: "total_work"},
		59:  {name: "total_moving_time", scaler: scaleBy(1000, 0)},
	},
	mesgNumLap: {
		253: {name: "timestamp", scaler: scaleTimestamp},
		2:   {name: "start_time", scaler: scaleTimestamp},
		7:   {name: "total_elapsed_time", scaler: scaleBy(1000, 0)},
		8:   {name: "total_timer_time", scaler: scaleBy(1000, 0)},
		9:   {name: "total_distance", scaler: scaleBy(100, 0)},
		13:  {name: "avg_speed", scaler: scaleBy(1000, 0)},
		14:  {name: "max_speed", scaler: scaleBy(1000, 0)},
		15:  {name: "avg_heart_rate"},
		16:  {name: "max_heart_rate"},
		17:  {name: "avg_cadence"},
		18:  {name: "max_cadence"},
		19:  {name: "avg_power"},
		20:  {name: "max_power"},
	},
	mesgNumRecord: {
		253: {name: "timestamp", scaler: scaleTimestamp},
		0:   {name: "position_lat"},
		1:   {name: "position_long"},
		2:   {name: "altitude", scaler: scaleBy(5, 500)},
		3:   {name: "heart_rate"},
		4:   {name: "cadence"},
		5:   {name: "distance", scaler: scaleBy(100, 0)},
		6:   {name: "speed", scaler: scaleBy(1000, 0)},
		7:   {name: "power"},
		13:  {name: "temperature"},
		73:  {name: "enhanced_speed", scaler: scaleBy(1000, 0)},
		78:  {name: "enhanced_altitude", scaler: scaleBy(5, 500)},
	},
}

func semanticForField(global uint16, field uint8) (fieldSemantic, bool) {
	m, ok := semanticsByMessage[global]
	if !ok {
		return fieldSemantic{}, false
	}
	s, ok := m[field]
	return s, ok
}

func scaleBy(scale, offset float64) func(any) (any, bool) {
	return func(decoded any) (any, bool) {
		switch v := decoded.(type) {
		case float64:
			return (v / scale) - offset, true
		case int8:
			return (float64(v) / scale) - offset, true
		case int16:
			return (float64(v) / scale) - offset, true
		case int32:
			return (float64(v) / scale) - offset, true
		case int64:
			return (float64(v) / scale) - offset, true
		case uint8:
			return (float64(v) / scale) - offset, true
		case uint16:
			return (float64(v) / scale) - offset, true
		case uint32:
			return (float64(v) / scale) - offset, true
		case uint64:
			return (float64(v) / scale) - offset, true
		default:
			return nil, false
		}
	}
}

func scaleTimestamp(decoded any) (any, bool) {
	raw, ok := asTimestampRaw(decoded)
	if !ok {
		return nil, false
	}
	return fitTimestampToUTC(raw), true
}

func fitTimestampToUTC(ts uint32) time.Time {
	return fitEpoch.Add(time.Duration(ts) * time.Second)
}

func asTimestampRaw(v any) (uint32, bool) {
	switch x := v.(type) {
	case uint32:
		if x == 0xFFFFFFFF {
			return 0, false
		}
		return x, true
	case uint64:
		if x > 0xFFFFFFFE {
			return 0, false
		}
		return uint32(x), true
	}
	return 0, false
}
