package fitenergy

import (
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/s2"
)

const (
	// SemicirclesToDegreesFactor converts FIT semicircles to decimal degrees.
	SemicirclesToDegreesFactor = 180.0 / (1 << 31)

	// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
	EarthRadiusMeters = 6371000.0
)

// SemicirclesToDegrees converts a raw FIT position to decimal degrees.
// Anything that is not a finite number yields nil.
func SemicirclesToDegrees(raw any) *float64 {
	v := toFloat(raw)
	if v == nil {
		return nil
	}
	deg := *v * SemicirclesToDegreesFactor
	return &deg
}

// HaversineMeters returns the great-circle distance between two positions in
// meters, or 0 when any coordinate is missing.
func HaversineMeters(lat1, lon1, lat2, lon2 *float64) float64 {
	if lat1 == nil || lon1 == nil || lat2 == nil || lon2 == nil {
		return 0
	}
	p1 := s2.LatLngFromDegrees(*lat1, *lon1)
	p2 := s2.LatLngFromDegrees(*lat2, *lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// toFloat is the fail-closed numeric conversion used for every decoded field.
func toFloat(v any) *float64 {
	var out float64
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		out = x
	case float32:
		out = float64(x)
	case int:
		out = float64(x)
	case int8:
		out = float64(x)
	case int16:
		out = float64(x)
	case int32:
		out = float64(x)
	case int64:
		out = float64(x)
	case uint:
		out = float64(x)
	case uint8:
		out = float64(x)
	case uint16:
		out = float64(x)
	case uint32:
		out = float64(x)
	case uint64:
		out = float64(x)
	case *float64:
		if x == nil {
			return nil
		}
		out = *x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		out = f
	default:
		return nil
	}
	if !isFinite(out) {
		return nil
	}
	return &out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func floatPtr(v float64) *float64 {
	out := v
	return &out
}
