package fitenergy

import (
	"sort"
	"strings"
	"time"
)

// minAltitudeSamplesForFill is the number of real altitudes that must be
// exceeded before gaps are interpolated.
const minAltitudeSamplesForFill = 5

// Sample is one telemetry observation. Pointer fields are nil when the file
// did not carry a usable value.
type Sample struct {
	Timestamp    time.Time // UTC; zero when the record had no timestamp
	LatitudeDeg  *float64
	LongitudeDeg *float64
	AltitudeM    *float64
	SpeedMPS     *float64
	DistanceM    *float64
	HeartRateBPM *float64
	CadenceRPM   *float64
	PowerW       *float64
	TemperatureC *float64
}

// HasTime reports whether the sample carries a timestamp.
func (s Sample) HasTime() bool {
	return !s.Timestamp.IsZero()
}

// Series is the time-ordered sample sequence of one activity.
type Series []Sample

// Reconstruction reports which derived columns were rebuilt.
type Reconstruction struct {
	Distance bool
	Speed    bool
	Altitude bool
}

// ExtractSamples reads every record message of src into a sorted Series and
// rebuilds distance, speed and altitude where the native columns are unusable.
func ExtractSamples(src MessageSource) (Series, Reconstruction) {
	if src == nil {
		return nil, Reconstruction{}
	}
	return SamplesFromFields(src.Messages(KindRecord))
}

// SamplesFromFields is ExtractSamples for an already collected message list.
func SamplesFromFields(records []Fields) (Series, Reconstruction) {
	series := make(Series, 0, len(records))
	for _, f := range records {
		series = append(series, sampleFromFields(f))
	}
	if len(series) == 0 {
		return series, Reconstruction{}
	}

	series.sortByTime()
	return series, series.Reconstruct()
}

// Reconstruct runs the three repair passes in place. It is exported so that
// re-imported tables can go through the same treatment.
func (s Series) Reconstruct() Reconstruction {
	var rec Reconstruction
	if len(s) == 0 {
		return rec
	}
	if s.distanceUnusable() {
		s.rebuildDistance()
		rec.Distance = true
	}
	if s.speedMostlyMissing() {
		s.rebuildSpeed()
		rec.Speed = true
	}
	if countPresent(s, func(x Sample) *float64 { return x.AltitudeM }) > minAltitudeSamplesForFill {
		s.fillAltitude()
		rec.Altitude = true
	}
	return rec
}

func sampleFromFields(f Fields) Sample {
	return Sample{
		Timestamp:    timeField(f, "timestamp"),
		LatitudeDeg:  SemicirclesToDegrees(f["position_lat"]),
		LongitudeDeg: SemicirclesToDegrees(f["position_long"]),
		AltitudeM:    firstFloat(f, "enhanced_altitude", "altitude"),
		SpeedMPS:     firstFloat(f, "enhanced_speed", "speed"),
		DistanceM:    toFloat(f["distance"]),
		HeartRateBPM: toFloat(f["heart_rate"]),
		CadenceRPM:   toFloat(f["cadence"]),
		PowerW:       toFloat(f["power"]),
		TemperatureC: toFloat(f["temperature"]),
	}
}

func firstFloat(f Fields, keys ...string) *float64 {
	for _, k := range keys {
		if v := toFloat(f[k]); v != nil {
			return v
		}
	}
	return nil
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// timeField returns the UTC timestamp stored under key. Strings without a
// zone are read as UTC.
func timeField(f Fields, key string) time.Time {
	switch v := f[key].(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}
		}
		return v.UTC()
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}
		}
		return v.UTC()
	case string:
		return parseTimestamp(v)
	default:
		return time.Time{}
	}
}

func parseTimestamp(raw string) time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, localTimeLayout} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}
	for _, layout := range naiveLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

// sortByTime orders by timestamp; samples without one go last, keeping input order.
func (s Series) sortByTime() {
	sort.SliceStable(s, func(i, j int) bool {
		a, b := s[i], s[j]
		if !a.HasTime() {
			return false
		}
		if !b.HasTime() {
			return true
		}
		return a.Timestamp.Before(b.Timestamp)
	})
}

// deltaSeconds is the elapsed time between two samples; 0 when either lacks a timestamp.
func deltaSeconds(prev, cur Sample) float64 {
	if !prev.HasTime() || !cur.HasTime() {
		return 0
	}
	return cur.Timestamp.Sub(prev.Timestamp).Seconds()
}

func (s Series) distanceUnusable() bool {
	maxDist, found := maxOf(s, func(x Sample) *float64 { return x.DistanceM })
	return !found || maxDist == 0
}

func (s Series) rebuildDistance() {
	total := 0.0
	s[0].DistanceM = floatPtr(0)
	for i := 1; i < len(s); i++ {
		prev, cur := s[i-1], s[i]
		total += HaversineMeters(prev.LatitudeDeg, prev.LongitudeDeg, cur.LatitudeDeg, cur.LongitudeDeg)
		s[i].DistanceM = floatPtr(total)
	}
}

func (s Series) speedMostlyMissing() bool {
	missing := len(s) - countPresent(s, func(x Sample) *float64 { return x.SpeedMPS })
	return float64(missing)/float64(len(s)) > 0.5
}

func (s Series) rebuildSpeed() {
	speeds := make([]float64, len(s))
	for i := 1; i < len(s); i++ {
		prev, cur := s[i-1], s[i]
		dt := deltaSeconds(prev, cur)
		if dt == 0 {
			continue
		}
		ds := 0.0
		if prev.DistanceM != nil && cur.DistanceM != nil {
			ds = *cur.DistanceM - *prev.DistanceM
		}
		speeds[i] = ds / dt
	}
	for i := range s {
		s[i].SpeedMPS = floatPtr(speeds[i])
	}
}

// fillAltitude interpolates interior gaps linearly by position and extends the
// first and last real values over leading and trailing gaps.
func (s Series) fillAltitude() {
	known := make([]int, 0, len(s))
	for i, x := range s {
		if x.AltitudeM != nil {
			known = append(known, i)
		}
	}
	if len(known) == 0 {
		return
	}

	first, last := known[0], known[len(known)-1]
	for i := 0; i < first; i++ {
		s[i].AltitudeM = floatPtr(*s[first].AltitudeM)
	}
	for i := last + 1; i < len(s); i++ {
		s[i].AltitudeM = floatPtr(*s[last].AltitudeM)
	}
	for k := 1; k < len(known); k++ {
		lo, hi := known[k-1], known[k]
		if hi-lo < 2 {
			continue
		}
		a, b := *s[lo].AltitudeM, *s[hi].AltitudeM
		span := float64(hi - lo)
		for i := lo + 1; i < hi; i++ {
			frac := float64(i-lo) / span
			s[i].AltitudeM = floatPtr(a + (b-a)*frac)
		}
	}
}

func countPresent(s Series, get func(Sample) *float64) int {
	n := 0
	for _, x := range s {
		if get(x) != nil {
			n++
		}
	}
	return n
}

func maxOf(s Series, get func(Sample) *float64) (float64, bool) {
	max := 0.0
	found := false
	for _, x := range s {
		v := get(x)
		if v == nil {
			continue
		}
		if !found || *v > max {
			max = *v
			found = true
		}
	}
	return max, found
}
