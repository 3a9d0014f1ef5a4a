package fitenergy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 4, 8, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return t0.Add(time.Duration(sec) * time.Second) }

func TestSamplesFromFieldsTypedLookups(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	records := []Fields{
		{
			"timestamp":         at(5).In(berlin),
			"position_lat":      int32(1 << 30),
			"position_long":     int32(-(1 << 29)),
			"altitude":          90.0,
			"enhanced_altitude": 91.5,
			"speed":             4.0,
			"enhanced_speed":    4.25,
			"distance":          12.5,
			"heart_rate":        uint8(131),
			"cadence":           uint8(85),
			"power":             uint16(210),
			"temperature":       int8(18),
		},
		{
			"timestamp": "2024-05-04T08:00:02",
			"power":     "not a number",
			"distance":  1.0,
			"speed":     1.0,
		},
		{
			"timestamp": "2024-05-04T10:00:01+02:00",
			"distance":  0.5,
			"speed":     0.5,
		},
	}

	series, _ := SamplesFromFields(records)
	require.Len(t, series, 3)

	assert.Equal(t, at(1), series[0].Timestamp)
	assert.Equal(t, at(2), series[1].Timestamp)
	assert.Nil(t, series[1].PowerW, "unparsable power fails closed")

	s := series[2]
	assert.Equal(t, at(5), s.Timestamp)
	assert.Equal(t, time.UTC, s.Timestamp.Location())
	assert.Equal(t, 90.0, *s.LatitudeDeg)
	assert.Equal(t, -45.0, *s.LongitudeDeg)
	assert.Equal(t, 91.5, *s.AltitudeM, "enhanced altitude wins")
	assert.Equal(t, 4.25, *s.SpeedMPS, "enhanced speed wins")
	assert.Equal(t, 12.5, *s.DistanceM)
	assert.Equal(t, 131.0, *s.HeartRateBPM)
	assert.Equal(t, 85.0, *s.CadenceRPM)
	assert.Equal(t, 210.0, *s.PowerW)
	assert.Equal(t, 18.0, *s.TemperatureC)
}

func TestSamplesWithoutTimestampSortLast(t *testing.T) {
	records := []Fields{
		{"power": uint16(1)},
		{"timestamp": at(2), "power": uint16(2)},
		{"timestamp": "garbage", "power": uint16(3)},
		{"timestamp": at(1), "power": uint16(4)},
	}
	series, _ := SamplesFromFields(records)
	require.Len(t, series, 4)

	var powers []float64
	for _, s := range series {
		powers = append(powers, *s.PowerW)
	}
	assert.Equal(t, []float64{4, 2, 1, 3}, powers)
	assert.False(t, series[2].HasTime())
	assert.False(t, series[3].HasTime())
}

func TestEmptyInputSkipsReconstruction(t *testing.T) {
	series, rec := ExtractSamples(StaticSource{})
	assert.Empty(t, series)
	assert.Equal(t, Reconstruction{}, rec)

	series, rec = ExtractSamples(nil)
	assert.Empty(t, series)
	assert.Equal(t, Reconstruction{}, rec)
}

func TestDistanceReconstruction(t *testing.T) {
	records := []Fields{
		{"timestamp": at(0), "position_lat": int32(626349397), "position_long": int32(159868276)},
		{"timestamp": at(1), "position_lat": int32(626350000), "position_long": int32(159868276)},
		{"timestamp": at(2)},
		{"timestamp": at(3), "position_lat": int32(626351200), "position_long": int32(159868276)},
		{"timestamp": at(4), "position_lat": int32(626351200), "position_long": int32(159868276)},
	}
	series, rec := ExtractSamples(StaticSource{KindRecord: records})
	require.True(t, rec.Distance)

	require.NotNil(t, series[0].DistanceM)
	assert.Equal(t, 0.0, *series[0].DistanceM)
	prev := 0.0
	for i, s := range series {
		require.NotNil(t, s.DistanceM, "sample %d", i)
		assert.GreaterOrEqual(t, *s.DistanceM, prev, "sample %d", i)
		prev = *s.DistanceM
	}
	assert.Equal(t, *series[1].DistanceM, *series[2].DistanceM, "missing position contributes 0")
	assert.Equal(t, *series[2].DistanceM, *series[3].DistanceM, "step from a missing position contributes 0")
	assert.Greater(t, *series[1].DistanceM, 0.0)
}

func TestDistanceAllZeroIsRebuilt(t *testing.T) {
	records := []Fields{
		{"timestamp": at(0), "distance": 0.0, "position_lat": int32(0), "position_long": int32(0)},
		{"timestamp": at(1), "distance": 0.0, "position_lat": int32(11930465), "position_long": int32(0)},
	}
	series, rec := SamplesFromFields(records)
	require.True(t, rec.Distance)
	// 11930465 semicircles is 1 degree.
	assert.InDelta(t, 111194.9, *series[1].DistanceM, 0.1)
}

func TestNativeDistanceKept(t *testing.T) {
	records := []Fields{
		{"timestamp": at(0), "distance": 0.0, "speed": 3.0},
		{"timestamp": at(1), "distance": 3.0, "speed": 3.0},
	}
	series, rec := SamplesFromFields(records)
	assert.False(t, rec.Distance)
	assert.False(t, rec.Speed)
	assert.Equal(t, 3.0, *series[1].DistanceM)
}

func TestSpeedReconstruction(t *testing.T) {
	records := []Fields{
		{"timestamp": at(0), "distance": 0.0},
		{"timestamp": at(2), "distance": 10.0},
		{"timestamp": at(2), "distance": 12.0},
		{"timestamp": at(4), "distance": 20.0, "speed": 9.0},
		{"distance": 30.0},
		{"timestamp": at(6)},
	}
	series, rec := SamplesFromFields(records)
	require.True(t, rec.Speed)

	got := make([]float64, len(series))
	for i, s := range series {
		require.NotNil(t, s.SpeedMPS, "sample %d left absent", i)
		got[i] = *s.SpeedMPS
	}
	// Order after sort: t0, t2(10), t2(12), t4(20), t6(missing distance), untimed(30).
	assert.Equal(t, []float64{0, 5, 0, 4, 0, 0}, got)
}

func TestSpeedKeptWhenHalfPresent(t *testing.T) {
	records := []Fields{
		{"timestamp": at(0), "distance": 0.0, "speed": 1.0},
		{"timestamp": at(1), "distance": 5.0},
	}
	series, rec := SamplesFromFields(records)
	assert.False(t, rec.Speed)
	assert.Nil(t, series[1].SpeedMPS)
}

func TestAltitudeFill(t *testing.T) {
	alt := []any{nil, 100.0, 102.0, nil, nil, 108.0, 110.0, 111.0, 112.0, nil}
	records := make([]Fields, len(alt))
	for i, a := range alt {
		records[i] = Fields{"timestamp": at(i)}
		if a != nil {
			records[i]["altitude"] = a
		}
	}

	series, rec := SamplesFromFields(records)
	require.True(t, rec.Altitude)

	want := []float64{100, 100, 102, 104, 106, 108, 110, 111, 112, 112}
	for i, w := range want {
		require.NotNil(t, series[i].AltitudeM, "sample %d", i)
		assert.InDelta(t, w, *series[i].AltitudeM, 1e-9, "sample %d", i)
	}
}

func TestAltitudeFillNeedsMoreThanFive(t *testing.T) {
	alt := []any{100.0, nil, 101.0, 102.0, 103.0, 104.0}
	records := make([]Fields, len(alt))
	for i, a := range alt {
		records[i] = Fields{"timestamp": at(i)}
		if a != nil {
			records[i]["altitude"] = a
		}
	}

	series, rec := SamplesFromFields(records)
	assert.False(t, rec.Altitude)
	assert.Nil(t, series[1].AltitudeM)
}
