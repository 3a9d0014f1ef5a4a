package fitenergy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescendingPairHasNoGain(t *testing.T) {
	s := Series{
		{Timestamp: at(0), AltitudeM: floatPtr(100)},
		{Timestamp: at(10), AltitudeM: floatPtr(95), PowerW: floatPtr(200)},
	}
	assert.Zero(t, ElevationGain(s))

	sum := ComputeMetrics(s, AggregateBundle{}, DefaultInputs())
	assert.Zero(t, sum.ElevationGainM)
	// A single real power sample is below the integration threshold.
	assert.Zero(t, sum.RiderWorkJ)

	s[0].PowerW = floatPtr(0)
	sum = ComputeMetrics(s, AggregateBundle{}, DefaultInputs())
	assert.Equal(t, 1000.0, sum.RiderWorkJ)
	assert.Equal(t, 0.28, sum.RiderWorkWh)
}

func TestElevationGainSumsPositiveSteps(t *testing.T) {
	alts := []*float64{floatPtr(100), floatPtr(103), nil, floatPtr(101), floatPtr(104.5), floatPtr(104.5), floatPtr(90)}
	s := make(Series, len(alts))
	for i, a := range alts {
		s[i] = Sample{Timestamp: at(i), AltitudeM: a}
	}
	// 100->103 and 101->104.5; steps touching the gap are skipped.
	assert.InDelta(t, 6.5, ElevationGain(s), 1e-9)

	nonIncreasing := Series{{AltitudeM: floatPtr(10)}, {AltitudeM: floatPtr(10)}, {AltitudeM: floatPtr(3)}}
	assert.Zero(t, ElevationGain(nonIncreasing))
}

func TestComputeMetricsNoData(t *testing.T) {
	sum := ComputeMetrics(nil, AggregateBundle{}, DefaultInputs())
	require.NotNil(t, sum)
	assert.True(t, sum.NoData())
	assert.Equal(t, NoDataNote, sum.Note)

	raw, err := json.Marshal(sum)
	require.NoError(t, err)
	assert.JSONEq(t, `{"note":"no record data found"}`, string(raw))

	var back Summary
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, back.NoData())
}

func TestMotorEnergy(t *testing.T) {
	got := MotorEnergyWh(floatPtr(0.5), floatPtr(82.5))
	require.NotNil(t, got)
	assert.Equal(t, 412.5, *got)

	assert.Nil(t, MotorEnergyWh(nil, floatPtr(82.5)))
	assert.Nil(t, MotorEnergyWh(floatPtr(0.5), nil))
	assert.Nil(t, MotorEnergyWh(floatPtr(0), floatPtr(82.5)))
	assert.Nil(t, MotorEnergyWh(floatPtr(0.5), floatPtr(0)))
}

func steadyRide() Series {
	s := make(Series, 0, 11)
	for i := 0; i <= 10; i++ {
		s = append(s, Sample{
			Timestamp:    at(i * 6),
			DistanceM:    floatPtr(float64(i) * 30),
			SpeedMPS:     floatPtr(5),
			AltitudeM:    floatPtr(100 + float64(i%3)),
			HeartRateBPM: floatPtr(140 + float64(i)),
			PowerW:       floatPtr(200),
		})
	}
	s[10].SpeedMPS = floatPtr(0)
	return s
}

func TestComputeMetricsSteadyRide(t *testing.T) {
	sum := ComputeMetrics(steadyRide(), AggregateBundle{}, DefaultInputs())
	require.False(t, sum.NoData())

	require.NotNil(t, sum.StartTime)
	assert.Equal(t, "2024-05-04T10:00:00+0200", *sum.StartTime)
	assert.Equal(t, "2024-05-04T10:01:00+0200", *sum.EndTime)
	assert.Equal(t, LocalTimezone, sum.Timezone)

	assert.Equal(t, 60.0, sum.ElapsedTimeS)
	assert.Equal(t, 60.0, sum.MovingTimeS)
	assert.Equal(t, 300.0, sum.DistanceM)
	assert.Equal(t, 18.0, sum.AvgSpeedKmh)
	assert.Equal(t, 18.0, sum.MaxSpeedKmh)
	// 100,101,102,100,... climbs 2 m per full cycle plus 1 m at the end.
	assert.Equal(t, 7.0, sum.ElevationGainM)

	assert.Equal(t, 145.0, *sum.AvgHeartRateBPM)
	assert.Equal(t, 150.0, *sum.MaxHeartRateBPM)
	assert.Equal(t, 200.0, *sum.AvgPowerW)
	assert.Nil(t, sum.AvgCadenceRPM)
	assert.Nil(t, sum.MaxCadenceRPM)
	assert.Nil(t, sum.AvgTemperatureC)

	assert.Equal(t, 12000.0, sum.RiderWorkJ)
	assert.Equal(t, 3.33, sum.RiderWorkWh)
	assert.Equal(t, 412.5, *sum.MotorEnergyWh)
	assert.Equal(t, 415.83, sum.TotalWorkWh)
	assert.Equal(t, 1497000.0, sum.TotalWorkJ)

	assert.Equal(t, 2.9, sum.CaloriesMechanicalKcal)
	assert.Equal(t, 12.0, *sum.CaloriesFoodEstKcal)
	assert.Equal(t, CalorieRange{At20Pct: 14.3, At25Pct: 11.5}, sum.CaloriesFoodEstRangeKcal)

	assert.Equal(t, 0.5, *sum.WallEnergyKWhInput)
	assert.Equal(t, 82.5, *sum.WallToBatteryEffPctInput)
	assert.Equal(t, 24.0, *sum.MuscleEffPctInput)
}

func TestComputeMetricsMovingThreshold(t *testing.T) {
	s := steadyRide()
	for i := 3; i < 6; i++ {
		s[i].SpeedMPS = floatPtr(MovingSpeedThresholdMPS)
	}
	sum := ComputeMetrics(s, AggregateBundle{}, DefaultInputs())
	assert.Equal(t, 42.0, sum.MovingTimeS)
}

func TestComputeMetricsWithoutMuscleEfficiency(t *testing.T) {
	in := DefaultInputs()
	in.MuscleEffPct = nil

	sum := ComputeMetrics(steadyRide(), AggregateBundle{}, in)
	assert.Nil(t, sum.CaloriesFoodEstKcal)
	assert.Nil(t, sum.MuscleEffPctInput)
	assert.Equal(t, CalorieRange{At20Pct: 14.3, At25Pct: 11.5}, sum.CaloriesFoodEstRangeKcal)

	raw, err := json.Marshal(sum)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "calories_food_est_kcal")
	assert.Nil(t, doc["calories_food_est_kcal"])
	assert.Equal(t, map[string]any{"20%": 14.3, "25%": 11.5}, doc["calories_food_est_range_kcal"])
}

func TestComputeMetricsWithoutWallEnergy(t *testing.T) {
	in := DefaultInputs()
	in.WallEnergyKWh = nil

	sum := ComputeMetrics(steadyRide(), AggregateBundle{}, in)
	assert.Nil(t, sum.MotorEnergyWh)
	assert.Equal(t, sum.RiderWorkWh, sum.TotalWorkWh)
}

func TestComputeMetricsIgnoresAggregates(t *testing.T) {
	agg := AggregateBundle{
		Sessions: []Fields{{"total_distance": 99999.0, "total_work": uint32(1)}},
		Laps:     []Fields{{"total_elapsed_time": 1.0}},
	}
	assert.Equal(t,
		ComputeMetrics(steadyRide(), AggregateBundle{}, DefaultInputs()),
		ComputeMetrics(steadyRide(), agg, DefaultInputs()),
	)
}

func TestComputeMetricsWithoutTimestamps(t *testing.T) {
	s := Series{
		{DistanceM: floatPtr(10), SpeedMPS: floatPtr(3)},
		{DistanceM: floatPtr(20), SpeedMPS: floatPtr(3)},
	}
	sum := ComputeMetrics(s, AggregateBundle{}, DefaultInputs())
	assert.Nil(t, sum.StartTime)
	assert.Nil(t, sum.EndTime)
	assert.Zero(t, sum.ElapsedTimeS)
	assert.Zero(t, sum.AvgSpeedKmh)
	assert.Equal(t, 20.0, sum.DistanceM)
}

func TestExtractAggregates(t *testing.T) {
	src := StaticSource{
		KindSession: {{"sport": "cycling"}},
		KindLap:     {{"total_timer_time": 60.0}, {"total_timer_time": 30.0}},
	}
	agg := ExtractAggregates(src)
	assert.Len(t, agg.Sessions, 1)
	assert.Len(t, agg.Laps, 2)
	assert.Equal(t, AggregateBundle{}, ExtractAggregates(nil))
}
