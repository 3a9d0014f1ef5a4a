package fitenergy

import (
	"encoding/json"
	"math"
	"time"
	_ "time/tzdata" // Europe/Berlin must resolve on hosts without zoneinfo
)

const (
	// LocalTimezone is the zone all human-facing timestamps are rendered in.
	LocalTimezone = "Europe/Berlin"

	// MovingSpeedThresholdMPS is the speed above which a sample counts as moving.
	MovingSpeedThresholdMPS = 0.5

	// JoulesPerKcal converts mechanical work to kilocalories.
	JoulesPerKcal = 4184.0

	secondsPerHour   = 3600.0
	mpsToKmhFactor   = 3.6
	localTimeLayout  = "2006-01-02T15:04:05-0700"
	NoDataNote       = "no record data found"
	referenceEffLow  = 0.20
	referenceEffHigh = 0.25
)

// Defaults for the user-supplied inputs.
const (
	DefaultWallEnergyKWh       = 0.5
	DefaultWallToBatteryEffPct = 82.5
	DefaultMuscleEffPct        = 24.0
)

var localZone = loadZone(LocalTimezone)

func loadZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// FormatLocal renders t in the local zone with a numeric UTC offset.
func FormatLocal(t time.Time) string {
	return t.In(localZone).Format(localTimeLayout)
}

// Inputs are the externally measured values folded into the summary.
// A nil field means the user did not supply it.
type Inputs struct {
	WallEnergyKWh       *float64
	WallToBatteryEffPct *float64
	MuscleEffPct        *float64
}

// DefaultInputs returns the inputs used when nothing else is configured.
func DefaultInputs() Inputs {
	return Inputs{
		WallEnergyKWh:       floatPtr(DefaultWallEnergyKWh),
		WallToBatteryEffPct: floatPtr(DefaultWallToBatteryEffPct),
		MuscleEffPct:        floatPtr(DefaultMuscleEffPct),
	}
}

// CalorieRange is the food-calorie estimate at the two reference efficiencies.
type CalorieRange struct {
	At20Pct float64 `json:"20%"`
	At25Pct float64 `json:"25%"`
}

// Summary is the derived per-activity record written to the JSON output.
type Summary struct {
	StartTime      *string `json:"start_time"`
	EndTime        *string `json:"end_time"`
	Timezone       string  `json:"timezone"`
	ElapsedTimeS   float64 `json:"elapsed_time_s"`
	MovingTimeS    float64 `json:"moving_time_s"`
	DistanceM      float64 `json:"distance_m"`
	AvgSpeedKmh    float64 `json:"avg_speed_kmh"`
	MaxSpeedKmh    float64 `json:"max_speed_kmh"`
	ElevationGainM float64 `json:"elevation_gain_m"`

	AvgHeartRateBPM *float64 `json:"avg_heart_rate_bpm"`
	MaxHeartRateBPM *float64 `json:"max_heart_rate_bpm"`
	AvgCadenceRPM   *float64 `json:"avg_cadence_rpm"`
	MaxCadenceRPM   *float64 `json:"max_cadence_rpm"`
	AvgPowerW       *float64 `json:"avg_power_w"`
	MaxPowerW       *float64 `json:"max_power_w"`
	AvgTemperatureC *float64 `json:"avg_temperature_c"`

	RiderWorkWh   float64  `json:"rider_work_Wh"`
	RiderWorkJ    float64  `json:"rider_work_J"`
	MotorEnergyWh *float64 `json:"motor_energy_Wh"`
	TotalWorkWh   float64  `json:"total_work_Wh"`
	TotalWorkJ    float64  `json:"total_work_J"`

	CaloriesMechanicalKcal   float64      `json:"calories_mechanical_kcal"`
	CaloriesFoodEstKcal      *float64     `json:"calories_food_est_kcal"`
	CaloriesFoodEstRangeKcal CalorieRange `json:"calories_food_est_range_kcal"`

	WallEnergyKWhInput       *float64 `json:"wall_energy_kWh_input"`
	WallToBatteryEffPctInput *float64 `json:"wall2battery_eff_pct_input"`
	MuscleEffPctInput        *float64 `json:"muscle_eff_pct_input"`

	// Note is set only on the no-data summary.
	Note string `json:"-"`
}

// NoData reports whether s is the sentinel produced for an empty series.
func (s *Summary) NoData() bool {
	return s != nil && s.Note != ""
}

// MarshalJSON renders the no-data sentinel as a single explanatory note.
func (s Summary) MarshalJSON() ([]byte, error) {
	if s.Note != "" {
		return json.Marshal(struct {
			Note string `json:"note"`
		}{Note: s.Note})
	}
	type plain Summary
	return json.Marshal(plain(s))
}

// UnmarshalJSON accepts both the full summary and the no-data note.
func (s *Summary) UnmarshalJSON(data []byte) error {
	var probe struct {
		Note string `json:"note"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Note != "" {
		*s = Summary{Note: probe.Note}
		return nil
	}
	type plain Summary
	return json.Unmarshal(data, (*plain)(s))
}

// ComputeMetrics derives the activity summary. The aggregate bundle is
// accepted for callers that carry it but does not influence the result.
// An empty series yields the no-data summary.
func ComputeMetrics(series Series, agg AggregateBundle, in Inputs) *Summary {
	if len(series) == 0 {
		return &Summary{Note: NoDataNote}
	}

	out := &Summary{
		Timezone:                 LocalTimezone,
		WallEnergyKWhInput:       copyFloat(in.WallEnergyKWh),
		WallToBatteryEffPctInput: copyFloat(in.WallToBatteryEffPct),
		MuscleEffPctInput:        copyFloat(in.MuscleEffPct),
	}

	start, end, haveTime := timeBounds(series)
	elapsed := 0.0
	if haveTime {
		elapsed = end.Sub(start).Seconds()
		startStr, endStr := FormatLocal(start), FormatLocal(end)
		out.StartTime = &startStr
		out.EndTime = &endStr
	}

	distance, _ := maxOf(series, func(x Sample) *float64 { return x.DistanceM })
	avgSpeed := 0.0
	if elapsed > 0 {
		avgSpeed = distance / elapsed
	}
	maxSpeed, _ := maxOf(series, func(x Sample) *float64 { return x.SpeedMPS })

	out.ElapsedTimeS = round1(elapsed)
	out.MovingTimeS = round1(movingSeconds(series))
	out.DistanceM = round1(distance)
	out.AvgSpeedKmh = round2(avgSpeed * mpsToKmhFactor)
	out.MaxSpeedKmh = round2(maxSpeed * mpsToKmhFactor)
	out.ElevationGainM = round1(ElevationGain(series))

	out.AvgHeartRateBPM, out.MaxHeartRateBPM = columnStats(series, func(x Sample) *float64 { return x.HeartRateBPM })
	out.AvgCadenceRPM, out.MaxCadenceRPM = columnStats(series, func(x Sample) *float64 { return x.CadenceRPM })
	out.AvgPowerW, out.MaxPowerW = columnStats(series, func(x Sample) *float64 { return x.PowerW })
	out.AvgTemperatureC, _ = columnStats(series, func(x Sample) *float64 { return x.TemperatureC })

	riderJ := IntegrateWorkJoules(series)
	riderWh := riderJ / secondsPerHour
	motorWh := MotorEnergyWh(in.WallEnergyKWh, in.WallToBatteryEffPct)
	totalWh := riderWh + valueOrZero(motorWh)

	out.RiderWorkWh = round2(riderWh)
	out.RiderWorkJ = round1(riderJ)
	if motorWh != nil {
		out.MotorEnergyWh = floatPtr(round2(*motorWh))
	}
	out.TotalWorkWh = round2(totalWh)
	out.TotalWorkJ = round1(totalWh * secondsPerHour)

	mechKcal := riderJ / JoulesPerKcal
	out.CaloriesMechanicalKcal = round1(mechKcal)
	if in.MuscleEffPct != nil && *in.MuscleEffPct != 0 {
		out.CaloriesFoodEstKcal = floatPtr(round1(mechKcal / (*in.MuscleEffPct / 100)))
	}
	out.CaloriesFoodEstRangeKcal = CalorieRange{
		At20Pct: round1(mechKcal / referenceEffLow),
		At25Pct: round1(mechKcal / referenceEffHigh),
	}

	return out
}

// MotorEnergyWh is the energy delivered to the battery for the measured wall
// recharge. Both inputs must be supplied and non-zero.
func MotorEnergyWh(wallKWh, effPct *float64) *float64 {
	if wallKWh == nil || effPct == nil || *wallKWh == 0 || *effPct == 0 {
		return nil
	}
	return floatPtr(*wallKWh * 1000 * (*effPct / 100))
}

// ElevationGain sums the positive steps between consecutive real altitudes.
func ElevationGain(s Series) float64 {
	gain := 0.0
	for i := 1; i < len(s); i++ {
		prev, cur := s[i-1].AltitudeM, s[i].AltitudeM
		if prev == nil || cur == nil {
			continue
		}
		if d := *cur - *prev; d > 0 {
			gain += d
		}
	}
	return gain
}

// movingSeconds sums the intervals that start at a sample faster than the threshold.
func movingSeconds(s Series) float64 {
	total := 0.0
	for i := 1; i < len(s); i++ {
		if valueOrZero(s[i-1].SpeedMPS) > MovingSpeedThresholdMPS {
			total += deltaSeconds(s[i-1], s[i])
		}
	}
	return total
}

func timeBounds(s Series) (time.Time, time.Time, bool) {
	var start, end time.Time
	found := false
	for _, x := range s {
		if !x.HasTime() {
			continue
		}
		if !found || x.Timestamp.Before(start) {
			start = x.Timestamp
		}
		if !found || x.Timestamp.After(end) {
			end = x.Timestamp
		}
		found = true
	}
	return start, end, found
}

// columnStats returns the rounded mean and max of the present values, or nil
// for both when the column is empty.
func columnStats(s Series, get func(Sample) *float64) (*float64, *float64) {
	sum := 0.0
	n := 0
	for _, x := range s {
		if v := get(x); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil, nil
	}
	max, _ := maxOf(s, get)
	return floatPtr(round1(sum / float64(n))), floatPtr(round1(max))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return floatPtr(*v)
}
