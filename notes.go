package fitenergy

import (
	"fmt"
	"math"
	"strings"
)

// BuildReport renders the summary as a short human-readable text block.
func BuildReport(s *Summary) string {
	if s == nil {
		return ""
	}
	if s.NoData() {
		return "No data: " + s.Note
	}

	var b strings.Builder

	if s.StartTime != nil && s.EndTime != nil {
		fmt.Fprintf(&b, "Ride: %s to %s (%s)\n", *s.StartTime, *s.EndTime, s.Timezone)
	}
	fmt.Fprintf(
		&b,
		"Duration %s (moving %s) | Distance %.2f km | Elevation +%.0f m\n",
		formatDuration(s.ElapsedTimeS),
		formatDuration(s.MovingTimeS),
		s.DistanceM/1000.0,
		s.ElevationGainM,
	)
	fmt.Fprintf(&b, "Speed %.1f avg / %.1f max km/h\n", s.AvgSpeedKmh, s.MaxSpeedKmh)
	fmt.Fprintf(
		&b,
		"Power %s avg / %s max W | HR %s avg / %s max bpm | Cadence %s avg / %s max rpm\n",
		formatOptional(s.AvgPowerW, "%.0f"),
		formatOptional(s.MaxPowerW, "%.0f"),
		formatOptional(s.AvgHeartRateBPM, "%.0f"),
		formatOptional(s.MaxHeartRateBPM, "%.0f"),
		formatOptional(s.AvgCadenceRPM, "%.0f"),
		formatOptional(s.MaxCadenceRPM, "%.0f"),
	)
	if s.AvgTemperatureC != nil {
		fmt.Fprintf(&b, "Temperature %.1f °C avg\n", *s.AvgTemperatureC)
	}

	b.WriteString("\nEnergy\n")
	fmt.Fprintf(&b, "- Rider work: %.2f Wh (%.0f J)\n", s.RiderWorkWh, s.RiderWorkJ)
	if s.MotorEnergyWh != nil {
		fmt.Fprintf(&b, "- Motor energy: %.2f Wh\n", *s.MotorEnergyWh)
	} else {
		b.WriteString("- Motor energy: not available (wall energy or charger efficiency missing)\n")
	}
	fmt.Fprintf(&b, "- Total: %.2f Wh", s.TotalWorkWh)
	if share, ok := riderShare(s); ok {
		fmt.Fprintf(&b, ", rider share %.0f%%", share)
	}
	b.WriteByte('\n')

	b.WriteString("\nCalories\n")
	fmt.Fprintf(&b, "- Mechanical: %.1f kcal\n", s.CaloriesMechanicalKcal)
	if s.CaloriesFoodEstKcal != nil && s.MuscleEffPctInput != nil {
		fmt.Fprintf(&b, "- Food estimate at %.0f%% efficiency: %.0f kcal\n", *s.MuscleEffPctInput, *s.CaloriesFoodEstKcal)
	}
	fmt.Fprintf(
		&b,
		"- Food range: %.0f kcal (20%%) to %.0f kcal (25%%)\n",
		s.CaloriesFoodEstRangeKcal.At20Pct,
		s.CaloriesFoodEstRangeKcal.At25Pct,
	)

	return strings.TrimSpace(b.String())
}

func riderShare(s *Summary) (float64, bool) {
	if s.TotalWorkWh <= 0 || s.MotorEnergyWh == nil {
		return 0, false
	}
	return s.RiderWorkWh / s.TotalWorkWh * 100, true
}

func formatOptional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "0s"
	}
	s := int(math.Round(seconds))
	h := s / 3600
	m := (s % 3600) / 60
	sec := s % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, sec)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, sec)
	}
	return fmt.Sprintf("%ds", sec)
}
