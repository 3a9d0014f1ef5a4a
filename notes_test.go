package fitenergy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildReport(t *testing.T) {
	sum := ComputeMetrics(steadyRide(), AggregateBundle{}, DefaultInputs())
	report := BuildReport(sum)

	for _, want := range []string{
		"Ride: 2024-05-04T10:00:00+0200 to 2024-05-04T10:01:00+0200 (Europe/Berlin)",
		"Duration 1m00s (moving 1m00s) | Distance 0.30 km | Elevation +7 m",
		"Speed 18.0 avg / 18.0 max km/h",
		"Power 200 avg / 200 max W | HR 145 avg / 150 max bpm | Cadence - avg / - max rpm",
		"- Rider work: 3.33 Wh (12000 J)",
		"- Motor energy: 412.50 Wh",
		"- Total: 415.83 Wh, rider share 1%",
		"- Mechanical: 2.9 kcal",
		"- Food estimate at 24% efficiency: 12 kcal",
		"- Food range: 14 kcal (20%) to 12 kcal (25%)",
	} {
		assert.Contains(t, report, want)
	}
	assert.NotContains(t, report, "Temperature")
	assert.False(t, strings.HasSuffix(report, "\n"))
}

func TestBuildReportWithoutOptionalInputs(t *testing.T) {
	report := BuildReport(ComputeMetrics(steadyRide(), AggregateBundle{}, Inputs{}))

	assert.Contains(t, report, "- Motor energy: not available")
	assert.Contains(t, report, "- Total: 3.33 Wh\n")
	assert.NotContains(t, report, "Food estimate")
	assert.Contains(t, report, "- Food range:")
}

func TestBuildReportNoData(t *testing.T) {
	assert.Equal(t, "No data: "+NoDataNote, BuildReport(ComputeMetrics(nil, AggregateBundle{}, DefaultInputs())))
	assert.Empty(t, BuildReport(nil))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", formatDuration(0))
	assert.Equal(t, "45s", formatDuration(44.6))
	assert.Equal(t, "2m05s", formatDuration(125))
	assert.Equal(t, "1h01m01s", formatDuration(3661))
}
