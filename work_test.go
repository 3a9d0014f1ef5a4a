package fitenergy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func powerSeries(powers ...*float64) Series {
	s := make(Series, len(powers))
	for i, p := range powers {
		s[i] = Sample{Timestamp: at(i * 10), PowerW: p}
	}
	return s
}

func TestIntegrateWorkTrapezoid(t *testing.T) {
	got := IntegrateWorkJoules(powerSeries(floatPtr(0), floatPtr(200)))
	assert.InDelta(t, 1000, got, 1e-9)

	got = IntegrateWorkJoules(powerSeries(floatPtr(100), floatPtr(200), floatPtr(300)))
	assert.InDelta(t, 4000, got, 1e-9)
}

func TestIntegrateWorkAbsentPowerCountsAsZero(t *testing.T) {
	got := IntegrateWorkJoules(powerSeries(floatPtr(200), nil, floatPtr(200)))
	// 10 s ramp down and 10 s ramp up, each averaging 100 W.
	assert.InDelta(t, 2000, got, 1e-9)
}

func TestIntegrateWorkNeedsTwoPowerSamples(t *testing.T) {
	assert.Zero(t, IntegrateWorkJoules(nil))
	assert.Zero(t, IntegrateWorkJoules(powerSeries(floatPtr(250))))
	assert.Zero(t, IntegrateWorkJoules(powerSeries(nil, floatPtr(200))))
	assert.Zero(t, IntegrateWorkJoules(powerSeries(nil, nil, nil)))
}

func TestIntegrateWorkSkipsZeroAndUntimedSteps(t *testing.T) {
	s := Series{
		{Timestamp: at(0), PowerW: floatPtr(100)},
		{Timestamp: at(0), PowerW: floatPtr(100)},
		{Timestamp: at(4), PowerW: floatPtr(100)},
		{PowerW: floatPtr(1000)},
	}
	assert.InDelta(t, 400, IntegrateWorkJoules(s), 1e-9)
}

func TestIntegrateWorkNonNegative(t *testing.T) {
	powers := []float64{0, 12.5, 300, 0, 0, 870, 1, 45}
	s := make(Series, 0, len(powers))
	for i, p := range powers {
		s = append(s, Sample{Timestamp: at(i*i + i), PowerW: floatPtr(p)})
	}
	for n := 0; n <= len(s); n++ {
		assert.GreaterOrEqual(t, IntegrateWorkJoules(s[:n]), 0.0, "prefix %d", n)
	}
}
