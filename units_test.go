package fitenergy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemicirclesToDegrees(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want *float64
	}{
		{"int32 max", int32(math.MaxInt32), floatPtr(float64(math.MaxInt32) * 180 / (1 << 31))},
		{"half turn", int32(1 << 30), floatPtr(90)},
		{"negative", int32(-(1 << 30)), floatPtr(-90)},
		{"float", 596523235.0, floatPtr(596523235.0 * 180 / (1 << 31))},
		{"numeric string", "1073741824", floatPtr(90)},
		{"nil", nil, nil},
		{"garbage string", "north", nil},
		{"struct", struct{}{}, nil},
		{"nan", math.NaN(), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SemicirclesToDegrees(tc.in)
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tc.want, *got, 1e-12)
		})
	}
}

func TestHaversineMeters(t *testing.T) {
	// One degree of latitude on a 6 371 km sphere.
	got := HaversineMeters(floatPtr(0), floatPtr(0), floatPtr(1), floatPtr(0))
	assert.InDelta(t, 6371000*math.Pi/180, got, 1e-6)

	// Berlin to Potsdam, roughly 27 km.
	got = HaversineMeters(floatPtr(52.5200), floatPtr(13.4050), floatPtr(52.3906), floatPtr(13.0645))
	assert.InDelta(t, 27000, got, 1000)

	assert.Zero(t, HaversineMeters(floatPtr(52.5), floatPtr(13.4), floatPtr(52.5), floatPtr(13.4)))
	assert.Zero(t, HaversineMeters(nil, floatPtr(13.4), floatPtr(52.5), floatPtr(13.4)))
	assert.Zero(t, HaversineMeters(floatPtr(52.5), floatPtr(13.4), floatPtr(52.5), nil))
}
