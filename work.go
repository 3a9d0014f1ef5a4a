package fitenergy

// IntegrateWorkJoules integrates power over time with the trapezoidal rule.
// Missing power counts as 0 W; fewer than two real power samples give 0.
func IntegrateWorkJoules(s Series) float64 {
	if countPresent(s, func(x Sample) *float64 { return x.PowerW }) < 2 {
		return 0
	}

	work := 0.0
	for i := 1; i < len(s); i++ {
		prev, cur := s[i-1], s[i]
		dt := deltaSeconds(prev, cur)
		if dt == 0 {
			continue
		}
		work += (valueOrZero(cur.PowerW) + valueOrZero(prev.PowerW)) / 2 * dt
	}
	return work
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
