package fitenergy

// AggregateBundle carries the file's own session and lap summaries as decoded.
// It is passed along with the samples but not interpreted.
type AggregateBundle struct {
	Sessions []Fields `json:"sessions"`
	Laps     []Fields `json:"laps"`
}

// ExtractAggregates collects session and lap messages without modification.
func ExtractAggregates(src MessageSource) AggregateBundle {
	if src == nil {
		return AggregateBundle{}
	}
	return AggregateBundle{
		Sessions: src.Messages(KindSession),
		Laps:     src.Messages(KindLap),
	}
}
